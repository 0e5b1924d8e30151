package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespace(t *testing.T) {
	tests := map[string]string{
		"HDFC Bank":              "hdfc-bank",
		"  State Bank of India ": "state-bank-of-india",
		"ICICI/Bank!!":           "icici-bank",
		"":                       "unknown",
		"***":                    "unknown",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Namespace(in))
		})
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	info, err := store.Upload(ctx, "HDFC Bank", "../jan statement.csv", "text/csv", strings.NewReader("Date,Amount\n"))
	require.NoError(t, err)
	assert.Equal(t, "../jan statement.csv", info.Name)
	assert.Equal(t, int64(12), info.Size)
	assert.NotContains(t, info.Path, "..")
	assert.True(t, strings.HasPrefix(info.Path, "hdfc-bank"))

	rc, got, err := store.Download(ctx, "HDFC Bank", info.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "Date,Amount\n", string(data))
	assert.Equal(t, info.ID, got.ID)

	_, err = store.Upload(ctx, "HDFC Bank", "feb.csv", "text/csv", strings.NewReader("x"))
	require.NoError(t, err)

	files, err := store.List(ctx, "HDFC Bank")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	empty, err := store.List(ctx, "Axis Bank")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Delete(ctx, "HDFC Bank", info.ID))
	_, _, err = store.Download(ctx, "HDFC Bank", info.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), &Config{Type: StorageTypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(context.Background(), &Config{Type: "s3"})
	assert.Error(t, err)

	_, err = NewGCSStorage(context.Background(), "")
	assert.Error(t, err)
}

func TestGCSObjectMetadata(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	name := objectName("ICICI Bank", id, "mar.csv")
	assert.Equal(t, "icici-bank/0f8fad5b_mar.csv", name)

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	info := infoFromAttrs(&gcs.ObjectAttrs{
		Name:        name,
		Size:        42,
		ContentType: "text/csv",
		Created:     created,
		Metadata:    map[string]string{metaFileID: id.String(), metaOriginalName: "mar.csv"},
	})
	assert.Equal(t, &FileInfo{ID: id, Name: "mar.csv", Size: 42, ContentType: "text/csv", Path: name, CreatedAt: created}, info)

	bare := infoFromAttrs(&gcs.ObjectAttrs{Name: "x/abc_y.csv"})
	assert.Equal(t, "abc_y.csv", bare.Name)
	assert.Equal(t, uuid.Nil, bare.ID)
}
