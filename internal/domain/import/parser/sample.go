package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// SampleHeaders is the column layout of generated statements.
var SampleHeaders = []string{"Date", "Description", "Debit", "Credit", "Balance"}

var (
	sampleDebits = []string{
		"Monthly Rent Payment", "Big Bazaar grocery", "Uber ride", "Ola cab",
		"Cafe Coffee Day", "Restaurant dinner", "Electricity bill", "Water bill",
		"Amazon order", "Flipkart shopping", "Fuel station",
	}
	sampleCredits = []string{"Salary credit", "Interest credit", "Refund credit"}
)

// SampleGenerator produces synthetic statements for demos and load tests.
type SampleGenerator struct {
	faker *gofakeit.Faker
}

// NewSampleGenerator creates a generator. The same seed yields the same
// statement; seed 0 is random.
func NewSampleGenerator(seed int64) *SampleGenerator {
	return &SampleGenerator{faker: gofakeit.New(seed)}
}

// Records returns a header record followed by n transactions starting at
// start, one or two days apart, with a running balance.
func (g *SampleGenerator) Records(n int, start time.Time) [][]string {
	records := make([][]string, 0, n+1)
	records = append(records, append([]string(nil), SampleHeaders...))

	balance := decimal.NewFromInt(int64(g.faker.IntRange(20000, 80000)))
	day := start
	for i := 0; i < n; i++ {
		var desc, debit, credit string
		if g.faker.IntRange(0, 4) == 0 {
			amount := decimal.NewFromFloat(g.faker.Float64Range(1000, 60000)).Round(2)
			desc = g.faker.RandomString(sampleCredits)
			credit = amount.StringFixed(2)
			balance = balance.Add(amount)
		} else {
			amount := decimal.NewFromFloat(g.faker.Float64Range(50, 5000)).Round(2)
			desc = g.faker.RandomString(sampleDebits)
			if g.faker.Bool() {
				desc = fmt.Sprintf("%s %s", desc, g.faker.Company())
			}
			debit = amount.StringFixed(2)
			balance = balance.Sub(amount)
		}
		records = append(records, []string{
			day.Format("2-Jan-06"), desc, debit, credit, balance.StringFixed(2),
		})
		day = day.AddDate(0, 0, g.faker.IntRange(1, 2))
	}
	return records
}

// WriteCSV writes a generated statement of n transactions.
func (g *SampleGenerator) WriteCSV(w io.Writer, n int, start time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(g.Records(n, start)); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}
