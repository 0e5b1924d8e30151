package statement

import (
	"strings"
	"time"
)

// ISODate is the canonical date layout.
const ISODate = "2006-01-02"

// dateLayouts are tried in order; the first that yields a valid calendar
// date wins. time.Parse rejects impossible dates such as 2017-02-29.
var dateLayouts = []string{
	"2-Jan-06", // 1-Apr-15
	"2006-1-2", // 2015-04-01 or 2015-4-1
	"2/1/2006", // 01/04/2015 day first
	"1/2/2006", // 04/01/2015 month first
}

// DateResult is the outcome of normalizing one date cell.
type DateResult struct {
	Raw    string
	Time   time.Time
	Layout string
	Parsed bool
}

// String returns the ISO date when parsed, otherwise the raw input unchanged.
func (r DateResult) String() string {
	if !r.Parsed {
		return r.Raw
	}
	return r.Time.Format(ISODate)
}

// YearMonth returns the "YYYY-MM" bucket key, or "" when the date did not parse.
func (r DateResult) YearMonth() string {
	if !r.Parsed {
		return ""
	}
	return r.Time.Format("2006-01")
}

// ParseDate runs the layout cascade over a raw date cell. Failure is not an
// error: the result keeps the raw text with Parsed=false.
func ParseDate(raw string) DateResult {
	value := strings.TrimSpace(raw)
	if value != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return DateResult{Raw: raw, Time: t, Layout: layout, Parsed: true}
			}
		}
	}
	return DateResult{Raw: raw}
}

// NormalizeDate converts a raw date to YYYY-MM-DD, or returns it unchanged
// when no layout matches.
func NormalizeDate(raw string) string {
	return ParseDate(raw).String()
}
