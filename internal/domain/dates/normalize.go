package dates

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical calendar date format.
const Layout = "2006-01-02"

// Order decides how a slash-separated date with two small leading parts is read.
type Order int

const (
	DayFirst Order = iota
	MonthFirst
)

// maxSerial is the spreadsheet serial of 9999-12-31.
const maxSerial = 2958465

var (
	isoPrefix   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	serialText  = regexp.MustCompile(`^\d{4,7}(\.\d+)?$`)
	// spreadsheet serial 0 is 1899-12-30, so serial 25569 is 1970-01-01.
	serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
)

func ParseOrder(value string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "dmy":
		return DayFirst, nil
	case "mdy":
		return MonthFirst, nil
	default:
		return DayFirst, fmt.Errorf("unknown slash date order %q", value)
	}
}

type Normalizer struct {
	Order Order
}

// Normalize converts a raw cell value into a YYYY-MM-DD string. The second
// return value is false when the value is empty or not a real calendar date.
func (n Normalizer) Normalize(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return n.normalizeString(v)
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return v.Format(Layout), true
	case *time.Time:
		if v == nil {
			return "", false
		}
		return n.Normalize(*v)
	case float64:
		return fromSerial(v)
	case float32:
		return fromSerial(float64(v))
	case int:
		return fromSerial(float64(v))
	case int64:
		return fromSerial(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return "", false
		}
		return fromSerial(f)
	default:
		return "", false
	}
}

func (n Normalizer) normalizeString(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if isoPrefix.MatchString(s) {
		return validate(s[:10])
	}
	if parts := strings.Split(s, "."); len(parts) == 3 {
		return build(parts[2], parts[1], parts[0])
	}
	if parts := strings.Split(s, "/"); len(parts) == 3 {
		first, second := parts[0], parts[1]
		firstNum, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil {
			return "", false
		}
		if n.Order == MonthFirst && firstNum <= 12 {
			return build(parts[2], first, second)
		}
		return build(parts[2], second, first)
	}
	// spreadsheet readers hand serials over as text
	if serialText.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(f)
		}
	}
	return "", false
}

func fromSerial(serial float64) (string, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return "", false
	}
	days := math.Floor(serial)
	if days <= 0 || days > maxSerial {
		return "", false
	}
	return serialEpoch.AddDate(0, 0, int(days)).Format(Layout), true
}

func build(year, month, day string) (string, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 0 {
		return "", false
	}
	if len(strings.TrimSpace(year)) <= 2 {
		y += 2000
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return "", false
	}
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil {
		return "", false
	}
	return validate(fmt.Sprintf("%04d-%02d-%02d", y, m, d))
}

func validate(iso string) (string, bool) {
	t, err := time.Parse(Layout, iso)
	if err != nil {
		return "", false
	}
	return t.Format(Layout), true
}

// Parse reads a canonical date. It is meant for values that already went
// through Normalize.
func Parse(iso string) (time.Time, error) {
	return time.Parse(Layout, iso)
}

// YearMonth returns the calendar year and month of a canonical date.
func YearMonth(iso string) (int, int, error) {
	t, err := Parse(iso)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), int(t.Month()), nil
}

// Dotted renders a canonical date as dd.mm.yyyy.
func Dotted(iso string) string {
	t, err := Parse(iso)
	if err != nil {
		return iso
	}
	return t.Format("02.01.2006")
}

// Span lists every date from start to end inclusive.
func Span(start, end string) ([]string, error) {
	from, err := Parse(start)
	if err != nil {
		return nil, err
	}
	to, err := Parse(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end %s is before start %s", end, start)
	}
	var out []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(Layout))
	}
	return out, nil
}

// Next returns the day after iso.
func Next(iso string) string {
	t, err := Parse(iso)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(Layout)
}
