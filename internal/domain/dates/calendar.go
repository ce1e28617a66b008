package dates

import "time"

// Breakdown counts the days of a duty period by kind. Holidays take
// precedence over Friday and Saturday.
type Breakdown struct {
	Weekdays  int `json:"weekdays"`
	Fridays   int `json:"fridays"`
	Saturdays int `json:"saturdays"`
	Holidays  int `json:"holidays"`
}

type Calendar struct {
	holidays map[string]struct{}
}

func NewCalendar(holidays []string) Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, day := range holidays {
		if iso, ok := (Normalizer{}).Normalize(day); ok {
			set[iso] = struct{}{}
		}
	}
	return Calendar{holidays: set}
}

func (c Calendar) IsHoliday(iso string) bool {
	_, ok := c.holidays[iso]
	return ok
}

func (c Calendar) Breakdown(days []string) Breakdown {
	var b Breakdown
	for _, day := range days {
		t, err := Parse(day)
		if err != nil {
			continue
		}
		switch {
		case c.IsHoliday(day):
			b.Holidays++
		case t.Weekday() == time.Saturday:
			b.Saturdays++
		case t.Weekday() == time.Friday:
			b.Fridays++
		default:
			b.Weekdays++
		}
	}
	return b
}
