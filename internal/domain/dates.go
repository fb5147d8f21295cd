package domain

import (
	"fmt"
	"regexp"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// ParseDate validates a zero-padded YYYY-MM-DD calendar day. Dates are kept as
// strings throughout the engine and compared lexicographically, so anything
// that would miscompare is rejected here.
func ParseDate(s string) (string, error) {
	if !dateRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidDateFormat, s, err)
	}
	return s, nil
}

// PrevDay returns the calendar day before a valid date.
func PrevDay(date string) (string, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateFormat, date)
	}
	return t.AddDate(0, 0, -1).Format(dateLayout), nil
}

// Month is a calendar month key in the form YYYY-MM.
type Month string

// ParseMonth validates a YYYY-MM month key. A full YYYY-MM-DD date is accepted
// and truncated to its month, which is how YNAB4 stores monthly budgets.
func ParseMonth(s string) (Month, error) {
	if dateRe.MatchString(s) {
		if _, err := ParseDate(s); err != nil {
			return "", err
		}
		s = s[:7]
	}
	if !monthRe.MatchString(s) {
		return "", fmt.Errorf("%w: month %q", ErrInvalidDateFormat, s)
	}
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", fmt.Errorf("%w: month %q: %v", ErrInvalidDateFormat, s, err)
	}
	return Month(s), nil
}

// MonthOf returns the month a YYYY-MM-DD date falls in.
func MonthOf(date string) Month {
	if len(date) < 7 {
		return ""
	}
	return Month(date[:7])
}

func (m Month) String() string {
	return string(m)
}

func (m Month) time() time.Time {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Prev returns the month before m.
func (m Month) Prev() Month {
	return Month(m.time().AddDate(0, -1, 0).Format(monthLayout))
}

// Next returns the month after m.
func (m Month) Next() Month {
	return Month(m.time().AddDate(0, 1, 0).Format(monthLayout))
}

// FirstDay returns the first calendar day of the month.
func (m Month) FirstDay() string {
	return string(m) + "-01"
}

// LastDay returns the last calendar day of the month.
func (m Month) LastDay() string {
	return m.time().AddDate(0, 1, -1).Format(dateLayout)
}

// Contains reports whether the date falls in the month.
func (m Month) Contains(date string) bool {
	return MonthOf(date) == m
}

// MonthNumber returns the calendar month (1-12).
func (m Month) MonthNumber() int {
	return int(m.time().Month())
}

// MonthsBetween lists every month from start to end inclusive. It returns nil
// when end is before start.
func MonthsBetween(start, end Month) []Month {
	if end < start {
		return nil
	}
	var months []Month
	for m := start; m <= end; m = m.Next() {
		months = append(months, m)
	}
	return months
}
