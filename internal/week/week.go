package week

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidWeekSpec indicates a malformed or out-of-range ISO year/week pair.
var ErrInvalidWeekSpec = errors.New("week: invalid week spec")

const (
	minYear = 1
	maxYear = 9999
)

// Range is the calendar window covered by a report for one ISO week.
type Range struct {
	Year     int
	Week     int
	Start    time.Time
	End      time.Time
	FetchEnd time.Time
}

// Label renders the week the way report rows display it.
func (r Range) Label() string {
	return fmt.Sprintf("Week %d", r.Week)
}

// Contains reports whether day falls within [Start, End].
func (r Range) Contains(day time.Time) bool {
	d := Date(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Resolve converts an ISO year/week into its Monday..Sunday window. FetchEnd is
// the calendar date of now, so ledger fetches run from the week start to today.
func Resolve(year, week int, now time.Time) (Range, error) {
	if year < minYear || year > maxYear {
		return Range{}, fmt.Errorf("%w: year %d out of range", ErrInvalidWeekSpec, year)
	}
	if week < 1 || week > WeeksInYear(year) {
		return Range{}, fmt.Errorf("%w: week %d out of range for %d", ErrInvalidWeekSpec, week, year)
	}
	start := firstMonday(year).AddDate(0, 0, 7*(week-1))
	return Range{
		Year:     year,
		Week:     week,
		Start:    start,
		End:      start.AddDate(0, 0, 6),
		FetchEnd: Date(now),
	}, nil
}

// Parse is Resolve for raw text input such as CLI flags or query parameters.
func Parse(yearText, weekText string, now time.Time) (Range, error) {
	year, err := strconv.Atoi(strings.TrimSpace(yearText))
	if err != nil {
		return Range{}, fmt.Errorf("%w: year %q is not an integer", ErrInvalidWeekSpec, yearText)
	}
	week, err := strconv.Atoi(strings.TrimSpace(weekText))
	if err != nil {
		return Range{}, fmt.Errorf("%w: week %q is not an integer", ErrInvalidWeekSpec, weekText)
	}
	return Resolve(year, week, now)
}

// WeeksInYear returns 52 or 53. December 28th always sits in the last ISO week.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// Previous returns the ISO year and week preceding the week that contains now.
func Previous(now time.Time) (int, int) {
	return Date(now).AddDate(0, 0, -7).ISOWeek()
}

// Date strips the clock from t and pins it to UTC midnight of the same calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// firstMonday is the Monday of ISO week 1; January 4th is always in week 1.
func firstMonday(year int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset)
}
