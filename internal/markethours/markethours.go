// Package markethours answers whether the US equity market is open at a
// given moment, including the observed-holiday calendar.
package markethours

import "time"

// Session bounds, US/Eastern.
const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0
)

var eastern = mustLoadEastern()

func mustLoadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("failed to load America/New_York tzdata: " + err.Error())
	}
	return loc
}

// IsOpen reports whether the regular session is open right now.
func IsOpen() bool {
	return IsOpenAt(time.Now())
}

// IsOpenAt reports whether the regular session is open at t: a weekday,
// not a market holiday, and within [09:30, 16:00] Eastern inclusive.
func IsOpenAt(t time.Time) bool {
	et := t.In(eastern)

	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	if IsHoliday(et) {
		return false
	}

	sessionOpen := time.Date(et.Year(), et.Month(), et.Day(), OpenHour, OpenMinute, 0, 0, eastern)
	sessionClose := time.Date(et.Year(), et.Month(), et.Day(), CloseHour, CloseMinute, 0, 0, eastern)
	return !et.Before(sessionOpen) && !et.After(sessionClose)
}

// IsHoliday reports whether the date of t (in Eastern time) is an observed
// US equity market holiday.
func IsHoliday(t time.Time) bool {
	et := t.In(eastern)
	y, m, d := et.Date()
	for _, h := range holidays(y) {
		hy, hm, hd := h.Date()
		if hy == y && hm == m && hd == d {
			return true
		}
	}
	return false
}

// holidays returns the observed holiday dates for a year.
func holidays(year int) []time.Time {
	return []time.Time{
		observed(date(year, time.January, 1)),   // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),  // MLK Day
		nthWeekday(year, time.February, time.Monday, 3), // Presidents' Day
		lastWeekday(year, time.May, time.Monday),        // Memorial Day
		observed(date(year, time.June, 19)),     // Juneteenth
		observed(date(year, time.July, 4)),      // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date(year, time.December, 25)), // Christmas
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, eastern)
}

// observed shifts Saturday holidays to the prior Friday and Sunday
// holidays to the following Monday.
func observed(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

// nthWeekday returns the nth occurrence of a weekday in a month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	t := date(year, month, 1)
	offset := (int(weekday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the final occurrence of a weekday in a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	t := date(year, month+1, 1).AddDate(0, 0, -1)
	offset := (int(t.Weekday()) - int(weekday) + 7) % 7
	return t.AddDate(0, 0, -offset)
}
