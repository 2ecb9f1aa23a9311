package dateutil

import "time"

// ResetHour is the hour at which a quest day starts.
const ResetHour = 6

// Date truncates t to its calendar date, expressed as midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LoggedDate returns the quest day t belongs to.
func LoggedDate(t time.Time) time.Time {
	if t.Hour() < ResetHour {
		t = t.AddDate(0, 0, -1)
	}
	return Date(t)
}

func LastReset(t time.Time) time.Time {
	y, m, d := t.Date()
	reset := time.Date(y, m, d, ResetHour, 0, 0, 0, t.Location())
	if t.Before(reset) {
		reset = reset.AddDate(0, 0, -1)
	}
	return reset
}

func NextReset(t time.Time) time.Time {
	return LastReset(t).AddDate(0, 0, 1)
}

// ResetOf returns the start of the quest day for the calendar date in loc.
func ResetOf(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, ResetHour, 0, 0, 0, loc)
}

func FirstDayOfWeek(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return Date(date).AddDate(0, 0, -offset)
}

func FirstDayOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Quarters are 13 week blocks starting at the first Monday of the year.
// Dates before that Monday belong to the last quarter of the previous year.
func FirstDayOfQuarter(date time.Time) time.Time {
	date = Date(date)
	firstMonday := firstMondayOfYear(date.Year())

	if date.Before(firstMonday) {
		return FirstDayOfWeek(date).AddDate(0, 0, -12*7)
	}

	quarter := weeksBetween(firstMonday, date) / 13
	return firstMonday.AddDate(0, 0, quarter*13*7)
}

func LastDayOfQuarter(date time.Time) time.Time {
	date = Date(date)
	firstMonday := firstMondayOfYear(date.Year())

	if date.Before(firstMonday) {
		return firstMonday.AddDate(0, 0, -1)
	}

	quarter := weeksBetween(firstMonday, date) / 13
	return firstMonday.AddDate(0, 0, (quarter+1)*13*7-1)
}

func firstMondayOfYear(year int) time.Time {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset)
}

func weeksBetween(from, to time.Time) int {
	return (to.YearDay() - from.YearDay()) / 7
}
