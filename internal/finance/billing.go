package finance

import "time"

// NextBillingDate returns the billing date that follows current for the
// given frequency. Monthly and yearly advancement clamp the anchor day to
// the length of the target month, so a subscription anchored on the 31st
// bills on Feb 28 (29 in leap years) and returns to the 31st when the month
// allows it. The anchor is the day-of-month (and month, for yearly) the
// subscription was originally scheduled on.
func NextBillingDate(current Date, freq Frequency, anchor Date) Date {
	switch freq {
	case FreqDaily:
		return Date{current.AddDate(0, 0, 1)}
	case FreqWeekly:
		return Date{current.AddDate(0, 0, 7)}
	case FreqYearly:
		year := current.Year() + 1
		return NewDate(year, anchor.Month(), clampDay(year, anchor.Month(), anchor.Day()))
	default: // monthly
		year, month := current.Year(), current.Month()+1
		if month > time.December {
			month = time.January
			year++
		}
		return NewDate(year, month, clampDay(year, month, anchor.Day()))
	}
}

// clampDay caps day to the last day of the given month.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// Due reports whether a subscription with the given next billing date
// should bill on today's date.
func Due(next Date, today Date) bool { return !next.After(today) }
