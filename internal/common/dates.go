package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the exchange's native YYYYMMDD day marker layout.
const DateFormat = "20060102"

// DefaultLookback is applied when no start date is given.
const DefaultLookback = 5 * 365 * 24 * time.Hour

// DayInt converts a time to the exchange's integer YYYYMMDD form.
func DayInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Today returns the current calendar day in integer YYYYMMDD form.
func Today() int {
	return DayInt(time.Now())
}

// ParseDate normalizes a free-form date argument into a calendar day.
// Accepted forms: "2006-01-02", "2006/01/02", and bare numbers where a
// value up to 1600 is a Jalali year, up to 9999 a Gregorian year, up to
// 16001230 a Jalali YYYYMMDD day, and anything larger a Gregorian
// YYYYMMDD day.
func ParseDate(arg string) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidArgument)
	}

	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, arg); err == nil {
			return t, nil
		}
	}

	n, err := strconv.Atoi(arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unrecognized date %q", ErrInvalidArgument, arg)
	}
	return ParseDateNumber(n)
}

// ParseDateNumber normalizes a numeric date argument. See ParseDate for
// the accepted ranges.
func ParseDateNumber(n int) (time.Time, error) {
	switch {
	case n <= 0:
		return time.Time{}, fmt.Errorf("%w: date %d out of range", ErrInvalidArgument, n)
	case n <= 1600:
		return JalaliToGregorian(n, 1, 1), nil
	case n <= 9999:
		return time.Date(n, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case n <= 16001230:
		jy, jm, jd := n/10000, n/100%100, n%100
		if jm < 1 || jm > 12 || jd < 1 || jd > 31 {
			return time.Time{}, fmt.Errorf("%w: malformed date %d", ErrInvalidArgument, n)
		}
		return JalaliToGregorian(jy, jm, jd), nil
	default:
		t, err := time.Parse(DateFormat, strconv.Itoa(n))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: malformed date %d", ErrInvalidArgument, n)
		}
		return t, nil
	}
}

// SanitizeRange applies the default lookback window and validates
// ordering. A zero start defaults to five years before today; a zero
// end defaults to today.
func SanitizeRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() {
		start = time.Now().Add(-DefaultLookback)
	}
	if end.IsZero() {
		end = time.Now()
	}
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s after end %s",
			ErrInvalidArgument, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return start, end, nil
}

// JalaliToGregorian converts a Jalali (Persian) calendar day to the
// Gregorian calendar using the civil arithmetic of the 33-year cycle.
func JalaliToGregorian(jy, jm, jd int) time.Time {
	jy += 1595
	days := -355668 + 365*jy + jy/33*8 + (jy%33+3)/4 + jd
	if jm < 7 {
		days += (jm - 1) * 31
	} else {
		days += (jm-7)*30 + 186
	}

	gy := 400 * (days / 146097)
	days %= 146097
	if days > 36524 {
		days--
		gy += 100 * (days / 36524)
		days %= 36524
		if days >= 365 {
			days++
		}
	}
	gy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		gy += (days - 1) / 365
		days = (days - 1) % 365
	}
	gd := days + 1

	leap := gy%4 == 0 && gy%100 != 0 || gy%400 == 0
	feb := 28
	if leap {
		feb = 29
	}
	monthLengths := [12]int{31, feb, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

	gm := 0
	for gm < 12 && gd > monthLengths[gm] {
		gd -= monthLengths[gm]
		gm++
	}
	return time.Date(gy, time.Month(gm+1), gd, 0, 0, 0, 0, time.UTC)
}
