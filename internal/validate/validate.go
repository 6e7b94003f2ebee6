// Package validate holds the field rules applied to reservation input.
// Every function is pure: it never panics and reports failure by returning
// false, leaving the caller to decide which error to raise.
package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	phoneRe = regexp.MustCompile(`^[0-9]{3}-[0-9]{3}-[0-9]{4}$`)
	dateRe  = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	timeRe  = regexp.MustCompile(`^[0-9]{2}:[0-9]{2}$`)
	idRe    = regexp.MustCompile(`^ID [0-9]+A$`)
	credRe  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Reference is the fixed "now" against which dates and times are judged.
// Both fields use the same fixed-width layouts as reservation input, so
// string comparison orders them chronologically.
type Reference struct {
	Date string // YYYY-MM-DD
	Time string // HH:MM
}

// ReferenceAt derives a Reference from an instant.
func ReferenceAt(t time.Time) Reference {
	return Reference{Date: t.Format(dateLayout), Time: t.Format(timeLayout)}
}

// Phone reports whether s is exactly DDD-DDD-DDDD.
func Phone(s string) bool {
	return phoneRe.MatchString(s)
}

// Date reports whether s is a YYYY-MM-DD calendar date on or after refDate.
// Day-of-month is checked against the actual month length, so 2025-02-30
// is rejected.
func Date(s, refDate string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	month, _ := strconv.Atoi(s[5:7])
	day, _ := strconv.Atoi(s[8:10])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return false
	}
	return s >= refDate
}

// Time reports whether s is a valid HH:MM time.  When date is the reference
// date the time must also be strictly after refTime.
func Time(s, date, refDate, refTime string) bool {
	if !timeRe.MatchString(s) {
		return false
	}
	hour, _ := strconv.Atoi(s[0:2])
	minute, _ := strconv.Atoi(s[3:5])
	if hour > 23 || minute > 59 {
		return false
	}
	if date == refDate && s <= refTime {
		return false
	}
	return true
}

// PartySize reports whether n guests is a bookable party.
func PartySize(n int) bool { return n >= 1 }

// ReservationID reports whether s has the "ID <digits>A" shape, ignoring case.
func ReservationID(s string) bool {
	return idRe.MatchString(strings.ToUpper(s))
}

// NumericInput parses s as a bounded decimal integer.  Only ASCII digits are
// accepted: no sign, no whitespace, no fraction and nothing trailing.
func NumericInput(s string, min, max int) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if n < min || n > max {
		return 0, false
	}
	return n, true
}

// CustomerName reports whether s can be stored as a booking name.  The
// records file is pipe-delimited and line-oriented, so neither '|' nor a
// line break may appear.
func CustomerName(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return !strings.ContainsAny(s, "|\r\n")
}

// Credential reports whether s is a usable username or password: non-empty
// and alphanumeric only.
func Credential(s string) bool {
	return credRe.MatchString(s)
}
