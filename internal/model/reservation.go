package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Reservation records one booking of a physical table.  It is the
// durable unit written to the records file, one line per reservation.
//
// Fields:
//
//	ID           – canonical upper-case identifier ("ID 7A").
//	CustomerName – name the booking is held under.
//	PhoneNumber  – contact number in XXX-XXX-XXXX form.
//	PartySize    – number of guests, at least 1.
//	Date         – calendar date, YYYY-MM-DD.
//	Time         – time of day, HH:MM (24h).
//	TableIndex   – 0-based index into the table pool.
type Reservation struct {
	ID           string
	CustomerName string
	PhoneNumber  string
	PartySize    int
	Date         string
	Time         string
	TableIndex   int
}

const (
	idPrefix = "ID "
	idSuffix = "A"
)

// FormatID renders the canonical reservation ID for a counter value.
func FormatID(n int) string {
	return fmt.Sprintf("%s%d%s", idPrefix, n, idSuffix)
}

// CanonicalID upper-cases an ID so comparisons are case-insensitive while
// storage stays canonical.
func CanonicalID(id string) string {
	return strings.ToUpper(id)
}

// IDNumber extracts the numeric part of a canonical-looking ID.  ok is false
// when the ID does not have the "ID <n>A" shape or the number overflows.
func IDNumber(id string) (n int, ok bool) {
	id = CanonicalID(id)
	if !strings.HasPrefix(id, idPrefix) || !strings.HasSuffix(id, idSuffix) {
		return 0, false
	}
	digits := id[len(idPrefix) : len(id)-len(idSuffix)]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// TableNumber is the 1-based number shown to people for a table index.
func (r Reservation) TableNumber() int { return r.TableIndex + 1 }
