package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	refDate = "2025-05-22"
	refTime = "22:19"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"123-456-7890", true},
		{"000-000-0000", true},
		{"1234567890", false},
		{"123-456-789", false},
		{"123-456-78901", false},
		{"12a-456-7890", false},
		{" 123-456-7890", false},
		{"123-456-7890\n", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Phone(tt.in), "Phone(%q)", tt.in)
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"reference day", "2025-05-22", true},
		{"future", "2025-06-01", true},
		{"next year", "2026-01-01", true},
		{"past", "2025-05-21", false},
		{"month zero", "2025-00-10", false},
		{"month thirteen", "2025-13-10", false},
		{"day zero", "2025-06-00", false},
		{"day thirty two", "2025-06-32", false},
		{"february overflow", "2025-02-30", false},
		{"april thirty one", "2026-04-31", false},
		{"leap day", "2028-02-29", true},
		{"non leap day", "2027-02-29", false},
		{"slashes", "2025/06/01", false},
		{"short", "2025-6-1", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Date(tt.in, refDate))
		})
	}
}

func TestTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		date string
		want bool
	}{
		{"later today", "22:20", refDate, true},
		{"exactly now", "22:19", refDate, false},
		{"earlier today", "19:00", refDate, false},
		{"earlier on later day", "08:00", "2025-05-23", true},
		{"midnight later day", "00:00", "2025-05-23", true},
		{"hour 24", "24:00", "2025-05-23", false},
		{"minute 60", "12:60", "2025-05-23", false},
		{"single digit hour", "9:00", "2025-05-23", false},
		{"seconds", "09:00:00", "2025-05-23", false},
		{"empty", "", "2025-05-23", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Time(tt.in, tt.date, refDate, refTime))
		})
	}
}

func TestPartySize(t *testing.T) {
	assert.True(t, PartySize(1))
	assert.True(t, PartySize(12))
	assert.False(t, PartySize(0))
	assert.False(t, PartySize(-3))
}

func TestReservationID(t *testing.T) {
	assert.True(t, ReservationID("ID 1A"))
	assert.True(t, ReservationID("id 42a"))
	assert.True(t, ReservationID("Id 007A"))
	assert.False(t, ReservationID("ID A"))
	assert.False(t, ReservationID("ID1A"))
	assert.False(t, ReservationID("ID 1B"))
	assert.False(t, ReservationID(" ID 1A"))
	assert.False(t, ReservationID("ID -1A"))
}

func TestNumericInput(t *testing.T) {
	tests := []struct {
		in     string
		min    int
		max    int
		want   int
		wantOK bool
	}{
		{"1", 1, 10, 1, true},
		{"10", 1, 10, 10, true},
		{"0", 0, 10, 0, true},
		{"11", 1, 10, 0, false},
		{"0", 1, 10, 0, false},
		{"", 1, 10, 0, false},
		{"-1", -5, 10, 0, false},
		{"+1", 1, 10, 0, false},
		{" 1", 1, 10, 0, false},
		{"1 ", 1, 10, 0, false},
		{"3abc", 1, 10, 0, false},
		{"2.5", 1, 10, 0, false},
		{"99999999999999999999999", 1, 1 << 30, 0, false},
	}
	for _, tt := range tests {
		got, ok := NumericInput(tt.in, tt.min, tt.max)
		assert.Equal(t, tt.wantOK, ok, "NumericInput(%q)", tt.in)
		if tt.wantOK {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestCustomerName(t *testing.T) {
	assert.True(t, CustomerName("Alice"))
	assert.True(t, CustomerName("Mary Ann"))
	assert.False(t, CustomerName(""))
	assert.False(t, CustomerName("   "))
	assert.False(t, CustomerName("a|b"))
	assert.False(t, CustomerName("a\nb"))
}

func TestCredential(t *testing.T) {
	assert.True(t, Credential("alice99"))
	assert.False(t, Credential(""))
	assert.False(t, Credential("alice smith"))
	assert.False(t, Credential("alice|x"))
}

func TestReferenceAt(t *testing.T) {
	ref := ReferenceAt(time.Date(2025, 5, 22, 22, 19, 45, 0, time.UTC))
	assert.Equal(t, Reference{Date: "2025-05-22", Time: "22:19"}, ref)
}
