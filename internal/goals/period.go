package goals

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// Kind is a goal cadence.
type Kind string

const (
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"

	// Lines the owner builds by hand, on the weekly and monthly cadence.
	CustomWeekly  Kind = "custom-weekly"
	CustomMonthly Kind = "custom-monthly"
)

// Custom reports whether k is a hand-built line.
func (k Kind) Custom() bool { return k == CustomWeekly || k == CustomMonthly }

// ParseKind validates a kind from a URL segment.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Daily, Weekly, Monthly:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ParseCustom maps a cadence ("weekly" or "monthly") to its custom kind.
func ParseCustom(cadence string) (Kind, error) {
	switch Kind(cadence) {
	case Weekly:
		return CustomWeekly, nil
	case Monthly:
		return CustomMonthly, nil
	}
	return "", fmt.Errorf("%w: custom %q", ErrUnknownKind, cadence)
}

// DayKey returns YYYY-MM-DD in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// WeekKey returns the DayKey of the Monday starting t's week.
func WeekKey(t time.Time) string {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return DayKey(t.AddDate(0, 0, -offset))
}

// MonthKey returns "YYYY-M" (month not zero-padded).
func MonthKey(t time.Time) string {
	t = t.UTC()
	return strconv.Itoa(t.Year()) + "-" + strconv.Itoa(int(t.Month()))
}

// PeriodKey returns the period a goal of kind k belongs to at t.
func PeriodKey(k Kind, t time.Time) string {
	switch k {
	case Weekly, CustomWeekly:
		return WeekKey(t)
	case Monthly, CustomMonthly:
		return MonthKey(t)
	default:
		return DayKey(t)
	}
}

// Seed derives a deterministic generator seed from HMAC(salt, parts joined by "|").
func Seed(salt string, parts ...string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("|"))
		}
		h.Write([]byte(p))
	}
	sum := h.Sum(nil)
	// first 8 bytes; sign bit cleared so the seed stays positive
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}
