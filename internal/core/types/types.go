// Package types provides common type aliases and utilities.
package types

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors in valuations.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MoneyFromInt creates a Money value from an integer amount.
func MoneyFromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

// ZeroMoney returns zero Money value.
func ZeroMoney() Money {
	return decimal.Zero
}

// Quantity is a whole-unit stock quantity.
//
// The ledger counts retail units; fractional quantities are not sold or
// received, so a plain integer matches Postgres BIGINT exactly and keeps
// the arithmetic invariant (closing = opening + inward - sold) free of
// rounding concerns.
type Quantity = int64

// Day is a calendar date normalized to midnight UTC, no time component.
// Every ledger record is keyed by (product, Day).
type Day struct {
	t time.Time
}

// DayOf truncates a timestamp to its calendar date in UTC.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a date in YYYY-MM-DD form.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

// MustDay parses a date in YYYY-MM-DD form, panics on error.
// Use only for constants and tests.
func MustDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current calendar date in UTC.
func Today() Day {
	return DayOf(time.Now())
}

// Time returns the underlying midnight-UTC timestamp for storage.
func (d Day) Time() time.Time {
	return d.t
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	return DayOf(d.t.AddDate(0, 0, 1))
}

// Prev returns the preceding calendar day.
func (d Day) Prev() Day {
	return DayOf(d.t.AddDate(0, 0, -1))
}

// Before reports whether d is earlier than other.
func (d Day) Before(other Day) bool {
	return d.t.Before(other.t)
}

// Equal reports whether two days are the same calendar date.
func (d Day) Equal(other Day) bool {
	return d.t.Equal(other.t)
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// String returns the date in YYYY-MM-DD form.
func (d Day) String() string {
	return d.t.Format(time.DateOnly)
}

// Scan implements sql.Scanner for reading DATE columns.
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Day{}
		return nil
	case time.Time:
		*d = DayOf(v)
		return nil
	case string:
		parsed, err := ParseDay(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Day", src)
	}
}

// Value implements driver.Valuer for writing DATE columns.
func (d Day) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.t, nil
}

// MarshalJSON encodes Day as a "YYYY-MM-DD" JSON string.
func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" or a full RFC3339 timestamp and
// truncates to the calendar date.
func (d *Day) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*d = Day{}
		return nil
	}
	if parsed, err := ParseDay(s); err == nil {
		*d = parsed
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*d = DayOf(t)
	return nil
}
