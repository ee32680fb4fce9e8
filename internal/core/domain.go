package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Date is a naive calendar date. Time-of-day and timezone are not part of
	// the model: the provider reports transaction dates as plain YYYY-MM-DD
	// values and the reference date is truncated to the same convention.
	Date struct {
		time.Time
	}

	// Transaction is a single record returned by the upstream provider.
	// Amount follows the provider's sign convention: positive means money
	// leaving the account. Immutable once fetched.
	Transaction struct {
		ID       string
		Date     Date
		Name     string
		Amount   decimal.Decimal
		Currency string
	}
)

var (
	ErrMissingDate   = errors.New("transaction has no date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today truncates a wall-clock instant to a calendar date.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// AddDays returns the date shifted by the given number of days.
func (d Date) AddDays(days int) Date {
	return Date{Time: d.Time.AddDate(0, 0, days)}
}

// OnOrAfter reports whether d falls on other or later (inclusive boundary).
func (d Date) OnOrAfter(other Date) bool {
	return !d.Time.Before(other.Time)
}

// String formats the date as YYYY-MM-DD, the wire format used by the provider.
func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// Validate rejects records that do not satisfy the aggregation contract.
// A transaction without a usable date is a contract violation by the caller
// and is reported rather than silently skipped.
func (t Transaction) Validate() error {
	return t.Date.Validate()
}
