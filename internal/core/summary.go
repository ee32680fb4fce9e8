// Package core implements the spending aggregation: turning a raw
// transaction window plus a reference date into daily, weekly and monthly
// totals. It performs no I/O and holds no state.
package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SpendingSummary holds the three totals, each rounded to two decimal places.
type SpendingSummary struct {
	Daily   decimal.Decimal
	Weekly  decimal.Decimal
	Monthly decimal.Decimal
}

// Window is the set of date boundaries derived from a reference date.
// FetchStart/FetchEnd bound the upstream fetch; Yesterday and WeekAgo are the
// inclusive lower bounds of the daily and weekly totals.
type Window struct {
	Yesterday  Date
	WeekAgo    Date
	FetchStart Date
	FetchEnd   Date
}

// NewWindow derives the date boundaries for a reference date and a fetch
// lookback measured in days.
func NewWindow(today Date, lookbackDays int) Window {
	return Window{
		Yesterday:  today.AddDays(-1),
		WeekAgo:    today.AddDays(-7),
		FetchStart: today.AddDays(-lookbackDays),
		FetchEnd:   today,
	}
}

// Summarize computes the three spending totals from a transaction list and a
// reference date.
//
// Only outflows count: transactions with amount <= 0 (refunds, credits,
// payments received) are excluded from every total. Date boundaries are
// inclusive: a transaction dated exactly one day before the reference date
// counts as daily, exactly seven days before counts as weekly. The monthly
// total sums the whole filtered list; the caller is responsible for bounding
// the input to the intended fetch window. Sums are carried at full precision
// and rounded to two decimals only on output.
//
// A transaction that fails Validate is a contract violation and aborts the
// computation with an error rather than being silently dropped.
func Summarize(txns []Transaction, today Date) (SpendingSummary, error) {
	yesterday := today.AddDays(-1)
	weekAgo := today.AddDays(-7)

	daily := decimal.Zero
	weekly := decimal.Zero
	monthly := decimal.Zero

	for i, t := range txns {
		if err := t.Validate(); err != nil {
			return SpendingSummary{}, fmt.Errorf("transaction %d (%q): %w", i, t.Name, err)
		}
		if !t.Amount.IsPositive() {
			continue
		}
		monthly = monthly.Add(t.Amount)
		if t.Date.OnOrAfter(weekAgo) {
			weekly = weekly.Add(t.Amount)
		}
		if t.Date.OnOrAfter(yesterday) {
			daily = daily.Add(t.Amount)
		}
	}

	return SpendingSummary{
		Daily:   daily.Round(2),
		Weekly:  weekly.Round(2),
		Monthly: monthly.Round(2),
	}, nil
}
