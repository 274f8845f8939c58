package view

import (
	"time"

	"github.com/ledgerlens/ledgerlens/internal/drill"
	"github.com/ledgerlens/ledgerlens/internal/source"
)

const dateLayout = "2006-01-02"

// DateRangePreset names a relative date window for the drill views.
type DateRangePreset string

const (
	PresetLast7     DateRangePreset = "last_7"
	PresetLast30    DateRangePreset = "last_30"
	PresetLast90    DateRangePreset = "last_90"
	PresetLastYear  DateRangePreset = "last_year"
	PresetThisMonth DateRangePreset = "this_month"
	PresetThisYear  DateRangePreset = "this_year"
	// PresetAll leaves the start of the range unbounded.
	PresetAll DateRangePreset = "all"
)

// Valid reports whether p is a known preset.
func (p DateRangePreset) Valid() bool {
	switch p {
	case PresetLast7, PresetLast30, PresetLast90, PresetLastYear,
		PresetThisMonth, PresetThisYear, PresetAll:
		return true
	}
	return false
}

// Resolve expands the preset to explicit bounds at a point in time. PresetAll
// returns an empty from date, meaning "do not bound the start".
func (p DateRangePreset) Resolve(now time.Time) (from, to string) {
	now = now.UTC()
	to = now.Format(dateLayout)
	switch p {
	case PresetLast7:
		from = now.AddDate(0, 0, -7).Format(dateLayout)
	case PresetLast30:
		from = now.AddDate(0, 0, -30).Format(dateLayout)
	case PresetLast90:
		from = now.AddDate(0, 0, -90).Format(dateLayout)
	case PresetLastYear:
		from = now.AddDate(-1, 0, 0).Format(dateLayout)
	case PresetThisMonth:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	case PresetThisYear:
		from = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	case PresetAll:
		from = ""
	}
	return from, to
}

// DefaultPreset picks the initial window for a freshly opened variant,
// matching the defaults users see before touching the range control.
func DefaultPreset(variant drill.Variant, mode CashSourceMode) DateRangePreset {
	switch variant {
	case drill.VariantCash:
		if mode == ModeStatements {
			return PresetLastYear
		}
		return PresetLast90
	case drill.VariantPnL, drill.VariantPnLAccount:
		return PresetThisMonth
	default:
		return PresetAll
	}
}

// StatusFilter is the invoice status control of the receivables and payables
// views.
type StatusFilter string

const (
	StatusOutstanding StatusFilter = "outstanding"
	StatusPaid        StatusFilter = "paid"
	StatusAll         StatusFilter = "all"
)

// Valid reports whether s is a known status filter.
func (s StatusFilter) Valid() bool {
	switch s {
	case StatusOutstanding, StatusPaid, StatusAll:
		return true
	}
	return false
}

// upstream maps the filter to the upstream status token; StatusAll maps to no
// filter at all.
func (s StatusFilter) upstream() string {
	switch s {
	case StatusPaid:
		return source.StatusPaid
	case StatusAll:
		return ""
	default:
		return source.StatusOutstanding
	}
}

// CashSourceMode selects which upstream feed backs the cash view: manually
// entered bank transactions or the bank statement feed.
type CashSourceMode string

const (
	ModeTransactions CashSourceMode = "transactions"
	ModeStatements   CashSourceMode = "statements"
)

// Valid reports whether m is a known source mode.
func (m CashSourceMode) Valid() bool {
	return m == ModeTransactions || m == ModeStatements
}
