// Package models defines the core data structures used throughout investorfolio.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownQuarter is returned when a quarter label is not one of Q1..Q4.
var ErrUnknownQuarter = errors.New("unknown quarter label")

// QuarterLabel identifies a quarter of the Indian financial year (April–March).
// The zero value is Q1; labels index 0..3 in financial-year order.
type QuarterLabel int

const (
	Q1 QuarterLabel = iota // Apr–Jun
	Q2                     // Jul–Sep
	Q3                     // Oct–Dec
	Q4                     // Jan–Mar
)

var quarterNames = [...]string{"Q1", "Q2", "Q3", "Q4"}

// QuarterLabels lists all labels in financial-year order.
var QuarterLabels = []QuarterLabel{Q1, Q2, Q3, Q4}

// Index returns the 0-based position of the label within the financial year.
func (l QuarterLabel) Index() int { return int(l) }

// Valid reports whether l is one of Q1..Q4.
func (l QuarterLabel) Valid() bool { return l >= Q1 && l <= Q4 }

func (l QuarterLabel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("QuarterLabel(%d)", int(l))
	}
	return quarterNames[l]
}

// MarshalText encodes the label as "Q1".."Q4".
func (l QuarterLabel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownQuarter, int(l))
	}
	return []byte(quarterNames[l]), nil
}

// UnmarshalText decodes "Q1".."Q4".
func (l *QuarterLabel) UnmarshalText(b []byte) error {
	parsed, err := ParseQuarterLabel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseQuarterLabel parses "Q1".."Q4". Surrounding space and a lowercase q are tolerated.
func ParseQuarterLabel(s string) (QuarterLabel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range quarterNames {
		if s == name {
			return QuarterLabel(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownQuarter, s)
}

// Quarter is a financial quarter together with the financial year it belongs to.
// FinancialYear is the calendar year in which that financial year started, so
// Jan–Mar 2026 is Q4 of financial year 2025.
type Quarter struct {
	Quarter       QuarterLabel `json:"quarter"`
	FinancialYear int          `json:"financialYear"`
}

// String formats the quarter as used in table headers, e.g. "Q2 2025".
func (q Quarter) String() string {
	return fmt.Sprintf("%s %d", q.Quarter, q.FinancialYear)
}

// Before reports whether q is strictly earlier than other.
func (q Quarter) Before(other Quarter) bool {
	if q.FinancialYear != other.FinancialYear {
		return q.FinancialYear < other.FinancialYear
	}
	return q.Quarter < other.Quarter
}
