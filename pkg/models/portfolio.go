package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FilingStatusNew is the filing status of rows that are shown and exported.
const FilingStatusNew = "New"

// Column positions of a scraped portfolio row.
const (
	ColSerial = iota
	ColCompany
	ColSharesHeld
	ColFilingStatus
	ColSeparator
	ColHistory
)

// Cell is one value of a scraped row: a string, json.Number, bool or nil.
type Cell struct {
	Value any
}

// IsFalsy reports whether the cell is null, an empty string, zero or false.
func (c Cell) IsFalsy() bool {
	switch v := c.Value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case json.Number:
		f, err := v.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	case float64:
		return v == 0 || math.IsNaN(v)
	case int:
		return v == 0
	case int64:
		return v == 0
	}
	return false
}

// String returns the textual form of the cell. Null is the empty string.
func (c Cell) String() string {
	switch v := c.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(c.Value)
}

// MarshalJSON writes the underlying value unchanged.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value)
}

// UnmarshalJSON keeps numbers as json.Number so large share counts survive intact.
func (c *Cell) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	c.Value = v
	return nil
}

// CellKey identifies a cell by kind and text, so that the number 123 and the
// string "123" are different keys, as are null and "".
type CellKey struct {
	Kind string // "null", "string", "number", "bool" or "other"
	Text string
}

// Key returns the type-tagged identity of the cell. Numbers are compared by
// value, so 1 and 1.0 share a key.
func (c Cell) Key() CellKey {
	switch v := c.Value.(type) {
	case nil:
		return CellKey{Kind: "null"}
	case string:
		return CellKey{Kind: "string", Text: v}
	case bool:
		return CellKey{Kind: "bool", Text: strconv.FormatBool(v)}
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return CellKey{Kind: "number", Text: strconv.FormatFloat(f, 'g', -1, 64)}
		}
		return CellKey{Kind: "number", Text: v.String()}
	case float64:
		return CellKey{Kind: "number", Text: strconv.FormatFloat(v, 'g', -1, 64)}
	case int:
		return CellKey{Kind: "number", Text: strconv.FormatFloat(float64(v), 'g', -1, 64)}
	case int64:
		return CellKey{Kind: "number", Text: strconv.FormatFloat(float64(v), 'g', -1, 64)}
	}
	return CellKey{Kind: "other", Text: c.String()}
}

// PortfolioRow is one filing record from the row server. Named fields are
// populated once at ingestion; Cells keeps the positional layout for projection.
type PortfolioRow struct {
	Serial       Cell
	Company      string
	SharesHeld   Cell
	FilingStatus string
	Separator    Cell
	History      []Cell

	companyKey CellKey
	cells      []Cell
}

// NewPortfolioRow builds a row from its cells. Missing columns are left at
// their zero value, so a row without a company column has the key "".
func NewPortfolioRow(cells []Cell) PortfolioRow {
	own := make([]Cell, len(cells))
	copy(own, cells)

	r := PortfolioRow{cells: own}
	at := func(i int) Cell {
		if i < len(own) {
			return own[i]
		}
		return Cell{}
	}
	r.Serial = at(ColSerial)
	r.Company = at(ColCompany).String()
	r.companyKey = at(ColCompany).Key()
	r.SharesHeld = at(ColSharesHeld)
	r.FilingStatus = at(ColFilingStatus).String()
	r.Separator = at(ColSeparator)
	if len(own) > ColHistory {
		r.History = own[ColHistory:]
	}
	return r
}

// RowFromValues is a convenience for building rows from plain Go values.
func RowFromValues(values ...any) PortfolioRow {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Cell{Value: v}
	}
	return NewPortfolioRow(cells)
}

// Cells returns a copy of the raw cells in column order.
func (r PortfolioRow) Cells() []Cell {
	out := make([]Cell, len(r.cells))
	copy(out, r.cells)
	return out
}

// CompanyKey returns the type-tagged identity of the company cell. Company
// holds its text form, which merges 123 with "123" and null with "".
func (r PortfolioRow) CompanyKey() CellKey { return r.companyKey }

// Len returns the number of raw cells.
func (r PortfolioRow) Len() int { return len(r.cells) }

// MarshalJSON writes the row back as a JSON array.
func (r PortfolioRow) MarshalJSON() ([]byte, error) {
	if r.cells == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.cells)
}

// UnmarshalJSON reads a row from a JSON array of cells.
func (r *PortfolioRow) UnmarshalJSON(b []byte) error {
	var cells []Cell
	if err := json.Unmarshal(b, &cells); err != nil {
		return fmt.Errorf("decode portfolio row: %w", err)
	}
	*r = NewPortfolioRow(cells)
	return nil
}
