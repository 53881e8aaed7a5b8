package reconcile

import (
	"strconv"

	"github.com/seenimoa/investorfolio/pkg/models"
)

// DisplayPlaceholder is shown on screen in place of empty cells.
const DisplayPlaceholder = "-"

// Highlight is the fill used for a reconciled row.
type Highlight int

const (
	FirstTime Highlight = iota
	Repeat
)

// HighlightFor maps the repeat-holder classification to a fill.
func HighlightFor(repeat bool) Highlight {
	if repeat {
		return Repeat
	}
	return FirstTime
}

// HexColor returns the CSS colour of the fill.
func (h Highlight) HexColor() string {
	if h == Repeat {
		return "#cfffe3"
	}
	return "#bae5cc"
}

// ARGB returns the spreadsheet colour of the fill, without '#'.
func (h Highlight) ARGB() string {
	if h == Repeat {
		return "CFFFE3"
	}
	return "BAE5CC"
}

// ProjectedRow is a reconciled row laid out for one destination.
type ProjectedRow struct {
	Cells     []string
	Highlight Highlight
}

// projectCells lays out a row as a 1-based serial followed by the raw cells
// from the company column up to, but not including, the trailing cell.
func projectCells(serial int, r models.PortfolioRow, cell func(models.Cell) string) []string {
	cells := r.Cells()
	out := []string{strconv.Itoa(serial)}
	if len(cells) < 2 {
		return out
	}
	for _, c := range cells[models.ColCompany : len(cells)-1] {
		out = append(out, cell(c))
	}
	return out
}

// displayCell renders falsy values as the placeholder.
func displayCell(c models.Cell) string {
	if c.IsFalsy() {
		return DisplayPlaceholder
	}
	return c.String()
}

// exportCell blanks the literal "-" that the scraper uses for missing values.
func exportCell(c models.Cell) string {
	if s, ok := c.Value.(string); ok && s == "-" {
		return ""
	}
	return c.String()
}

// DisplayRow projects r for the on-screen table.
func DisplayRow(serial int, r models.PortfolioRow) []string {
	return projectCells(serial, r, displayCell)
}

// ExportRow projects r for the spreadsheet.
func ExportRow(serial int, r models.PortfolioRow) []string {
	return projectCells(serial, r, exportCell)
}

// DisplayRows projects every reconciled row for the on-screen table.
func (r Result) DisplayRows() []ProjectedRow {
	return r.project(DisplayRow)
}

// ExportRows projects every reconciled row for the spreadsheet.
func (r Result) ExportRows() []ProjectedRow {
	return r.project(ExportRow)
}

func (r Result) project(fn func(int, models.PortfolioRow) []string) []ProjectedRow {
	out := make([]ProjectedRow, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = ProjectedRow{
			Cells:     fn(i+1, row),
			Highlight: HighlightFor(r.IsRepeat(i)),
		}
	}
	return out
}
