package reconcile

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/seenimoa/investorfolio/pkg/models"
)

func sampleRows() []models.PortfolioRow {
	return []models.PortfolioRow{
		models.RowFromValues("9", "Acme", json.Number("1500"), "New", "-", "1.1%", "-", nil, "sep"),
		models.RowFromValues("3", "Beta", json.Number("0"), "New", "", "", "2.0%", false, "sep"),
		models.RowFromValues("4", "Acme", json.Number("7"), "Old", "", "", "", "", "sep"),
	}
}

func TestProjectionDropsTrailingCellAndRenumbers(t *testing.T) {
	r := models.RowFromValues("42", "Acme", "100", "New", "x", "H1", "tail")
	got := DisplayRow(3, r)
	want := []string{"3", "Acme", "100", "New", "x", "H1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DisplayRow = %v, want %v", got, want)
	}
}

func TestProjectionFixedLayoutDropsSeparator(t *testing.T) {
	r := models.RowFromValues(1, "Acme", "100", "New", "—")
	got := ExportRow(1, r)
	want := []string{"1", "Acme", "100", "New"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExportRow = %v, want %v", got, want)
	}
}

func TestProjectionShortRows(t *testing.T) {
	if got := DisplayRow(1, models.RowFromValues()); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("empty row = %v", got)
	}
	if got := DisplayRow(1, models.RowFromValues("x")); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("one-cell row = %v", got)
	}
	if got := DisplayRow(1, models.RowFromValues("x", "A")); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("two-cell row = %v", got)
	}
}

// Display and export share column order and count but differ on blanks:
// the screen shows "-" for any empty value, the workbook blanks literal "-".
func TestDisplayAndExportNormalizeDifferently(t *testing.T) {
	res := Reconcile(sampleRows())
	display := res.DisplayRows()
	export := res.ExportRows()

	if len(display) != len(export) {
		t.Fatalf("row count: display %d, export %d", len(display), len(export))
	}
	for i := range display {
		if len(display[i].Cells) != len(export[i].Cells) {
			t.Errorf("row %d: display %d cells, export %d cells", i, len(display[i].Cells), len(export[i].Cells))
		}
		if display[i].Highlight != export[i].Highlight {
			t.Errorf("row %d: highlight differs", i)
		}
	}

	wantDisplay := [][]string{
		{"1", "Acme", "1500", "New", "-", "1.1%", "-", "-"},
		{"2", "Beta", "-", "New", "-", "-", "2.0%", "-"},
	}
	wantExport := [][]string{
		{"1", "Acme", "1500", "New", "", "1.1%", "", ""},
		{"2", "Beta", "0", "New", "", "", "2.0%", "false"},
	}
	for i := range wantDisplay {
		if !reflect.DeepEqual(display[i].Cells, wantDisplay[i]) {
			t.Errorf("display row %d = %q, want %q", i, display[i].Cells, wantDisplay[i])
		}
		if !reflect.DeepEqual(export[i].Cells, wantExport[i]) {
			t.Errorf("export row %d = %q, want %q", i, export[i].Cells, wantExport[i])
		}
	}

	// Apart from blank handling the two projections agree cell for cell.
	for i := range display {
		for j := range display[i].Cells {
			d, e := display[i].Cells[j], export[i].Cells[j]
			if d != e && d != DisplayPlaceholder {
				t.Errorf("row %d col %d: display %q vs export %q", i, j, d, e)
			}
		}
	}
}

func TestProjectedHighlights(t *testing.T) {
	res := Reconcile(sampleRows())
	rows := res.ExportRows()
	if rows[0].Highlight != Repeat {
		t.Error("Acme appears twice overall and should use the repeat fill")
	}
	if rows[1].Highlight != FirstTime {
		t.Error("Beta appears once and should use the first-time fill")
	}
}

func TestHighlightColors(t *testing.T) {
	if Repeat.HexColor() != "#cfffe3" || Repeat.ARGB() != "CFFFE3" {
		t.Errorf("repeat colours = %s / %s", Repeat.HexColor(), Repeat.ARGB())
	}
	if FirstTime.HexColor() != "#bae5cc" || FirstTime.ARGB() != "BAE5CC" {
		t.Errorf("first-time colours = %s / %s", FirstTime.HexColor(), FirstTime.ARGB())
	}
	if HighlightFor(true) != Repeat || HighlightFor(false) != FirstTime {
		t.Error("HighlightFor mapping is wrong")
	}
}
