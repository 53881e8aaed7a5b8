// Package export writes reconciled portfolio rows to an .xlsx workbook.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/seenimoa/investorfolio/internal/reconcile"
	"github.com/seenimoa/investorfolio/pkg/models"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// textNumFmt is the built-in "@" (text) number format.
const textNumFmt = 49

// SheetName returns the worksheet name for q, e.g. "Portfolio_Q2_2025".
func SheetName(q models.Quarter) string {
	return fmt.Sprintf("Portfolio_%s_%d", q.Quarter, q.FinancialYear)
}

// FileName returns the download name for q, e.g. "Portfolio_Q2_2025.xlsx".
func FileName(q models.Quarter) string {
	return SheetName(q) + ".xlsx"
}

// Write renders one worksheet: headers on the first row, then the export
// projection of res with a solid fill per row. All cells are stored as text.
func Write(w io.Writer, q models.Quarter, headers []string, res reconcile.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(q)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{NumFmt: textNumFmt, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	fills := make(map[reconcile.Highlight]int, 2)
	for _, h := range []reconcile.Highlight{reconcile.FirstTime, reconcile.Repeat} {
		id, err := f.NewStyle(&excelize.Style{
			NumFmt: textNumFmt,
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{h.ARGB()}},
		})
		if err != nil {
			return fmt.Errorf("fill style: %w", err)
		}
		fills[h] = id
	}

	if err := writeRow(f, sheet, 1, headers, headerStyle); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, row := range res.ExportRows() {
		if err := writeRow(f, sheet, i+2, row.Cells, fills[row.Highlight]); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteFile writes the workbook into dir under FileName(q) and returns its path.
func WriteFile(dir string, q models.Quarter, headers []string, res reconcile.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(q))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(out, q, headers, res); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []string, style int) error {
	if len(cells) == 0 {
		return nil
	}
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(cells), rowNum)
	if err != nil {
		return err
	}

	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, start, end, style)
}
