// Package render lays out reconciled rows for people: the HTML page served
// by the viewer and the plain-text table printed by the CLI.
package render

import (
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/seenimoa/investorfolio/internal/reconcile"
	"github.com/seenimoa/investorfolio/pkg/models"
	"github.com/seenimoa/investorfolio/pkg/utils"
	"github.com/seenimoa/investorfolio/web"
)

// BaseHeaders are the fixed leading column headers.
var BaseHeaders = []string{"SL", "Company Name", "Shares Held", "Filing Status", "—"}

// Headers returns the fixed headers followed by the history quarters
// preceding the quarter that contains ref.
func Headers(ref time.Time, history int) ([]string, error) {
	quarters, err := utils.QuarterHeaders(ref, history)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(BaseHeaders)+len(quarters))
	out = append(out, BaseHeaders...)
	return append(out, quarters...), nil
}

// headerCell shows a placeholder for empty header text.
func headerCell(h string) string {
	if h == "" {
		return reconcile.DisplayPlaceholder
	}
	return h
}

var pageTmpl = template.Must(
	template.New("portfolio.html").
		Funcs(template.FuncMap{"headerCell": headerCell}).
		ParseFS(web.TemplatesFS(), "portfolio.html"),
)

// Page is the data behind the portfolio page.
type Page struct {
	Selected  models.Quarter
	Headers   []string
	Rows      []reconcile.ProjectedRow
	HasData   bool // false shows the "No data found." state
	Labels    []models.QuarterLabel
	ExportURL string
}

// NewPage builds the page for the selected quarter. totalRows is the size of
// the fetched row set before reconciliation.
func NewPage(selected models.Quarter, headers []string, totalRows int, res reconcile.Result) Page {
	return Page{
		Selected:  selected,
		Headers:   headers,
		Rows:      res.DisplayRows(),
		HasData:   totalRows > 0,
		Labels:    models.QuarterLabels,
		ExportURL: "/export?" + url.Values{"quarter": {selected.Quarter.String()}}.Encode(),
	}
}

// HTML writes the page as an HTML document.
func HTML(w io.Writer, p Page) error {
	if err := pageTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render portfolio page: %w", err)
	}
	return nil
}

// Table writes headers and rows as a tab-aligned text table, marking repeat
// holders with a trailing "*".
func Table(w io.Writer, headers []string, rows []reconcile.ProjectedRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	hs := make([]string, len(headers))
	for i, h := range headers {
		hs[i] = headerCell(h)
	}
	fmt.Fprintln(tw, strings.Join(hs, "\t"))

	for _, r := range rows {
		line := strings.Join(r.Cells, "\t")
		if r.Highlight == reconcile.Repeat {
			line += "\t*"
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

// Raw writes every fetched row on its own line, cells joined with " | ".
// Rows are not reconciled; null cells print as empty text.
func Raw(w io.Writer, rows []models.PortfolioRow) error {
	for _, r := range rows {
		cells := r.Cells()
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = c.String()
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, " | ")); err != nil {
			return err
		}
	}
	return nil
}
