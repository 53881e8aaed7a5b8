// Package reconcile turns a raw portfolio row set into what is shown and
// exported: per-company occurrence counts over every row, and the ordered,
// de-duplicated set of "New" filings.
package reconcile

import (
	"github.com/seenimoa/investorfolio/pkg/models"
)

// OccurrenceMap counts rows per company key.
type OccurrenceMap map[string]int

// CountOccurrences counts every row by the text of its company key. The
// count covers the whole input, whatever the filing status, so a company that
// also appears under other statuses is flagged as a repeat holder.
func CountOccurrences(rows []models.PortfolioRow) OccurrenceMap {
	occ := make(OccurrenceMap, len(rows))
	for _, r := range rows {
		occ[r.Company]++
	}
	return occ
}

// FilterAndDeduplicate keeps rows whose filing status is exactly "New" and,
// among those, only the first row for each company key. Keys compare by type
// and value, so 123 and "123" are two companies here even though
// CountOccurrences counts them together. Order is preserved.
func FilterAndDeduplicate(rows []models.PortfolioRow) []models.PortfolioRow {
	out := make([]models.PortfolioRow, 0)
	seen := make(map[models.CellKey]struct{})
	for _, r := range rows {
		if r.FilingStatus != models.FilingStatusNew {
			continue
		}
		key := r.CompanyKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// IsRepeatHolder reports whether key occurs more than once in occ.
func IsRepeatHolder(key string, occ OccurrenceMap) bool {
	return occ[key] > 1
}

// Result bundles one reconciliation pass.
type Result struct {
	Occurrences OccurrenceMap
	Rows        []models.PortfolioRow
}

// Reconcile runs CountOccurrences over all rows and FilterAndDeduplicate.
func Reconcile(rows []models.PortfolioRow) Result {
	return Result{
		Occurrences: CountOccurrences(rows),
		Rows:        FilterAndDeduplicate(rows),
	}
}

// IsRepeat reports whether the reconciled row at i is a repeat holder.
func (r Result) IsRepeat(i int) bool {
	return IsRepeatHolder(r.Rows[i].Company, r.Occurrences)
}
