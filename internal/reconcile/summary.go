package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/seenimoa/investorfolio/pkg/utils"
)

// Summary describes a reconciliation pass for status lines and the API.
type Summary struct {
	TotalRows      int             `json:"total_rows"`
	NewFilings     int             `json:"new_filings"`
	RepeatHolders  int             `json:"repeat_holders"`
	SharesHeld     decimal.Decimal `json:"shares_held"`
	UnparsedShares int             `json:"unparsed_shares"`
}

// Summarize counts the reconciled rows and adds up their shares held.
// Share cells that are empty or not numeric are skipped and counted.
func Summarize(totalRows int, r Result) Summary {
	s := Summary{
		TotalRows:  totalRows,
		NewFilings: len(r.Rows),
		SharesHeld: decimal.Zero,
	}
	for i, row := range r.Rows {
		if r.IsRepeat(i) {
			s.RepeatHolders++
		}
		d, err := utils.ParseIndianNumber(row.SharesHeld.String())
		if err != nil {
			s.UnparsedShares++
			continue
		}
		s.SharesHeld = s.SharesHeld.Add(d)
	}
	return s
}
