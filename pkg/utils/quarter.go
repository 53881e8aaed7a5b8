package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/seenimoa/investorfolio/pkg/models"
)

// ErrNegativeSteps is returned by PreviousQuarter for a negative step count.
var ErrNegativeSteps = errors.New("quarter steps must not be negative")

// ErrQuarterCount is returned when a quarter list length is out of range.
var ErrQuarterCount = errors.New("quarter count out of range")

// DefaultHistoryQuarters is the number of preceding quarters shown as columns.
const DefaultHistoryQuarters = 8

// MaxPrecedingQuarters bounds PrecedingQuarters (a century of quarters).
const MaxPrecedingQuarters = 400

// quarterOfMonth maps a calendar month to its Indian financial-year quarter.
var quarterOfMonth = map[time.Month]models.QuarterLabel{
	time.January: models.Q4, time.February: models.Q4, time.March: models.Q4,
	time.April: models.Q1, time.May: models.Q1, time.June: models.Q1,
	time.July: models.Q2, time.August: models.Q2, time.September: models.Q2,
	time.October: models.Q3, time.November: models.Q3, time.December: models.Q3,
}

// CurrentQuarter returns the financial quarter containing ref.
// Jan–Mar belong to the financial year that started the previous April.
// The month is taken from ref as given; pass an IST time for Indian dates.
func CurrentQuarter(ref time.Time) models.Quarter {
	fy := ref.Year()
	if ref.Month() < time.April {
		fy--
	}
	return models.Quarter{
		Quarter:       quarterOfMonth[ref.Month()],
		FinancialYear: fy,
	}
}

// PreviousQuarter returns the quarter that lies steps quarters before the
// quarter containing ref. Zero steps returns the current quarter.
func PreviousQuarter(steps int, ref time.Time) (models.Quarter, error) {
	if steps < 0 {
		return models.Quarter{}, fmt.Errorf("previous quarter (steps=%d): %w", steps, ErrNegativeSteps)
	}

	cur := CurrentQuarter(ref)
	raw := cur.Quarter.Index() - steps

	idx := ((raw % 4) + 4) % 4
	fy := cur.FinancialYear
	if raw < 0 {
		// ceil(|raw| / 4) without overflowing near math.MinInt
		fy -= (-raw-1)/4 + 1
	}

	return models.Quarter{
		Quarter:       models.QuarterLabels[idx],
		FinancialYear: fy,
	}, nil
}

// PrecedingQuarters returns the n quarters before the one containing ref,
// nearest first. n must lie in [0, MaxPrecedingQuarters].
func PrecedingQuarters(ref time.Time, n int) ([]models.Quarter, error) {
	if n < 0 || n > MaxPrecedingQuarters {
		return nil, fmt.Errorf("preceding quarters (n=%d, max %d): %w", n, MaxPrecedingQuarters, ErrQuarterCount)
	}
	out := make([]models.Quarter, 0, n)
	for k := 1; k <= n; k++ {
		q, err := PreviousQuarter(k, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// QuarterHeaders formats PrecedingQuarters as column headers, e.g. "Q1 2025".
func QuarterHeaders(ref time.Time, n int) ([]string, error) {
	qs, err := PrecedingQuarters(ref, n)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.String()
	}
	return out, nil
}
