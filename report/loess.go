package report

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/wgergely/expensetracker/ledger"
	"github.com/wgergely/expensetracker/status"
)

// TrendPoint pairs one month's spending with its smoothed value.
type TrendPoint struct {
	Month    string
	Spending decimal.Decimal
	Smoothed float64
}

// Trend smooths monthly spending over the configured trailing window. Only
// outgoing amounts count; the series is their magnitude per month, ending
// at the configured yearmonth, smoothed with LOESS at the configured
// fraction. An empty category covers all spending.
func Trend(l *ledger.Ledger, category string) ([]TrendPoint, error) {
	md := l.Config().Metadata
	end, err := ParseYearMonth(md.YearMonth)
	if err != nil {
		return nil, err
	}
	months := md.NegativeSpan
	if months < 1 {
		return nil, status.New(status.LedgerConfigInvalid, "negative_span must be at least 1")
	}
	from := end.AddDate(0, -(months - 1), 0)

	totals := make([]decimal.Decimal, months)
	for _, tx := range l.Span(from, months) {
		if tx.Amount.Sign() >= 0 {
			continue
		}
		if category != "" && tx.Category != category {
			continue
		}
		offset := monthOffset(from, tx.Date)
		totals[offset] = totals[offset].Add(tx.Amount.Abs())
	}

	xs := make([]float64, months)
	ys := make([]float64, months)
	for i, total := range totals {
		xs[i] = float64(i)
		ys[i], _ = total.Float64()
	}
	smoothed := Loess(xs, ys, md.LoessFraction)

	out := make([]TrendPoint, months)
	for i := range out {
		out[i] = TrendPoint{
			Month:    from.AddDate(0, i, 0).Format("2006-01"),
			Spending: totals[i],
			Smoothed: smoothed[i],
		}
	}
	return out, nil
}

// Loess computes a locally weighted linear regression of ys over xs. At
// each point the nearest fraction of the data is fit with tricube weights
// and the fit evaluated at that point. Inputs must be sorted by x.
func Loess(xs, ys []float64, fraction float64) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[0] = ys[0]
		return out
	}

	window := int(math.Ceil(fraction * float64(n)))
	if window < 2 {
		window = 2
	}
	if window > n {
		window = n
	}

	for i := range xs {
		lo, hi := neighborhood(xs, i, window)

		// The furthest neighbor scales the tricube kernel.
		maxDist := math.Max(xs[i]-xs[lo], xs[hi]-xs[i])
		if maxDist == 0 {
			out[i] = ys[i]
			continue
		}

		var sw, swx, swy, swxx, swxy float64
		for j := lo; j <= hi; j++ {
			w := tricube(math.Abs(xs[j]-xs[i]) / maxDist)
			sw += w
			swx += w * xs[j]
			swy += w * ys[j]
			swxx += w * xs[j] * xs[j]
			swxy += w * xs[j] * ys[j]
		}

		denom := sw*swxx - swx*swx
		if math.Abs(denom) < 1e-12 {
			out[i] = swy / sw
			continue
		}
		slope := (sw*swxy - swx*swy) / denom
		intercept := (swy - slope*swx) / sw
		out[i] = intercept + slope*xs[i]
	}
	return out
}

// neighborhood returns the inclusive index range of the window nearest
// points around i.
func neighborhood(xs []float64, i, window int) (int, int) {
	lo, hi := i, i
	for hi-lo+1 < window {
		switch {
		case lo == 0:
			hi++
		case hi == len(xs)-1:
			lo--
		case xs[i]-xs[lo-1] <= xs[hi+1]-xs[i]:
			lo--
		default:
			hi++
		}
	}
	return lo, hi
}

func tricube(d float64) float64 {
	if d >= 1 {
		return 0
	}
	c := 1 - d*d*d
	return c * c * c
}
