package portfolio

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/models"
)

// Range is a history window preset. All presets measure backward from the
// wall clock at filter time, not from the series' own latest point.
type Range string

const (
	Range1Month  Range = "1month"
	Range3Months Range = "3months"
	Range6Months Range = "6months"
	Range1Year   Range = "1year"
)

// DefaultRange is the window shown when the panel opens.
const DefaultRange = Range1Month

// ParseRange validates a range query value. Empty selects the default.
func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case "":
		return DefaultRange, nil
	case Range1Month, Range3Months, Range6Months, Range1Year:
		return Range(s), nil
	default:
		return "", fmt.Errorf("unknown range %q", s)
	}
}

// Cutoff returns the inclusive lower bound of the window: now minus one
// calendar month, three, six, or a year.
func (r Range) Cutoff(now time.Time) time.Time {
	switch r {
	case Range1Year:
		return now.AddDate(-1, 0, 0)
	case Range6Months:
		return now.AddDate(0, -6, 0)
	case Range3Months:
		return now.AddDate(0, -3, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// labelFormat returns the x-axis label layout: year+month for the 1-year
// view, month+day otherwise.
func (r Range) labelFormat() string {
	if r == Range1Year {
		return "Jan '06"
	}
	return "Jan 2"
}

// Point is one chart observation with its derived P&L.
type Point struct {
	CreatedAt time.Time       `json:"created_at"`
	Label     string          `json:"label"`
	Price     decimal.Decimal `json:"price"`
	PnL       decimal.Decimal `json:"pnl"`
}

// Chart is the history-panel payload: the filtered series, its display
// bound, and a per-asset summary block.
type Chart struct {
	AssetID string  `json:"asset_id"`
	Range   Range   `json:"range"`
	Points  []Point `json:"points"`

	// YAxisMax is display headroom (1.5x the max filtered price, rounded
	// to the nearest integer), not a real limit. Recomputed per filter
	// change so a new point is never clipped by a stale bound.
	YAxisMax int64 `json:"y_axis_max"`

	TokenName      string `json:"token_name"`
	UnitBasis      string `json:"unit_basis"`
	CurrentPrice   string `json:"current_price"`
	CurrentPnL     string `json:"current_pnl"`
	CurrentPnLSign string `json:"current_pnl_sign"`
}

// BuildChart derives the chart for one asset. P&L per point is price minus
// the asset's current cost basis — only one basis value exists, so older
// points are measured against it too.
func BuildChart(asset models.Asset, history []models.HistoryPoint, r Range, now time.Time) Chart {
	basis := asset.CostBasisDecimal()

	enriched := lo.Map(history, func(p models.HistoryPoint, _ int) Point {
		return Point{
			CreatedAt: p.CreatedAt,
			Label:     p.CreatedAt.Format(r.labelFormat()),
			Price:     p.Price,
			PnL:       p.Price.Sub(basis),
		}
	})

	cutoff := r.Cutoff(now)
	filtered := lo.Filter(enriched, func(p Point, _ int) bool {
		return !p.CreatedAt.Before(cutoff)
	})

	chart := Chart{
		AssetID:   asset.ID,
		Range:     r,
		Points:    filtered,
		YAxisMax:  yAxisMax(filtered),
		TokenName: asset.TokenName,
		UnitBasis: common.FormatMoneyDecimal(basis),
	}

	// Summary figures come from the full series' latest point, matching
	// the panel header rather than the filtered window.
	currentPrice := decimal.Zero
	if len(enriched) > 0 {
		currentPrice = enriched[len(enriched)-1].Price
	}
	currentPnL := currentPrice.Sub(basis)
	chart.CurrentPrice = common.FormatMoneyDecimal(currentPrice)
	chart.CurrentPnL = common.FormatMoneyDecimal(currentPnL)
	chart.CurrentPnLSign = SignOf(currentPnL)

	return chart
}

// yAxisMax computes round(1.5 x max price) over the filtered series.
// An empty series has no headroom to compute.
func yAxisMax(points []Point) int64 {
	if len(points) == 0 {
		return 0
	}
	max := lo.MaxBy(points, func(a, b Point) bool {
		return a.Price.GreaterThan(b.Price)
	})
	return max.Price.Mul(decimal.NewFromFloat(1.5)).Round(0).IntPart()
}
