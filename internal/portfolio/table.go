// Package portfolio computes the derived figures the pages display: table
// row totals, history P&L series, and chart axis bounds. All arithmetic is
// decimal-exact; the backend owns every other number.
package portfolio

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/models"
)

// P&L sign classification, used by the pages for display coloring only.
const (
	SignPositive = "positive"
	SignNegative = "negative"
	SignZero     = "zero"
)

// SignOf classifies a decimal for display coloring.
func SignOf(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return SignPositive
	case -1:
		return SignNegative
	default:
		return SignZero
	}
}

// Row is one asset-table line with its computed totals. Money fields are
// pre-formatted; Sign colors the profit/loss cell.
type Row struct {
	ID            string `json:"id"`
	TokenName     string `json:"token_name"`
	AssetType     string `json:"asset_type"`
	Chain         string `json:"chain"`
	Contract      string `json:"contract"`
	ContractShort string `json:"contract_short"`
	Quantity      string `json:"quantity"`
	TokenID       string `json:"token_id"`
	UnitBasis     string `json:"unit_basis"`
	TotalBasis    string `json:"total_basis"`
	UnitPrice     string `json:"unit_price"`
	CurrentValue  string `json:"current_value"`
	ProfitLoss    string `json:"profit_loss"`
	Sign          string `json:"sign"`
}

// BuildRows computes the table presentation of the asset list. The list is
// small; recomputation on every request is fine.
func BuildRows(assets []models.Asset) []Row {
	return lo.Map(assets, func(a models.Asset, _ int) Row {
		return buildRow(a)
	})
}

// buildRow derives one row. Quantity defaults to 1 when absent, which
// covers the non-fungible case.
func buildRow(a models.Asset) Row {
	quantity := a.Quantity()
	totalBasis := a.CostBasisDecimal().Mul(quantity)
	currentValue := a.LatestPriceDecimal().Mul(quantity)
	profitLoss := currentValue.Sub(totalBasis)

	displayQuantity := a.QuantityOwned
	if displayQuantity == "" {
		displayQuantity = "-"
	}
	displayTokenID := a.TokenID
	if displayTokenID == "" {
		displayTokenID = "-"
	}

	return Row{
		ID:            a.ID,
		TokenName:     a.TokenName,
		AssetType:     a.AssetType,
		Chain:         a.Chain,
		Contract:      a.SmartContractAddress,
		ContractShort: common.TruncateAddress(a.SmartContractAddress),
		Quantity:      displayQuantity,
		TokenID:       displayTokenID,
		UnitBasis:     common.FormatMoneyDecimal(a.CostBasisDecimal()),
		TotalBasis:    common.FormatMoneyDecimal(totalBasis),
		UnitPrice:     common.FormatMoneyDecimal(a.LatestPriceDecimal()),
		CurrentValue:  common.FormatMoneyDecimal(currentValue),
		ProfitLoss:    common.FormatMoneyDecimal(profitLoss),
		Sign:          SignOf(profitLoss),
	}
}
