// Package models defines the wire types exchanged with the Metaversal backend.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Asset types understood by the backend.
const (
	AssetTypeERC20  = "ERC-20"
	AssetTypeERC721 = "ERC-721"
)

// Asset represents one holding as returned by the backend. Quantitative
// fields arrive as decimal strings; the client never mutates them, it only
// replaces the whole record on refetch.
type Asset struct {
	ID                   string  `json:"id"`
	TokenName            string  `json:"token_name"`
	SmartContractAddress string  `json:"smart_contract_address"`
	AssetType            string  `json:"asset_type"`
	Chain                string  `json:"chain"`
	QuantityOwned        string  `json:"quantity_owned,omitempty"`
	TokenID              string  `json:"token_id,omitempty"`
	CostBasis            string  `json:"cost_basis"`
	LatestPrice          string  `json:"latest_price"`
	ProfitOrLoss         float64 `json:"p_or_l"`
}

// IsNonFungible returns true for the single-token-id variant.
func (a *Asset) IsNonFungible() bool {
	return a.AssetType == AssetTypeERC721
}

// Quantity returns the owned quantity as a decimal. An absent quantity is
// treated as 1, which covers the non-fungible case.
func (a *Asset) Quantity() decimal.Decimal {
	if strings.TrimSpace(a.QuantityOwned) == "" {
		return decimal.NewFromInt(1)
	}
	q, err := decimal.NewFromString(a.QuantityOwned)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	return q
}

// CostBasisDecimal parses the cost basis, defaulting to zero on absent or
// malformed values (matching the source behavior of Number(cost_basis || 0)).
func (a *Asset) CostBasisDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(a.CostBasis)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LatestPriceDecimal parses the latest price, defaulting to zero.
func (a *Asset) LatestPriceDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(a.LatestPrice)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// HistoryPoint is one (timestamp, price) observation for an asset.
// decimal.Decimal accepts both quoted and bare JSON numbers, so the point is
// exact regardless of how the backend serializes the price.
type HistoryPoint struct {
	CreatedAt time.Time       `json:"created_at"`
	Price     decimal.Decimal `json:"price"`
}

// PortfolioSnapshot holds aggregate portfolio figures, wholly
// server-computed; the portal re-fetches rather than derives it.
type PortfolioSnapshot struct {
	TotalValue  string    `json:"total_value"`
	TotalBasis  string    `json:"total_basis"`
	PnL         float64   `json:"pnl"`
	LastUpdated time.Time `json:"last_updated"`
}

// AddAssetRequest is the create-asset payload. The backend assigns the ID
// and fills in chain and pricing; callers must refetch to see the record.
type AddAssetRequest struct {
	TokenDescription     string   `json:"tokenDescription"`
	AssetType            string   `json:"assetType"`
	SmartContractAddress string   `json:"smartContractAddress"`
	Quantity             *float64 `json:"quantity,omitempty"`
	TokenID              string   `json:"tokenId,omitempty"`
	CostBasis            *float64 `json:"costBasis,omitempty"`
}

// Validate enforces boundary rules: required fields non-empty, quantity only
// on fungible assets, token id only on non-fungible ones.
func (r *AddAssetRequest) Validate() error {
	if strings.TrimSpace(r.TokenDescription) == "" {
		return fmt.Errorf("tokenDescription is required")
	}
	if strings.TrimSpace(r.SmartContractAddress) == "" {
		return fmt.Errorf("smartContractAddress is required")
	}
	switch r.AssetType {
	case AssetTypeERC20:
		if r.TokenID != "" {
			return fmt.Errorf("tokenId is not valid for %s assets", AssetTypeERC20)
		}
	case AssetTypeERC721:
		if r.Quantity != nil {
			return fmt.Errorf("quantity is not valid for %s assets", AssetTypeERC721)
		}
	default:
		return fmt.Errorf("unknown asset type %q", r.AssetType)
	}
	return nil
}

// AuthResponse is the body of the POST /auth credential exchange. The
// development JWT is only issued in development-mode deployments; otherwise
// the backend sets a session cookie.
type AuthResponse struct {
	DevelopmentJWT string `json:"developmentJwt,omitempty"`
}
