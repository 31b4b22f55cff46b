// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

import (
	"cointrack/pkg/engine"
	"cointrack/pkg/market"
	"cointrack/pkg/portfolio"
)

type Empty struct{}

type ListingRequest struct {
	Search   *string `json:"search,optional"`
	Page     int     `json:"page,optional"`
	PageSize int     `json:"pageSize,optional"`
}

type ListingResponse = engine.Listing

type StatusResponse = engine.Status

type RefreshRequest struct {
	Force bool `json:"force,optional"`
}

type RefreshResponse struct {
	Started bool          `json:"started"`
	Status  engine.Status `json:"status"`
}

type SortRequest struct {
	Key       string `json:"key"`
	Direction string `json:"direction,default=desc"`
}

type GainersRequest struct {
	N int `form:"n,default=5"`
}

type AssetsResponse struct {
	Assets []market.Asset `json:"assets"`
}

type MarketStatsResponse = market.Stats

type PortfolioRequest struct {
	SortKey   string `form:"sortKey,optional"`
	Direction string `form:"direction,optional"`
}

type PortfolioResponse struct {
	Snapshot  portfolio.Snapshot   `json:"snapshot"`
	Positions []portfolio.Position `json:"positions"`
}

type PurchasesRequest struct {
	SortKey   string `form:"sortKey,default=date"`
	Direction string `form:"direction,default=desc"`
}

type PurchasesResponse struct {
	Purchases []portfolio.Purchase `json:"purchases"`
}

type AddPurchaseRequest struct {
	AssetID string `json:"assetId"`
	Name    string `json:"name,optional"`
	Symbol  string `json:"symbol,optional"`
	Image   string `json:"image,optional"`
	Amount  string `json:"amount"`
	Price   string `json:"price"`
	Date    string `json:"date,optional"` // RFC 3339 or YYYY-MM-DD
	Notes   string `json:"notes,optional"`
}

type EditPurchaseRequest struct {
	ID     string  `path:"id"`
	Amount *string `json:"amount,optional"`
	Price  *string `json:"price,optional"`
	Date   *string `json:"date,optional"`
	Notes  *string `json:"notes,optional"`
}

type PurchaseIDRequest struct {
	ID string `path:"id"`
}

type PurchaseResponse = portfolio.Purchase

type FavoritesResponse struct {
	IDs    []string       `json:"ids"`
	Assets []market.Asset `json:"assets"`
}

type ToggleFavoriteRequest struct {
	AssetID string `json:"assetId"`
}

type ToggleFavoriteResponse struct {
	Favorite bool     `json:"favorite"`
	IDs      []string `json:"ids"`
}

// ReorderFavoritesRequest carries either the full new order or a single move.
type ReorderFavoritesRequest struct {
	IDs  []string `json:"ids,optional"`
	From *int     `json:"from,optional"`
	To   *int     `json:"to,optional"`
}

type VisibilityRequest struct {
	Visible bool `json:"visible"`
}
