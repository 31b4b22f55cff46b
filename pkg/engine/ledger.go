package engine

import (
	"context"
	"errors"
	"fmt"

	"cointrack/pkg/market"
	"cointrack/pkg/portfolio"
)

// ErrUnknownAsset is returned when a purchase names an asset missing from the
// listing and carries no name of its own.
var ErrUnknownAsset = errors.New("engine: unknown asset")

// Positions values the ledger at the current listing prices.
func (e *Engine) Positions(sort portfolio.PositionSort) []portfolio.Position {
	positions := portfolio.Value(e.ledger.Purchases(), portfolio.PricesFrom(e.Assets()))
	portfolio.SortPositions(positions, sort)
	return positions
}

// SetPositionSort stores the default ordering used by SortedPositions.
func (e *Engine) SetPositionSort(sort portfolio.PositionSort) {
	e.mu.Lock()
	e.positionSort = sort
	e.mu.Unlock()
	e.notify(ChangePortfolio)
}

// SortedPositions values the ledger in the stored position ordering.
func (e *Engine) SortedPositions() []portfolio.Position {
	e.mu.RLock()
	sort := e.positionSort
	e.mu.RUnlock()
	return e.Positions(sort)
}

// Portfolio aggregates the current positions.
func (e *Engine) Portfolio() portfolio.Snapshot {
	return portfolio.Summarize(e.Positions(portfolio.DefaultPositionSort))
}

// Purchases returns the ledger entries ordered by key and dir.
func (e *Engine) Purchases(key portfolio.PurchaseSortKey, dir market.Direction) []portfolio.Purchase {
	return portfolio.SortPurchases(e.ledger.Purchases(), key, dir)
}

// AddPurchase records a purchase. Missing display fields are taken from the
// listing entry of the asset.
func (e *Engine) AddPurchase(_ context.Context, p portfolio.Purchase) (portfolio.Purchase, error) {
	if asset, ok := e.asset(p.AssetID); ok {
		if p.Name == "" {
			p.Name = asset.Name
		}
		if p.Symbol == "" {
			p.Symbol = asset.Symbol
		}
		if p.Image == "" {
			p.Image = asset.Image
		}
	} else if p.AssetID != "" && p.Name == "" {
		return portfolio.Purchase{}, fmt.Errorf("%w: %s", ErrUnknownAsset, p.AssetID)
	}
	added, err := e.ledger.Add(p)
	if err != nil {
		return portfolio.Purchase{}, err
	}
	e.notify(ChangePortfolio)
	return added, nil
}

// EditPurchase updates the fields set in edit; the purchase id never changes.
func (e *Engine) EditPurchase(_ context.Context, id string, edit portfolio.PurchaseEdit) (portfolio.Purchase, error) {
	p, err := e.ledger.Edit(id, edit)
	if err != nil {
		return portfolio.Purchase{}, err
	}
	e.notify(ChangePortfolio)
	return p, nil
}

// RemovePurchase deletes a purchase.
func (e *Engine) RemovePurchase(_ context.Context, id string) error {
	if err := e.ledger.Remove(id); err != nil {
		return err
	}
	e.notify(ChangePortfolio)
	return nil
}

// Favorites returns the favorite asset ids in user order.
func (e *Engine) Favorites() []string { return e.ledger.Favorites() }

// FavoriteAssets returns the listed favorites in user order. Favorites not in
// the current listing are skipped.
func (e *Engine) FavoriteAssets() []market.Asset {
	assets := e.Assets()
	byID := make(map[string]int, len(assets))
	for i, a := range assets {
		byID[a.ID] = i
	}
	var out []market.Asset
	for _, id := range e.ledger.Favorites() {
		if i, ok := byID[id]; ok {
			out = append(out, assets[i])
		}
	}
	return out
}

// ToggleFavorite flips assetID in the favorites and reports whether it is now one.
func (e *Engine) ToggleFavorite(_ context.Context, assetID string) (bool, error) {
	if assetID == "" {
		return false, fmt.Errorf("%w: empty id", ErrUnknownAsset)
	}
	added := e.ledger.ToggleFavorite(assetID)
	e.notify(ChangeFavorites)
	return added, nil
}

// ReorderFavorites replaces the favorites order; ids must be a permutation of
// the current favorites.
func (e *Engine) ReorderFavorites(_ context.Context, ids []string) error {
	if err := e.ledger.ReorderFavorites(ids); err != nil {
		return err
	}
	e.notify(ChangeFavorites)
	return nil
}

// MoveFavorite moves the favorite at index from to index to.
func (e *Engine) MoveFavorite(_ context.Context, from, to int) []string {
	out := e.ledger.MoveFavorite(from, to)
	e.notify(ChangeFavorites)
	return out
}

func (e *Engine) asset(id string) (market.Asset, bool) {
	if id == "" {
		return market.Asset{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, a := range e.assets {
		if a.ID == id {
			return a, true
		}
	}
	return market.Asset{}, false
}
