package feed

import (
	"sync"

	"cointrack/pkg/market"
)

// Merge folds incoming into existing by asset id and orders the result by
// sort. A repeated id replaces the earlier record in place (last seen wins),
// new ids are appended before sorting. Neither input is modified.
func Merge(existing, incoming []market.Asset, sort market.Sort) []market.Asset {
	merged := make([]market.Asset, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))
	for _, batch := range [][]market.Asset{existing, incoming} {
		for _, asset := range batch {
			if i, ok := index[asset.ID]; ok {
				merged[i] = asset
				continue
			}
			index[asset.ID] = len(merged)
			merged = append(merged, asset)
		}
	}
	sort.Apply(merged)
	return merged
}

// MergeSet is the single serialized access point to the merged listing.
// Every mutation is one read-modify-write under its lock, so pages resolving
// back to back cannot lose each other's records.
type MergeSet struct {
	mu     sync.RWMutex
	sort   market.Sort
	assets []market.Asset
}

// NewMergeSet constructs an empty set ordered by sort.
func NewMergeSet(sort market.Sort) *MergeSet {
	return &MergeSet{sort: sort}
}

// Replace discards the current listing and starts over from page.
func (m *MergeSet) Replace(page []market.Asset) []market.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets = Merge(nil, page, m.sort)
	return m.snapshotLocked()
}

// Add merges page into the listing and returns the new listing.
func (m *MergeSet) Add(page []market.Asset) []market.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets = Merge(m.assets, page, m.sort)
	return m.snapshotLocked()
}

// Resort switches the active ordering and reorders the current listing.
func (m *MergeSet) Resort(sort market.Sort) []market.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sort = sort
	sort.Apply(m.assets)
	return m.snapshotLocked()
}

// Sort returns the active ordering.
func (m *MergeSet) Sort() market.Sort {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sort
}

// Snapshot returns a copy of the current listing.
func (m *MergeSet) Snapshot() []market.Asset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Len reports the number of assets in the listing.
func (m *MergeSet) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.assets)
}

func (m *MergeSet) snapshotLocked() []market.Asset {
	out := make([]market.Asset, len(m.assets))
	copy(out, m.assets)
	return out
}
