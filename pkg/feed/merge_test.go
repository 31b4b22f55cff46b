package feed

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cointrack/pkg/market"
)

func TestMergeDeduplicatesByID(t *testing.T) {
	page1 := makeAssets("a", 3, 100)
	overlap := []market.Asset{
		{ID: "a-1", Symbol: "a1", MarketCap: 500},
		{ID: "b-0", Symbol: "b0", MarketCap: 1},
	}

	merged := Merge(page1, overlap, market.DefaultSort)

	require.Len(t, merged, 4)
	assert.Equal(t, []string{"a-1", "a-0", "a-2", "b-0"}, ids(merged))
	assert.InDelta(t, 500, merged[0].MarketCap, 1e-9, "last seen record wins")
}

func TestMergeIsIdempotent(t *testing.T) {
	page1 := makeAssets("a", 3, 100)
	page2 := makeAssets("b", 2, 50)

	once := Merge(page1, page2, market.DefaultSort)
	twice := Merge(once, page2, market.DefaultSort)
	assert.Equal(t, once, twice)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	existing := makeAssets("a", 2, 10)
	incoming := []market.Asset{{ID: "a-0", MarketCap: 1}}
	_ = Merge(existing, incoming, market.DefaultSort)
	assert.InDelta(t, 10, existing[0].MarketCap, 1e-9)
}

func TestMergeSetLifecycle(t *testing.T) {
	set := NewMergeSet(market.DefaultSort)
	assert.Zero(t, set.Len())

	set.Replace(makeAssets("a", 2, 100))
	listing := set.Add(makeAssets("b", 2, 50))
	assert.Equal(t, []string{"a-0", "a-1", "b-0", "b-1"}, ids(listing))

	asc := market.Sort{Key: market.SortMarketCap, Direction: market.Asc}
	listing = set.Resort(asc)
	assert.Equal(t, []string{"b-1", "b-0", "a-1", "a-0"}, ids(listing))
	assert.Equal(t, asc, set.Sort())

	listing = set.Replace(makeAssets("c", 1, 1))
	assert.Equal(t, []string{"c-0"}, ids(listing))
	assert.Equal(t, 1, set.Len())

	snap := set.Snapshot()
	snap[0].ID = "mutated"
	assert.Equal(t, "c-0", set.Snapshot()[0].ID)
}

func TestMergeSetConcurrentAddsKeepEveryPage(t *testing.T) {
	set := NewMergeSet(market.DefaultSort)
	set.Replace(makeAssets("p0", 5, 1000))

	const pages = 16
	var wg sync.WaitGroup
	for i := 1; i <= pages; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			set.Add(makeAssets(fmt.Sprintf("p%d", i), 5, float64(1000-i*10)))
			_ = set.Snapshot()
		}(i)
	}
	wg.Wait()

	listing := set.Snapshot()
	seen := map[string]bool{}
	for _, a := range listing {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
	require.Len(t, listing, (pages+1)*5)
	for i := 0; i <= pages; i++ {
		for j := 0; j < 5; j++ {
			assert.True(t, seen[fmt.Sprintf("p%d-%d", i, j)], "lost p%d-%d", i, j)
		}
	}
}

func TestMergeSetConcurrentReplaceAndAdd(t *testing.T) {
	set := NewMergeSet(market.DefaultSort)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			set.Replace(makeAssets(fmt.Sprintf("r%d", i), 3, 100))
		}(i)
		go func(i int) {
			defer wg.Done()
			set.Add(makeAssets(fmt.Sprintf("a%d", i), 2, 50))
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, a := range set.Snapshot() {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
	assert.Equal(t, len(seen), set.Len())
}
