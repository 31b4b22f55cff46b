package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

// Persistence keys of the ledger.
const (
	HoldingsKey  = "portfolio-holdings"
	FavoritesKey = "portfolio-favorites"
)

const saveTimeout = 5 * time.Second

// Store is the key-value contract the ledger persists through. Load returns
// nil data and a nil error for a key that was never saved.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Ledger holds the user's purchases and favorites. The in-memory state is
// authoritative; every mutation schedules a best-effort background save.
type Ledger struct {
	mu        sync.RWMutex
	store     Store
	purchases []Purchase
	favorites []string
	now       func() time.Time

	writeMu sync.Mutex
	seq     map[string]uint64
	// attempted is the newest sequence handed to the store per key, whether
	// or not its save succeeded.
	attempted map[string]uint64
	saves     sync.WaitGroup
}

// LoadLedger reads purchases and favorites from store. It never fails:
// missing, unreadable or malformed data yields an empty list, and purchases
// that break the ledger invariants are dropped.
func LoadLedger(ctx context.Context, store Store) *Ledger {
	l := &Ledger{
		store:     store,
		now:       time.Now,
		seq:       map[string]uint64{},
		attempted: map[string]uint64{},
	}

	var purchases []Purchase
	if load(ctx, store, HoldingsKey, &purchases) {
		for _, p := range purchases {
			if err := p.Validate(); err != nil {
				logx.WithContext(ctx).Errorf("portfolio: dropping stored purchase id=%s err=%v", p.ID, err)
				continue
			}
			l.purchases = append(l.purchases, p)
		}
	}

	var favorites []string
	if load(ctx, store, FavoritesKey, &favorites) {
		for _, id := range favorites {
			if id != "" && !slices.Contains(l.favorites, id) {
				l.favorites = append(l.favorites, id)
			}
		}
	}
	return l
}

func load(ctx context.Context, store Store, key string, dst any) bool {
	if store == nil {
		return false
	}
	data, err := store.Load(ctx, key)
	if err != nil {
		logx.WithContext(ctx).Errorf("portfolio: load key=%s err=%v", key, err)
		return false
	}
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logx.WithContext(ctx).Errorf("portfolio: corrupt value key=%s, resetting err=%v", key, err)
		return false
	}
	return true
}

// Purchases returns a copy of the ledger entries in insertion order.
func (l *Ledger) Purchases() []Purchase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.purchases)
}

// Purchase returns the entry with the given id.
func (l *Ledger) Purchase(id string) (Purchase, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.purchases[i], true
	}
	return Purchase{}, false
}

// Favorites returns a copy of the ordered favorite ids.
func (l *Ledger) Favorites() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.favorites)
}

// IsFavorite reports whether id is a favorite.
func (l *Ledger) IsFavorite(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Contains(l.favorites, id)
}

// Add validates p, assigns an id when missing and appends it.
func (l *Ledger) Add(p Purchase) (Purchase, error) {
	if err := p.Validate(); err != nil {
		return Purchase{}, err
	}
	now := l.now()
	if p.ID == "" {
		p.ID = NewPurchaseID()
	}
	if p.Date.IsZero() {
		p.Date = now
	}
	p.CreatedAt = now

	l.mu.Lock()
	if l.indexLocked(p.ID) >= 0 {
		l.mu.Unlock()
		return Purchase{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidPurchase, p.ID)
	}
	l.purchases = append(l.purchases, p)
	l.persistLocked(HoldingsKey, l.purchases)
	l.mu.Unlock()
	return p, nil
}

// Edit applies edit to the purchase with the given id.
func (l *Ledger) Edit(id string, edit PurchaseEdit) (Purchase, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return Purchase{}, fmt.Errorf("%w: %s", ErrPurchaseNotFound, id)
	}
	updated := edit.Apply(l.purchases[i])
	if err := updated.Validate(); err != nil {
		return Purchase{}, err
	}
	l.purchases[i] = updated
	l.persistLocked(HoldingsKey, l.purchases)
	return updated, nil
}

// Remove deletes the purchase with the given id.
func (l *Ledger) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPurchaseNotFound, id)
	}
	l.purchases = slices.Delete(l.purchases, i, i+1)
	l.persistLocked(HoldingsKey, l.purchases)
	return nil
}

// ToggleFavorite adds or removes assetID and reports whether it is now a favorite.
func (l *Ledger) ToggleFavorite(assetID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	var added bool
	l.favorites, added = Toggle(l.favorites, assetID)
	l.persistLocked(FavoritesKey, l.favorites)
	return added
}

// ReorderFavorites replaces the favorites order. ids must hold exactly the
// current favorites.
func (l *Ledger) ReorderFavorites(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !IsPermutation(l.favorites, ids) {
		return ErrNotPermutation
	}
	l.favorites = slices.Clone(ids)
	l.persistLocked(FavoritesKey, l.favorites)
	return nil
}

// MoveFavorite moves the favorite at index from to index to.
func (l *Ledger) MoveFavorite(from, to int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.favorites = Reorder(l.favorites, from, to)
	l.persistLocked(FavoritesKey, l.favorites)
	return slices.Clone(l.favorites)
}

// Flush waits for scheduled saves to finish.
func (l *Ledger) Flush() {
	l.saves.Wait()
}

func (l *Ledger) indexLocked(id string) int {
	return slices.IndexFunc(l.purchases, func(p Purchase) bool { return p.ID == id })
}

// persistLocked encodes value now and writes it in the background.
func (l *Ledger) persistLocked(key string, value any) {
	if l.store == nil {
		return
	}
	data, err := marshalList(value)
	if err != nil {
		logx.Errorf("portfolio: encode key=%s err=%v", key, err)
		return
	}
	l.seq[key]++
	seq := l.seq[key]

	l.saves.Add(1)
	threading.GoSafe(func() {
		defer l.saves.Done()
		l.write(key, seq, data)
	})
}

// write saves data unless a newer save for key was already attempted. A
// failed newer save still wins: the older state must not reach the store.
func (l *Ledger) write(key string, seq uint64, data []byte) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if l.attempted[key] >= seq {
		return
	}
	l.attempted[key] = seq
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := l.store.Save(ctx, key, data); err != nil {
		logx.Errorf("portfolio: save key=%s err=%v", key, err)
	}
}

// marshalList encodes nil slices as [] so stored values are always arrays.
func marshalList(value any) ([]byte, error) {
	switch v := value.(type) {
	case []Purchase:
		if v == nil {
			v = []Purchase{}
		}
		return json.Marshal(v)
	case []string:
		if v == nil {
			v = []string{}
		}
		return json.Marshal(v)
	}
	return json.Marshal(value)
}
