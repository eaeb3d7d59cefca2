package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/notify"
	"github.com/angelmondragon/storefront/pkg/observe"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	storeName = "cart"

	defaultSuccessDuration = 1200 * time.Millisecond
	defaultWarningDuration = 2000 * time.Millisecond
	defaultOffset          = 80
)

// AuthChecker gates AddItem. The user store satisfies it.
type AuthChecker interface {
	IsAuthenticated() bool
}

// StoreParams bundles the dependencies required to build a cart store.
type StoreParams struct {
	Storage  storage.Store
	Auth     AuthChecker
	Notifier notify.Notifier
	Logger   *logger.Logger
	Metrics  *metrics.StoreMetrics
	Display  config.DisplayConfig
}

// Store owns the ordered list of cart items and mirrors it to storage after
// every change.
type Store struct {
	storage  storage.Store
	auth     AuthChecker
	notifier notify.Notifier
	logg     *logger.Logger
	metrics  *metrics.StoreMetrics
	display  config.DisplayConfig

	mu    sync.Mutex
	items []CartItem

	listeners observe.Listeners[Snapshot]
}

// NewStore builds the store and rehydrates it from storage.
func NewStore(ctx context.Context, params StoreParams) (*Store, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if params.Auth == nil {
		return nil, fmt.Errorf("auth checker is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	display := params.Display
	if display.SuccessDuration <= 0 {
		display.SuccessDuration = defaultSuccessDuration
	}
	if display.WarningDuration <= 0 {
		display.WarningDuration = defaultWarningDuration
	}
	if display.Offset <= 0 {
		display.Offset = defaultOffset
	}

	s := &Store{
		storage:  params.Storage,
		auth:     params.Auth,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		display:  display,
	}
	s.LoadCart(ctx)
	return s, nil
}

// Items returns a copy of the cart contents in insertion order.
func (s *Store) Items() []CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// TotalQuantity sums the quantities of every line.
func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalQuantity(s.items)
}

// TotalPrice sums price times quantity over every line.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.items)
}

// IsInCart reports whether productID has a line in the cart.
func (s *Store) IsInCart(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOf(s.items, productID) >= 0
}

// GetItemQuantity returns 0 for products not in the cart.
func (s *Store) GetItemQuantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, productID); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// Subscribe registers fn to run after every mutation.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.listeners.Subscribe(fn)
}

// AddOne adds a single unit of p.
func (s *Store) AddOne(ctx context.Context, p Product) bool {
	return s.AddItem(ctx, p, 1)
}

// AddItem merges p into the cart by id. Quantities below 1 count as 1. It
// returns false without touching the cart when nobody is logged in.
func (s *Store) AddItem(ctx context.Context, p Product, quantity int) bool {
	ctx = s.opContext(ctx, "add")
	ctx = s.logg.WithProductID(ctx, p.ID)

	if !s.auth.IsAuthenticated() {
		s.warn(ctx, "please log in before adding items to the cart")
		s.metrics.IncOperation(storeName, "add", metrics.OutcomeRejected)
		return false
	}
	if quantity <= 0 {
		quantity = 1
	}

	var message string
	s.mutate(ctx, "add", func(items []CartItem) ([]CartItem, bool) {
		if i := indexOf(items, p.ID); i >= 0 {
			items[i].Quantity = addQuantity(items[i].Quantity, quantity)
			message = fmt.Sprintf("added %q to the cart (quantity now %d)", p.Name, items[i].Quantity)
			return items, true
		}
		message = fmt.Sprintf("added %q to the cart", p.Name)
		return append(items, newItem(p, quantity)), true
	})
	s.success(ctx, message)
	return true
}

// RemoveItem drops the product. Unknown ids are ignored silently.
func (s *Store) RemoveItem(ctx context.Context, productID string) {
	ctx = s.opContext(ctx, "remove")
	ctx = s.logg.WithProductID(ctx, productID)

	var removed CartItem
	changed := s.mutate(ctx, "remove", func(items []CartItem) ([]CartItem, bool) {
		i := indexOf(items, productID)
		if i < 0 {
			return items, false
		}
		removed = items[i]
		return append(items[:i], items[i+1:]...), true
	})
	if changed {
		s.success(ctx, fmt.Sprintf("removed %q from the cart", removed.Name))
	}
}

// UpdateQuantity overwrites the quantity of a product already in the cart.
// A quantity of zero or less removes it.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, productID)
		return
	}
	ctx = s.opContext(ctx, "update")
	ctx = s.logg.WithProductID(ctx, productID)

	s.mutate(ctx, "update", func(items []CartItem) ([]CartItem, bool) {
		i := indexOf(items, productID)
		if i < 0 {
			return items, false
		}
		items[i].Quantity = quantity
		return items, true
	})
}

// ClearCart empties the cart. Calling it on an empty cart still persists and
// notifies.
func (s *Store) ClearCart(ctx context.Context) {
	ctx = s.opContext(ctx, "clear")
	s.mutate(ctx, "clear", func([]CartItem) ([]CartItem, bool) {
		return nil, true
	})
	s.success(ctx, "cart cleared")
}

// LoadCart replaces the in-memory cart with the stored snapshot. Any failure
// leaves an empty cart and is only logged.
func (s *Store) LoadCart(ctx context.Context) {
	items, err := s.readSnapshot(ctx)
	if err != nil {
		s.logg.Error(ctx, "loading cart failed, starting empty", err)
		items = nil
	}

	s.mu.Lock()
	s.items = items
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.metrics.SetCartSize(len(snapshot.Items), snapshot.TotalQuantity)
	s.listeners.Notify(snapshot)
}

// SaveCart writes the full cart to storage. Failures are logged only.
func (s *Store) SaveCart(ctx context.Context) {
	s.mu.Lock()
	items := cloneItems(s.items)
	s.mu.Unlock()
	s.persist(ctx, items)
}

func (s *Store) readSnapshot(ctx context.Context) ([]CartItem, error) {
	raw, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("reading cart snapshot: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var items []CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decoding cart snapshot: %w", err)
	}
	return sanitizeItems(items), nil
}

// sanitizeItems drops lines without a positive quantity and folds repeated
// ids into their first line.
func sanitizeItems(items []CartItem) []CartItem {
	var out []CartItem
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if i := indexOf(out, item.ID); i >= 0 {
			out[i].Quantity = addQuantity(out[i].Quantity, item.Quantity)
			continue
		}
		out = append(out, item)
	}
	return out
}

// addQuantity adds two positive quantities, saturating at math.MaxInt.
func addQuantity(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// mutate is the only write path. fn receives a private copy of the items and
// reports whether it changed anything; changes are persisted and then
// broadcast.
func (s *Store) mutate(ctx context.Context, op string, fn func([]CartItem) ([]CartItem, bool)) bool {
	s.mu.Lock()
	next, changed := fn(cloneItems(s.items))
	if !changed {
		s.mu.Unlock()
		s.metrics.IncOperation(storeName, op, metrics.OutcomeNoop)
		return false
	}
	s.items = next
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot.Items)
	s.metrics.IncOperation(storeName, op, metrics.OutcomeOK)
	s.metrics.SetCartSize(len(snapshot.Items), snapshot.TotalQuantity)
	s.listeners.Notify(snapshot)
	return true
}

func (s *Store) persist(ctx context.Context, items []CartItem) {
	if items == nil {
		items = []CartItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		s.logg.Error(ctx, "encoding cart failed", err)
		return
	}
	if err := s.storage.Set(ctx, StorageKey, string(payload)); err != nil {
		s.logg.Error(ctx, "saving cart failed", err)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:         cloneItems(s.items),
		TotalQuantity: totalQuantity(s.items),
		TotalPrice:    totalPrice(s.items),
	}
}

func (s *Store) success(ctx context.Context, message string) {
	s.notifier.Notify(ctx, notify.KindSuccess, message, notify.DisplayOptions{
		Duration: s.display.SuccessDuration,
		Offset:   s.display.Offset,
	})
}

func (s *Store) warn(ctx context.Context, message string) {
	s.notifier.Notify(ctx, notify.KindWarning, message, notify.DisplayOptions{
		Duration: s.display.WarningDuration,
		Offset:   s.display.Offset,
	})
}

func (s *Store) opContext(ctx context.Context, op string) context.Context {
	ctx = s.logg.WithOperationID(ctx, uuid.NewString())
	return s.logg.WithFields(ctx, map[string]any{"store": storeName, "operation": op})
}

func cloneItems(items []CartItem) []CartItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
