package cart

import (
	"context"
	"fmt"
	"sync"

	"marketplace-be/internal/inventory"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory Repository. RunInTx serializes transactions on
// one mutex and restores a copy of the state when fn fails, which mirrors
// the row locks and rollback of the SQL store closely enough for the
// invariants exercised here.
type memStore struct {
	mu       sync.Mutex
	variants map[string]*inventory.Snapshot
	carts    map[string]*Cart // by cart id
	seq      int

	failUpsert error
}

type memTx struct {
	s *memStore
}

func newMemStore(snaps ...*inventory.Snapshot) *memStore {
	s := &memStore{
		variants: map[string]*inventory.Snapshot{},
		carts:    map[string]*Cart{},
	}
	for _, snap := range snaps {
		s.variants[snap.VariantID] = snap
	}
	return s
}

func (s *memStore) RunInTx(ctx context.Context, fn func(tx Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.cloneCarts()
	savedSeq := s.seq
	if err := fn(&memTx{s: s}); err != nil {
		s.carts = saved
		s.seq = savedSeq
		return err
	}
	return nil
}

func (s *memStore) Variants() inventory.Reader { return &memTx{s: s} }

func (s *memStore) FindCartByUser(ctx context.Context, userID string, withItems bool) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{s: s}).FindCartByUser(ctx, userID, withItems)
}

func (s *memStore) CreateCart(context.Context, CreateCartParams) (*Cart, error) {
	return nil, fmt.Errorf("memStore: CreateCart outside transaction")
}

func (s *memStore) UpsertCartItem(context.Context, string, string, int, decimal.Decimal) error {
	return fmt.Errorf("memStore: UpsertCartItem outside transaction")
}

func (s *memStore) FindCartItem(context.Context, string) (*OwnedCartItem, error) {
	return nil, fmt.Errorf("memStore: FindCartItem outside transaction")
}

func (s *memStore) UpdateCartItemQuantity(context.Context, string, int) error {
	return fmt.Errorf("memStore: UpdateCartItemQuantity outside transaction")
}

func (s *memStore) DeleteCartItem(context.Context, string) error {
	return fmt.Errorf("memStore: DeleteCartItem outside transaction")
}

func (s *memStore) CountCartItems(context.Context, string) (int, error) {
	return 0, fmt.Errorf("memStore: CountCartItems outside transaction")
}

func (s *memStore) DeleteCart(context.Context, string) error {
	return fmt.Errorf("memStore: DeleteCart outside transaction")
}

func (s *memStore) cloneCarts() map[string]*Cart {
	out := make(map[string]*Cart, len(s.carts))
	for id, c := range s.carts {
		cp := *c
		cp.Items = make([]*CartItem, 0, len(c.Items))
		for _, item := range c.Items {
			it := *item
			cp.Items = append(cp.Items, &it)
		}
		out[id] = &cp
	}
	return out
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// setStock changes the variant counters the way an order or restock would.
func (s *memStore) setStock(variantID string, stock, reserved int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[variantID].StockQty = stock
	s.variants[variantID].ReservedQty = reserved
}

func (s *memStore) cartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (t *memTx) RunInTx(ctx context.Context, fn func(tx Repository) error) error {
	return fn(t)
}

func (t *memTx) Variants() inventory.Reader { return t }

func (t *memTx) FindVariant(ctx context.Context, variantID string) (*inventory.Snapshot, error) {
	snap, ok := t.s.variants[variantID]
	if !ok {
		return nil, inventory.ErrVariantNotFound
	}
	cp := *snap
	return &cp, nil
}

func (t *memTx) FindCartByUser(ctx context.Context, userID string, withItems bool) (*Cart, error) {
	for _, c := range t.s.carts {
		if c.UserID != userID {
			continue
		}
		cp := *c
		cp.Items = nil
		if withItems {
			for _, item := range c.Items {
				it := *item
				cp.Items = append(cp.Items, &it)
			}
		}
		return &cp, nil
	}
	return nil, nil
}

func (t *memTx) CreateCart(ctx context.Context, params CreateCartParams) (*Cart, error) {
	for _, c := range t.s.carts {
		if c.UserID == params.UserID {
			return nil, ErrCartAlreadyExists
		}
	}
	c := &Cart{
		ID:       t.s.nextID("cart"),
		UserID:   params.UserID,
		VendorID: params.VendorID,
		Currency: params.Currency,
	}
	t.s.carts[c.ID] = c
	if err := t.UpsertCartItem(ctx, c.ID, params.VariantID, params.Quantity, params.UnitPrice); err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (t *memTx) UpsertCartItem(ctx context.Context, cartID, variantID string, quantity int, unitPrice decimal.Decimal) error {
	if t.s.failUpsert != nil {
		return t.s.failUpsert
	}
	c := t.s.carts[cartID]
	if line := c.ItemFor(variantID); line != nil {
		line.Quantity = quantity
		line.UnitPrice = unitPrice
		return nil
	}
	c.Items = append(c.Items, &CartItem{
		ID:        t.s.nextID("item"),
		CartID:    cartID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	return nil
}

func (t *memTx) findLine(itemID string) (*Cart, int) {
	for _, c := range t.s.carts {
		for i, item := range c.Items {
			if item.ID == itemID {
				return c, i
			}
		}
	}
	return nil, -1
}

func (t *memTx) FindCartItem(ctx context.Context, itemID string) (*OwnedCartItem, error) {
	c, i := t.findLine(itemID)
	if c == nil {
		return nil, nil
	}
	return &OwnedCartItem{CartItem: *c.Items[i], UserID: c.UserID}, nil
}

func (t *memTx) UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) error {
	c, i := t.findLine(itemID)
	if c == nil {
		return ErrCartItemNotFound
	}
	c.Items[i].Quantity = quantity
	return nil
}

func (t *memTx) DeleteCartItem(ctx context.Context, itemID string) error {
	c, i := t.findLine(itemID)
	if c == nil {
		return ErrCartItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return nil
}

func (t *memTx) CountCartItems(ctx context.Context, cartID string) (int, error) {
	c, ok := t.s.carts[cartID]
	if !ok {
		return 0, nil
	}
	return len(c.Items), nil
}

func (t *memTx) DeleteCart(ctx context.Context, cartID string) error {
	delete(t.s.carts, cartID)
	return nil
}
