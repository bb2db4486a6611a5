package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/surtidora/api/internal/apperr"
	"github.com/surtidora/api/internal/catalog"
)

const snapshotVersion = 1

// Storage is durable key-value storage for cart snapshots.
// Load returns an error wrapping apperr.ErrNotFound when the key is absent.
// Deleting an absent key is not an error.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// snapshot is the persisted form of a cart. The wholesale flag is not stored;
// it follows the owner's profile at open time.
type snapshot struct {
	Version      int    `json:"version"`
	Lines        []Line `json:"lines"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// Store binds a cart to a storage key. Every mutation is written through
// before it returns; if the write fails the cart is rolled back to its state
// before the call and an apperr.ErrPersistence error is returned.
//
// A Store is not safe for concurrent use. Concurrent writers to the same key
// resolve last-write-wins in the storage layer.
type Store struct {
	storage Storage
	key     string
	policy  Policy
	cart    Cart
}

// Key returns the storage key for an owner's cart.
func Key(owner string) string {
	return "cart:" + owner
}

// Open rehydrates the cart stored under key. A missing key or an undecodable
// snapshot yields an empty cart; the latter is logged. Any other storage
// error is returned.
func Open(ctx context.Context, storage Storage, key string, policy Policy, wholesale bool) (*Store, error) {
	s := &Store{storage: storage, key: key, policy: policy}

	data, err := storage.Load(ctx, key)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		// fresh cart
	case err != nil:
		return nil, apperr.Persistence("load cart", err)
	default:
		c, decodeErr := decode(data)
		if decodeErr != nil {
			log.Printf("WARNING: discarding unreadable cart %s: %v", key, decodeErr)
		} else {
			s.cart = c
		}
	}

	s.cart.Wholesale = wholesale
	return s, nil
}

func decode(data []byte) (Cart, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Cart{}, err
	}
	if snap.Version != snapshotVersion {
		return Cart{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	var c Cart
	for _, l := range snap.Lines {
		if l.Quantity <= 0 || l.Product.ID == uuid.Nil {
			continue
		}
		c.Lines = append(c.Lines, l)
	}
	c.DiscountCode = snap.DiscountCode
	return c, nil
}

func encode(c Cart) ([]byte, error) {
	lines := c.Lines
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(snapshot{
		Version:      snapshotVersion,
		Lines:        lines,
		DiscountCode: c.DiscountCode,
	})
}

// mutate applies fn to the cart and writes the result through. fn reports
// whether it changed anything; unchanged carts are not written. A cart left
// with no lines and no code is deleted from storage instead of saved.
func (s *Store) mutate(ctx context.Context, fn func(c *Cart) (bool, error)) error {
	prev := s.cart.clone()

	changed, err := fn(&s.cart)
	if err != nil {
		s.cart = prev
		return err
	}
	if !changed {
		return nil
	}

	if len(s.cart.Lines) == 0 && s.cart.DiscountCode == "" {
		if err := s.storage.Delete(ctx, s.key); err != nil {
			s.cart = prev
			return apperr.Persistence("delete cart", err)
		}
		return nil
	}

	data, err := encode(s.cart)
	if err != nil {
		s.cart = prev
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		s.cart = prev
		return apperr.Persistence("save cart", err)
	}
	return nil
}

// AddItem adds quantity units of p.
func (s *Store) AddItem(ctx context.Context, p catalog.Product, quantity int) error {
	return s.mutate(ctx, func(c *Cart) (bool, error) {
		return true, c.AddItem(p, quantity)
	})
}

// AddItems adds every line in one write. If any line is rejected nothing is
// added.
func (s *Store) AddItems(ctx context.Context, lines []Line) error {
	return s.mutate(ctx, func(c *Cart) (bool, error) {
		for _, l := range lines {
			if err := c.AddItem(l.Product, l.Quantity); err != nil {
				return false, fmt.Errorf("%s: %w", l.Product.Name, err)
			}
		}
		return len(lines) > 0, nil
	})
}

// RemoveItem drops the product's line; absent products are a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID uuid.UUID) error {
	return s.mutate(ctx, func(c *Cart) (bool, error) {
		return c.RemoveItem(productID), nil
	})
}

// UpdateQuantity replaces a line's quantity; <= 0 removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	return s.mutate(ctx, func(c *Cart) (bool, error) {
		return c.UpdateQuantity(productID, quantity)
	})
}

// Clear empties the cart and resets the discount code.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(c *Cart) (bool, error) {
		c.Clear()
		return true, nil
	})
}

// ApplyCode sets the pending discount code.
func (s *Store) ApplyCode(ctx context.Context, code string) error {
	return s.mutate(ctx, func(c *Cart) (bool, error) {
		return true, c.ApplyCode(code, s.policy)
	})
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.cart.Lines))
	copy(out, s.cart.Lines)
	return out
}

// Wholesale reports whether the cart is priced on the wholesale list.
func (s *Store) Wholesale() bool {
	return s.cart.Wholesale
}

// Totals derives the current totals from the in-memory cart.
func (s *Store) Totals() Totals {
	return s.cart.Totals(s.policy)
}
