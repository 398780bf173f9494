package cart

import (
	"context"
	"errors"

	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"

	"go.uber.org/zap"
)

// Service keeps carts consistent with live inventory and with the single
// vendor per cart rule.
type Service interface {
	GetCart(ctx context.Context, userID string) (*CartView, error)
	AddItem(ctx context.Context, params AddItemParams) (*CartView, error)
	UpdateItem(ctx context.Context, params UpdateItemParams) (*CartView, error)
	RemoveItem(ctx context.Context, userID, itemID string) error
}

type service struct {
	repo    Repository
	metrics *metrics.Registry
}

func NewService(repo Repository, m *metrics.Registry) Service {
	return &service{repo: repo, metrics: m}
}

// GetCart returns the user's cart, or an empty view when there is none.
func (s *service) GetCart(ctx context.Context, userID string) (*CartView, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}

	c, err := s.repo.FindCartByUser(ctx, userID, true)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load cart",
			zap.String("layer", "service"),
			zap.String("method", "GetCart"),
			zap.Error(err),
		)
		return nil, err
	}

	return MapCartToView(userID, c), nil
}

// AddItem merges qty into the user's line for the variant. Repeating the
// same call accumulates; callers wanting an absolute quantity use
// UpdateItem.
func (s *service) AddItem(ctx context.Context, params AddItemParams) (*CartView, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.String("variant_id", params.VariantID),
		zap.Int("quantity", params.Quantity),
	)
	timer := metrics.StartTimer()

	if params.UserID == "" {
		return nil, ErrUserRequired
	}
	if params.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		// Cart before variant: every cart mutation locks in this order.
		existing, err := tx.FindCartByUser(ctx, params.UserID, true)
		if err != nil {
			return err
		}

		snap, err := tx.Variants().FindVariant(ctx, params.VariantID)
		if err != nil {
			return err
		}
		if !snap.Purchasable() {
			return ErrVariantUnavailable
		}

		if existing != nil && existing.VendorID != snap.VendorID {
			return ErrVendorMismatch
		}

		held := 0
		if line := existing.ItemFor(snap.VariantID); line != nil {
			held = line.Quantity
		}
		// held+params.Quantity may overflow; compare against the headroom.
		if params.Quantity > snap.Available()-held {
			log.Info("insufficient stock",
				zap.Int("held", held),
				zap.Int("available", snap.Available()),
			)
			return ErrInsufficientStock
		}
		desired := held + params.Quantity

		if existing == nil {
			_, err = tx.CreateCart(ctx, CreateCartParams{
				UserID:    params.UserID,
				VendorID:  snap.VendorID,
				Currency:  snap.VendorCurrency,
				VariantID: snap.VariantID,
				Quantity:  desired,
				UnitPrice: snap.Price,
			})
			return err
		}

		return tx.UpsertCartItem(ctx, existing.ID, snap.VariantID, desired, snap.Price)
	})
	if err != nil {
		s.countRejection(err)
		log.Warn("add item failed", zap.Error(err), zap.Duration("duration", timer.Duration()))
		return nil, err
	}

	s.metrics.Inc("cart_add_total")
	log.Info("add item success", zap.Duration("duration", timer.Duration()))

	return s.GetCart(ctx, params.UserID)
}

// UpdateItem sets the line's quantity exactly. The unit price snapshot is
// left as it was.
func (s *service) UpdateItem(ctx context.Context, params UpdateItemParams) (*CartView, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateItem"),
		zap.String("item_id", params.ItemID),
		zap.Int("quantity", params.Quantity),
	)

	if params.UserID == "" {
		return nil, ErrUserRequired
	}
	if params.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		item, err := tx.FindCartItem(ctx, params.ItemID)
		if err != nil {
			return err
		}
		if item == nil || item.UserID != params.UserID {
			return ErrCartItemNotFound
		}

		snap, err := tx.Variants().FindVariant(ctx, item.VariantID)
		if err != nil {
			return err
		}
		if params.Quantity > snap.Available() {
			return ErrInsufficientStock
		}

		return tx.UpdateCartItemQuantity(ctx, item.ID, params.Quantity)
	})
	if err != nil {
		s.countRejection(err)
		log.Warn("update item failed", zap.Error(err))
		return nil, err
	}

	s.metrics.Inc("cart_update_total")
	log.Info("update item success")

	return s.GetCart(ctx, params.UserID)
}

// RemoveItem deletes the line and, when it was the last one, the cart.
func (s *service) RemoveItem(ctx context.Context, userID, itemID string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RemoveItem"),
		zap.String("item_id", itemID),
	)

	if userID == "" {
		return ErrUserRequired
	}

	collapsed := false
	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		collapsed = false

		item, err := tx.FindCartItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil || item.UserID != userID {
			return ErrCartItemNotFound
		}

		if err := tx.DeleteCartItem(ctx, item.ID); err != nil {
			return err
		}

		remaining, err := tx.CountCartItems(ctx, item.CartID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		collapsed = true
		return tx.DeleteCart(ctx, item.CartID)
	})
	if err != nil {
		s.countRejection(err)
		log.Warn("remove item failed", zap.Error(err))
		return err
	}

	s.metrics.Inc("cart_remove_total")
	if collapsed {
		s.metrics.Inc("cart_collapsed_total")
	}
	log.Info("remove item success", zap.Bool("cart_deleted", collapsed))

	return nil
}

func (s *service) countRejection(err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		s.metrics.Inc("cart_rejected_insufficient_stock")
	case errors.Is(err, ErrVendorMismatch):
		s.metrics.Inc("cart_rejected_vendor_mismatch")
	case errors.Is(err, ErrVariantUnavailable):
		s.metrics.Inc("cart_rejected_unavailable")
	}
}
