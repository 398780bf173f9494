package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-be/internal/db"
	"marketplace-be/internal/inventory"
	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository is the store contract of the cart engine. Inside RunInTx the
// repository handed to fn, and its Variants reader, share one transaction
// and row-lock what they read.
type Repository interface {
	RunInTx(ctx context.Context, fn func(tx Repository) error) error
	Variants() inventory.Reader

	FindCartByUser(ctx context.Context, userID string, withItems bool) (*Cart, error)
	CreateCart(ctx context.Context, params CreateCartParams) (*Cart, error)
	UpsertCartItem(ctx context.Context, cartID, variantID string, quantity int, unitPrice decimal.Decimal) error
	FindCartItem(ctx context.Context, itemID string) (*OwnedCartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteCartItem(ctx context.Context, itemID string) error
	CountCartItems(ctx context.Context, cartID string) (int, error)
	DeleteCart(ctx context.Context, cartID string) error
}

type repository struct {
	conn      *sql.DB
	db        db.DBTX
	inventory inventory.Reader
	inTx      bool
}

func NewRepository(conn *sql.DB) Repository {
	return &repository{
		conn:      conn,
		db:        conn,
		inventory: inventory.NewReader(conn),
	}
}

func (r *repository) RunInTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	return db.WithTx(ctx, r.conn, func(tx *sql.Tx) error {
		return fn(&repository{
			conn:      r.conn,
			db:        tx,
			inventory: inventory.NewTxReader(tx),
			inTx:      true,
		})
	})
}

func (r *repository) Variants() inventory.Reader {
	return r.inventory
}

func (r *repository) lockClause(of string) string {
	if !r.inTx {
		return ""
	}
	return "\n\tFOR UPDATE OF " + of
}

func (r *repository) FindCartByUser(ctx context.Context, userID string, withItems bool) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FindCartByUser"),
		zap.String("user_id", userID),
	)

	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}

	query := `
	SELECT
		id,
		user_id,
		vendor_id,
		currency,
		created_at,
		updated_at
	FROM carts
	WHERE user_id = $1` + r.lockClause("carts")

	var c Cart
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.VendorID,
		&c.Currency,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("find cart failed", zap.Error(err))
		return nil, fmt.Errorf("find cart: %w", err)
	}

	if !withItems {
		return &c, nil
	}

	items, err := r.listItems(ctx, c.ID)
	if err != nil {
		log.Error("list cart items failed", zap.Error(err), zap.String("cart_id", c.ID))
		return nil, err
	}
	c.Items = items

	return &c, nil
}

func (r *repository) listItems(ctx context.Context, cartID string) ([]*CartItem, error) {
	query := `
	SELECT
		ci.id,
		ci.cart_id,
		ci.variant_id,
		ci.quantity,
		ci.unit_price,
		ci.created_at,
		ci.updated_at,

		v.sku,
		v.name,
		v.price,
		p.id,
		p.title
	FROM cart_items ci
	JOIN product_variants v ON v.id = ci.variant_id
	JOIN products p ON p.id = v.product_id
	WHERE ci.cart_id = $1
	ORDER BY ci.created_at ASC, ci.id ASC`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := make([]*CartItem, 0)
	for rows.Next() {
		item := &CartItem{Variant: &VariantDetail{}}
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.VariantID,
			&item.Quantity,
			&item.UnitPrice,
			&item.CreatedAt,
			&item.UpdatedAt,

			&item.Variant.SKU,
			&item.Variant.Name,
			&item.Variant.Price,
			&item.Variant.ProductID,
			&item.Variant.ProductTitle,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return items, nil
}

// CreateCart inserts the cart together with its first line.
func (r *repository) CreateCart(ctx context.Context, params CreateCartParams) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateCart"),
		zap.String("user_id", params.UserID),
		zap.String("vendor_id", params.VendorID),
	)

	timer := metrics.StartTimer()
	log.Debug("start create cart")

	query := `
	INSERT INTO carts (
		user_id,
		vendor_id,
		currency
	)
	VALUES ($1, $2, $3)
	RETURNING
		id,
		created_at,
		updated_at
	`

	c := Cart{
		UserID:   params.UserID,
		VendorID: params.VendorID,
		Currency: params.Currency,
	}

	err := r.db.QueryRowContext(ctx, query, params.UserID, params.VendorID, params.Currency).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
			log.Warn("cart already exists for user", zap.Error(err))
			return nil, ErrCartAlreadyExists
		}
		log.Error("failed to create cart", zap.Error(err))
		return nil, fmt.Errorf("create cart: %w", err)
	}

	if err := r.UpsertCartItem(ctx, c.ID, params.VariantID, params.Quantity, params.UnitPrice); err != nil {
		return nil, err
	}

	log.Info("success create cart",
		zap.String("cart_id", c.ID),
		zap.Duration("duration", timer.Duration()),
	)

	return &c, nil
}

// UpsertCartItem writes the line for (cartID, variantID) with an absolute
// quantity and a fresh unit price snapshot.
func (r *repository) UpsertCartItem(
	ctx context.Context,
	cartID, variantID string,
	quantity int,
	unitPrice decimal.Decimal,
) error {
	query := `
	INSERT INTO cart_items (
		cart_id,
		variant_id,
		quantity,
		unit_price
	)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (cart_id, variant_id)
	DO UPDATE SET
		quantity = EXCLUDED.quantity,
		unit_price = EXCLUDED.unit_price,
		updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, cartID, variantID, quantity, unitPrice); err != nil {
		logger.FromCtx(ctx).Error("upsert cart item failed",
			zap.String("layer", "repository"),
			zap.String("cart_id", cartID),
			zap.String("variant_id", variantID),
			zap.Error(err),
		)
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// FindCartItem returns the line and its owner, or nil when it does not
// exist. Inside a transaction the line and its cart are locked.
func (r *repository) FindCartItem(ctx context.Context, itemID string) (*OwnedCartItem, error) {
	if _, err := uuid.Parse(itemID); err != nil {
		return nil, nil
	}

	query := `
	SELECT
		ci.id,
		ci.cart_id,
		ci.variant_id,
		ci.quantity,
		ci.unit_price,
		ci.created_at,
		ci.updated_at,
		c.user_id
	FROM cart_items ci
	JOIN carts c ON c.id = ci.cart_id
	WHERE ci.id = $1` + r.lockClause("ci, c")

	var item OwnedCartItem
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID,
		&item.CartID,
		&item.VariantID,
		&item.Quantity,
		&item.UnitPrice,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.UserID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("find cart item failed",
			zap.String("layer", "repository"),
			zap.String("item_id", itemID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("find cart item: %w", err)
	}

	return &item, nil
}

func (r *repository) UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $1, updated_at = NOW()
		WHERE id = $2
	`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *repository) DeleteCartItem(ctx context.Context, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *repository) CountCartItems(ctx context.Context, cartID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`, cartID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}
	return n, nil
}

func (r *repository) DeleteCart(ctx context.Context, cartID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
