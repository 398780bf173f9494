package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/db"
	"marketplace-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrVariantNotFound = apperror.NotFound("product variant not found")

type Reader interface {
	FindVariant(ctx context.Context, variantID string) (*Snapshot, error)
}

type reader struct {
	db        db.DBTX
	forUpdate bool
}

// NewReader returns a Reader for plain reads.
func NewReader(q db.DBTX) Reader {
	return &reader{db: q}
}

// NewTxReader returns a Reader that row-locks the variant it reads, so a
// decision based on the snapshot holds until tx ends.
func NewTxReader(tx db.DBTX) Reader {
	return &reader{db: tx, forUpdate: true}
}

const findVariantQuery = `
	SELECT
		v.id,
		v.sku,
		v.name,
		v.stock_qty,
		v.reserved_qty,
		v.price,
		p.id,
		p.title,
		p.status,
		vd.id,
		vd.status,
		vd.currency
	FROM product_variants v
	JOIN products p ON p.id = v.product_id
	JOIN vendors vd ON vd.id = p.vendor_id
	WHERE v.id = $1`

func (r *reader) FindVariant(ctx context.Context, variantID string) (*Snapshot, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FindVariant"),
		zap.String("variant_id", variantID),
		zap.Bool("for_update", r.forUpdate),
	)

	if _, err := uuid.Parse(variantID); err != nil {
		return nil, ErrVariantNotFound
	}

	query := findVariantQuery
	if r.forUpdate {
		query += "\n\tFOR UPDATE OF v"
	}

	var s Snapshot
	err := r.db.QueryRowContext(ctx, query, variantID).Scan(
		&s.VariantID,
		&s.SKU,
		&s.VariantName,
		&s.StockQty,
		&s.ReservedQty,
		&s.Price,
		&s.ProductID,
		&s.ProductTitle,
		&s.ProductStatus,
		&s.VendorID,
		&s.VendorStatus,
		&s.VendorCurrency,
	)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("variant not found")
		return nil, ErrVariantNotFound
	}
	if err != nil {
		log.Error("find variant failed", zap.Error(err))
		return nil, fmt.Errorf("find variant: %w", err)
	}

	log.Debug("variant snapshot loaded",
		zap.Int("stock_qty", s.StockQty),
		zap.Int("reserved_qty", s.ReservedQty),
	)
	return &s, nil
}
