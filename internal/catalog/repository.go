package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"marketplace-be/internal/db"
	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	QueryProducts(ctx context.Context, filter *Filter, limit int) ([]*ProductRow, error)
	FindProduct(ctx context.Context, id string, filter *Filter) (*ProductRow, error)
	ListVariants(ctx context.Context, productID string) ([]*VariantRow, error)
	ListCategories(ctx context.Context) ([]*NamedRow, error)
	ListActiveTags(ctx context.Context) ([]*NamedRow, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

// whereBuilder collects SQL conditions and their positional arguments.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (b *whereBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// compile appends one condition per predicate. Only fixed column names
// reach the SQL text; every value is passed as an argument.
func (b *whereBuilder) compile(f *Filter) error {
	for _, p := range f.Predicates() {
		switch p := p.(type) {
		case TextMatch:
			ph := b.arg("%" + likeEscaper.Replace(p.Term) + "%")
			b.add(fmt.Sprintf("(p.title ILIKE %s OR p.description ILIKE %s)", ph, ph))

		case EqualsField:
			switch p.Field {
			case FieldStatus:
				b.add("p.status = " + b.arg(p.Value))
			case FieldCategory:
				b.add("p.category_id = " + b.arg(p.Value))
			case FieldTag:
				b.add("EXISTS (SELECT 1 FROM product_tags pt WHERE pt.product_id = p.id AND pt.tag_id = " + b.arg(p.Value) + ")")
			default:
				return fmt.Errorf("catalog: unsupported field %s", p.Field)
			}

		case InSet:
			switch p.Field {
			case FieldStatus:
				b.add("p.status = ANY(" + b.arg(pq.Array(p.Values)) + ")")
			case FieldCategory:
				b.add("p.category_id = ANY(" + b.arg(pq.Array(p.Values)) + "::uuid[])")
			case FieldTag:
				b.add("EXISTS (SELECT 1 FROM product_tags pt WHERE pt.product_id = p.id AND pt.tag_id = ANY(" + b.arg(pq.Array(p.Values)) + "::uuid[]))")
			default:
				return fmt.Errorf("catalog: unsupported field %s", p.Field)
			}

		case CursorAfter:
			ts := b.arg(p.Key.CreatedAt)
			id := b.arg(p.Key.ID)
			b.add(fmt.Sprintf("(p.created_at < %s OR (p.created_at = %s AND p.id < %s))", ts, ts, id))

		default:
			return fmt.Errorf("catalog: unsupported predicate %T", p)
		}
	}
	return nil
}

const productSelect = `
	SELECT
		p.id,
		p.vendor_id,
		vd.name,
		p.title,
		COALESCE(p.description, ''),
		p.status,
		p.created_at,
		(SELECT MIN(v.price) FROM product_variants v WHERE v.product_id = p.id),
		c.id,
		COALESCE(c.name, ''),
		COALESCE(c.name_en, ''),
		COALESCE(c.name_my, '')
	FROM products p
	JOIN vendors vd ON vd.id = p.vendor_id
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(scan func(dest ...interface{}) error) (*ProductRow, error) {
	var (
		p          ProductRow
		categoryID sql.NullString
		names      NamedRow
	)
	if err := scan(
		&p.ID,
		&p.VendorID,
		&p.VendorName,
		&p.Title,
		&p.Description,
		&p.Status,
		&p.CreatedAt,
		&p.MinPrice,
		&categoryID,
		&names.Names.Name,
		&names.Names.EN,
		&names.Names.MY,
	); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		names.ID = categoryID.String
		p.Category = &names
	}
	return &p, nil
}

// QueryProducts returns at most limit rows matching filter, ordered by
// created_at then id, both descending.
func (r *repository) QueryProducts(ctx context.Context, filter *Filter, limit int) ([]*ProductRow, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "QueryProducts"),
		zap.Int("limit", limit),
	)
	timer := metrics.StartTimer()

	var b whereBuilder
	if err := b.compile(filter); err != nil {
		return nil, err
	}

	query := productSelect + b.clause() +
		" ORDER BY p.created_at DESC, p.id DESC" +
		" LIMIT " + b.arg(limit)

	log.Debug("executing query", zap.String("query", query), zap.Int("args", len(b.args)))

	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		log.Error("query products failed", zap.Error(err))
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]*ProductRow, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	if err := r.attachTags(ctx, products); err != nil {
		log.Error("load tags failed", zap.Error(err))
		return nil, err
	}

	log.Info("query products success",
		zap.Int("rows", len(products)),
		zap.Duration("duration", timer.Duration()),
	)
	return products, nil
}

// FindProduct returns the product matching both id and filter, or nil.
func (r *repository) FindProduct(ctx context.Context, id string, filter *Filter) (*ProductRow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	var b whereBuilder
	b.add("p.id = " + b.arg(id))
	if err := b.compile(filter); err != nil {
		return nil, err
	}

	p, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+b.clause(), b.args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.FromCtx(ctx).Error("find product failed",
			zap.String("layer", "repository"),
			zap.String("product_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("find product: %w", err)
	}

	if err := r.attachTags(ctx, []*ProductRow{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) attachTags(ctx context.Context, products []*ProductRow) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, 0, len(products))
	byID := make(map[string]*ProductRow, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
		byID[p.ID] = p
		p.Tags = []NamedRow{}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			pt.product_id,
			t.id,
			t.name,
			COALESCE(t.name_en, ''),
			COALESCE(t.name_my, '')
		FROM product_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id = ANY($1::uuid[]) AND t.active = true
		ORDER BY t.name ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load product tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID string
		var t NamedRow
		if err := rows.Scan(&productID, &t.ID, &t.Names.Name, &t.Names.EN, &t.Names.MY); err != nil {
			return fmt.Errorf("scan product tag: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Tags = append(p.Tags, t)
		}
	}
	return rows.Err()
}

func (r *repository) ListVariants(ctx context.Context, productID string) ([]*VariantRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id,
			sku,
			name,
			price,
			stock_qty,
			reserved_qty
		FROM product_variants
		WHERE product_id = $1
		ORDER BY price ASC, id ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	variants := make([]*VariantRow, 0)
	for rows.Next() {
		var v VariantRow
		if err := rows.Scan(&v.ID, &v.SKU, &v.Name, &v.Price, &v.StockQty, &v.ReservedQty); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return variants, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]*NamedRow, error) {
	return r.listNamed(ctx, "ListCategories", `
		SELECT
			id,
			name,
			COALESCE(name_en, ''),
			COALESCE(name_my, '')
		FROM categories
		ORDER BY name ASC
	`)
}

func (r *repository) ListActiveTags(ctx context.Context) ([]*NamedRow, error) {
	return r.listNamed(ctx, "ListActiveTags", `
		SELECT
			id,
			name,
			COALESCE(name_en, ''),
			COALESCE(name_my, '')
		FROM tags
		WHERE active = true
		ORDER BY name ASC
	`)
}

func (r *repository) listNamed(ctx context.Context, method, query string) ([]*NamedRow, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer rows.Close()

	out := make([]*NamedRow, 0)
	for rows.Next() {
		var n NamedRow
		if err := rows.Scan(&n.ID, &n.Names.Name, &n.Names.EN, &n.Names.MY); err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}
