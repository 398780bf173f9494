package catalog

import (
	"context"
	"strings"
	"time"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/cursor"
	"marketplace-be/internal/locale"
	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"

	"go.uber.org/zap"
)

var ErrProductNotFound = apperror.NotFound("product not found")

type Service interface {
	ListProducts(ctx context.Context, params ListParams) (*ProductPage, error)
	GetProduct(ctx context.Context, id, loc string) (*ProductDetailView, error)
	ListCategories(ctx context.Context, loc string) ([]NamedView, error)
	ListTags(ctx context.Context, loc string) ([]NamedView, error)
}

type service struct {
	repo    Repository
	metrics *metrics.Registry
}

func NewService(repo Repository, m *metrics.Registry) Service {
	return &service{repo: repo, metrics: m}
}

// ListProducts returns one page of active products. The limit is trusted;
// zero or less means DefaultLimit.
func (s *service) ListProducts(ctx context.Context, params ListParams) (*ProductPage, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListProducts"),
		zap.Int("limit", limit),
		zap.Bool("has_cursor", params.Cursor != ""),
	)
	timer := metrics.StartTimer()

	var after *cursor.Key
	if params.Cursor != "" {
		key, err := cursor.Decode(params.Cursor)
		if err != nil {
			log.Info("rejecting malformed cursor")
			return nil, err
		}
		after = &key
	}

	params.Search = strings.TrimSpace(params.Search)
	filter := BuildFilter(params, after)

	rows, err := s.repo.QueryProducts(ctx, filter, limit+1)
	if err != nil {
		log.Error("query products failed", zap.Error(err))
		return nil, err
	}

	page := &ProductPage{Items: make([]ProductView, 0, limit)}
	if len(rows) > limit {
		rows = rows[:limit]
		next := cursor.Encode(rows[len(rows)-1].Key())
		page.NextCursor = &next
	}
	for _, row := range rows {
		page.Items = append(page.Items, toProductView(row, params.Locale))
	}

	s.metrics.Inc("catalog_pages_total")
	log.Info("list products success",
		zap.Int("items", len(page.Items)),
		zap.Bool("has_next", page.NextCursor != nil),
		zap.Duration("duration", timer.Duration()),
	)

	return page, nil
}

func (s *service) GetProduct(ctx context.Context, id, loc string) (*ProductDetailView, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "GetProduct"),
		zap.String("product_id", id),
	)

	row, err := s.repo.FindProduct(ctx, id, ActiveOnly())
	if err != nil {
		log.Error("find product failed", zap.Error(err))
		return nil, err
	}
	if row == nil {
		return nil, ErrProductNotFound
	}

	variants, err := s.repo.ListVariants(ctx, row.ID)
	if err != nil {
		log.Error("list variants failed", zap.Error(err))
		return nil, err
	}

	view := &ProductDetailView{
		ProductView: toProductView(row, loc),
		Variants:    make([]VariantView, 0, len(variants)),
	}
	for _, v := range variants {
		available := v.StockQty - v.ReservedQty
		if available < 0 {
			available = 0
		}
		view.Variants = append(view.Variants, VariantView{
			ID:        v.ID,
			SKU:       v.SKU,
			Name:      v.Name,
			Price:     v.Price.StringFixed(2),
			Available: available,
		})
	}

	return view, nil
}

func (s *service) ListCategories(ctx context.Context, loc string) ([]NamedView, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return toNamedViews(rows, loc), nil
}

func (s *service) ListTags(ctx context.Context, loc string) ([]NamedView, error) {
	rows, err := s.repo.ListActiveTags(ctx)
	if err != nil {
		return nil, err
	}
	return toNamedViews(rows, loc), nil
}

func toNamedViews(rows []*NamedRow, loc string) []NamedView {
	out := make([]NamedView, 0, len(rows))
	for _, r := range rows {
		out = append(out, NamedView{ID: r.ID, Name: locale.PickName(loc, r.Names)})
	}
	return out
}

func toProductView(p *ProductRow, loc string) ProductView {
	v := ProductView{
		ID:          p.ID,
		VendorID:    p.VendorID,
		VendorName:  p.VendorName,
		Title:       p.Title,
		Description: p.Description,
		Tags:        make([]NamedView, 0, len(p.Tags)),
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.Category != nil {
		v.Category = &NamedView{ID: p.Category.ID, Name: locale.PickName(loc, p.Category.Names)}
	}
	for _, t := range p.Tags {
		v.Tags = append(v.Tags, NamedView{ID: t.ID, Name: locale.PickName(loc, t.Names)})
	}
	if p.MinPrice.Valid {
		price := p.MinPrice.Decimal.StringFixed(2)
		v.MinPrice = &price
	}
	return v
}
