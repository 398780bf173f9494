package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/catalog"
	"marketplace-be/internal/locale"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var (
	errLimitRange      = apperror.InvalidRequest("limit must be between 1 and 50")
	errInvalidCategory = apperror.InvalidRequest("categoryId must be a UUID")
	errInvalidTag      = apperror.InvalidRequest("tagIds must be comma separated UUIDs")
)

type catalogHandler struct {
	svc           catalog.Service
	defaultLocale string
}

func (h *catalogHandler) locale(r *http.Request) string {
	return locale.FromRequest(r, h.defaultLocale)
}

// parseListParams validates the query string of GET /products.
func (h *catalogHandler) parseListParams(r *http.Request) (catalog.ListParams, error) {
	q := r.URL.Query()
	params := catalog.ListParams{
		Search: strings.TrimSpace(q.Get("q")),
		Cursor: q.Get("cursor"),
		Limit:  catalog.DefaultLimit,
		Locale: h.locale(r),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > catalog.MaxLimit {
			return params, errLimitRange
		}
		params.Limit = limit
	}

	if raw := q.Get("categoryId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return params, errInvalidCategory
		}
		params.CategoryID = id.String()
	}

	if raw := q.Get("tagIds"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return params, errInvalidTag
			}
			params.TagIDs = append(params.TagIDs, id.String())
		}
	}

	return params, nil
}

func (h *catalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseListParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.svc.ListProducts(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *catalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.GetProduct(r.Context(), chi.URLParam(r, "productID"), h.locale(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *catalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context(), h.locale(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": categories})
}

func (h *catalogHandler) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(), h.locale(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": tags})
}
