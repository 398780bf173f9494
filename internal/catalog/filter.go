package catalog

import "marketplace-be/internal/cursor"

// Field names a product attribute a predicate may compare against.
type Field int

const (
	FieldStatus Field = iota + 1
	FieldCategory
	FieldTag
)

func (f Field) String() string {
	switch f {
	case FieldStatus:
		return "status"
	case FieldCategory:
		return "category"
	case FieldTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Predicate is one condition of a product query. The concrete kinds are
// TextMatch, EqualsField, InSet and CursorAfter.
type Predicate interface {
	predicate()
}

// TextMatch is a case-insensitive substring match on title or description.
type TextMatch struct {
	Term string
}

type EqualsField struct {
	Field Field
	Value string
}

// InSet matches when the field holds at least one of Values.
type InSet struct {
	Field  Field
	Values []string
}

// CursorAfter keeps rows strictly after Key in listing order.
type CursorAfter struct {
	Key cursor.Key
}

func (TextMatch) predicate()   {}
func (EqualsField) predicate() {}
func (InSet) predicate()       {}
func (CursorAfter) predicate() {}

// Filter is an AND of predicates.
type Filter struct {
	preds []Predicate
}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) Where(p Predicate) *Filter {
	f.preds = append(f.preds, p)
	return f
}

func (f *Filter) Predicates() []Predicate {
	if f == nil {
		return nil
	}
	out := make([]Predicate, len(f.preds))
	copy(out, f.preds)
	return out
}

// ActiveOnly is the base filter of every storefront query.
func ActiveOnly() *Filter {
	return NewFilter().Where(EqualsField{Field: FieldStatus, Value: StatusActive})
}

// BuildFilter turns list parameters into a filter. Blank parameters add
// nothing. after is nil on the first page.
func BuildFilter(params ListParams, after *cursor.Key) *Filter {
	f := ActiveOnly()

	if params.Search != "" {
		f.Where(TextMatch{Term: params.Search})
	}
	if params.CategoryID != "" {
		f.Where(EqualsField{Field: FieldCategory, Value: params.CategoryID})
	}
	if len(params.TagIDs) > 0 {
		f.Where(InSet{Field: FieldTag, Values: params.TagIDs})
	}
	if after != nil {
		f.Where(CursorAfter{Key: *after})
	}

	return f
}
