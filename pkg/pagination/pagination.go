package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultSize is the standard page size when a size is not provided.
	DefaultSize = 20
	// MaxSize caps how many rows any list query can request.
	MaxSize = 100
)

// Params holds page-based pagination inputs from controllers or services.
// Page is 1-indexed.
type Params struct {
	Page int
	Size int
}

// Normalize enforces the default page, default size and maximum size.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	p.Size = NormalizeSize(p.Size)
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Size
}

// Limit returns the normalized page size.
func (p Params) Limit() int {
	return NormalizeSize(p.Size)
}

// NormalizeSize enforces the configured default and maximum sizes.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// Parse reads raw page/size query values. Empty values fall back to defaults.
func Parse(page, size string) (Params, error) {
	var p Params
	if v := strings.TrimSpace(page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("invalid page %q", page)
		}
		p.Page = n
	}
	if v := strings.TrimSpace(size); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("invalid size %q", size)
		}
		p.Size = n
	}
	return p.Normalize(), nil
}

// Page is a slice of results plus the totals needed to render page controls.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage assembles a Page from a result slice and the total row count.
func NewPage[T any](items []T, params Params, total int64) Page[T] {
	n := params.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(n.Size) - 1) / int64(n.Size))
	return Page[T]{
		Items:      items,
		Page:       n.Page,
		Size:       n.Size,
		Total:      total,
		TotalPages: pages,
	}
}

// Map converts the items of a page while keeping its totals.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, fn(item))
	}
	return Page[U]{Items: out, Page: p.Page, Size: p.Size, Total: p.Total, TotalPages: p.TotalPages}
}
