package pipeline

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// QuickFilter is a toggleable predicate. Prepare sees the full unfiltered
// collection before any other filter runs, so predicates that depend on
// collection-wide facts (such as repetition) are computed over everything.
type QuickFilter[T any] struct {
	Name    string
	Prepare func(all []T) func(T) bool
}

// Predicate builds a quick filter from a plain per-item predicate.
func Predicate[T any](name string, fn func(T) bool) QuickFilter[T] {
	return QuickFilter[T]{
		Name:    name,
		Prepare: func([]T) func(T) bool { return fn },
	}
}

// Repeated keeps items whose key occurs more than once in the full
// collection. Empty keys never count as repeated.
func Repeated[T any](name string, key func(T) string) QuickFilter[T] {
	return QuickFilter[T]{
		Name: name,
		Prepare: func(all []T) func(T) bool {
			freq := make(map[string]int, len(all))
			for _, item := range all {
				if k := key(item); k != "" {
					freq[k]++
				}
			}
			return func(item T) bool {
				k := key(item)
				return k != "" && freq[k] > 1
			}
		},
	}
}

type category[T any] struct {
	name string
	fn   func(T) string
}

type sorter[T any] struct {
	name string
	cmp  func(a, b T) int
}

// Pipeline describes how one page searches, filters and sorts its items.
type Pipeline[T any] struct {
	search     func(T) []string
	categories []category[T]
	quick      []QuickFilter[T]
	sorts      []sorter[T]
}

// New creates a pipeline whose free-text search looks at the fields
// returned by search.
func New[T any](search func(T) []string) *Pipeline[T] {
	return &Pipeline[T]{search: search}
}

// Category registers a dropdown filter.
func (p *Pipeline[T]) Category(name string, fn func(T) string) *Pipeline[T] {
	p.categories = append(p.categories, category[T]{name: name, fn: fn})
	return p
}

// Quick registers a quick filter tag.
func (p *Pipeline[T]) Quick(f QuickFilter[T]) *Pipeline[T] {
	p.quick = append(p.quick, f)
	return p
}

// Sort registers a named ordering.
func (p *Pipeline[T]) Sort(name string, cmp func(a, b T) int) *Pipeline[T] {
	p.sorts = append(p.sorts, sorter[T]{name: name, cmp: cmp})
	return p
}

// CategoryNames lists the registered dropdowns in registration order.
func (p *Pipeline[T]) CategoryNames() []string {
	names := make([]string, len(p.categories))
	for i, c := range p.categories {
		names[i] = c.name
	}
	return names
}

// QuickNames lists the registered quick filters in registration order.
func (p *Pipeline[T]) QuickNames() []string {
	names := make([]string, len(p.quick))
	for i, q := range p.quick {
		names[i] = q.Name
	}
	return names
}

// SortNames lists the registered orderings.
func (p *Pipeline[T]) SortNames() []string {
	names := make([]string, len(p.sorts))
	for i, s := range p.sorts {
		names[i] = s.name
	}
	return names
}

// Check reports the first filter or sort name in s that p does not know.
// Apply ignores unknown names; Check is for validating user input.
func (p *Pipeline[T]) Check(s State) error {
	for name := range s.Categories {
		if !slices.Contains(p.CategoryNames(), name) {
			return fmt.Errorf("unknown filter %q (valid: %s)", name, strings.Join(p.CategoryNames(), ", "))
		}
	}
	for _, name := range s.Quick {
		if !slices.Contains(p.QuickNames(), name) {
			return fmt.Errorf("unknown quick filter %q (valid: %s)", name, strings.Join(p.QuickNames(), ", "))
		}
	}
	if s.SortKey != "" && !slices.Contains(p.SortNames(), s.SortKey) {
		return fmt.Errorf("unknown sort %q (valid: %s)", s.SortKey, strings.Join(p.SortNames(), ", "))
	}
	return nil
}

// Options returns the distinct values of a dropdown across items, sorted,
// preceded by All.
func (p *Pipeline[T]) Options(items []T, name string) []string {
	for _, c := range p.categories {
		if c.name != name {
			continue
		}
		seen := map[string]bool{}
		for _, item := range items {
			if v := c.fn(item); v != "" {
				seen[v] = true
			}
		}
		opts := make([]string, 0, len(seen))
		for v := range seen {
			opts = append(opts, v)
		}
		sort.Strings(opts)
		return append([]string{All}, opts...)
	}
	return []string{All}
}

// Apply filters and sorts all according to s. The input slice is never
// modified; the result is a new slice.
func (p *Pipeline[T]) Apply(all []T, s State) []T {
	// Quick filters are prepared against the unfiltered collection.
	var preds []func(T) bool
	for _, name := range s.Quick {
		for _, q := range p.quick {
			if q.Name == name {
				preds = append(preds, q.Prepare(all))
				break
			}
		}
	}

	query := strings.ToLower(strings.TrimSpace(s.Query))

	type selected struct {
		fn     func(T) string
		option string
	}
	var cats []selected
	for _, c := range p.categories {
		if opt := s.Category(c.name); opt != All {
			cats = append(cats, selected{fn: c.fn, option: opt})
		}
	}

	out := make([]T, 0, len(all))
	for _, item := range all {
		if query != "" && !p.matches(item, query) {
			continue
		}
		ok := true
		for _, c := range cats {
			if !strings.EqualFold(c.fn(item), c.option) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for _, pred := range preds {
			if !pred(item) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, item)
		}
	}

	if s.SortKey != "" {
		for _, srt := range p.sorts {
			if srt.name != s.SortKey {
				continue
			}
			cmp := srt.cmp
			if s.SortDesc {
				cmp = func(a, b T) int { return srt.cmp(b, a) }
			}
			slices.SortStableFunc(out, cmp)
			break
		}
	}

	return out
}

func (p *Pipeline[T]) matches(item T, query string) bool {
	if p.search == nil {
		return true
	}
	for _, field := range p.search(item) {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// View is one rendered page of a filtered collection.
type View[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
	Unfiltered int `json:"unfiltered"`
}

// View filters, sorts and paginates all. A page beyond the last one is
// clamped to the last page.
func (p *Pipeline[T]) View(all []T, s State) View[T] {
	filtered := p.Apply(all, s)
	size := s.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := TotalPages(len(filtered), size)
	page := s.Page
	if page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	return View[T]{
		Items:      Paginate(filtered, page, size),
		Page:       page,
		PageSize:   size,
		TotalPages: total,
		Total:      len(filtered),
		Unfiltered: len(all),
	}
}
