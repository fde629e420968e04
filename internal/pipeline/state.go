// Package pipeline implements the per-page derived-state chain: search,
// categorical and quick filters, sorting, pagination and count aggregation
// over an already-fetched collection.
package pipeline

import (
	"slices"
	"strings"
)

// All is the categorical option that disables a dropdown filter.
const All = "all"

// DefaultPageSize is used when a page size of zero or less is requested.
const DefaultPageSize = 10

// State is the in-memory filter and page state of one page instance.
// Every filter mutator resets Page to 1.
type State struct {
	Query      string            `json:"query"`
	Categories map[string]string `json:"categories"`
	Quick      []string          `json:"quick"`
	SortKey    string            `json:"sort_key"`
	SortDesc   bool              `json:"sort_desc"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

// NewState returns the default state for a page.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{
		Categories: map[string]string{},
		Page:       1,
		PageSize:   pageSize,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	c.Categories = make(map[string]string, len(s.Categories))
	for k, v := range s.Categories {
		c.Categories[k] = v
	}
	c.Quick = slices.Clone(s.Quick)
	return c
}

// SetQuery changes the free-text search.
func (s *State) SetQuery(q string) {
	s.Query = q
	s.Page = 1
}

// SetCategory selects an option for a dropdown; All in any case, or "",
// clears it.
func (s *State) SetCategory(name, option string) {
	if s.Categories == nil {
		s.Categories = map[string]string{}
	}
	option = strings.TrimSpace(option)
	if isAll(option) {
		delete(s.Categories, name)
	} else {
		s.Categories[name] = option
	}
	s.Page = 1
}

// Category returns the selected option for a dropdown, or All.
func (s State) Category(name string) string {
	if v, ok := s.Categories[name]; ok && !isAll(v) {
		return v
	}
	return All
}

func isAll(option string) bool {
	return option == "" || strings.EqualFold(option, All)
}

// ToggleQuick flips a quick filter tag.
func (s *State) ToggleQuick(name string) {
	s.SetQuick(name, !s.QuickActive(name))
}

// SetQuick enables or disables a quick filter tag.
func (s *State) SetQuick(name string, on bool) {
	idx := slices.Index(s.Quick, name)
	switch {
	case on && idx < 0:
		s.Quick = append(s.Quick, name)
	case !on && idx >= 0:
		s.Quick = slices.Delete(slices.Clone(s.Quick), idx, idx+1)
	}
	s.Page = 1
}

// QuickActive reports whether a quick filter tag is on.
func (s State) QuickActive(name string) bool {
	return slices.Contains(s.Quick, name)
}

// SetSort orders the collection by a named sort.
func (s *State) SetSort(key string, desc bool) {
	s.SortKey = key
	s.SortDesc = desc
	s.Page = 1
}

// ClearFilters resets search, dropdowns, quick filters and sort, keeping the
// page size.
func (s *State) ClearFilters() {
	size := s.PageSize
	*s = NewState(size)
}

// SetPage moves to a 1-based page.
func (s *State) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.Page = page
}

// NextPage advances one page, staying within totalPages.
func (s *State) NextPage(totalPages int) {
	if s.Page < totalPages {
		s.Page++
	}
}

// PrevPage goes back one page.
func (s *State) PrevPage() {
	if s.Page > 1 {
		s.Page--
	}
}

// SetPageSize changes the page size and re-slices from the first page.
func (s *State) SetPageSize(size int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	s.PageSize = size
	s.Page = 1
}
