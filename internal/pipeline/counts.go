package pipeline

import "strings"

// Counts is a fixed-shape tally: every category in Keys has an entry, even
// when zero. Values outside Keys only contribute to Total.
type Counts struct {
	Keys   []string       `json:"keys"`
	Values map[string]int `json:"values"`
	Total  int            `json:"total"`
}

// Count tallies items by key over the given categories.
func Count[T any](items []T, key func(T) string, categories []string) Counts {
	c := Counts{
		Keys:   append([]string(nil), categories...),
		Values: make(map[string]int, len(categories)),
		Total:  len(items),
	}
	for _, k := range categories {
		c.Values[k] = 0
	}
	for _, item := range items {
		k := strings.ToLower(key(item))
		if _, ok := c.Values[k]; ok {
			c.Values[k]++
		}
	}
	return c
}

// Get returns the count for a category.
func (c Counts) Get(k string) int {
	return c.Values[k]
}

// Other returns how many items fell outside the known categories.
func (c Counts) Other() int {
	sum := 0
	for _, v := range c.Values {
		sum += v
	}
	return c.Total - sum
}
