package pipeline

// Paginate returns the 1-based page of items: [(page-1)*size, (page-1)*size+size).
// The returned slice has its capacity clipped so appending to it cannot
// overwrite items.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end]
}

// TotalPages returns how many pages n items fill. An empty collection still
// has one (empty) page.
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}
