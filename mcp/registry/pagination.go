// Package registry implements the MCP tool, resource, resource-template,
// and prompt registries (spec.md §4.5): keyed maps with per-entry
// handlers, lexicographic pagination, change broadcast, and resource
// subscriptions.
package registry

// DefaultPageSize is the maximum number of entries returned per list
// call (spec.md §4.5: "slices a page of ≤50 items").
const DefaultPageSize = 50

// paginate slices sorted (by key, ascending) into a page starting just
// after cursor. An empty cursor starts at the beginning. nextCursor is
// the key of the last item returned, or "" when the page reaches the end
// of sorted.
func paginate[T any](sorted []T, key func(T) string, cursor string, pageSize int) (page []T, nextCursor string) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	start := 0
	if cursor != "" {
		for i, item := range sorted {
			if key(item) > cursor {
				start = i
				break
			}
			start = i + 1
		}
	}

	end := start + pageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	if start > len(sorted) {
		start = len(sorted)
	}

	page = sorted[start:end]
	if end < len(sorted) {
		nextCursor = key(page[len(page)-1])
	}
	return page, nextCursor
}
