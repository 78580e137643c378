package orchestrator

import (
	"sort"

	"go-space/internal/domain"
)

// PageSize is the number of photos shown per page
const PageSize = 6

// SuggestedCount is how many high-yield dates are offered
const SuggestedCount = 5

// TotalPages is ceil(n/size)
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate returns the 1-based page of items. Out of range pages are empty.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 || size <= 0 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := min(start+size, len(items))
	return items[start:end]
}

// HasPrev reports whether a page precedes page
func HasPrev(page int) bool {
	return page > 1
}

// HasNext reports whether a page follows page
func HasNext(page, totalPages int) bool {
	return page < totalPages
}

// SuggestedDates returns the earth dates with the most photos, best first.
// Ties keep manifest order.
func SuggestedDates(m *domain.PhotoManifest, n int) []string {
	if m == nil || len(m.Photos) == 0 || n <= 0 {
		return nil
	}
	days := make([]domain.ManifestDay, len(m.Photos))
	copy(days, m.Photos)
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].TotalPhotos > days[j].TotalPhotos
	})

	if len(days) > n {
		days = days[:n]
	}
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.EarthDate
	}
	return dates
}
