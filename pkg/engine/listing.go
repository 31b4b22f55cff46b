package engine

import (
	"fmt"
	"strings"

	"cointrack/pkg/market"
)

// Ellipsis marks a gap in a page-number strip.
const Ellipsis = 0

const stripWindow = 7

// Listing is one page of the filtered asset list.
type Listing struct {
	Assets     []market.Asset `json:"assets"`
	Search     string         `json:"search,omitempty"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
	From       int            `json:"from"` // 1-based index of the first row shown, 0 when empty
	To         int            `json:"to"`
	Pages      []int          `json:"pages"` // page-number strip, Ellipsis marks gaps
}

// FilterAssets keeps the assets whose name or symbol contains query, ignoring
// case. An empty query keeps everything.
func FilterAssets(assets []market.Asset, query string) []market.Asset {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return assets
	}
	out := make([]market.Asset, 0, len(assets))
	for _, a := range assets {
		if strings.Contains(strings.ToLower(a.Name), query) || strings.Contains(strings.ToLower(a.Symbol), query) {
			out = append(out, a)
		}
	}
	return out
}

// TotalPages is the number of pages of size needed for total rows, at least 1.
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// PageStrip lists the page numbers to offer around current. Up to seven pages
// are listed in full; beyond that the first and last page, the neighbours of
// current and Ellipsis gaps are shown.
func PageStrip(current, total int) []int {
	if total <= 0 {
		return nil
	}
	if total <= stripWindow {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}
	pages := []int{1}
	if current > 3 {
		pages = append(pages, Ellipsis)
	}
	for i := max(2, current-1); i <= min(current+1, total-1); i++ {
		pages = append(pages, i)
	}
	if current < total-2 {
		pages = append(pages, Ellipsis)
	}
	return append(pages, total)
}

// Listing returns the current page of the search-filtered listing.
func (e *Engine) Listing() Listing {
	e.mu.RLock()
	assets, search, page, size := e.assets, e.search, e.page, e.pageSize
	e.mu.RUnlock()

	filtered := FilterAssets(assets, search)
	l := Listing{
		Search:     search,
		PageSize:   size,
		Total:      len(filtered),
		TotalPages: TotalPages(len(filtered), size),
	}
	l.Page = min(max(page, 1), l.TotalPages)
	start := (l.Page - 1) * size
	end := min(start+size, len(filtered))
	if start < end {
		l.Assets = append([]market.Asset(nil), filtered[start:end]...)
		l.From = start + 1
		l.To = end
	} else {
		l.Assets = []market.Asset{}
	}
	l.Pages = PageStrip(l.Page, l.TotalPages)
	return l
}

// SetSearchFilter filters the listing by name or symbol and returns to page 1.
func (e *Engine) SetSearchFilter(text string) {
	e.mu.Lock()
	e.search = strings.TrimSpace(text)
	e.page = 1
	e.mu.Unlock()
	e.notify(ChangeListing)
}

// SetPage selects the listing page, clamped to the available pages.
func (e *Engine) SetPage(n int) int {
	e.mu.Lock()
	total := TotalPages(len(FilterAssets(e.assets, e.search)), e.pageSize)
	e.page = min(max(n, 1), total)
	page := e.page
	e.mu.Unlock()
	e.notify(ChangeListing)
	return page
}

// SetPageSize changes the rows per page and moves to the page that contains
// the first row previously in view.
func (e *Engine) SetPageSize(n int) (int, error) {
	if n <= 0 || n > maxListingPageSize {
		return 0, fmt.Errorf("engine: page size %d out of range 1..%d", n, maxListingPageSize)
	}
	e.mu.Lock()
	first := (max(e.page, 1) - 1) * e.pageSize
	e.pageSize = n
	e.page = first/n + 1
	page := e.page
	e.mu.Unlock()
	e.notify(ChangeListing)
	return page, nil
}
