package calendar

// Page is one page of a result list.
type Page[T any] struct {
	Items    []T
	Page     int // 1-based
	PageSize int
	HasNext  bool
	HasPrev  bool
	Total    int
}

const DefaultPageSize = 20

// NormalizePage applies defaults to page/pageSize and returns limit/offset
// for repository queries.
func NormalizePage(page, pageSize int) (int, int, int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize, pageSize, (page - 1) * pageSize
}

// Paginate cuts the requested page out of items.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	page, pageSize, _, start := NormalizePage(page, pageSize)

	total := len(items)
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page[T]{
		Items:    items[start:end],
		Page:     page,
		PageSize: pageSize,
		HasNext:  end < total,
		HasPrev:  page > 1,
		Total:    total,
	}
}

// NewPage wraps an already limited slice with the total reported by the store.
func NewPage[T any](items []T, page, pageSize int, total int64) Page[T] {
	page, pageSize, _, offset := NormalizePage(page, pageSize)
	return Page[T]{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		HasNext:  int64(offset+len(items)) < total,
		HasPrev:  page > 1,
		Total:    int(total),
	}
}
