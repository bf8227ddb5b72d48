// internal/services/structs.go
package services

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// PageQuery 分页参数，页码从 1 开始
type PageQuery struct {
	Page    int
	PerPage int
}

func (q PageQuery) normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	return q
}

// Page 分页结果
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// paginate 对已排序的切片取一页
func paginate[T any](all []T, q PageQuery) Page[T] {
	q = q.normalize()
	total := len(all)

	start := (q.Page - 1) * q.PerPage
	if start > total {
		start = total
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}

	items := make([]T, end-start)
	copy(items, all[start:end])

	return Page[T]{
		Items:      items,
		Page:       q.Page,
		PerPage:    q.PerPage,
		Total:      total,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
	}
}
