package model

type Page[T any] struct {
	Items []T
	Page  int
	Size  int
	Total int64
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// PageRequest is a zero based page.
type PageRequest struct {
	Page int
	Size int
}

func (r PageRequest) Offset() uint64 {
	return uint64(r.Page * r.Size)
}
