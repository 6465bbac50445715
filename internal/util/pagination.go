package util

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Calculate normalises page and size and returns the row offset.
func Calculate(page, size int) (p, offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, (page - 1) * size, size
}

func TotalPages(total int64, limit int) int {
	if limit < 1 || total == 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
