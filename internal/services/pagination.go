package services

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// ClampPageSize applies the default for non-positive sizes and caps at MaxPageSize.
func ClampPageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}
