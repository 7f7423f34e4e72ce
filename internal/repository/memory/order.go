package memory

import (
	"slices"
	"time"
)

// newestFirst copies records into timestamp-descending order, breaking ties by
// later insertion first, and truncates to limit.
func newestFirst[T any](records []*T, limit int, ts func(*T) time.Time) []*T {
	out := make([]*T, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		cp := *records[i]
		out = append(out, &cp)
	}
	slices.SortStableFunc(out, func(a, b *T) int {
		return ts(b).Compare(ts(a))
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
