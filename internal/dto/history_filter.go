// HistoryFilter narrows the detection history returned by a repository.
package dto

// MaxHistoryLimit caps how many records a history query returns.
const MaxHistoryLimit = 200

type HistoryFilter struct {
	Label string // empty = all labels
	Limit int    // <= 0 or above MaxHistoryLimit = MaxHistoryLimit
}

// EffectiveLimit returns the limit clamped to (0, MaxHistoryLimit].
func (f HistoryFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return f.Limit
}
