package budget

import (
	"encoding/json"
	"fmt"

	"github.com/kakeibolab/kakeibo-sync/internal/common"
	"github.com/kakeibolab/kakeibo-sync/internal/model"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// DecodeSnapshotValue reconstructs the typed cache value for a persisted
// entry from its key and stored JSON. The key's entity and kind segments
// select the concrete type; a shape the current build does not know is
// reported as corrupt so the caller can skip the entry.
func DecodeSnapshotValue(key query.Key, raw []byte) (any, error) {
	segments := key.Segments()
	if len(segments) < 2 {
		return nil, fmt.Errorf("key %q: %w", key.String(), common.ErrSnapshotCorrupted)
	}

	entity := model.EntityType(segments[0])
	kind := segments[1]

	switch {
	case entity == model.EntityCategories && kind == "list":
		return decodeInto[[]model.Category](key, raw)
	case entity == model.EntityCategories && kind == "detail":
		return decodeInto[model.Category](key, raw)
	case entity == model.EntitySubscriptions && kind == "list":
		return decodeInto[[]model.Subscription](key, raw)
	case entity == model.EntitySubscriptions && kind == "detail":
		return decodeInto[model.Subscription](key, raw)
	case entity == model.EntityTransactions && kind == "list":
		return decodeInto[model.TransactionPage](key, raw)
	case entity == model.EntityTransactions && kind == "detail":
		return decodeInto[model.Transaction](key, raw)
	default:
		return nil, fmt.Errorf("key %q: %w", key.String(), common.ErrSnapshotCorrupted)
	}
}

func decodeInto[T any](key query.Key, raw []byte) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", key.String(), common.ErrSnapshotCorrupted, err)
	}
	return v, nil
}
