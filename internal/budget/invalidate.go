package budget

import (
	"github.com/kakeibolab/kakeibo-sync/internal/model"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// invalidationScope lists the key prefixes a settled mutation on the given
// entity marks stale. Subscription mutations also invalidate transactions:
// a subscription with autoGenerate set causes the server to create
// transactions on its own schedule, so cached transaction lists can change
// whenever a subscription does.
func invalidationScope(entity model.EntityType) []query.Key {
	if entity == model.EntitySubscriptions {
		return []query.Key{
			query.EntityKey(model.EntitySubscriptions),
			query.EntityKey(model.EntityTransactions),
		}
	}
	return []query.Key{query.EntityKey(entity)}
}
