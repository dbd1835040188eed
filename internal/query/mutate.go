package query

import "context"

// MutationState tracks a mutation through its optimistic lifecycle.
type MutationState int

// Mutation lifecycle states, in order of occurrence.
const (
	MutationIdle MutationState = iota
	MutationPending
	MutationCommitted
	MutationRolledBack
	MutationSettled
)

func (s MutationState) String() string {
	switch s {
	case MutationIdle:
		return "idle"
	case MutationPending:
		return "pending"
	case MutationCommitted:
		return "committed"
	case MutationRolledBack:
		return "rolled_back"
	case MutationSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Mutation describes one optimistic mutation against the store.
//
// Touch lists the keys the optimistic Apply rewrites; they are snapshotted
// before Apply runs and restored exactly if Call fails. Invalidate lists
// the key prefixes marked stale once the call settles, success or failure,
// so nothing keeps trusting an optimistic value indefinitely.
//
// Mutations are never retried automatically. A failed call may still have
// applied on the server, and a retry would risk doubling the side effect;
// retrying is the caller's explicit decision.
type Mutation[T any] struct {
	Apply      func(*Store)
	Call       func(context.Context) (T, error)
	OnState    func(MutationState)
	Touch      []Key
	Invalidate []Key
}

// RunMutation executes the snapshot, optimistic-apply, call, rollback,
// invalidate protocol. By the time it returns the store already reflects
// the outcome: touched keys rolled back exactly on failure, and declared
// dependents marked stale either way. Two mutations racing on overlapping
// keys settle in call-completion order, last one wins.
func RunMutation[T any](ctx context.Context, q *Queries, m Mutation[T]) (T, error) {
	transition := func(state MutationState) {
		if m.OnState != nil {
			m.OnState(state)
		}
	}

	transition(MutationPending)
	snapshot := q.store.Snapshot(m.Touch...)
	if m.Apply != nil {
		m.Apply(q.store)
	}

	result, err := m.Call(ctx)
	if err != nil {
		q.store.Restore(snapshot)
		mutations.WithLabelValues("rolled_back").Inc()
		transition(MutationRolledBack)
	} else {
		mutations.WithLabelValues("committed").Inc()
		transition(MutationCommitted)
	}

	for _, prefix := range m.Invalidate {
		q.store.InvalidatePrefix(prefix)
	}
	transition(MutationSettled)

	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
