package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kakeibolab/kakeibo-sync/internal/model"
)

// Key addresses one cache slot. Keys are hierarchical: [entity] covers
// [entity, list] and [entity, detail, id], so invalidating a prefix reaches
// every variant beneath it.
//
// Two keys built from equal inputs are equal by value; list parameters are
// canonicalized into a sorted encoding so structurally equal filters land in
// the same slot regardless of how they were assembled.
type Key struct {
	segments []string
}

// Key kind segments.
const (
	kindList   = "list"
	kindDetail = "detail"
)

// EntityKey is the root key covering everything cached for an entity type.
func EntityKey(entity model.EntityType) Key {
	return Key{segments: []string{string(entity)}}
}

// ListKey addresses the unparameterized full list of an entity type. It is
// also the prefix of every parameterized list variant.
func ListKey(entity model.EntityType) Key {
	return Key{segments: []string{string(entity), kindList}}
}

// ListKeyWithParams addresses one filtered/sorted/paged list variant.
// Parameters are canonicalized, so equal parameter sets share a slot.
func ListKeyWithParams(entity model.EntityType, params url.Values) Key {
	return Key{segments: []string{string(entity), kindList, "{" + params.Encode() + "}"}}
}

// DetailKey addresses one entity by ID.
func DetailKey(entity model.EntityType, id int64) Key {
	return Key{segments: []string{string(entity), kindDetail, strconv.FormatInt(id, 10)}}
}

// String renders the key for map storage and logs. Parameter segments are
// percent-encoded, so the separator never collides with content.
func (k Key) String() string {
	return strings.Join(k.segments, "/")
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return len(k.segments) == 0
}

// Equal reports whether two keys address the same slot.
func (k Key) Equal(other Key) bool {
	if len(k.segments) != len(other.segments) {
		return false
	}
	for i := range k.segments {
		if k.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix covers k in the key hierarchy. Matching
// is per segment: [transactions] covers [transactions, list, {page=2}] but
// [transactions, list] does not cover [transactions, detail, 7].
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix.segments) > len(k.segments) {
		return false
	}
	for i := range prefix.segments {
		if k.segments[i] != prefix.segments[i] {
			return false
		}
	}
	return true
}
