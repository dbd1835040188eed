package model

import (
	"testing"
)

func TestTransactionFilter_Query(t *testing.T) {
	tests := []struct {
		name   string
		filter TransactionFilter
		want   string
	}{
		{
			name:   "zero filter encodes empty",
			filter: TransactionFilter{},
			want:   "",
		},
		{
			name: "full filter",
			filter: TransactionFilter{
				From:       "2025-06-01",
				To:         "2025-06-30",
				Type:       FlowExpense,
				CategoryID: 3,
				Search:     "coffee",
				SortBy:     SortByAmount,
				SortOrder:  "desc",
				Page:       2,
				Limit:      50,
			},
			want: "category_id=3&from=2025-06-01&limit=50&page=2&search=coffee&sort_by=amount&sort_order=desc&to=2025-06-30&type=expense",
		},
		{
			name:   "page one is explicit",
			filter: TransactionFilter{Page: 1},
			want:   "page=1",
		},
		{
			name:   "non-positive category id is dropped",
			filter: TransactionFilter{CategoryID: -1},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Query().Encode(); got != tt.want {
				t.Errorf("Query().Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Equal filters must produce byte-identical encodings so they share a cache
// entry.
func TestTransactionFilter_QueryDeterministic(t *testing.T) {
	a := TransactionFilter{Type: FlowExpense, Search: "rent", Page: 1, Limit: 20}
	b := TransactionFilter{Limit: 20, Page: 1, Search: "rent", Type: FlowExpense}

	if a.Query().Encode() != b.Query().Encode() {
		t.Errorf("equal filters encode differently: %q vs %q", a.Query().Encode(), b.Query().Encode())
	}
}

func TestTransactionPage_Clone(t *testing.T) {
	orig := TransactionPage{
		Transactions: []Transaction{{ID: 1, Amount: 100, Tags: Tags{"a"}}},
		Count:        57,
	}

	clone := orig.Clone()
	clone.Transactions[0].Tags[0] = "changed"
	clone.Count = 0

	if orig.Transactions[0].Tags[0] != "a" {
		t.Errorf("original Tags[0] = %q after clone mutation, want a", orig.Transactions[0].Tags[0])
	}
	if orig.Count != 57 {
		t.Errorf("original Count = %d after clone mutation, want 57", orig.Count)
	}
}
