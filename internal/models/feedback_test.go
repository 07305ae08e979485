package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestComputeAggregate(t *testing.T) {
	tests := []struct {
		name            string
		entries         []FeedbackEntry
		wantCount       int
		wantAvg         *float64
		wantImplemented int
	}{
		{
			name:      "no entries",
			entries:   nil,
			wantCount: 0,
			wantAvg:   nil,
		},
		{
			name: "comment only entries have no average",
			entries: []FeedbackEntry{
				{Fingerprint: "a", Comment: "nice"},
				{Fingerprint: "b", Comment: "meh", Implemented: true},
			},
			wantCount:       2,
			wantAvg:         nil,
			wantImplemented: 1,
		},
		{
			name: "average ignores unrated entries",
			entries: []FeedbackEntry{
				{Fingerprint: "a", Rating: intPtr(5)},
				{Fingerprint: "b", Rating: intPtr(3), Implemented: true},
				{Fingerprint: "c", Comment: "no rating", Implemented: true},
			},
			wantCount:       3,
			wantAvg:         func() *float64 { v := 4.0; return &v }(),
			wantImplemented: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := ComputeAggregate(tt.entries)
			assert.Equal(t, tt.wantCount, agg.EntryCount)
			assert.Equal(t, tt.wantImplemented, agg.ImplementedCount)
			if tt.wantAvg == nil {
				assert.Nil(t, agg.AverageRating)
				return
			}
			require.NotNil(t, agg.AverageRating)
			assert.InDelta(t, *tt.wantAvg, *agg.AverageRating, 1e-9)
		})
	}
}

func TestIdeaPreview(t *testing.T) {
	idea := &Idea{Content: "Fotografiere Spiegelungen in Pfützen"}
	assert.Equal(t, idea.Content, idea.Preview(150))
	assert.Equal(t, "Fotografiere...", idea.Preview(12))

	umlauts := &Idea{Content: "äöüß"}
	assert.Equal(t, "äö...", umlauts.Preview(2))
}
