package cache

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideas-feedback/internal/models"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty url", ""},
		{"invalid url", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := New(ctx, tt.url, zerolog.Nop())
			assert.False(t, c.Enabled())

			agg, err := c.GetAggregate(ctx, "photo_1")
			require.NoError(t, err)
			assert.Nil(t, agg)

			assert.NoError(t, c.SetAggregate(ctx, "photo_1", models.Aggregate{EntryCount: 2}))
			assert.NoError(t, c.InvalidateAggregate(ctx, "photo_1"))
			assert.NoError(t, c.Ping(ctx))
			assert.NoError(t, c.Close())
		})
	}
}

func TestAggregateKey(t *testing.T) {
	assert.Equal(t, "aggregate:cooking_42", aggregateKey("cooking_42"))
}
