package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	store := noopStore{}

	_, err := store.Get(ctx, "orders:1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, store.Set(ctx, "orders:1", []byte("{}"), time.Minute))
	assert.NoError(t, store.Delete(ctx, "orders:1"))

	_, err = store.Get(ctx, "orders:1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
