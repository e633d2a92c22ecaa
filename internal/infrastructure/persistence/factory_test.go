package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
)

func TestNewBookRepository_Memory(t *testing.T) {
	cfg := &config.Config{
		Store:   config.StoreConfig{Driver: config.DriverMemory},
		Breaker: config.BreakerConfig{Enabled: true, ConsecutiveFailures: 3},
	}

	repo, err := NewBookRepository(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close(context.Background()) })

	require.NoError(t, repo.Ping(context.Background()))

	rec, err := book.DecodeRecord([]byte(`{"title":"Go"}`))
	require.NoError(t, err)
	res, err := repo.InsertOne(context.Background(), rec)
	require.NoError(t, err)

	all, err := repo.Find(context.Background(), book.MatchAll())
	require.NoError(t, err)
	require.Len(t, all, 1)
	id, _ := all[0].ID()
	assert.Equal(t, res.InsertedID, id)
}

func TestNewBookRepository_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "cassandra"}}
	_, err := NewBookRepository(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "cassandra")
}
