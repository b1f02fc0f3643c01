package repositories_test

import (
	"testing"
	"time"

	"bikeshop/internal/logger"
	"bikeshop/internal/models"
	"bikeshop/internal/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedProductRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := repositories.NewMockProductRepository()
	repo := repositories.NewCachedProductRepository(inner, client, 5*time.Minute, logger.Discard())

	p := &models.Product{Name: "Surron E-Bike", Price: 4500}
	require.NoError(t, repo.Create(p))

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, mr.Exists("catalog:all"), "first read populates the cache")

	// Writes behind the decorator's back are not visible until the TTL expires.
	require.NoError(t, inner.Create(&models.Product{Name: "Hidden", Price: 1}))
	all, err = repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	mr.FastForward(6 * time.Minute)
	all, err = repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Writes through the decorator invalidate immediately.
	p.Price = 4000
	require.NoError(t, repo.Update(p))
	assert.False(t, mr.Exists("catalog:all"))
	all, err = repo.GetAll()
	require.NoError(t, err)
	for _, got := range all {
		if got.ID == p.ID {
			assert.Equal(t, 4000.0, got.Price)
		}
	}
}

func TestCachedProductRepository_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	inner := repositories.NewMockProductRepository()
	require.NoError(t, inner.Create(&models.Product{Name: "Gravel Bike", Price: 1999}))
	repo := repositories.NewCachedProductRepository(inner, client, time.Minute, logger.Discard())

	mr.Close()
	all, err := repo.GetAll()
	require.NoError(t, err, "a Redis outage falls back to the wrapped repository")
	assert.Len(t, all, 1)
}
