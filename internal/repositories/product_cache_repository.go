package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bikeshop/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const catalogCacheKey = "catalog:all"

// CachedProductRepository serves GetAll from a Redis copy of the catalog and
// falls back to the wrapped repository on a miss or a Redis failure.
// Writes go to the wrapped repository and drop the cached copy.
type CachedProductRepository struct {
	ProductRepository
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewCachedProductRepository wraps next with a Redis read-through cache.
func NewCachedProductRepository(next ProductRepository, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedProductRepository {
	return &CachedProductRepository{
		ProductRepository: next,
		client:            client,
		ttl:               ttl,
		log:               log,
	}
}

// GetAll returns the catalog, preferring the cached copy.
func (r *CachedProductRepository) GetAll() ([]models.Product, error) {
	ctx := context.Background()

	products, err := r.fromCache(ctx)
	if err == nil {
		return products, nil
	}
	if !errors.Is(err, redis.Nil) {
		r.log.WithError(err).Warn("Catalog cache read failed, falling back to database")
	}

	products, err = r.ProductRepository.GetAll()
	if err != nil {
		return nil, err
	}

	if err := r.populate(ctx, products); err != nil {
		r.log.WithError(err).Warn("Failed to populate catalog cache")
	}
	return products, nil
}

// Create stores the product and invalidates the cached catalog.
func (r *CachedProductRepository) Create(product *models.Product) error {
	if err := r.ProductRepository.Create(product); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// Update stores the product and invalidates the cached catalog.
func (r *CachedProductRepository) Update(product *models.Product) error {
	if err := r.ProductRepository.Update(product); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// Delete removes the product and invalidates the cached catalog.
func (r *CachedProductRepository) Delete(id string) error {
	if err := r.ProductRepository.Delete(id); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *CachedProductRepository) fromCache(ctx context.Context) ([]models.Product, error) {
	raw, err := r.client.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("failed to decode cached catalog: %w", err)
	}
	return products, nil
}

func (r *CachedProductRepository) populate(ctx context.Context, products []models.Product) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return r.client.Set(ctx, catalogCacheKey, raw, r.ttl).Err()
}

func (r *CachedProductRepository) invalidate() {
	if err := r.client.Del(context.Background(), catalogCacheKey).Err(); err != nil {
		r.log.WithError(err).Warn("Failed to invalidate catalog cache")
	}
}
