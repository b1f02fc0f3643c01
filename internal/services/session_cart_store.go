package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Both scripts return -1 when the field does not exist, otherwise the new quantity.
var (
	decrementLineScript = redis.NewScript(`
local q = redis.call('HGET', KEYS[1], ARGV[1])
if not q then return -1 end
q = tonumber(q) - 1
if q <= 0 then
  redis.call('HDEL', KEYS[1], ARGV[1])
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], tostring(q))
return q
`)
	setLineScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then return -1 end
local q = tonumber(ARGV[2])
if q <= 0 then
  redis.call('HDEL', KEYS[1], ARGV[1])
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], tostring(q))
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return q
`)
)

// SessionCartStore keeps the cart as a Redis hash of product ID to quantity
// under the session ID. The hash expires with the session.
type SessionCartStore struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewSessionCartStore creates a session cart store whose carts live for ttl after the last change.
func NewSessionCartStore(client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *SessionCartStore {
	return &SessionCartStore{client: client, ttl: ttl, log: log}
}

func (s *SessionCartStore) key(owner CartOwner) (string, error) {
	if owner.SessionID == "" {
		return "", fmt.Errorf("session cart requires a session id: %w", ErrNotAuthenticated)
	}
	return "cart:" + owner.SessionID, nil
}

// Lines returns the session's lines ordered by product ID. Entries that are
// not positive integers are dropped from the hash.
func (s *SessionCartStore) Lines(ctx context.Context, owner CartOwner) ([]CartLine, error) {
	key, err := s.key(owner)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session cart: %w", err)
	}

	lines := make([]CartLine, 0, len(raw))
	for productID, value := range raw {
		qty, err := strconv.Atoi(value)
		if err != nil || qty <= 0 {
			s.log.WithFields(logrus.Fields{"product_id": productID, "value": value}).Warn("Dropping invalid session cart entry")
			s.client.HDel(ctx, key, productID)
			continue
		}
		lines = append(lines, CartLine{ID: productID, ProductID: productID, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

// Add increments the product's quantity atomically.
func (s *SessionCartStore) Add(ctx context.Context, owner CartOwner, productID string) error {
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, productID, 1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add to session cart: %w", err)
	}
	return nil
}

// SetQuantity sets a line's quantity or deletes it when quantity <= 0.
func (s *SessionCartStore) SetQuantity(ctx context.Context, owner CartOwner, lineID string, quantity int) error {
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	res, err := setLineScript.Run(ctx, s.client, []string{key}, lineID, quantity, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to update session cart: %w", err)
	}
	if res < 0 {
		return fmt.Errorf("%w: product %s", ErrCartLineNotFound, lineID)
	}
	return nil
}

// Remove decrements a line by one and deletes it at zero.
func (s *SessionCartStore) Remove(ctx context.Context, owner CartOwner, lineID string) error {
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	res, err := decrementLineScript.Run(ctx, s.client, []string{key}, lineID).Int()
	if err != nil {
		return fmt.Errorf("failed to remove from session cart: %w", err)
	}
	if res < 0 {
		return fmt.Errorf("%w: product %s", ErrCartLineNotFound, lineID)
	}
	return nil
}

// Clear drops the session's cart.
func (s *SessionCartStore) Clear(ctx context.Context, owner CartOwner) error {
	key, err := s.key(owner)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear session cart: %w", err)
	}
	return nil
}
