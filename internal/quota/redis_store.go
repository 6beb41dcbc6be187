package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

// DefaultKeyTTL keeps a counter alive past the day it belongs to.
const DefaultKeyTTL = 48 * time.Hour

// resetScript refills the counter only when the stored date is missing or
// earlier than ARGV[1]. Dates are YYYY-MM-DD, so string order is day order.
// KEYS[1] counter hash; ARGV: today, max, ttl seconds.
var resetScript = redis.NewScript(`
local d = redis.call('HGET', KEYS[1], 'date')
if d and d >= ARGV[1] then
  local v = redis.call('HMGET', KEYS[1], 'num', 'max')
  return {d, tonumber(v[1]), tonumber(v[2])}
end
redis.call('HSET', KEYS[1], 'date', ARGV[1], 'num', ARGV[2], 'max', ARGV[2])
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[3]))
return {ARGV[1], tonumber(ARGV[2]), tonumber(ARGV[2])}
`)

// consumeScript decrements num if it is above zero.
// Returns {applied, num, max, date}; applied is -1 for a missing key.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {-1, 0, 0, ''}
end
local v = redis.call('HMGET', KEYS[1], 'num', 'max', 'date')
local n = tonumber(v[1])
if n > 0 then
  n = redis.call('HINCRBY', KEYS[1], 'num', -1)
  return {1, n, tonumber(v[2]), v[3]}
end
return {0, n, tonumber(v[2]), v[3]}
`)

// RedisStore keeps quota counters in Redis hashes keyed by principal. The
// daily maximum is read from the principal repository when a counter is
// created or refilled, so a changed maximum applies from the next day.
type RedisStore struct {
	client     redis.UniversalClient
	principals repository.PrincipalRepository
	prefix     string
	ttl        time.Duration
}

// NewRedisStore creates a Redis quota store.
func NewRedisStore(client redis.UniversalClient, principals repository.PrincipalRepository) *RedisStore {
	return &RedisStore{
		client:     client,
		principals: principals,
		prefix:     "quota:",
		ttl:        DefaultKeyTTL,
	}
}

var _ repository.QuotaStore = (*RedisStore)(nil)

func (s *RedisStore) key(principalID string) string {
	return s.prefix + principalID
}

// ResetIfStale implements repository.QuotaStore.
func (s *RedisStore) ResetIfStale(ctx context.Context, principalID string, today domain.Date) (domain.QuotaState, error) {
	key := s.key(principalID)

	vals, err := s.client.HMGet(ctx, key, "date", "num", "max").Result()
	if err != nil {
		return domain.QuotaState{}, unavailable("read quota", err)
	}
	if date, ok := vals[0].(string); ok && date >= today.String() {
		stored, err := domain.ParseDate(date)
		if err != nil {
			return domain.QuotaState{}, fmt.Errorf("parse quota date %q: %w", date, err)
		}
		num, _ := strconv.Atoi(fmt.Sprint(vals[1]))
		max, _ := strconv.Atoi(fmt.Sprint(vals[2]))
		return domain.QuotaState{
			PrincipalID:      principalID,
			MaxActionsPerDay: max,
			NumOfActions:     num,
			LastActionDate:   stored,
		}, nil
	}

	p, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return domain.QuotaState{}, err
	}

	res, err := resetScript.Run(ctx, s.client, []string{key},
		today.String(), p.MaxActionsPerDay, int(s.ttl.Seconds()),
	).Slice()
	if err != nil {
		return domain.QuotaState{}, unavailable("reset quota", err)
	}
	return parseState(principalID, res[0], res[1], res[2])
}

// Consume implements repository.QuotaStore.
func (s *RedisStore) Consume(ctx context.Context, principalID string) (domain.QuotaState, bool, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key(principalID)}).Slice()
	if err != nil {
		return domain.QuotaState{}, false, unavailable("consume quota", err)
	}
	applied, _ := res[0].(int64)
	if applied < 0 {
		return domain.QuotaState{PrincipalID: principalID}, false, nil
	}
	state, err := parseState(principalID, res[3], res[1], res[2])
	if err != nil {
		return domain.QuotaState{}, false, err
	}
	return state, applied == 1, nil
}

func parseState(principalID string, date, num, max interface{}) (domain.QuotaState, error) {
	d, err := domain.ParseDate(fmt.Sprint(date))
	if err != nil {
		return domain.QuotaState{}, fmt.Errorf("parse quota date %v: %w", date, err)
	}
	n, _ := num.(int64)
	m, _ := max.(int64)
	return domain.QuotaState{
		PrincipalID:      principalID,
		MaxActionsPerDay: int(m),
		NumOfActions:     int(n),
		LastActionDate:   d,
	}, nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %v", op, repository.ErrUnavailable, err)
}
