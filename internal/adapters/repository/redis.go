package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/okian/vibrapulse/internal/domain/report"
	"github.com/okian/vibrapulse/pkg/metrics"
)

// RedisConfig addresses a Redis server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DialRedis connects and pings a Redis server.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisStore keeps reports as JSON values with a TTL. Two sorted sets index
// them: one by max risk, one by save time for expiry and capacity pruning.
type RedisStore struct {
	client *redis.Client
	opts   options
}

// NewRedisStore wraps client. The store owns client and closes it on Close.
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

func (s *RedisStore) reportKey(id string) string { return s.opts.keyPrefix + "report:" + id }
func (s *RedisStore) riskKey() string            { return s.opts.keyPrefix + "reports:risk" }
func (s *RedisStore) addedKey() string           { return s.opts.keyPrefix + "reports:added" }

func (s *RedisStore) Save(ctx context.Context, r *report.Report) error {
	if r == nil || r.ID == "" {
		return ErrInvalidID
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.ID, err)
	}
	now := s.opts.now()
	ttl := s.opts.ttl
	if ttl < 0 {
		ttl = 0
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.reportKey(r.ID), b, ttl)
		pipe.ZAdd(ctx, s.riskKey(), redis.Z{Score: r.Alert.MaxRisk, Member: r.ID})
		pipe.ZAdd(ctx, s.addedKey(), redis.Z{Score: float64(now.UnixMilli()), Member: r.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	if err := s.enforceCapacity(ctx); err != nil {
		return err
	}
	metrics.UpdateReportsStored(s.Count(ctx))
	return nil
}

// enforceCapacity drops the oldest reports beyond capacity.
func (s *RedisStore) enforceCapacity(ctx context.Context) error {
	n, err := s.client.ZCard(ctx, s.addedKey()).Result()
	if err != nil {
		return fmt.Errorf("count reports: %w", err)
	}
	over := n - int64(s.opts.capacity)
	if over <= 0 {
		return nil
	}
	popped, err := s.client.ZPopMin(ctx, s.addedKey(), over).Result()
	if err != nil {
		return fmt.Errorf("evict reports: %w", err)
	}
	return s.forget(ctx, members(popped))
}

// prune removes index entries whose reports have outlived the TTL.
func (s *RedisStore) prune(ctx context.Context) error {
	if s.opts.ttl <= 0 {
		return nil
	}
	cutoff := s.opts.now().Add(-s.opts.ttl).UnixMilli()
	ids, err := s.client.ZRangeByScore(ctx, s.addedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("scan expired reports: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	return s.forget(ctx, ids)
}

func (s *RedisStore) forget(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	mem := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = s.reportKey(id)
		mem[i] = id
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.riskKey(), mem...)
		pipe.ZRem(ctx, s.addedKey(), mem...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("drop reports: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*report.Report, error) {
	b, err := s.client.Get(ctx, s.reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	var r report.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &r, nil
}

func (s *RedisStore) Top(ctx context.Context, n int) ([]report.Summary, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := s.prune(ctx); err != nil {
		return nil, err
	}
	ids, err := s.rankedIDs(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []report.Summary{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.reportKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	out := make([]report.Summary, 0, len(vals))
	var gone []string
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			gone = append(gone, ids[i])
			continue
		}
		var r report.Report
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", ids[i], err)
		}
		out = append(out, r.Summary())
	}
	if err := s.forget(ctx, gone); err != nil {
		return nil, err
	}
	sortSummaries(out)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// rankedIDs returns the n highest risk members plus every member tied with
// the last one. Redis orders equal scores by member, so the newest-first
// tie break is applied after loading.
func (s *RedisStore) rankedIDs(ctx context.Context, n int) ([]string, error) {
	head, err := s.client.ZRevRangeWithScores(ctx, s.riskKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("rank reports: %w", err)
	}
	if len(head) < n {
		ids := make([]string, len(head))
		for i, z := range head {
			ids[i], _ = z.Member.(string)
		}
		return ids, nil
	}
	floor := strconv.FormatFloat(head[n-1].Score, 'f', -1, 64)
	ids, err := s.client.ZRevRangeByScore(ctx, s.riskKey(), &redis.ZRangeBy{Min: floor, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("rank reports: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) Count(ctx context.Context) int {
	if err := s.prune(ctx); err != nil {
		return 0
	}
	n, err := s.client.ZCard(ctx, s.addedKey()).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func members(zs []redis.Z) []string {
	out := make([]string, 0, len(zs))
	for _, z := range zs {
		if m, ok := z.Member.(string); ok {
			out = append(out, m)
		}
	}
	return out
}
