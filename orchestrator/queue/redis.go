package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultPrefix       = "porch:queue:"
	defaultPollInterval = 250 * time.Millisecond
	defaultVisibility   = 5 * time.Minute
)

// claimScript requeues claims whose visibility expired, then moves the
// earliest due job from the due set to the processing set and returns its
// id and body.
//
// KEYS: due, processing, jobs. ARGV: now ms, visibility deadline ms.
var claimScript = goredis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[2], id)
  redis.call('ZADD', KEYS[1], ARGV[1], id)
end
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #ids == 0 then
  return false
end
redis.call('ZREM', KEYS[1], ids[1])
local body = redis.call('HGET', KEYS[3], ids[1])
if not body then
  return false
end
redis.call('ZADD', KEYS[2], ARGV[2], ids[1])
return {ids[1], body}
`)

// RedisOptions tunes a RedisQueue. Zero values select defaults.
type RedisOptions struct {
	Prefix       string
	PollInterval time.Duration
	Visibility   time.Duration
}

// RedisQueue keeps due times in a sorted set and job bodies in a hash, so
// scheduled stages survive restarts.
type RedisQueue struct {
	client     *goredis.Client
	due        string
	processing string
	jobs       string
	poll       time.Duration
	visibility time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue creates a queue on an existing client.
func NewRedisQueue(client *goredis.Client, opts RedisOptions, logger zerolog.Logger) *RedisQueue {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Visibility <= 0 {
		opts.Visibility = defaultVisibility
	}
	return &RedisQueue{
		client:     client,
		due:        opts.Prefix + "due",
		processing: opts.Prefix + "processing",
		jobs:       opts.Prefix + "jobs",
		poll:       opts.PollInterval,
		visibility: opts.Visibility,
		now:        time.Now,
		logger:     logger.With().Str("component", "redis_queue").Logger(),
	}
}

// DialRedis parses a redis:// URL and verifies connectivity.
func DialRedis(ctx context.Context, url string, logger zerolog.Logger) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	logger.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("redis connection established")
	return client, nil
}

// Enqueue implements Queue.
func (q *RedisQueue) Enqueue(ctx context.Context, job *Job, delay time.Duration) error {
	job.RunAt = q.now().Add(delay)
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, q.jobs, job.ID, body)
		p.ZAdd(ctx, q.due, goredis.Z{Score: float64(job.RunAt.UnixMilli()), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis enqueue: %w", err)
	}
	return nil
}

// Dequeue polls for a due job until ctx is done.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()
	for {
		job, err := q.claim(ctx)
		if err != nil || job != nil {
			return job, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *RedisQueue) claim(ctx context.Context) (*Job, error) {
	now := q.now()
	res, err := claimScript.Run(ctx, q.client,
		[]string{q.due, q.processing, q.jobs},
		now.UnixMilli(), now.Add(q.visibility).UnixMilli(),
	).StringSlice()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis claim: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("redis claim: unexpected reply of %d elements", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		q.logger.Error().Err(err).Str("job_id", res[0]).Msg("dropping undecodable job")
		return nil, q.Ack(ctx, &Job{ID: res[0]})
	}
	return &job, nil
}

// Ack removes a handled job.
func (q *RedisQueue) Ack(ctx context.Context, job *Job) error {
	_, err := q.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZRem(ctx, q.processing, job.ID)
		p.HDel(ctx, q.jobs, job.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis ack: %w", err)
	}
	return nil
}

// Len implements Queue.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.ZCard(ctx, q.due).Result()
	if err != nil {
		return 0, fmt.Errorf("redis len: %w", err)
	}
	return n, nil
}
