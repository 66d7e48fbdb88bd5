// Package jobs holds the job posting core: the filter builder, the Postgres
// repository, and the Service the transports call.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis channels for job change events.
const (
	EventJobCreated = "EVENT_JOB_CREATED"
	EventJobUpdated = "EVENT_JOB_UPDATED"
	EventJobDeleted = "EVENT_JOB_DELETED"
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Store is the persistence surface the Service drives. *Repository implements it.
type Store interface {
	Create(ctx context.Context, nj NewJob) (*Job, error)
	FindAll(ctx context.Context) ([]Job, error)
	Filter(ctx context.Context, opts FilterOptions) ([]Job, error)
	Get(ctx context.Context, id int) (*JobDetail, error)
	Update(ctx context.Context, id int, patch JobPatch) (*Job, error)
	Remove(ctx context.Context, id int) error
}

// Service encapsulates the job operations exposed to HTTP and gRPC.
// It has no dependency on net/http. Redis is optional: with a nil client,
// events and caching are skipped. With a client, updates and removes fail
// when the cache cannot be invalidated first.
type Service struct {
	store    Store
	rdb      *redis.Client
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewService returns a configured Service.
func NewService(store Store, rdb *redis.Client, cacheTTL time.Duration, log *zap.Logger) *Service {
	return &Service{store: store, rdb: rdb, cacheTTL: cacheTTL, log: log.Named("jobs")}
}

// ─── Business logic ───────────────────────────────────────────────────────────

// CreateJob persists a new job and publishes EVENT_JOB_CREATED.
func (s *Service) CreateJob(ctx context.Context, nj NewJob) (*Job, error) {
	job, err := s.store.Create(ctx, nj)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventJobCreated, job.ID)
	return job, nil
}

// ListJobs returns all jobs ordered by title.
func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	return s.store.FindAll(ctx)
}

// FilterJobs returns the jobs matching opts. ErrNotFound when none match.
func (s *Service) FilterJobs(ctx context.Context, opts FilterOptions) ([]Job, error) {
	return s.store.Filter(ctx, opts)
}

// GetJob returns a job with its company, served from cache when possible.
func (s *Service) GetJob(ctx context.Context, id int) (*JobDetail, error) {
	ver, cacheable := s.cacheVersion(ctx, id)
	if cacheable {
		if d, ok := s.cached(ctx, id, ver); ok {
			return d, nil
		}
	}
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache(ctx, d, ver)
	}
	return d, nil
}

// UpdateJob applies patch to job id, invalidates its cache entry and publishes
// EVENT_JOB_UPDATED.
func (s *Service) UpdateJob(ctx context.Context, id int, patch JobPatch) (*Job, error) {
	if patch.Empty() {
		return nil, &ValidationError{Msg: "no data"}
	}
	if err := s.beginWrite(ctx, id); err != nil {
		return nil, err
	}
	defer s.endWrite(context.WithoutCancel(ctx), id)

	job, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventJobUpdated, id)
	return job, nil
}

// RemoveJob deletes job id, invalidates its cache entry and publishes
// EVENT_JOB_DELETED.
func (s *Service) RemoveJob(ctx context.Context, id int) error {
	if err := s.beginWrite(ctx, id); err != nil {
		return err
	}
	defer s.endWrite(context.WithoutCancel(ctx), id)

	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, EventJobDeleted, id)
	return nil
}

// ─── Detail cache ─────────────────────────────────────────────────────────────
//
// Each job id has three keys: the cached detail, a version that only grows,
// and a count of writes in flight. beginWrite bumps the version and the
// count before the store is touched, so any entry written earlier stops
// matching. Readers fill the cache only when no write is in flight and only
// if the version is unchanged at SET time (WATCH). A failed endWrite leaves
// the count raised, which disables caching for that id until the count key
// expires.

// cacheEntry is the stored form of a detail entry.
type cacheEntry struct {
	Version int64      `json:"v"`
	Job     *JobDetail `json:"job"`
}

func detailKey(id int) string  { return "jobs:detail:" + strconv.Itoa(id) }
func versionKey(id int) string { return "jobs:version:" + strconv.Itoa(id) }
func writersKey(id int) string { return "jobs:writers:" + strconv.Itoa(id) }

// cacheVersion snapshots the version of id. cacheable is false when Redis is
// absent or failing, or a write on id is in flight.
func (s *Service) cacheVersion(ctx context.Context, id int) (ver int64, cacheable bool) {
	if s.rdb == nil {
		return 0, false
	}
	vals, err := s.rdb.MGet(ctx, versionKey(id), writersKey(id)).Result()
	if err != nil {
		s.log.Warn("cache version read failed", zap.Int("jobId", id), zap.Error(err))
		return 0, false
	}
	ver, err = counter(vals[0])
	if err != nil {
		return 0, false
	}
	writers, err := counter(vals[1])
	if err != nil || writers > 0 {
		return 0, false
	}
	return ver, true
}

func counter(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	str, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected counter type %T", v)
	}
	return strconv.ParseInt(str, 10, 64)
}

func (s *Service) cached(ctx context.Context, id int, ver int64) (*JobDetail, bool) {
	raw, err := s.rdb.Get(ctx, detailKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("cache read failed", zap.Int("jobId", id), zap.Error(err))
		}
		return nil, false
	}
	var e cacheEntry
	if err := json.Unmarshal(raw, &e); err != nil || e.Job == nil {
		s.log.Warn("cache entry corrupt", zap.Int("jobId", id), zap.Error(err))
		return nil, false
	}
	if e.Version != ver {
		return nil, false
	}
	return e.Job, true
}

// errVersionMoved aborts a cache fill that raced with a write.
var errVersionMoved = errors.New("version moved")

func (s *Service) cache(ctx context.Context, d *JobDetail, ver int64) {
	raw, err := json.Marshal(cacheEntry{Version: ver, Job: d})
	if err != nil {
		return
	}
	vk, wk := versionKey(d.ID), writersKey(d.ID)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.MGet(ctx, vk, wk).Result()
		if err != nil {
			return err
		}
		cur, err := counter(vals[0])
		if err != nil {
			return err
		}
		writers, err := counter(vals[1])
		if err != nil {
			return err
		}
		if cur != ver || writers > 0 {
			return errVersionMoved
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, detailKey(d.ID), raw, s.cacheTTL)
			return nil
		})
		return err
	}, vk, wk)
	switch {
	case err == nil, errors.Is(err, errVersionMoved), errors.Is(err, redis.TxFailedErr):
	default:
		s.log.Warn("cache write failed", zap.Int("jobId", d.ID), zap.Error(err))
	}
}

// beginWrite invalidates id before a store write. It must succeed, otherwise
// a stale entry could outlive the write.
func (s *Service) beginWrite(ctx context.Context, id int) error {
	if s.rdb == nil {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, versionKey(id))
		// outlives every entry tagged with an older version
		p.Expire(ctx, versionKey(id), 2*s.cacheTTL)
		p.Incr(ctx, writersKey(id))
		p.Expire(ctx, writersKey(id), s.cacheTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate job %d cache: %w", id, err)
	}
	return nil
}

// releaseWrite decrements the in-flight count, deleting it at zero so a count
// that expired mid-write never goes negative, and drops the detail entry.
var releaseWrite = redis.NewScript(`
local n = redis.call('DECR', KEYS[1])
if n <= 0 then redis.call('DEL', KEYS[1]) end
redis.call('DEL', KEYS[2])
return n
`)

// endWrite releases the in-flight mark taken by beginWrite.
func (s *Service) endWrite(ctx context.Context, id int) {
	if s.rdb == nil {
		return
	}
	if err := releaseWrite.Run(ctx, s.rdb, []string{writersKey(id), detailKey(id)}).Err(); err != nil {
		s.log.Warn("cache release failed", zap.Int("jobId", id), zap.Error(err))
	}
}

// ─── Events ──────────────────────────────────────────────────────────────────

func (s *Service) publish(ctx context.Context, channel string, id int) {
	if s.rdb == nil {
		return
	}
	event, _ := json.Marshal(map[string]any{
		"type":  channel,
		"jobId": id,
		"at":    time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.rdb.Publish(ctx, channel, event).Err(); err != nil {
		s.log.Warn("publish failed", zap.String("channel", channel), zap.Error(err))
	}
}
