package music

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/technoflow/internal/retry"
	"github.com/BaSui01/technoflow/music/jobs"
	"github.com/BaSui01/technoflow/types"
)

// DefaultCacheTTL 确定性结果的缓存时间.
const DefaultCacheTTL = 24 * time.Hour

// cacheKeyPrefix namespaces generation results in the shared cache.
const cacheKeyPrefix = "generation:"

// Result 一次生成调用的结果.
type Result struct {
	Generation *Generation
	Outcome    jobs.Outcome
}

// StatusEntry 一次性状态查询中的单个任务.
type StatusEntry struct {
	ID       string  `json:"id"`
	Finished bool    `json:"finished"`
	Failed   bool    `json:"failed,omitempty"`
	Tracks   []Track `json:"tracks,omitempty"`
}

// CacheObserver 接收结果缓存的命中情况，metrics.Collector 实现了它.
type CacheObserver interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

const cacheType = "generation"

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPollOptions sets the wait budget of every generation.
func WithPollOptions(opts jobs.PollOptions) ServiceOption {
	return func(s *Service) { s.poll = opts }
}

// WithResultCache enables the deterministic result cache.
func WithResultCache(c ResultCache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithHistory records every generation.
func WithHistory(h HistoryRecorder) ServiceOption {
	return func(s *Service) { s.history = h }
}

// WithJobObserver forwards poller events, usually to metrics.
func WithJobObserver(o jobs.Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithRetryPolicy sets the submit retry policy.
func WithRetryPolicy(p *retry.Policy) ServiceOption {
	return func(s *Service) { s.retryPolicy = p }
}

// WithServiceClock replaces the wall clock, for tests.
func WithServiceClock(c jobs.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service 编排一次音乐生成：解析服务商、格式化 Prompt、查缓存、
// 带重试提交、等待完成、解码音轨、记录历史.
type Service struct {
	registry    *Registry
	poll        jobs.PollOptions
	cache       ResultCache
	cacheTTL    time.Duration
	history     HistoryRecorder
	observer    jobs.Observer
	retryPolicy *retry.Policy
	retryer     retry.Retryer
	clock       jobs.Clock
	logger      *zap.Logger
}

// NewService creates a generation service.
func NewService(registry *Registry, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		poll:     jobs.DefaultPollOptions(),
		cacheTTL: DefaultCacheTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "music_service"))
	s.retryer = retry.NewBackoffRetryer(s.retryPolicy, s.logger)
	return s
}

// Registry returns the provider registry.
func (s *Service) Registry() *Registry { return s.registry }

// PollOptions returns the configured wait budget.
func (s *Service) PollOptions() jobs.PollOptions { return s.poll }

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now()
}

func (s *Service) poller(p Provider) *jobs.Poller {
	opts := []jobs.Option{
		jobs.WithName(p.Name()),
		jobs.WithLogger(s.logger),
		jobs.WithClock(s.clock),
	}
	if s.observer != nil {
		opts = append(opts, jobs.WithObserver(s.observer))
	}
	return jobs.NewPoller(p, opts...)
}

// Generate runs one generation. The returned error is non-nil only for
// requests rejected before any remote call (unknown service, bad credential);
// every other result is described by Result.Outcome.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	provider, err := s.registry.Resolve(req.Service, req.Credential)
	if err != nil {
		return nil, err
	}

	style := ParseStyle(req.Style)
	seed := req.SeedOrRandom()
	gen := &Generation{
		ID:         uuid.NewString(),
		Service:    provider.Name(),
		Style:      string(style),
		UserPrompt: req.Prompt,
		Prompt:     provider.FormatPrompt(style, req.Prompt),
		Seed:       seed,
		Lyrics:     req.Lyrics,
		CreatedAt:  s.now().UTC(),
	}
	logger := s.logger.With(
		zap.String("generation_id", gen.ID),
		zap.String("provider", gen.Service),
		zap.String("style", gen.Style),
	)

	deterministic := seed != jobs.RandomSeed && s.cache != nil
	cacheKey := CacheKey(gen.Service, gen.Prompt, seed, req.Lyrics)
	if deterministic {
		if hit, ok := s.lookupCache(ctx, cacheKey, logger); ok {
			gen.JobIDs = hit.JobIDs
			gen.Tracks = hit.Tracks
			gen.State = jobs.StateCompleted.String()
			gen.Cached = true
			s.record(ctx, gen, logger)
			logger.Info("served from result cache", zap.Int("tracks", len(gen.Tracks)))
			return &Result{Generation: gen, Outcome: jobs.Outcome{State: jobs.StateCompleted}}, nil
		}
	}

	poller := s.poller(provider)
	submitReq := jobs.SubmitRequest{Prompt: gen.Prompt, Seed: seed, Lyrics: req.Lyrics}
	batch, err := retry.DoWithResultTyped(s.retryer, ctx, func() (*jobs.Batch, error) {
		return poller.Submit(ctx, submitReq)
	})

	var out jobs.Outcome
	switch {
	case err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)):
		out = poller.SubmitCancelled()
	case err != nil:
		out = poller.SubmitFailed(err)
	default:
		out = poller.AwaitCompletion(ctx, batch, s.poll)
	}

	gen.State = out.State.String()
	gen.JobIDs = out.JobIDs()
	gen.Elapsed = out.Elapsed
	gen.Queries = out.Queries
	if out.State != jobs.StateCompleted {
		gen.ErrorCode = string(out.Code())
		if out.Err != nil {
			gen.ErrorMessage = out.Err.Error()
		}
	} else {
		gen.Tracks = s.decode(provider, out.Results, gen, logger)
		if deterministic && len(gen.Tracks) > 0 {
			if err := s.cache.SetJSON(ctx, cacheKey, gen, s.cacheTTL); err != nil {
				logger.Warn("failed to cache generation", zap.Error(err))
			}
		}
	}

	s.record(ctx, gen, logger)
	return &Result{Generation: gen, Outcome: out}, nil
}

func (s *Service) lookupCache(ctx context.Context, key string, logger *zap.Logger) (*Generation, bool) {
	co, _ := s.observer.(CacheObserver)
	var hit Generation
	if err := s.cache.GetJSON(ctx, key, &hit); err != nil || len(hit.Tracks) == 0 {
		logger.Debug("result cache miss", zap.Error(err))
		if co != nil {
			co.RecordCacheMiss(cacheType)
		}
		return nil, false
	}
	if co != nil {
		co.RecordCacheHit(cacheType)
	}
	return &hit, true
}

// decode 解码全部结果；单个结果解码失败只记录日志并跳过.
func (s *Service) decode(p Provider, results []jobs.JobResult, gen *Generation, logger *zap.Logger) []Track {
	var tracks []Track
	for _, r := range results {
		decoded, err := p.DecodeTracks(r)
		if err != nil {
			logger.Warn("failed to decode job result", zap.String("job_id", r.ID), zap.Error(err))
			continue
		}
		for _, t := range decoded {
			t.Style = gen.Style
			t.Prompt = gen.Prompt
			if t.Lyrics == "" {
				t.Lyrics = gen.Lyrics
			}
			if t.Title == "" {
				t.Title = ParseStyle(gen.Style).Title() + " TECHNO - " + strings.TrimSpace(gen.UserPrompt)
			}
			if t.CreatedAt.IsZero() {
				t.CreatedAt = gen.CreatedAt
			}
			tracks = append(tracks, t)
		}
	}
	return tracks
}

func (s *Service) record(ctx context.Context, gen *Generation, logger *zap.Logger) {
	if s.history == nil {
		return
	}
	// a cancelled request is still worth a history row
	if err := s.history.Save(context.WithoutCancel(ctx), gen); err != nil {
		logger.Warn("failed to record generation", zap.Error(err))
	}
}

// Status performs a single status query for previously returned job IDs.
func (s *Service) Status(ctx context.Context, service, credential string, ids []string) ([]StatusEntry, error) {
	provider, err := s.registry.Resolve(service, credential)
	if err != nil {
		return nil, err
	}
	statuses, err := s.poller(provider).Inspect(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]StatusEntry, 0, len(statuses))
	for _, st := range statuses {
		e := StatusEntry{ID: st.ID, Finished: st.Finished, Failed: st.Failed}
		if st.Finished && len(st.Payload) > 0 {
			tracks, err := provider.DecodeTracks(jobs.JobResult{ID: st.ID, Payload: st.Payload})
			if err == nil {
				e.Tracks = tracks
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CacheKey derives the result cache key for a deterministic request.
func CacheKey(service, prompt string, seed int, lyrics string) string {
	h := sha256.New()
	for _, part := range []string{service, prompt, strconv.Itoa(seed), lyrics} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// IsInvalidRequest reports whether err rejected the request before any remote call.
func IsInvalidRequest(err error) bool {
	return types.IsErrorCode(err, types.ErrInvalidRequest)
}
