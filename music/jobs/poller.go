package jobs

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/technoflow/types"
)

// 默认轮询参数，与原有服务的 5 秒间隔 / 5 分钟上限一致.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 300 * time.Second
)

// PollOptions bounds one await call.
type PollOptions struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
	MaxWait  time.Duration `json:"max_wait" yaml:"max_wait"`
}

// DefaultPollOptions 返回默认轮询参数.
func DefaultPollOptions() PollOptions {
	return PollOptions{Interval: DefaultPollInterval, MaxWait: DefaultMaxWait}
}

func (o PollOptions) normalize() PollOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	return o
}

// Observer receives poller events, typically a metrics collector.
type Observer interface {
	ObserveSubmit(remote string, d time.Duration, err error)
	ObserveStatusQuery(remote string, d time.Duration, err error)
	ObserveOutcome(remote string, o Outcome)
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithObserver attaches an event observer.
func WithObserver(o Observer) Option {
	return func(p *Poller) { p.observer = o }
}

// WithName sets the remote name used in logs, spans and metrics.
func WithName(name string) Option {
	return func(p *Poller) { p.name = name }
}

// Poller submits generation requests to a Remote and waits for the resulting
// batch. It holds only immutable dependencies and is safe for concurrent use;
// each call owns its own batch and loop state.
type Poller struct {
	remote   Remote
	name     string
	clock    Clock
	observer Observer
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewPoller creates a poller for the given remote.
func NewPoller(remote Remote, opts ...Option) *Poller {
	p := &Poller{
		remote: remote,
		name:   "remote",
		clock:  realClock{},
		logger: zap.NewNop(),
		tracer: otel.Tracer("technoflow/jobs"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "job_poller"), zap.String("remote", p.name))
	return p
}

// Name returns the remote name.
func (p *Poller) Name() string { return p.name }

// =============================================================================
// 🚀 提交
// =============================================================================

// Submit sends one generation request. Failures come back as a *types.Error
// with code SUBMISSION_FAILED; nothing is retried here.
func (p *Poller) Submit(ctx context.Context, req SubmitRequest) (*Batch, error) {
	ctx, span := p.tracer.Start(ctx, "jobs.Submit", trace.WithAttributes(
		attribute.String("remote", p.name),
		attribute.Int("seed", req.Seed),
	))
	defer span.End()

	start := p.clock.Now()
	ids, err := p.remote.Submit(ctx, req)
	if err == nil && len(ids) == 0 {
		err = errors.New("remote returned no job ids")
	}
	p.observeSubmit(p.clock.Now().Sub(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		p.logger.Warn("submission failed", zap.Error(err))
		return nil, types.NewError(types.ErrSubmissionFailed, "remote rejected or was unreachable at submit time").
			WithCause(err).
			WithRetryable(types.IsRetryable(err)).
			WithProvider(p.name)
	}

	batch := NewBatch(ids, p.clock.Now())
	span.SetAttributes(attribute.Int("batch.size", batch.Len()))
	p.logger.Info("jobs submitted", zap.Strings("job_ids", ids))
	return batch, nil
}

// =============================================================================
// ⏳ 等待完成
// =============================================================================

// AwaitCompletion polls the batch until every job reports finished in a single
// status response, the wait budget runs out, a status query fails, or ctx is
// cancelled. A batch can be awaited only once.
func (p *Poller) AwaitCompletion(ctx context.Context, batch *Batch, opts PollOptions) Outcome {
	opts = opts.normalize()

	if batch == nil || batch.Len() == 0 {
		return Outcome{
			State: StateFailed,
			Batch: batch,
			Err:   types.NewError(types.ErrInvalidRequest, "empty batch").WithProvider(p.name),
		}
	}
	if !batch.claim() {
		return Outcome{
			State: StateFailed,
			Batch: batch,
			Err:   types.NewError(types.ErrInvalidRequest, "batch already awaited").WithProvider(p.name),
		}
	}

	ctx, span := p.tracer.Start(ctx, "jobs.AwaitCompletion", trace.WithAttributes(
		attribute.String("remote", p.name),
		attribute.Int("batch.size", batch.Len()),
		attribute.Int64("poll.interval_ms", opts.Interval.Milliseconds()),
		attribute.Int64("poll.max_wait_ms", opts.MaxWait.Milliseconds()),
	))
	defer span.End()

	m := &machine{state: StateSubmitted, onMove: func(from, to State) {
		span.AddEvent("transition", trace.WithAttributes(
			attribute.String("from", from.String()),
			attribute.String("to", to.String()),
		))
	}}
	tr := newTracker(batch)
	deadline := batch.SubmittedAt().Add(opts.MaxWait)

	finish := func(state State, results []JobResult, err *types.Error) Outcome {
		m.to(state)
		out := Outcome{
			State:   state,
			Batch:   batch,
			Results: results,
			Jobs:    tr.snapshot(),
			Elapsed: p.clock.Now().Sub(batch.SubmittedAt()),
			Queries: tr.queries,
			Err:     err,
		}
		span.SetAttributes(
			attribute.String("outcome", state.String()),
			attribute.Int("poll.queries", out.Queries),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(err.Code))
		}
		p.logOutcome(out)
		if p.observer != nil {
			p.observer.ObserveOutcome(p.name, out)
		}
		return out
	}

	for {
		if ctx.Err() != nil {
			return finish(StateCancelled, nil, nil)
		}
		if !p.clock.Now().Before(deadline) {
			return finish(StateTimedOut, nil, nil)
		}
		if m.state == StateSubmitted {
			m.to(StatePolling)
		}

		start := p.clock.Now()
		statuses, err := p.remote.Status(ctx, batch.ids)
		tr.queries++
		p.observeStatus(p.clock.Now().Sub(start), err)

		if err != nil {
			if ctx.Err() != nil {
				return finish(StateCancelled, nil, nil)
			}
			return finish(StateFailed, nil, types.NewError(types.ErrStatusQueryFailed, "status query failed").
				WithCause(err).
				WithRetryable(types.IsRetryable(err)).
				WithProvider(p.name))
		}

		results, complete, failed := tr.observe(statuses)
		if failed != nil {
			return finish(StateFailed, nil, types.NewError(types.ErrGenerationFailed, "remote reported job "+failed.ID+" as failed").
				WithProvider(p.name))
		}
		if complete {
			return finish(StateCompleted, results, nil)
		}

		p.logger.Debug("batch not finished yet",
			zap.Int("query", tr.queries),
			zap.Int("finished", len(results)),
			zap.Int("batch_size", batch.Len()),
		)

		wait := opts.Interval
		if remaining := deadline.Sub(p.clock.Now()); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return finish(StateCancelled, nil, nil)
		case <-p.clock.After(wait):
		}
	}
}

// Run submits the request and waits for the batch. A submit failure yields a
// Failed outcome without any status query; a context cancelled during the
// submit yields Cancelled.
func (p *Poller) Run(ctx context.Context, req SubmitRequest, opts PollOptions) Outcome {
	batch, err := p.Submit(ctx, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return p.SubmitCancelled()
		}
		return p.SubmitFailed(err)
	}
	return p.AwaitCompletion(ctx, batch, opts)
}

// SubmitCancelled reports a submit abandoned by the caller as Cancelled.
func (p *Poller) SubmitCancelled() Outcome {
	out := Outcome{State: StateCancelled}
	if p.observer != nil {
		p.observer.ObserveOutcome(p.name, out)
	}
	return out
}

// SubmitFailed turns a Submit error into a Failed outcome and reports it to
// the observer. Callers that retry Submit themselves use it once they give up.
func (p *Poller) SubmitFailed(err error) Outcome {
	apiErr, ok := types.AsError(err)
	if !ok || apiErr.Code != types.ErrSubmissionFailed {
		apiErr = types.NewError(types.ErrSubmissionFailed, "submission failed").
			WithCause(err).
			WithProvider(p.name)
	}
	out := Outcome{State: StateFailed, Err: apiErr}
	if p.observer != nil {
		p.observer.ObserveOutcome(p.name, out)
	}
	return out
}

// Inspect performs one status query for the given IDs without any batch
// lifecycle. Used by "check back later" lookups.
func (p *Poller) Inspect(ctx context.Context, ids []string) ([]JobStatus, error) {
	if len(ids) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "no job ids given")
	}
	start := p.clock.Now()
	statuses, err := p.remote.Status(ctx, ids)
	p.observeStatus(p.clock.Now().Sub(start), err)
	if err != nil {
		return nil, types.NewError(types.ErrStatusQueryFailed, "status query failed").
			WithCause(err).
			WithRetryable(types.IsRetryable(err)).
			WithProvider(p.name)
	}
	return statuses, nil
}

func (p *Poller) observeSubmit(d time.Duration, err error) {
	if p.observer != nil {
		p.observer.ObserveSubmit(p.name, d, err)
	}
}

func (p *Poller) observeStatus(d time.Duration, err error) {
	if p.observer != nil {
		p.observer.ObserveStatusQuery(p.name, d, err)
	}
}

func (p *Poller) logOutcome(o Outcome) {
	fields := []zap.Field{
		zap.String("state", o.State.String()),
		zap.Int("queries", o.Queries),
		zap.Duration("elapsed", o.Elapsed),
	}
	switch o.State {
	case StateCompleted:
		p.logger.Info("batch completed", append(fields, zap.Int("results", len(o.Results)))...)
	case StateFailed:
		p.logger.Warn("batch failed", append(fields, zap.Error(o.Err))...)
	default:
		p.logger.Info("batch ended", fields...)
	}
}

// =============================================================================
// 🔧 批次跟踪
// =============================================================================

// tracker holds per-job state for one await call.
type tracker struct {
	order   []string
	jobs    map[string]*Job
	queries int
}

func newTracker(b *Batch) *tracker {
	t := &tracker{jobs: make(map[string]*Job, len(b.ids))}
	for _, id := range b.ids {
		if _, dup := t.jobs[id]; dup {
			continue
		}
		t.order = append(t.order, id)
		t.jobs[id] = &Job{ID: id, SubmittedAt: b.submittedAt}
	}
	return t
}

// observe applies one status response. It returns the finished results in
// response order, whether every batch job finished in this response, and the
// first job the remote reported as failed.
func (t *tracker) observe(statuses []JobStatus) ([]JobResult, bool, *JobStatus) {
	finishedNow := make(map[string]struct{}, len(t.order))
	var results []JobResult

	for i := range statuses {
		s := &statuses[i]
		job, ok := t.jobs[s.ID]
		if !ok {
			continue
		}
		if s.Failed {
			return nil, false, s
		}
		if !s.Finished {
			continue
		}
		// finished is sticky: a later false report never clears it
		job.Finished = true
		job.Result = s.Payload
		if _, seen := finishedNow[s.ID]; seen {
			continue
		}
		finishedNow[s.ID] = struct{}{}
		results = append(results, JobResult{ID: s.ID, Payload: s.Payload})
	}

	return results, len(finishedNow) == len(t.order), nil
}

func (t *tracker) snapshot() []Job {
	out := make([]Job, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.jobs[id])
	}
	return out
}
