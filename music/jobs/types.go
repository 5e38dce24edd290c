package jobs

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"
)

// RandomSeed lets the remote service pick the seed. Any other value pins
// deterministic generation where the remote supports it.
const RandomSeed = -1

// SubmitRequest 提交到远端的生成参数.
type SubmitRequest struct {
	Prompt string `json:"prompt"`
	Seed   int    `json:"seed"`
	Lyrics string `json:"lyrics,omitempty"`
}

// Remote is the contract of an asynchronous generation backend.
type Remote interface {
	// Submit creates jobs for one request and returns their identifiers.
	Submit(ctx context.Context, req SubmitRequest) ([]string, error)
	// Status reports the state of every listed job in one call.
	Status(ctx context.Context, ids []string) ([]JobStatus, error)
}

// JobStatus is one row of a status response.
type JobStatus struct {
	ID       string          `json:"id"`
	Finished bool            `json:"finished"`
	Failed   bool            `json:"failed,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// JobResult 已完成任务的结果，Payload 由具体服务商定义.
type JobResult struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Job is the poll-loop view of a single remote job.
type Job struct {
	ID          string          `json:"id"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Finished    bool            `json:"finished"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Batch is the immutable set of job IDs created by one submission.
type Batch struct {
	ids         []string
	submittedAt time.Time
	awaited     atomic.Bool
}

// NewBatch builds a batch from identifiers reported by a remote. The slice is
// copied so later changes by the caller do not leak into the batch.
func NewBatch(ids []string, submittedAt time.Time) *Batch {
	cp := make([]string, len(ids))
	copy(cp, ids)
	return &Batch{ids: cp, submittedAt: submittedAt}
}

// IDs returns a copy of the job identifiers in submission order.
func (b *Batch) IDs() []string {
	cp := make([]string, len(b.ids))
	copy(cp, b.ids)
	return cp
}

// Len returns the number of jobs in the batch.
func (b *Batch) Len() int { return len(b.ids) }

// SubmittedAt returns the time the remote accepted the submission.
func (b *Batch) SubmittedAt() time.Time { return b.submittedAt }

// claim marks the batch as awaited; only the first caller wins.
func (b *Batch) claim() bool {
	return b.awaited.CompareAndSwap(false, true)
}
