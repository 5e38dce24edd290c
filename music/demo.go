package music

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/technoflow/music/jobs"
)

// DemoProvider 是进程内的模拟后端，用于无密钥体验与测试.
// 任务在被查询 FinishAfter 次后报告完成，创建超过 Retention 的任务会被清理.
type DemoProvider struct {
	cfg DemoConfig
	now func() time.Time

	mu        sync.Mutex
	polls     map[string]int
	jobs      map[string]demoJob
	lastSweep time.Time
}

type demoJob struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AudioURL  string    `json:"audio_url"`
	Duration  float64   `json:"duration"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDemoProvider 创建演示服务商.
func NewDemoProvider(cfg DemoConfig) *DemoProvider {
	def := DefaultDemoConfig()
	if cfg.TrackURL == "" {
		cfg.TrackURL = def.TrackURL
	}
	if cfg.Tracks <= 0 {
		cfg.Tracks = def.Tracks
	}
	if cfg.FinishAfter < 0 {
		cfg.FinishAfter = 0
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	return &DemoProvider{
		cfg:   cfg,
		now:   time.Now,
		polls: make(map[string]int),
		jobs:  make(map[string]demoJob),
	}
}

// sweepInterval 两次清理之间的最小间隔
func (p *DemoProvider) sweepInterval() time.Duration {
	if p.cfg.Retention < time.Minute {
		return p.cfg.Retention
	}
	return time.Minute
}

// sweep 删除过期任务，调用方持有 p.mu.
func (p *DemoProvider) sweep(now time.Time) {
	if now.Sub(p.lastSweep) < p.sweepInterval() {
		return
	}
	p.lastSweep = now
	cutoff := now.Add(-p.cfg.Retention)
	for id, job := range p.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(p.jobs, id)
			delete(p.polls, id)
		}
	}
}

// Len 返回当前保留的任务数.
func (p *DemoProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

func (p *DemoProvider) Name() string { return "demo" }

func (p *DemoProvider) FormatPrompt(style Style, text string) string {
	return genericFormatter(style, text)
}

// Submit implements jobs.Remote.
func (p *DemoProvider) Submit(ctx context.Context, req jobs.SubmitRequest) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := p.now().UTC()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweep(now)

	ids := make([]string, 0, p.cfg.Tracks)
	for i := 0; i < p.cfg.Tracks; i++ {
		id := uuid.NewString()
		p.jobs[id] = demoJob{
			ID:        id,
			Title:     fmt.Sprintf("Demo TECHNO #%d", i+1),
			AudioURL:  p.cfg.TrackURL,
			Duration:  30,
			Prompt:    req.Prompt,
			CreatedAt: now,
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Status implements jobs.Remote. Unknown and expired IDs are omitted from the
// response.
func (p *DemoProvider) Status(ctx context.Context, ids []string) ([]jobs.JobStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := p.now().UTC()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweep(now)

	statuses := make([]jobs.JobStatus, 0, len(ids))
	for _, id := range ids {
		job, ok := p.jobs[id]
		if !ok {
			continue
		}
		p.polls[id]++
		st := jobs.JobStatus{ID: id, Finished: p.polls[id] >= p.cfg.FinishAfter}
		if st.Finished {
			payload, err := json.Marshal(job)
			if err != nil {
				return nil, err
			}
			st.Payload = payload
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// DecodeTracks implements Provider.
func (p *DemoProvider) DecodeTracks(result jobs.JobResult) ([]Track, error) {
	var job demoJob
	if err := json.Unmarshal(result.Payload, &job); err != nil {
		return nil, fmt.Errorf("failed to decode demo job %s: %w", result.ID, err)
	}
	return []Track{{
		ID:        job.ID,
		Title:     job.Title,
		AudioURL:  job.AudioURL,
		Duration:  job.Duration,
		CreatedAt: job.CreatedAt,
	}}, nil
}
