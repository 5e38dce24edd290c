package music

import (
	"context"
	"time"

	"github.com/BaSui01/technoflow/music/jobs"
)

// Provider is a remote music backend.
type Provider interface {
	jobs.Remote
	Name() string
	FormatPrompt(style Style, text string) string
	DecodeTracks(result jobs.JobResult) ([]Track, error)
}

// GenerateRequest 代表一次音乐生成请求.
type GenerateRequest struct {
	Service    string `json:"service"`
	Style      string `json:"style"`
	Prompt     string `json:"prompt"`
	Credential string `json:"-"`
	Seed       *int   `json:"seed,omitempty"`
	Lyrics     string `json:"lyrics,omitempty"`
}

// SeedOrRandom returns the pinned seed or jobs.RandomSeed.
func (r GenerateRequest) SeedOrRandom() int {
	if r.Seed == nil {
		return jobs.RandomSeed
	}
	return *r.Seed
}

// Track 代表一条已生成的音轨.
type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	AudioURL  string    `json:"audio_url,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
	Style     string    `json:"style,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Lyrics    string    `json:"lyrics,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Generation is the record of one generate call, whatever its outcome.
type Generation struct {
	ID           string        `json:"id"`
	Service      string        `json:"service"`
	Style        string        `json:"style"`
	UserPrompt   string        `json:"user_prompt"`
	Prompt       string        `json:"prompt"`
	Seed         int           `json:"seed"`
	Lyrics       string        `json:"lyrics,omitempty"`
	JobIDs       []string      `json:"job_ids,omitempty"`
	State        string        `json:"state"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Tracks       []Track       `json:"tracks,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
	Queries      int           `json:"status_queries"`
	Cached       bool          `json:"cached,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// HistoryRecorder persists generation records.
type HistoryRecorder interface {
	Save(ctx context.Context, g *Generation) error
}

// ResultCache stores completed deterministic generations.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
