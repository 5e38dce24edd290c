package music

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/technoflow/music/jobs"
)

// GenericProvider 包装 jobs.HTTPRemote，适配任意遵循通用契约的后端.
type GenericProvider struct {
	*jobs.HTTPRemote
}

// NewGenericProvider 创建通用后端服务商.
func NewGenericProvider(cfg GenericConfig, token string) *GenericProvider {
	return &GenericProvider{
		HTTPRemote: jobs.NewHTTPRemote("generic", cfg.SubmitURL, cfg.StatusURL, token, cfg.Timeout),
	}
}

func (p *GenericProvider) Name() string { return "generic" }

func (p *GenericProvider) FormatPrompt(style Style, text string) string {
	return genericFormatter(style, text)
}

type genericJob struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
}

// DecodeTracks 读取 audio_url（或 url）字段.
func (p *GenericProvider) DecodeTracks(result jobs.JobResult) ([]Track, error) {
	var job genericJob
	if err := json.Unmarshal(result.Payload, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", result.ID, err)
	}
	audio := job.AudioURL
	if audio == "" {
		audio = job.URL
	}
	return []Track{{
		ID:       result.ID,
		Title:    job.Title,
		AudioURL: audio,
		Duration: job.Duration,
	}}, nil
}
