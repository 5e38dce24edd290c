package music

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BaSui01/technoflow/internal/tlsutil"
	"github.com/BaSui01/technoflow/internal/upstream"
	"github.com/BaSui01/technoflow/music/jobs"
)

// SunoProvider使用Suno API执行音乐生成.
type SunoProvider struct {
	cfg    SunoConfig
	apiKey string
	client *http.Client
}

// NewSunoProvider创建了新的Suno音乐提供商.
func NewSunoProvider(cfg SunoConfig, apiKey string) *SunoProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSunoConfig().BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultSunoConfig().Model
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SunoProvider{
		cfg:    cfg,
		apiKey: apiKey,
		client: tlsutil.SecureHTTPClient(timeout),
	}
}

func (p *SunoProvider) Name() string { return "suno" }

func (p *SunoProvider) FormatPrompt(style Style, text string) string {
	return sunoFormatter(style, text)
}

type sunoRequest struct {
	Prompt           string `json:"prompt"`
	MakeInstrumental bool   `json:"make_instrumental"`
	Tags             string `json:"tags,omitempty"`
	Model            string `json:"model,omitempty"`
	Lyrics           string `json:"lyrics,omitempty"`
	Seed             *int   `json:"seed,omitempty"`
}

type sunoClip struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	AudioURL string  `json:"audio_url"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Lyrics   string  `json:"lyrics"`
	Error    string  `json:"error,omitempty"`
}

type sunoResponse struct {
	ID    string     `json:"id"`
	Clips []sunoClip `json:"clips"`
}

type sunoTracksResponse struct {
	Tracks []json.RawMessage `json:"tracks"`
}

func (p *SunoProvider) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.apiKey)
	return h
}

// Submit 创建生成任务. Suno 一次请求通常返回两条 clip，每条 clip 是一个任务.
func (p *SunoProvider) Submit(ctx context.Context, req jobs.SubmitRequest) ([]string, error) {
	body := sunoRequest{
		Prompt:           req.Prompt,
		MakeInstrumental: req.Lyrics == "",
		Tags:             "techno, electronic, instrumental",
		Model:            p.cfg.Model,
		Lyrics:           req.Lyrics,
	}
	if req.Seed != jobs.RandomSeed {
		seed := req.Seed
		body.Seed = &seed
	}
	endpoint := fmt.Sprintf("%s/generate", strings.TrimRight(p.cfg.BaseURL, "/"))

	var resp sunoResponse
	if err := upstream.DoJSON(ctx, p.client, p.Name(), http.MethodPost, endpoint, p.headers(), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Clips) > 0 {
		ids := make([]string, 0, len(resp.Clips))
		for _, c := range resp.Clips {
			ids = append(ids, c.ID)
		}
		return ids, nil
	}
	if resp.ID == "" {
		return nil, nil
	}
	return []string{resp.ID}, nil
}

// Status 查询一批 clip 的状态.
func (p *SunoProvider) Status(ctx context.Context, ids []string) ([]jobs.JobStatus, error) {
	endpoint := fmt.Sprintf("%s/tracks?ids=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.QueryEscape(strings.Join(ids, ",")))

	var resp sunoTracksResponse
	if err := upstream.DoJSON(ctx, p.client, p.Name(), http.MethodGet, endpoint, p.headers(), nil, &resp); err != nil {
		return nil, err
	}

	statuses := make([]jobs.JobStatus, 0, len(resp.Tracks))
	for _, raw := range resp.Tracks {
		var clip sunoClip
		if err := json.Unmarshal(raw, &clip); err != nil {
			return nil, fmt.Errorf("failed to decode suno clip: %w", err)
		}
		statuses = append(statuses, jobs.JobStatus{
			ID:       clip.ID,
			Finished: sunoFinished(clip.Status),
			Failed:   sunoFailed(clip.Status),
			Payload:  raw,
		})
	}
	return statuses, nil
}

func sunoFinished(status string) bool {
	switch strings.ToLower(status) {
	case "complete", "completed", "success":
		return true
	}
	return false
}

func sunoFailed(status string) bool {
	switch strings.ToLower(status) {
	case "failed", "error":
		return true
	}
	return false
}

// DecodeTracks 将完成的 clip 解码为音轨.
func (p *SunoProvider) DecodeTracks(result jobs.JobResult) ([]Track, error) {
	var clip sunoClip
	if err := json.Unmarshal(result.Payload, &clip); err != nil {
		return nil, fmt.Errorf("failed to decode suno clip %s: %w", result.ID, err)
	}
	return []Track{{
		ID:       result.ID,
		Title:    clip.Title,
		AudioURL: clip.AudioURL,
		Duration: clip.Duration,
		Lyrics:   clip.Lyrics,
	}}, nil
}
