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

// ReplicateProvider 通过 Replicate predictions 接口运行 MusicGen.
type ReplicateProvider struct {
	cfg    ReplicateConfig
	token  string
	client *http.Client
}

// NewReplicateProvider 创建新的 Replicate 服务商.
func NewReplicateProvider(cfg ReplicateConfig, token string) *ReplicateProvider {
	def := DefaultReplicateConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ReplicateProvider{
		cfg:    cfg,
		token:  token,
		client: tlsutil.SecureHTTPClient(timeout),
	}
}

func (p *ReplicateProvider) Name() string { return "replicate" }

func (p *ReplicateProvider) FormatPrompt(style Style, text string) string {
	return replicateFormatter(style, text)
}

type replicateInput struct {
	Prompt       string `json:"prompt"`
	Duration     int    `json:"duration"`
	ModelVersion string `json:"model_version,omitempty"`
	Seed         *int   `json:"seed,omitempty"`
}

type replicateRequest struct {
	Version string         `json:"version"`
	Input   replicateInput `json:"input"`
}

type replicatePrediction struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Output    json.RawMessage `json:"output,omitempty"`
	Error     interface{}     `json:"error,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
}

func (p *ReplicateProvider) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Token "+p.token)
	return h
}

func (p *ReplicateProvider) base() string {
	return strings.TrimRight(p.cfg.BaseURL, "/")
}

// Submit 创建一个 prediction.
func (p *ReplicateProvider) Submit(ctx context.Context, req jobs.SubmitRequest) ([]string, error) {
	body := replicateRequest{
		Version: p.cfg.Version,
		Input: replicateInput{
			Prompt:       req.Prompt,
			Duration:     p.cfg.Duration,
			ModelVersion: p.cfg.Model,
		},
	}
	if req.Seed != jobs.RandomSeed {
		seed := req.Seed
		body.Input.Seed = &seed
	}

	var pred replicatePrediction
	if err := upstream.DoJSON(ctx, p.client, p.Name(), http.MethodPost, p.base()+"/predictions", p.headers(), body, &pred); err != nil {
		return nil, err
	}
	if pred.ID == "" {
		return nil, nil
	}
	return []string{pred.ID}, nil
}

// Status 逐个读取 prediction；一批通常只有一个.
func (p *ReplicateProvider) Status(ctx context.Context, ids []string) ([]jobs.JobStatus, error) {
	statuses := make([]jobs.JobStatus, 0, len(ids))
	for _, id := range ids {
		var raw json.RawMessage
		endpoint := fmt.Sprintf("%s/predictions/%s", p.base(), url.PathEscape(id))
		if err := upstream.DoJSON(ctx, p.client, p.Name(), http.MethodGet, endpoint, p.headers(), nil, &raw); err != nil {
			return nil, err
		}
		var pred replicatePrediction
		if err := json.Unmarshal(raw, &pred); err != nil {
			return nil, fmt.Errorf("failed to decode replicate prediction: %w", err)
		}
		statuses = append(statuses, jobs.JobStatus{
			ID:       pred.ID,
			Finished: pred.Status == "succeeded",
			Failed:   pred.Status == "failed" || pred.Status == "canceled",
			Payload:  raw,
		})
	}
	return statuses, nil
}

// DecodeTracks 解析 output，兼容单个 URL 与 URL 数组两种形式.
func (p *ReplicateProvider) DecodeTracks(result jobs.JobResult) ([]Track, error) {
	var pred replicatePrediction
	if err := json.Unmarshal(result.Payload, &pred); err != nil {
		return nil, fmt.Errorf("failed to decode replicate prediction %s: %w", result.ID, err)
	}

	var urls []string
	var single string
	switch {
	case len(pred.Output) == 0 || string(pred.Output) == "null":
		return nil, fmt.Errorf("replicate prediction %s has no output", result.ID)
	case json.Unmarshal(pred.Output, &single) == nil:
		urls = []string{single}
	case json.Unmarshal(pred.Output, &urls) == nil:
	default:
		return nil, fmt.Errorf("unexpected replicate output for %s", result.ID)
	}

	createdAt, _ := time.Parse(time.RFC3339, pred.CreatedAt)
	tracks := make([]Track, 0, len(urls))
	for i, u := range urls {
		id := result.ID
		if len(urls) > 1 {
			id = fmt.Sprintf("%s-%d", result.ID, i)
		}
		tracks = append(tracks, Track{
			ID:        id,
			AudioURL:  u,
			Duration:  float64(p.cfg.Duration),
			CreatedAt: createdAt,
		})
	}
	return tracks, nil
}
