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

// UdioProvider 通过 Udio 的 Web API 生成音乐，凭证为 sb-api-auth-token Cookie.
type UdioProvider struct {
	cfg    UdioConfig
	token  string
	client *http.Client
}

// NewUdioProvider 创建新的 Udio 服务商.
func NewUdioProvider(cfg UdioConfig, token string) *UdioProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultUdioConfig().BaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &UdioProvider{
		cfg:    cfg,
		token:  token,
		client: tlsutil.SecureHTTPClient(timeout),
	}
}

func (p *UdioProvider) Name() string { return "udio" }

func (p *UdioProvider) FormatPrompt(style Style, text string) string {
	return udioFormatter(style, text)
}

type udioGenerateRequest struct {
	Prompt         string             `json:"prompt"`
	SamplerOptions udioSamplerOptions `json:"samplerOptions"`
	LyricInput     string             `json:"lyricInput,omitempty"`
}

type udioSamplerOptions struct {
	Seed int `json:"seed"`
}

type udioGenerateResponse struct {
	TrackIDs []string `json:"track_ids"`
}

type udioSong struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Finished        bool    `json:"finished"`
	SongPath        string  `json:"song_path"`
	Duration        float64 `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
	Lyrics          string  `json:"lyrics"`
	CreatedAt       string  `json:"created_at"`
	ErrorType       string  `json:"error_type"`
}

type udioSongsResponse struct {
	Songs []json.RawMessage `json:"songs"`
}

func (p *UdioProvider) headers(get bool) http.Header {
	h := http.Header{}
	if get {
		h.Set("Accept", "application/json, text/plain, */*")
	} else {
		h.Set("Accept", "application/json")
	}
	h.Set("Cookie", "; sb-api-auth-token="+p.token)
	h.Set("Origin", "https://www.udio.com")
	h.Set("Referer", "https://www.udio.com/my-creations")
	h.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Dest", "empty")
	return h
}

// Submit 提交生成请求，返回 track_ids.
func (p *UdioProvider) Submit(ctx context.Context, req jobs.SubmitRequest) ([]string, error) {
	body := udioGenerateRequest{
		Prompt:         req.Prompt,
		SamplerOptions: udioSamplerOptions{Seed: req.Seed},
		LyricInput:     req.Lyrics,
	}
	endpoint := fmt.Sprintf("%s/generate-proxy", strings.TrimRight(p.cfg.BaseURL, "/"))

	var resp udioGenerateResponse
	if err := upstream.DoJSON(ctx, p.client, p.Name(), http.MethodPost, endpoint, p.headers(false), body, &resp); err != nil {
		return nil, err
	}
	return resp.TrackIDs, nil
}

// Status 一次请求查询整批歌曲.
func (p *UdioProvider) Status(ctx context.Context, ids []string) ([]jobs.JobStatus, error) {
	endpoint := fmt.Sprintf("%s/songs?songIds=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.QueryEscape(strings.Join(ids, ",")))

	var resp udioSongsResponse
	if err := upstream.DoJSON(ctx, p.client, p.Name(), http.MethodGet, endpoint, p.headers(true), nil, &resp); err != nil {
		return nil, err
	}

	statuses := make([]jobs.JobStatus, 0, len(resp.Songs))
	for _, raw := range resp.Songs {
		var song udioSong
		if err := json.Unmarshal(raw, &song); err != nil {
			return nil, fmt.Errorf("failed to decode udio song: %w", err)
		}
		statuses = append(statuses, jobs.JobStatus{
			ID:       song.ID,
			Finished: song.Finished,
			Failed:   song.ErrorType != "",
			Payload:  raw,
		})
	}
	return statuses, nil
}

// DecodeTracks 将一首完成的歌曲解码为音轨.
func (p *UdioProvider) DecodeTracks(result jobs.JobResult) ([]Track, error) {
	var song udioSong
	if err := json.Unmarshal(result.Payload, &song); err != nil {
		return nil, fmt.Errorf("failed to decode udio song %s: %w", result.ID, err)
	}
	duration := song.DurationSeconds
	if duration == 0 {
		duration = song.Duration
	}
	track := Track{
		ID:       result.ID,
		Title:    song.Title,
		AudioURL: song.SongPath,
		Duration: duration,
		Lyrics:   song.Lyrics,
	}
	if t, err := time.Parse(time.RFC3339, song.CreatedAt); err == nil {
		track.CreatedAt = t
	}
	return []Track{track}, nil
}
