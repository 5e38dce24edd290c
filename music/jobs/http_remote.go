package jobs

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
)

// HTTPRemote talks to any backend that follows the plain submit/status
// contract:
//
//	POST <submit>           {prompt, seed, lyrics?}  -> {job_ids: [...]}
//	GET  <status>?ids=a,b                            -> {jobs: [{id, finished, failed?, ...}]}
type HTTPRemote struct {
	name      string
	submitURL string
	statusURL string
	token     string
	client    *http.Client
}

// NewHTTPRemote 创建通用 HTTP 远端；token 为空时不发送 Authorization.
func NewHTTPRemote(name, submitURL, statusURL, token string, timeout time.Duration) *HTTPRemote {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRemote{
		name:      name,
		submitURL: submitURL,
		statusURL: statusURL,
		token:     token,
		client:    tlsutil.SecureHTTPClient(timeout),
	}
}

type httpSubmitResponse struct {
	JobIDs []string `json:"job_ids"`
}

type httpStatusResponse struct {
	Jobs []json.RawMessage `json:"jobs"`
}

func (r *HTTPRemote) headers() http.Header {
	h := http.Header{}
	if r.token != "" {
		h.Set("Authorization", "Bearer "+r.token)
	}
	return h
}

// Submit implements Remote.
func (r *HTTPRemote) Submit(ctx context.Context, req SubmitRequest) ([]string, error) {
	var resp httpSubmitResponse
	if err := upstream.DoJSON(ctx, r.client, r.name, http.MethodPost, r.submitURL, r.headers(), req, &resp); err != nil {
		return nil, err
	}
	return resp.JobIDs, nil
}

// Status implements Remote.
func (r *HTTPRemote) Status(ctx context.Context, ids []string) ([]JobStatus, error) {
	sep := "?"
	if strings.Contains(r.statusURL, "?") {
		sep = "&"
	}
	endpoint := fmt.Sprintf("%s%sids=%s", r.statusURL, sep, url.QueryEscape(strings.Join(ids, ",")))

	var resp httpStatusResponse
	if err := upstream.DoJSON(ctx, r.client, r.name, http.MethodGet, endpoint, r.headers(), nil, &resp); err != nil {
		return nil, err
	}

	statuses := make([]JobStatus, 0, len(resp.Jobs))
	for _, raw := range resp.Jobs {
		var st JobStatus
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, fmt.Errorf("failed to decode job status: %w", err)
		}
		// the whole job object is the payload
		st.Payload = raw
		statuses = append(statuses, st)
	}
	return statuses, nil
}
