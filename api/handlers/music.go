package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/technoflow/api"
	"github.com/BaSui01/technoflow/music"
	"github.com/BaSui01/technoflow/music/jobs"
	"github.com/BaSui01/technoflow/types"
	"go.uber.org/zap"
)

const (
	// ProviderTokenHeader 一次性状态查询携带服务商凭据的请求头
	ProviderTokenHeader = "X-Provider-Token"

	maxPromptLength = 1000
	maxLyricsLength = 5000
	maxStatusIDs    = 50
)

// =============================================================================
// 🎵 音乐生成 Handler
// =============================================================================

// MusicHandler 音乐生成接口处理器
type MusicHandler struct {
	service *music.Service
	logger  *zap.Logger
}

// NewMusicHandler 创建音乐生成处理器
func NewMusicHandler(service *music.Service, logger *zap.Logger) *MusicHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MusicHandler{
		service: service,
		logger:  logger.With(zap.String("component", "music_handler")),
	}
}

// HandleIndex 处理 / 请求，返回服务说明
// @Summary 服务首页
// @Tags 音乐
// @Produce json
// @Success 200 {object} Response "服务说明"
// @Router / [get]
func (h *MusicHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "route not found", nil)
		return
	}

	services := make([]string, 0)
	for _, info := range h.service.Registry().List() {
		services = append(services, info.Name)
	}
	styles := make([]string, 0)
	for _, s := range music.Styles() {
		styles = append(styles, string(s))
	}

	WriteSuccess(w, map[string]any{
		"service":  ServiceName,
		"message":  "POST /generate with JSON {\"service\": \"udio\", \"style\": \"minimal\", \"prompt\": \"dark warehouse vibes\", \"auth_token\": \"...\"}",
		"services": services,
		"styles":   styles,
		"poll": map[string]string{
			"interval": h.service.PollOptions().Interval.String(),
			"max_wait": h.service.PollOptions().MaxWait.String(),
		},
	})
}

// HandleServices 处理 /services 请求
// @Summary 服务商列表
// @Tags 音乐
// @Produce json
// @Success 200 {object} Response "服务商列表"
// @Router /services [get]
func (h *MusicHandler) HandleServices(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.service.Registry().List())
}

// HandleStyles 处理 /styles 请求
// @Summary 风格预设列表
// @Tags 音乐
// @Produce json
// @Success 200 {object} Response "风格列表"
// @Router /styles [get]
func (h *MusicHandler) HandleStyles(w http.ResponseWriter, r *http.Request) {
	styles := make([]api.StyleInfo, 0, len(music.Styles()))
	for _, s := range music.Styles() {
		styles = append(styles, api.StyleInfo{
			Name:        string(s),
			Title:       s.Title(),
			Description: music.StyleDescription(s),
		})
	}
	WriteSuccess(w, styles)
}

// HandleTest 处理 /test 请求，只检查凭据格式，不访问远端
// @Summary 凭据检查
// @Tags 音乐
// @Accept json
// @Produce json
// @Param request body api.TestRequest true "凭据"
// @Success 200 {object} Response "凭据格式有效"
// @Failure 400 {object} Response "凭据无效"
// @Router /test [post]
func (h *MusicHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.TestRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	credential := req.APIKey
	if credential == "" {
		credential = req.AuthToken
	}
	registry := h.service.Registry()
	if err := registry.ValidateCredential(req.Service, credential); err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}

	info, _ := registry.Info(req.Service)
	WriteSuccess(w, api.TestResponse{
		Service:   info.Name,
		KeyLength: len(strings.TrimSpace(credential)),
		Message:   info.DisplayName + " credential looks valid",
	})
}

// HandleGenerate 处理 /generate 请求，同步等待生成结束
// @Summary 生成音乐
// @Description 提交生成请求并轮询到终态；超时返回 202 与任务 ID
// @Tags 音乐
// @Accept json
// @Produce json
// @Param request body api.GenerateRequest true "生成请求"
// @Success 200 {object} Response "生成完成"
// @Success 202 {object} Response "仍在生成，稍后查询"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "服务商失败"
// @Router /generate [post]
func (h *MusicHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.GenerateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := validateGenerateRequest(&req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	result, err := h.service.Generate(r.Context(), music.GenerateRequest{
		Service:    req.Service,
		Style:      req.Style,
		Prompt:     req.Prompt,
		Credential: req.Credential(),
		Seed:       req.Seed,
		Lyrics:     req.Lyrics,
	})
	if err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}

	h.writeOutcome(w, result)
}

// writeOutcome 按终态选择状态码
func (h *MusicHandler) writeOutcome(w http.ResponseWriter, result *music.Result) {
	gen := result.Generation
	resp := api.NewGenerateResponse(gen)

	switch result.Outcome.State {
	case jobs.StateCompleted:
		resp.Message = styleTitle(gen.Style) + " TECHNO generated"
		if len(gen.Tracks) == 0 {
			resp.Message = "generation finished but no track could be decoded"
		}
		WriteSuccess(w, resp)

	case jobs.StateTimedOut:
		resp.Message = "generation is still running, check back later"
		resp.StatusURL = statusURL(gen.Service, gen.JobIDs)
		WriteEnvelope(w, http.StatusAccepted, resp)

	case jobs.StateCancelled:
		writeErrorEnvelope(w,
			types.NewError(types.ErrCancelled, "request cancelled before generation finished").
				WithHTTPStatus(StatusClientClosedRequest).
				WithProvider(gen.Service),
			resp, h.logger)

	default:
		apiErr := result.Outcome.Err
		if apiErr == nil {
			apiErr = types.NewError(result.Outcome.Code(), "generation failed")
		}
		// 远端失败对调用方统一表现为网关错误
		writeErrorEnvelope(w,
			&types.Error{
				Code:       apiErr.Code,
				Message:    apiErr.Message,
				HTTPStatus: http.StatusBadGateway,
				Retryable:  apiErr.Retryable,
				Provider:   gen.Service,
				Cause:      apiErr.Cause,
			},
			resp, h.logger)
	}
}

// HandleStatus 处理 /status 请求，对已提交任务做一次状态查询
// @Summary 查询任务状态
// @Tags 音乐
// @Produce json
// @Param service query string true "服务商"
// @Param ids query string true "逗号分隔的任务 ID"
// @Param X-Provider-Token header string false "服务商凭据"
// @Success 200 {object} Response "任务状态"
// @Failure 400 {object} Response "无效请求"
// @Failure 502 {object} Response "状态查询失败"
// @Router /status [get]
func (h *MusicHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	service := query.Get("service")
	ids := splitIDs(query.Get("ids"))
	if len(ids) == 0 {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "ids is required", h.logger)
		return
	}
	if len(ids) > maxStatusIDs {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "too many ids", h.logger)
		return
	}

	entries, err := h.service.Status(r.Context(), service, r.Header.Get(ProviderTokenHeader), ids)
	if err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}

	allFinished := len(entries) == len(ids)
	for _, e := range entries {
		if !e.Finished {
			allFinished = false
		}
	}
	WriteSuccess(w, api.StatusResponse{
		Service:     strings.ToLower(strings.TrimSpace(service)),
		Jobs:        entries,
		AllFinished: allFinished,
	})
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func validateGenerateRequest(req *api.GenerateRequest) *types.Error {
	if strings.TrimSpace(req.Service) == "" {
		return types.NewError(types.ErrInvalidRequest, "service is required").WithHTTPStatus(http.StatusBadRequest)
	}
	if utf8.RuneCountInString(req.Prompt) > maxPromptLength {
		return types.NewError(types.ErrInvalidRequest, "prompt is too long").WithHTTPStatus(http.StatusBadRequest)
	}
	if utf8.RuneCountInString(req.Lyrics) > maxLyricsLength {
		return types.NewError(types.ErrInvalidRequest, "lyrics are too long").WithHTTPStatus(http.StatusBadRequest)
	}
	if req.Seed != nil && *req.Seed < jobs.RandomSeed {
		return types.NewError(types.ErrInvalidRequest, "seed must be -1 (random) or non-negative").WithHTTPStatus(http.StatusBadRequest)
	}
	return nil
}

// styleTitle 返回风格显示名，未知风格按 minimal 处理
func styleTitle(style string) string {
	return music.ParseStyle(style).Title()
}

func statusURL(service string, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	q := url.Values{}
	q.Set("service", service)
	q.Set("ids", strings.Join(ids, ","))
	return "/status?" + q.Encode()
}

func splitIDs(raw string) []string {
	ids := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
