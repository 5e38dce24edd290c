package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/BaSui01/technoflow/api"
	"github.com/BaSui01/technoflow/music"
	"github.com/BaSui01/technoflow/music/history"
	"github.com/BaSui01/technoflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📜 生成历史 Handler
// =============================================================================

// GenerationStore 生成历史的只读视图，history.Store 实现了它
type GenerationStore interface {
	Get(ctx context.Context, id string) (*music.Generation, error)
	List(ctx context.Context, f history.Filter) ([]*music.Generation, int64, error)
}

// HistoryHandler 生成历史处理器
type HistoryHandler struct {
	store  GenerationStore
	logger *zap.Logger
}

// NewHistoryHandler 创建生成历史处理器
func NewHistoryHandler(store GenerationStore, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{
		store:  store,
		logger: logger.With(zap.String("component", "history_handler")),
	}
}

// HandleList 处理 /api/v1/generations 请求
// @Summary 生成历史列表
// @Tags 历史
// @Produce json
// @Param service query string false "服务商"
// @Param state query string false "终态"
// @Param limit query int false "分页大小（最大 100）"
// @Param offset query int false "偏移量"
// @Success 200 {object} Response "生成历史"
// @Security ApiKeyAuth
// @Router /api/v1/generations [get]
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseNonNegative(query.Get("limit"))
	if err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "limit must be a non-negative integer", h.logger)
		return
	}
	offset, err := parseNonNegative(query.Get("offset"))
	if err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "offset must be a non-negative integer", h.logger)
		return
	}

	filter := history.Filter{
		Service: strings.ToLower(strings.TrimSpace(query.Get("service"))),
		State:   strings.ToLower(strings.TrimSpace(query.Get("state"))),
		Limit:   limit,
		Offset:  offset,
	}
	items, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}

	if filter.Limit == 0 {
		filter.Limit = history.DefaultListLimit
	}
	if filter.Limit > history.MaxListLimit {
		filter.Limit = history.MaxListLimit
	}
	if items == nil {
		items = make([]*music.Generation, 0)
	}
	WriteSuccess(w, api.GenerationList{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// HandleGet 处理 /api/v1/generations/{id} 请求
// @Summary 查询单条生成记录
// @Tags 历史
// @Produce json
// @Param id path string true "生成记录 ID"
// @Success 200 {object} Response "生成记录"
// @Failure 404 {object} Response "记录不存在"
// @Security ApiKeyAuth
// @Router /api/v1/generations/{id} [get]
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		id = strings.TrimPrefix(r.URL.Path, "/api/v1/generations/")
	}
	if id == "" || strings.Contains(id, "/") {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "generation id is required", h.logger)
		return
	}

	gen, err := h.store.Get(r.Context(), id)
	if err != nil {
		WriteError(w, toAPIError(err), h.logger)
		return
	}
	WriteSuccess(w, gen)
}

func parseNonNegative(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
