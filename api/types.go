package api

import (
	"time"

	"github.com/BaSui01/technoflow/music"
)

// =============================================================================
// 生成类型
// =============================================================================

// GenerateRequest 表示一次音乐生成请求。
// @Description 音乐生成请求结构
type GenerateRequest struct {
	// 服务商（udio、suno、replicate、generic、demo）
	Service string `json:"service" example:"udio" binding:"required"`
	// 风格预设，未知风格回落到 minimal
	Style string `json:"style,omitempty" example:"acid"`
	// 用户描述
	Prompt string `json:"prompt,omitempty" example:"dark warehouse vibes"`
	// 服务商 API Key（suno、replicate、generic）
	APIKey string `json:"api_key,omitempty"`
	// 服务商认证令牌（udio 的 sb-api-auth-token）
	AuthToken string `json:"auth_token,omitempty"`
	// 固定种子，省略表示随机；固定种子的结果会被缓存
	Seed *int `json:"seed,omitempty" example:"42"`
	// 歌词，省略表示纯器乐
	Lyrics string `json:"lyrics,omitempty"`
}

// Credential 返回请求携带的服务商凭据，api_key 优先
func (r GenerateRequest) Credential() string {
	if r.APIKey != "" {
		return r.APIKey
	}
	return r.AuthToken
}

// GenerateResponse 表示生成结果。
// @Description 音乐生成响应结构
type GenerateResponse struct {
	// 生成记录 ID
	GenerationID string `json:"generation_id" example:"3f0c7a4e-0b1d-4a52-9d1e-6f1f0f5d7f10"`
	// 终态（completed、timed_out、failed、cancelled）
	State string `json:"state" example:"completed"`
	// 服务商
	Service string `json:"service" example:"udio"`
	// 风格
	Style string `json:"style" example:"acid"`
	// 发送给服务商的完整 Prompt
	Prompt string `json:"prompt"`
	// 远端任务 ID
	JobIDs []string `json:"job_ids,omitempty"`
	// 生成的音轨（仅 completed）
	Tracks []music.Track `json:"tracks,omitempty"`
	// 从提交到终态的耗时
	Elapsed string `json:"elapsed,omitempty" example:"42s"`
	// 状态查询次数
	StatusQueries int `json:"status_queries" example:"9"`
	// 是否命中结果缓存
	Cached bool `json:"cached,omitempty"`
	// 给调用方的提示
	Message string `json:"message,omitempty"`
	// 超时后查询状态的地址
	StatusURL string `json:"status_url,omitempty" example:"/status?service=udio&ids=a,b"`
}

// NewGenerateResponse 从生成记录构建响应
func NewGenerateResponse(g *music.Generation) *GenerateResponse {
	resp := &GenerateResponse{
		GenerationID:  g.ID,
		State:         g.State,
		Service:       g.Service,
		Style:         g.Style,
		Prompt:        g.Prompt,
		JobIDs:        g.JobIDs,
		Tracks:        g.Tracks,
		StatusQueries: g.Queries,
		Cached:        g.Cached,
	}
	if g.Elapsed > 0 {
		resp.Elapsed = g.Elapsed.Round(time.Millisecond).String()
	}
	return resp
}

// =============================================================================
// 凭据测试类型
// =============================================================================

// TestRequest 表示凭据格式检查请求。
// @Description 凭据测试请求
type TestRequest struct {
	// 服务商
	Service string `json:"service" example:"suno" binding:"required"`
	// 服务商 API Key
	APIKey string `json:"api_key,omitempty"`
	// 服务商认证令牌
	AuthToken string `json:"auth_token,omitempty"`
}

// TestResponse 表示凭据检查结果。
// @Description 凭据测试响应
type TestResponse struct {
	// 服务商
	Service string `json:"service" example:"suno"`
	// 凭据长度
	KeyLength int `json:"key_length" example:"32"`
	// 提示信息
	Message string `json:"message" example:"Suno credential looks valid"`
}

// =============================================================================
// 目录类型
// =============================================================================

// StyleInfo 描述一个风格预设。
// @Description 风格预设
type StyleInfo struct {
	// 风格名
	Name string `json:"name" example:"acid"`
	// 显示名
	Title string `json:"title" example:"Acid"`
	// 描述
	Description string `json:"description"`
}

// StatusResponse 表示一次性状态查询结果。
// @Description 任务状态响应
type StatusResponse struct {
	// 服务商
	Service string `json:"service" example:"udio"`
	// 每个任务的状态
	Jobs []music.StatusEntry `json:"jobs"`
	// 是否全部完成
	AllFinished bool `json:"all_finished"`
}

// GenerationList 表示分页的生成历史。
// @Description 生成历史列表
type GenerationList struct {
	// 生成记录
	Items []*music.Generation `json:"items"`
	// 总数
	Total int64 `json:"total" example:"42"`
	// 分页大小
	Limit int `json:"limit" example:"20"`
	// 偏移量
	Offset int `json:"offset" example:"0"`
}
