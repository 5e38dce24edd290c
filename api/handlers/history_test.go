package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BaSui01/technoflow/api"
	"github.com/BaSui01/technoflow/music"
	"github.com/BaSui01/technoflow/music/history"
	"github.com/BaSui01/technoflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore 内存版生成历史
type fakeStore struct {
	items      []*music.Generation
	err        error
	lastFilter history.Filter
}

func (s *fakeStore) Get(ctx context.Context, id string) (*music.Generation, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, g := range s.items {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, types.NewError(types.ErrNotFound, "generation not found").WithHTTPStatus(http.StatusNotFound)
}

func (s *fakeStore) List(ctx context.Context, f history.Filter) ([]*music.Generation, int64, error) {
	s.lastFilter = f
	if s.err != nil {
		return nil, 0, s.err
	}
	var out []*music.Generation
	for _, g := range s.items {
		if f.Service != "" && g.Service != f.Service {
			continue
		}
		out = append(out, g)
	}
	return out, int64(len(out)), nil
}

func newFakeStore() *fakeStore {
	now := time.Now().UTC()
	return &fakeStore{items: []*music.Generation{
		{ID: "g1", Service: "udio", State: "completed", CreatedAt: now},
		{ID: "g2", Service: "suno", State: "timed_out", JobIDs: []string{"c1"}, CreatedAt: now},
	}}
}

func TestHistoryHandler_List(t *testing.T) {
	store := newFakeStore()
	h := NewHistoryHandler(store, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/v1/generations?service=SUNO&limit=500&offset=0", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var raw struct {
		Success bool               `json:"success"`
		Data    api.GenerationList `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.True(t, raw.Success)
	assert.Equal(t, int64(1), raw.Data.Total)
	require.Len(t, raw.Data.Items, 1)
	assert.Equal(t, "g2", raw.Data.Items[0].ID)
	assert.Equal(t, history.MaxListLimit, raw.Data.Limit)
	assert.Equal(t, "suno", store.lastFilter.Service)
}

func TestHistoryHandler_List_EmptyIsArray(t *testing.T) {
	h := NewHistoryHandler(&fakeStore{}, nil)

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/v1/generations", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
	assert.Contains(t, w.Body.String(), `"limit":20`)
}

func TestHistoryHandler_List_BadPaging(t *testing.T) {
	h := NewHistoryHandler(newFakeStore(), zap.NewNop())

	for _, target := range []string{
		"/api/v1/generations?limit=abc",
		"/api/v1/generations?offset=-1",
	} {
		w := httptest.NewRecorder()
		h.HandleList(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestHistoryHandler_List_StoreError(t *testing.T) {
	h := NewHistoryHandler(&fakeStore{err: errors.New("database is down")}, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/v1/generations", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHistoryHandler_Get(t *testing.T) {
	h := NewHistoryHandler(newFakeStore(), zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/generations/{id}", h.HandleGet)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/generations/g2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var raw struct {
		Data music.Generation `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.Equal(t, "g2", raw.Data.ID)
	assert.Equal(t, []string{"c1"}, raw.Data.JobIDs)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/generations/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryHandler_Get_WithoutPattern(t *testing.T) {
	h := NewHistoryHandler(newFakeStore(), zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleGet(w, httptest.NewRequest(http.MethodGet, "/api/v1/generations/g1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.HandleGet(w, httptest.NewRequest(http.MethodGet, "/api/v1/generations/", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
