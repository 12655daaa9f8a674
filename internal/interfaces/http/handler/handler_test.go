package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-ai-api/internal/application/modelregistry"
	"campaign-ai-api/internal/application/prompt"
	"campaign-ai-api/internal/application/suggestion"
	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/infrastructure/persistence/memory"
	"campaign-ai-api/internal/interfaces/http/dto"
	apperrors "campaign-ai-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	result *entity.AnalysisResult
	err    error
	got    *entity.AnalysisRequest
}

func (a *fakeAnalyzer) Analyze(_ context.Context, req *entity.AnalysisRequest) (*entity.AnalysisResult, error) {
	a.got = req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return a.result, a.err
}

type fakeQuota struct {
	err  error
	used int64
}

func (q *fakeQuota) CheckDailyTokens(context.Context, string, int64) (int64, error) {
	return q.used, q.err
}

func (q *fakeQuota) DailyUsage(context.Context, string) (int64, error) {
	return q.used, nil
}

type fakeDep struct{ err error }

func (d *fakeDep) HealthCheck(context.Context) error { return d.err }

type testServer struct {
	engine   *gin.Engine
	analyzer *fakeAnalyzer
	quota    *fakeQuota
	svc      *suggestion.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	models := modelregistry.New()
	require.NoError(t, models.Register(&entity.LLMModel{
		ID: "gpt-4o-mini", Provider: "openai", ContextWindow: 128000, MaxTokens: 16384,
		IsAvailable: true, Capabilities: []entity.Capability{entity.CapabilityChat},
	}))
	require.NoError(t, models.SetDefault("gpt-4o-mini"))
	templates, err := prompt.NewRegistry()
	require.NoError(t, err)

	ts := &testServer{
		analyzer: &fakeAnalyzer{},
		quota:    &fakeQuota{},
		svc:      suggestion.NewService(memory.NewSuggestionRepository(), memory.NewKnowledgeStore(), nil),
	}

	analysis := NewAnalysisHandler(ts.analyzer, ts.quota, 1000)
	sugg := NewSuggestionHandler(ts.svc)
	catalog := NewCatalogHandler(models, templates)
	health := NewHealthHandler("test", map[string]HealthChecker{"redis": &fakeDep{}, "postgres": nil})

	r := gin.New()
	r.GET("/ready", health.Ready)
	r.POST("/v1/analyses", analysis.Analyze)
	r.GET("/v1/contexts/:cid/usage", analysis.Usage)
	r.GET("/v1/suggestions", sugg.ListSuggestions)
	r.GET("/v1/suggestions/:sid", sugg.GetSuggestion)
	r.POST("/v1/suggestions/:sid/transitions", sugg.TransitionSuggestion)
	r.DELETE("/v1/suggestions/:sid", sugg.DeleteSuggestion)
	r.GET("/v1/models", catalog.ListModels)
	r.GET("/v1/models/:mid", catalog.GetModel)
	r.GET("/v1/templates", catalog.ListTemplates)
	ts.engine = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) seed(t *testing.T, title string, conf entity.Confidence) *entity.ContentSuggestion {
	t.Helper()
	sg := &entity.ContentSuggestion{
		Type:       entity.SuggestionTypeLocation,
		Title:      title,
		Confidence: conf,
		SourceRef:  entity.Ref{ID: "transcript-7", Type: "transcript"},
		ContextRef: entity.Ref{ID: "campaign-1", Type: "campaign"},
		Payload:    &entity.LocationPayload{Name: title},
	}
	require.NoError(t, ts.svc.Create(context.Background(), sg))
	return sg
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAnalyzeReturnsResult(t *testing.T) {
	ts := newTestServer(t)
	ts.analyzer.result = &entity.AnalysisResult{
		ID:        "an-1",
		RequestID: "req-1",
		CreatedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Suggestions: []*entity.ContentSuggestion{{
			ID: "s-1", Type: entity.SuggestionTypeLocation, Title: "Saltmarsh",
			Confidence: entity.ConfidenceHigh, Status: entity.SuggestionStatusPending,
			Payload: &entity.LocationPayload{Name: "Saltmarsh"}, Version: 1,
		}},
		Metadata: entity.AnalysisMetadata{Models: []string{"gpt-4o-mini"}},
	}

	w := ts.do(t, http.MethodPost, "/v1/analyses", map[string]any{
		"source_ref":     map[string]string{"id": "transcript-7", "type": "transcript"},
		"context_ref":    map[string]string{"id": "campaign-1", "type": "campaign"},
		"analysis_types": []string{"location"},
		"options":        map[string]any{"min_confidence": "high"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.Response[dto.AnalysisResponse]](t, w)
	assert.Equal(t, "an-1", resp.Data.ID)
	require.Len(t, resp.Data.Suggestions, 1)
	assert.Equal(t, "Saltmarsh", resp.Data.Suggestions[0].Title)
	assert.Equal(t, entity.ConfidenceHigh, ts.analyzer.got.Options.MinConfidence)
	assert.Equal(t, "campaign-1", ts.analyzer.got.ContextRef.ID)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/analyses", map[string]any{
		"source_ref": map[string]string{"id": "transcript-7"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/analyses", map[string]any{
		"source_ref":     map[string]string{"id": "transcript-7"},
		"analysis_types": []string{"weather"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(apperrors.CodeValidationFailed), resp.Error.ErrorCode)
}

func TestAnalyzeMapsEngineErrors(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{
		"source_ref":     map[string]string{"id": "transcript-7"},
		"analysis_types": []string{"location"},
	}

	ts.analyzer.err = apperrors.CapabilityMismatch("no model supports vision")
	assert.Equal(t, http.StatusUnprocessableEntity, ts.do(t, http.MethodPost, "/v1/analyses", body).Code)

	ts.analyzer.err = apperrors.Provider(errors.New("upstream"), "model gpt-4o-mini call failed")
	assert.Equal(t, http.StatusBadGateway, ts.do(t, http.MethodPost, "/v1/analyses", body).Code)

	ts.analyzer.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, ts.do(t, http.MethodPost, "/v1/analyses", body).Code)
}

func TestAnalyzeQuotaExceeded(t *testing.T) {
	ts := newTestServer(t)
	ts.quota.err = apperrors.New(apperrors.CodeTooManyRequests, "daily token quota exceeded")

	w := ts.do(t, http.MethodPost, "/v1/analyses", map[string]any{
		"source_ref":     map[string]string{"id": "transcript-7"},
		"context_ref":    map[string]string{"id": "campaign-1"},
		"analysis_types": []string{"location"},
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Nil(t, ts.analyzer.got)
}

func TestContextUsage(t *testing.T) {
	ts := newTestServer(t)
	ts.quota.used = 400

	w := ts.do(t, http.MethodGet, "/v1/contexts/campaign-1/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.Response[dto.UsageResponse]](t, w)
	assert.Equal(t, "campaign-1", resp.Data.ContextID)
	assert.Equal(t, int64(400), resp.Data.UsedTokens)
	assert.Equal(t, int64(1000), resp.Data.DailyLimit)
	require.NotNil(t, resp.Data.Remaining)
	assert.Equal(t, int64(600), *resp.Data.Remaining)

	ts.quota.used = 1500
	resp = decode[dto.Response[dto.UsageResponse]](t, ts.do(t, http.MethodGet, "/v1/contexts/campaign-1/usage", nil))
	assert.Zero(t, *resp.Data.Remaining)
}

func TestListSuggestionsFilters(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "Saltmarsh", entity.ConfidenceHigh)
	ts.seed(t, "Dunwater", entity.ConfidenceLow)

	w := ts.do(t, http.MethodGet, "/v1/suggestions?context_id=campaign-1&min_confidence=medium&type=location,character", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.Response[[]dto.SuggestionResponse]](t, w)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Saltmarsh", resp.Data[0].Title)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/suggestions?status=archived", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/v1/suggestions?min_confidence=certain", nil).Code)
}

func TestGetSuggestionNotFound(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/v1/suggestions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, string(apperrors.CodeSuggestionNotFound), resp.Error.ErrorCode)
}

func TestTransitionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	sg := ts.seed(t, "Saltmarsh", entity.ConfidenceHigh)
	path := "/v1/suggestions/" + sg.ID + "/transitions"

	w := ts.do(t, http.MethodPost, path, map[string]any{
		"action":  "modify",
		"payload": map[string]any{"name": "Saltmarsh Harbor", "region": "Azure Coast"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[dto.Response[dto.SuggestionResponse]](t, w)
	assert.Equal(t, "modified", resp.Data.Status)
	assert.Equal(t, int64(2), resp.Data.Version)

	// 过期版本号
	w = ts.do(t, http.MethodPost, path, map[string]any{"action": "accept", "expected_version": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, path, map[string]any{"action": "accept", "expected_version": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decode[dto.Response[dto.SuggestionResponse]](t, w)
	assert.Equal(t, "accepted", resp.Data.Status)
	assert.NotNil(t, resp.Data.MaterializedRef)

	// 终态不可再迁移
	w = ts.do(t, http.MethodPost, path, map[string]any{"action": "reject"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTransitionRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t)
	sg := ts.seed(t, "Saltmarsh", entity.ConfidenceHigh)
	path := "/v1/suggestions/" + sg.ID + "/transitions"

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, path, map[string]any{"action": "archive"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, path, map[string]any{"action": "modify"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, path, map[string]any{
		"action": "modify", "payload": map[string]any{"region": "no name"},
	}).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/v1/suggestions/missing/transitions",
		map[string]any{"action": "accept"}).Code)

	got, err := ts.svc.Get(context.Background(), sg.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SuggestionStatusPending, got.Status)
}

func TestDeleteSuggestion(t *testing.T) {
	ts := newTestServer(t)
	sg := ts.seed(t, "Saltmarsh", entity.ConfidenceHigh)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/v1/suggestions/"+sg.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/v1/suggestions/"+sg.ID, nil).Code)
}

func TestCatalog(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.Response[dto.ModelListResponse]](t, w)
	assert.Equal(t, "gpt-4o-mini", resp.Data.DefaultModel)
	require.Len(t, resp.Data.Models, 1)
	assert.True(t, resp.Data.Models[0].IsDefault)
	assert.Equal(t, []string{"chat"}, resp.Data.Models[0].Capabilities)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/v1/models/claude", nil).Code)

	w = ts.do(t, http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tpls := decode[dto.Response[[]entity.PromptTemplate]](t, w)
	assert.Len(t, tpls.Data, len(entity.AllSuggestionTypes))
}

func TestReady(t *testing.T) {
	ok := NewHealthHandler("v", map[string]HealthChecker{"redis": &fakeDep{}, "postgres": nil})
	down := NewHealthHandler("v", map[string]HealthChecker{"redis": &fakeDep{err: errors.New("connection refused")}})

	r := gin.New()
	r.GET("/ok", ok.Ready)
	r.GET("/down", down.Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"disabled"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
