package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscout/config"
	"trendscout/enricher"
	"trendscout/normalizer"
	"trendscout/orchestrator"
	"trendscout/pipeline"
	"trendscout/ranking"
	"trendscout/reportstore"
	"trendscout/search"
	"trendscout/settings"
	"trendscout/types"
)

type fixedSearcher struct{}

func (fixedSearcher) Search(ctx context.Context, set types.EnrichedQuerySet) search.Outcome {
	return search.Outcome{
		Status: types.StatusOK,
		Keyword: search.BranchResult{Status: types.StatusOK, Results: []types.SearchResult{
			{SourceKind: types.SourceKeyword, URL: "https://dezeen.com/sofa", RelevanceScore: 1},
		}},
		Semantic: search.BranchResult{Status: types.StatusOK},
	}
}

type fixedExtractor struct{}

func (fixedExtractor) Extract(ctx context.Context, ranked []types.RankedResult) ([]types.ScrapedDocument, []string) {
	docs := make([]types.ScrapedDocument, len(ranked))
	for i, r := range ranked {
		docs[i] = types.ScrapedDocument{URL: r.URL, Rank: r.Rank, ExtractionStatus: types.ExtractionOK, ExtractedText: "text"}
	}
	return docs, nil
}

func newTestRouter(t *testing.T, withSettings bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p := pipeline.New(pipeline.Deps{
		Normalizer: normalizer.New(normalizer.NewRules(nil, 0, nil)),
		Enricher:   enricher.New(nil, nil),
		Searcher:   fixedSearcher{},
		Ranker:     ranking.New(config.Default().Ranking, nil),
		Extractor:  fixedExtractor{},
	}, config.StageConfig{}, nil, nil)

	var store settings.Store
	if withSettings {
		s, err := settings.OpenSQLite(context.Background(), ":memory:", nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		store = s
	}
	svc := orchestrator.NewService(p, reportstore.NewMemory(time.Hour), store, nil, nil)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return NewRouter(svc, nil)
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResearchSync(t *testing.T) {
	r := newTestRouter(t, false)

	w := do(r, http.MethodPost, "/api/research", gin.H{"query": "Recent trends in sofa bed design in France", "session_id": "acme"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report types.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, types.StateDone, report.State)
	require.Len(t, report.FinalDocuments, 1)

	w = do(r, http.MethodGet, "/api/runs/"+report.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status orchestrator.RunStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, types.StateDone, status.State)

	w = do(r, http.MethodGet, "/api/sessions/acme/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), report.RunID)
}

func TestResearchAsync(t *testing.T) {
	r := newTestRouter(t, false)

	w := do(r, http.MethodPost, "/api/research?async=true", gin.H{"query": "Recent trends in sofa bed design in France"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		RunID string `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.RunID)

	require.Eventually(t, func() bool {
		w := do(r, http.MethodGet, "/api/runs/"+body.RunID, nil)
		var status orchestrator.RunStatus
		return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &status) == nil && status.Report != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestResearchRejectsBadRequests(t *testing.T) {
	r := newTestRouter(t, false)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/research", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/research", gin.H{"query": "sofa", "settings_id": "acme"}).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/runs/unknown", nil).Code)
}

func TestSettingsRoutes(t *testing.T) {
	r := newTestRouter(t, true)

	w := do(r, http.MethodPut, "/api/settings/acme", types.SessionContext{Category: "home", CompetitorDomains: []string{"rival.fr"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/api/settings/acme", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec settings.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, []string{"rival.fr"}, rec.Session.CompetitorDomains)

	w = do(r, http.MethodPost, "/api/research", gin.H{"query": "Recent trends in sofa bed design in France", "settings_id": "acme"})
	require.Equal(t, http.StatusOK, w.Code)
	var report types.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "home", report.Session.Category)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/settings/acme", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/settings/acme", nil).Code)
}

func TestSettingsUnavailableWithoutStore(t *testing.T) {
	r := newTestRouter(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/settings/acme", nil).Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, false)
	w := do(r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
