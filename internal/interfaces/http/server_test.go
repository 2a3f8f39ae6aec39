package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaborank/metaborank/internal/application/prediction"
	"github.com/metaborank/metaborank/internal/domain/reaction"
	"github.com/metaborank/metaborank/internal/domain/rules"
	"github.com/metaborank/metaborank/internal/domain/scoring"
)

const rulesCSV = "SMIRKS,Reaction name,Priority level,Name of rule subset\n" +
	"[c:1][H]>>[c:1]O[H],aromatic hydroxylation,common,cyp\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	table, err := rules.Load(strings.NewReader(rulesCSV))
	require.NoError(t, err)
	enumerator := reaction.NewEnumerator(table, false, nil)
	models := &scoring.StaticModelProvider{Probabilities: map[string]float64{"cyp": 0.5}}
	scorer := scoring.NewScorer(scoring.NewVectorizer(scoring.DefaultRadius), models, nil)
	service := prediction.NewService(enumerator, scorer, nil, nil, 2)
	return NewServer(":0", gin.TestMode, service, prometheus.NewRegistry(), nil)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPredict(t *testing.T) {
	s := newTestServer(t)
	body := `{"molecules":[{"name":"benzene","smiles":"c1ccccc1"}]}`
	rec := doRequest(s, http.MethodPost, "/api/v1/predict", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp predictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, "aromatic hydroxylation", resp.Predictions[0].RuleName)
	assert.InDelta(t, 0.5, resp.Predictions[0].Score, 1e-12)
	assert.Empty(t, resp.Failed)
}

func TestPredictRecordsFailures(t *testing.T) {
	s := newTestServer(t)
	body := `{"molecules":[{"smiles":"C1CC"},{"name":"toluene","smiles":"Cc1ccccc1"}]}`
	rec := doRequest(s, http.MethodPost, "/api/v1/predict", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp predictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, 0, resp.Failed[0].Index)
	assert.Equal(t, "mol_1", resp.Failed[0].Name)
	assert.NotEmpty(t, resp.Predictions)
}

func TestPredictRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not_json", "not json"},
		{"missing_molecules", `{}`},
		{"empty_molecules", `{"molecules":[]}`},
		{"missing_smiles", `{"molecules":[{"name":"x"}]}`},
	}
	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/v1/predict", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
