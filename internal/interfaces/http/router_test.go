package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CyberTrace-Intelligence/internal/analysis"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/advisory"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/linkage"
	"github.com/turtacn/CyberTrace-Intelligence/internal/extraction"
	"github.com/turtacn/CyberTrace-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/CyberTrace-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/CyberTrace-Intelligence/internal/knowledge"
	"github.com/turtacn/CyberTrace-Intelligence/internal/matching"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
	"github.com/turtacn/CyberTrace-Intelligence/pkg/types/common"
)

type fakeCasework struct {
	completeErr error
}

func (f *fakeCasework) AnalyzeAudio(context.Context, string) (extraction.TextResult, error) {
	return extraction.TextResult{Text: "caller demanded OTP"}, nil
}

func (f *fakeCasework) AnalyzeImage(context.Context, string) (extraction.TextResult, error) {
	return extraction.TextResult{NotFound: true}, nil
}

func (f *fakeCasework) AnalyzeDocument(context.Context, string) (extraction.TextResult, error) {
	return extraction.TextResult{Text: "loan agreement"}, nil
}

func (f *fakeCasework) AnalyzeVideo(context.Context, string) (extraction.VideoResult, error) {
	return extraction.VideoResult{Transcript: "voice", Frames: []string{"frame one", "frame two"}}, nil
}

func (f *fakeCasework) AnalyzeComplaint(context.Context, analysis.EvidenceTexts) (json.RawMessage, error) {
	return json.RawMessage(`{"crime_type":"upi_fraud"}`), nil
}

func (f *fakeCasework) Summarize(context.Context, analysis.EvidenceTexts) (string, error) {
	return "summary text", nil
}

func (f *fakeCasework) CheckContradiction(context.Context, analysis.EvidenceTexts) (analysis.ContradictionResult, error) {
	return analysis.ContradictionResult{Analysis: "consistent"}, nil
}

func (f *fakeCasework) Classify(json.RawMessage) (analysis.ClassificationResult, error) {
	return analysis.ClassificationResult{Priority: "High", Score: 4}, nil
}

func (f *fakeCasework) Complete(_ context.Context, req analysis.CompleteRequest) (analysis.CompleteResult, error) {
	if f.completeErr != nil {
		return analysis.CompleteResult{}, f.completeErr
	}
	if req.Complaint == "" {
		return analysis.CompleteResult{}, apperrors.InvalidParam("complaint must not be empty")
	}
	return analysis.CompleteResult{Priority: "High", PriorityScore: 4}, nil
}

type fakeLinkage struct {
	lastSemantic bool
	lastStore    linkage.Store
	lastCross    *float64
	lastWithin   *float64
}

func (f *fakeLinkage) CrossStore(_ context.Context, in linkage.Input) (linkage.Result, error) {
	f.lastSemantic = in.Semantic
	f.lastCross = in.Threshold
	m := matching.Match{IDA: "VIC-001", IDB: "OFF-002", Score: 0.7}
	return linkage.Result{Matches: []matching.Match{m}, Pairs: matching.Pairs([]matching.Match{m})}, nil
}

func (f *fakeLinkage) WithinStore(_ context.Context, store linkage.Store, in linkage.Input) (linkage.Result, error) {
	if store != linkage.StoreVictim && store != linkage.StoreOfficial {
		return linkage.Result{}, apperrors.InvalidParam("unknown store: " + string(store))
	}
	f.lastStore = store
	f.lastWithin = in.Threshold
	m := matching.Match{IDA: "VIC-003", IDB: "VIC-007", Score: 0.4}
	return linkage.Result{Matches: []matching.Match{m}, Pairs: matching.Pairs([]matching.Match{m})}, nil
}

type fakeAdvisory struct{}

func (fakeAdvisory) Ask(_ context.Context, q advisory.Question) (knowledge.Answer, error) {
	return knowledge.Answer{Answer: "call 1930", Sources: []string{"upi.txt"}}, nil
}

func (fakeAdvisory) AskEnhanced(context.Context, advisory.Question) (knowledge.Answer, error) {
	return knowledge.Answer{Answer: "enhanced", Sources: []string{"upi.txt", "web-search"}}, nil
}

func newTestRouter(cw *fakeCasework, lk *fakeLinkage) *gin.Engine {
	return NewRouter(RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(cw),
		MatchingHandler: handlers.NewMatchingHandler(lk),
		ChatHandler:     handlers.NewChatHandler(fakeAdvisory{}),
		HealthHandler:   handlers.NewHealthHandler("test", nil),
		Mode:            gin.TestMode,
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestRequestIDAssigned(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAnalyzeAudio(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/analyze-audio", gin.H{"file_path": "/tmp/call.mp3"})
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "caller demanded OTP", got["transcribed_text"])
}

func TestAnalyzeAudio_MissingFilePath(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/analyze-audio", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeVideo_JoinsFrames(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/analyze-video", gin.H{"file_path": "/tmp/clip.mp4"})
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "frame one frame two", got["combined_frames_text"])
}

func TestAnalyzeComplaint_PassesRawDetails(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/analyze-complaint", gin.H{"complaint": "I was scammed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"crime_type":"upi_fraud"}`, w.Body.String())
}

func TestClassify(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/classify", gin.H{
		"incident_details": gin.H{"crime_type": "upi_fraud", "financial_loss": 30000},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"High"`)
}

func TestCompleteAnalysis_ValidationMapsTo400(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/complete-analysis", gin.H{"complaint": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var detail common.ErrorDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "COMMON_002", detail.Code)
}

func TestCompleteAnalysis_InternalErrorMasked(t *testing.T) {
	cw := &fakeCasework{completeErr: apperrors.Wrap(assert.AnError, apperrors.CodeInternal, "secret detail")}
	r := newTestRouter(cw, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/complete-analysis", gin.H{"complaint": "x"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestCheckSimilarity_CombinedResponse(t *testing.T) {
	lk := &fakeLinkage{}
	r := newTestRouter(&fakeCasework{}, lk)
	w := doJSON(t, r, http.MethodPost, "/api/v1/check-similarity", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, lk.lastSemantic)
	assert.Equal(t, linkage.StoreVictim, lk.lastStore)

	var got struct {
		CrossDBMatches  []common.MatchPair `json:"cross_db_matches"`
		WithinDBMatches []common.MatchPair `json:"within_db_matches"`
		CrossDBCount    int                `json:"cross_db_count"`
		WithinDBCount   int                `json:"within_db_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, 1, got.CrossDBCount)
	require.Equal(t, 1, got.WithinDBCount)
	assert.Equal(t, "VIC-001", got.CrossDBMatches[0].IDA)
	assert.InDelta(t, 0.7, got.CrossDBMatches[0].Score, 1e-9)
	assert.Equal(t, "VIC-003", got.WithinDBMatches[0].IDA)
	assert.InDelta(t, 0.4, got.WithinDBMatches[0].Score, 1e-9)
}

func TestCheckSimilarity_ThresholdOverridesPerPass(t *testing.T) {
	lk := &fakeLinkage{}
	r := newTestRouter(&fakeCasework{}, lk)
	w := doJSON(t, r, http.MethodPost, "/api/v1/check-similarity", gin.H{
		"thresholds": gin.H{"cross_threshold": 0.8, "within_threshold": 0.0},
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, lk.lastCross)
	assert.Equal(t, 0.8, *lk.lastCross)
	// An explicit zero floor reaches the service as 0, not as "unset".
	require.NotNil(t, lk.lastWithin)
	assert.Zero(t, *lk.lastWithin)
}

func TestCheckSimilarity_AbsentThresholdsKeepDefaults(t *testing.T) {
	lk := &fakeLinkage{}
	r := newTestRouter(&fakeCasework{}, lk)
	w := doJSON(t, r, http.MethodPost, "/api/v1/check-similarity", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, lk.lastCross)
	assert.Nil(t, lk.lastWithin)
}

func TestCheckSimilarityAdvanced_SetsSemantic(t *testing.T) {
	lk := &fakeLinkage{}
	r := newTestRouter(&fakeCasework{}, lk)
	w := doJSON(t, r, http.MethodPost, "/api/v1/check-similarity-advanced", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, lk.lastSemantic)
}

func TestChat(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/chat", gin.H{"query": "how to report"})
	require.Equal(t, http.StatusOK, w.Code)

	var ans knowledge.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ans))
	assert.Equal(t, "call 1930", ans.Answer)
	assert.Equal(t, []string{"upi.txt"}, ans.Sources)
}

func TestChatEnhanced(t *testing.T) {
	r := newTestRouter(&fakeCasework{}, &fakeLinkage{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/chat-enhanced", gin.H{"query": "what next"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "web-search")
}
