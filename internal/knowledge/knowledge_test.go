package knowledge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/worker"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// keywordEmbedder maps texts to a tiny keyword-count vector space so
// retrieval behaves predictably without a model.
type keywordEmbedder struct {
	calls int
}

var vocab = []string{"upi", "lottery", "wallet"}

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, len(vocab))
		lower := strings.ToLower(t)
		for d, word := range vocab {
			vec[d] = float32(strings.Count(lower, word))
		}
		out[i] = vec
	}
	return out, nil
}

type fakeRunner struct {
	invoke func(ctx context.Context, task string, payload interface{}) (json.RawMessage, error)
}

func (f *fakeRunner) Invoke(ctx context.Context, task string, payload interface{}) (json.RawMessage, error) {
	return f.invoke(ctx, task, payload)
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "upi_fraud.txt"),
		[]byte("UPI fraud must be reported within 24 hours. Freeze the UPI handle and call 1930."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lottery_scams.md"),
		[]byte("Lottery scams promise huge winnings. Never pay a lottery processing fee."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.bin"),
		[]byte("binary"), 0o644))
	return dir
}

func knowledgeConfig(dir string) config.KnowledgeConfig {
	return config.KnowledgeConfig{
		CorpusDir:         dir,
		ChunkSize:         200,
		ChunkOverlap:      20,
		TopK:              2,
		MinRetrievalScore: 0.35,
		VectorBackend:     "memory",
	}
}

func TestRetriever_TopKFromRightDocument(t *testing.T) {
	emb := &keywordEmbedder{}
	r := NewRetriever(knowledgeConfig(writeCorpus(t)), emb, NewMemoryIndex(), nil, nil)

	hits, err := r.Retrieve(context.Background(), "how to report upi fraud", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "upi_fraud.txt", hits[0].DocID)
	assert.Greater(t, hits[0].Score, 0.5)
}

func TestRetriever_IndexBuiltOnce(t *testing.T) {
	emb := &keywordEmbedder{}
	r := NewRetriever(knowledgeConfig(writeCorpus(t)), emb, NewMemoryIndex(), nil, nil)

	_, err := r.Retrieve(context.Background(), "upi", 1)
	require.NoError(t, err)
	afterFirst := emb.calls

	_, err = r.Retrieve(context.Background(), "lottery", 1)
	require.NoError(t, err)

	// The second query costs exactly one more embed call (the query itself).
	assert.Equal(t, afterFirst+1, emb.calls)
}

func TestRetriever_DefaultTopK(t *testing.T) {
	r := NewRetriever(knowledgeConfig(writeCorpus(t)), &keywordEmbedder{}, NewMemoryIndex(), nil, nil)

	hits, err := r.Retrieve(context.Background(), "upi lottery", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRetriever_EmptyQueryRejected(t *testing.T) {
	r := NewRetriever(knowledgeConfig(writeCorpus(t)), &keywordEmbedder{}, NewMemoryIndex(), nil, nil)
	_, err := r.Retrieve(context.Background(), "  ", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRetriever_MissingCorpus(t *testing.T) {
	cfg := knowledgeConfig(filepath.Join(t.TempDir(), "nope"))
	r := NewRetriever(cfg, &keywordEmbedder{}, NewMemoryIndex(), nil, nil)

	_, err := r.Retrieve(context.Background(), "upi", 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeCorpusUnavailable, apperrors.GetCode(err))
}

func TestMemoryIndex_SearchOrderingAndReset(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []EmbeddedChunk{
		{Chunk: Chunk{DocID: "a", Text: "a"}, Vector: []float32{1, 0}},
		{Chunk: Chunk{DocID: "b", Text: "b"}, Vector: []float32{0.9, 0.1}},
		{Chunk: Chunk{DocID: "c", Text: "c"}, Vector: []float32{0, 1}},
	}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].DocID)
	assert.Equal(t, "b", hits[1].DocID)

	require.NoError(t, idx.Reset(ctx))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func newSynthesizer(t *testing.T, cfg config.KnowledgeConfig, runner worker.Runner) *Synthesizer {
	r := NewRetriever(cfg, &keywordEmbedder{}, NewMemoryIndex(), nil, nil)
	return NewSynthesizer(cfg, r, runner, nil, nil)
}

func TestAsk_StrongRetrievalSkipsWebSearch(t *testing.T) {
	cfg := knowledgeConfig(writeCorpus(t))
	runner := &fakeRunner{invoke: func(_ context.Context, task string, payload interface{}) (json.RawMessage, error) {
		require.Equal(t, worker.TaskGenerate, task, "only generation may run")
		m := payload.(map[string]interface{})
		assert.Equal(t, "how to report upi fraud", m["query"])
		assert.NotEmpty(t, m["context_chunks"])
		assert.NotContains(t, m, "web_context")
		return json.RawMessage(`{"answer":"Call 1930 and report on the portal."}`), nil
	}}

	ans, err := newSynthesizer(t, cfg, runner).Ask(context.Background(), "how to report upi fraud", AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Call 1930 and report on the portal.", ans.Answer)
	assert.Contains(t, ans.Sources, "upi_fraud.txt")
	assert.NotContains(t, ans.Sources, WebSourceID)
}

func TestAsk_WeakRetrievalFallsBackToWebSearch(t *testing.T) {
	cfg := knowledgeConfig(writeCorpus(t))
	var webCalled bool
	runner := &fakeRunner{invoke: func(_ context.Context, task string, payload interface{}) (json.RawMessage, error) {
		switch task {
		case worker.TaskWebSearch:
			webCalled = true
			return json.RawMessage(`{"results":"RBI advisory on new scam pattern"}`), nil
		case worker.TaskGenerate:
			m := payload.(map[string]interface{})
			assert.Equal(t, "RBI advisory on new scam pattern", m["web_context"])
			return json.RawMessage(`{"answer":"Based on the advisory..."}`), nil
		}
		t.Fatalf("unexpected task %q", task)
		return nil, nil
	}}

	// The query shares no vocabulary with the corpus, so retrieval scores 0.
	ans, err := newSynthesizer(t, cfg, runner).Ask(context.Background(), "courier parcel customs scam", AskOptions{})
	require.NoError(t, err)
	assert.True(t, webCalled)
	assert.Contains(t, ans.Sources, WebSourceID)
}

func TestAsk_WebSearchFailureDegrades(t *testing.T) {
	cfg := knowledgeConfig(writeCorpus(t))
	runner := &fakeRunner{invoke: func(_ context.Context, task string, _ interface{}) (json.RawMessage, error) {
		if task == worker.TaskWebSearch {
			return nil, apperrors.New(apperrors.ErrCodeWebSearchFailed, "search backend down")
		}
		return json.RawMessage(`{"answer":"Answer from local chunks only."}`), nil
	}}

	ans, err := newSynthesizer(t, cfg, runner).Ask(context.Background(), "courier parcel customs scam", AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Answer from local chunks only.", ans.Answer)
	assert.NotContains(t, ans.Sources, WebSourceID)
}

func TestAsk_GenerationFailure(t *testing.T) {
	cfg := knowledgeConfig(writeCorpus(t))
	runner := &fakeRunner{invoke: func(_ context.Context, task string, _ interface{}) (json.RawMessage, error) {
		if task == worker.TaskGenerate {
			return nil, apperrors.New(apperrors.ErrCodeWorkerRuntime, "exit 1")
		}
		return json.RawMessage(`{}`), nil
	}}

	_, err := newSynthesizer(t, cfg, runner).Ask(context.Background(), "upi fraud", AskOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeGenerationFailed, apperrors.GetCode(err))
}

func TestAsk_DegradedGenerateOutputAccepted(t *testing.T) {
	cfg := knowledgeConfig(writeCorpus(t))
	runner := &fakeRunner{invoke: func(_ context.Context, task string, _ interface{}) (json.RawMessage, error) {
		if task == worker.TaskGenerate {
			return json.RawMessage(`{"output":"plain text answer"}`), nil
		}
		return json.RawMessage(`{}`), nil
	}}

	ans, err := newSynthesizer(t, cfg, runner).Ask(context.Background(), "upi fraud", AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "plain text answer", ans.Answer)
}

func TestAsk_ConversationHistoryForwarded(t *testing.T) {
	cfg := knowledgeConfig(writeCorpus(t))
	runner := &fakeRunner{invoke: func(_ context.Context, task string, payload interface{}) (json.RawMessage, error) {
		if task == worker.TaskGenerate {
			m := payload.(map[string]interface{})
			history := m["conversation_history"].([]Message)
			require.Len(t, history, 1)
			assert.Equal(t, "user", history[0].Role)
		}
		return json.RawMessage(`{"answer":"ok"}`), nil
	}}

	_, err := newSynthesizer(t, cfg, runner).Ask(context.Background(), "upi fraud", AskOptions{
		History: []Message{{Role: "user", Content: "what did I ask before"}},
		Context: "prior case notes",
	})
	require.NoError(t, err)
}

func TestWorkerEmbedder_Shapes(t *testing.T) {
	wrapped := &fakeRunner{invoke: func(_ context.Context, task string, _ interface{}) (json.RawMessage, error) {
		require.Equal(t, worker.TaskEmbedText, task)
		return json.RawMessage(`{"embeddings":[[1,0],[0,1]]}`), nil
	}}
	vecs, err := NewWorkerEmbedder(wrapped, nil).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)

	bare := &fakeRunner{invoke: func(context.Context, string, interface{}) (json.RawMessage, error) {
		return json.RawMessage(`[[0.5,0.5]]`), nil
	}}
	vecs, err = NewWorkerEmbedder(bare, nil).Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
}

func TestWorkerEmbedder_CountMismatch(t *testing.T) {
	r := &fakeRunner{invoke: func(context.Context, string, interface{}) (json.RawMessage, error) {
		return json.RawMessage(`{"embeddings":[[1,0]]}`), nil
	}}
	_, err := NewWorkerEmbedder(r, nil).Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmbeddingFailed, apperrors.GetCode(err))
}

func TestWorkerEmbedder_RunnerError(t *testing.T) {
	r := &fakeRunner{invoke: func(context.Context, string, interface{}) (json.RawMessage, error) {
		return nil, apperrors.New(apperrors.ErrCodeWorkerSpawn, "python missing")
	}}
	_, err := NewWorkerEmbedder(r, nil).Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmbeddingFailed, apperrors.GetCode(err))
	// The spawn failure stays visible in the chain.
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeWorkerSpawn))
}

func TestWorkerEmbedder_EmptyInput(t *testing.T) {
	r := &fakeRunner{invoke: func(context.Context, string, interface{}) (json.RawMessage, error) {
		t.Fatal("must not invoke for empty input")
		return nil, nil
	}}
	vecs, err := NewWorkerEmbedder(r, nil).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
