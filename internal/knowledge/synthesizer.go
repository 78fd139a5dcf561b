package knowledge

import (
	"context"
	"encoding/json"

	"github.com/samber/lo"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CyberTrace-Intelligence/internal/worker"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// WebSourceID is the source identifier reported when the web-search
// fallback contributed context to the answer.
const WebSourceID = "web-search"

// Message is one turn of conversation context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answer is the synthesized reply with the document identifiers of the
// chunks actually used.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// AskOptions carries the optional inputs of a chat request.
type AskOptions struct {
	// Context is extra caller-supplied grounding text (the "enhanced" mode).
	Context string
	// History is prior conversation turns, oldest first.
	History []Message
	// TopK overrides the configured retrieval depth when positive.
	TopK int
}

// Synthesizer answers questions over the knowledge corpus.
type Synthesizer struct {
	cfg       config.KnowledgeConfig
	retriever *Retriever
	runner    worker.Runner
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

// NewSynthesizer wires the answer generator over a retriever and the task
// runner used for generation and web search.
func NewSynthesizer(cfg config.KnowledgeConfig, retriever *Retriever, runner worker.Runner, logger logging.Logger, metrics *prometheus.AppMetrics) *Synthesizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &Synthesizer{cfg: cfg, retriever: retriever, runner: runner, logger: logger.Named("synthesizer"), metrics: metrics}
}

// webSearch asks the web-search task for additional context.  A failure
// here degrades the answer rather than failing the request: local chunks
// are still usable grounding.
func (s *Synthesizer) webSearch(ctx context.Context, query string) string {
	raw, err := s.runner.Invoke(ctx, worker.TaskWebSearch, map[string]string{"query": query})
	if err != nil {
		s.metrics.WebSearchFallbacks.WithLabelValues("error").Inc()
		s.logger.Warn("web search fallback failed", logging.Err(err))
		return ""
	}
	s.metrics.WebSearchFallbacks.WithLabelValues("ok").Inc()

	var out struct {
		Results string `json:"results"`
		Output  string `json:"output"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	if out.Results != "" {
		return out.Results
	}
	return out.Output
}

// Ask retrieves grounding chunks, optionally augments them with web search
// when local retrieval looks weak, and synthesizes the final answer.
func (s *Synthesizer) Ask(ctx context.Context, query string, opts AskOptions) (Answer, error) {
	hits, err := s.retriever.Retrieve(ctx, query, opts.TopK)
	if err != nil {
		return Answer{}, err
	}

	// Local retrieval is judged insufficient when even the best chunk
	// scores below the configured floor.
	var webContext string
	if len(hits) == 0 || hits[0].Score < s.cfg.MinRetrievalScore {
		s.logger.Info("retrieval below confidence floor, using web search",
			logging.Float64("best_score", bestScore(hits)))
		webContext = s.webSearch(ctx, query)
	}

	payload := map[string]interface{}{
		"query": query,
		"context_chunks": lo.Map(hits, func(h ScoredChunk, _ int) map[string]interface{} {
			return map[string]interface{}{"doc_id": h.DocID, "text": h.Text, "score": h.Score}
		}),
	}
	if webContext != "" {
		payload["web_context"] = webContext
	}
	if opts.Context != "" {
		payload["context"] = opts.Context
	}
	if len(opts.History) > 0 {
		payload["conversation_history"] = opts.History
	}

	raw, err := s.runner.Invoke(ctx, worker.TaskGenerate, payload)
	if err != nil {
		return Answer{}, apperrors.Wrap(err, apperrors.ErrCodeGenerationFailed,
			"answer generation failed")
	}

	var out struct {
		Answer string `json:"answer"`
		Output string `json:"output"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Answer{}, apperrors.Wrap(err, apperrors.ErrCodeGenerationFailed,
			"generation result malformed")
	}
	text := out.Answer
	if text == "" {
		text = out.Output
	}

	sources := lo.Uniq(lo.Map(hits, func(h ScoredChunk, _ int) string { return h.DocID }))
	if webContext != "" {
		sources = append(sources, WebSourceID)
	}
	return Answer{Answer: text, Sources: sources}, nil
}

func bestScore(hits []ScoredChunk) float64 {
	if len(hits) == 0 {
		return 0
	}
	return hits[0].Score
}
