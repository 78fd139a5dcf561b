// Package advisory provides the application-level service for the guidance
// chat over the cybercrime knowledge corpus.
package advisory

import (
	"context"
	"strings"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/knowledge"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// Question is one chat request.  Context and History are optional; History
// is oldest-first.
type Question struct {
	Query   string              `json:"query"`
	Context string              `json:"context,omitempty"`
	History []knowledge.Message `json:"history,omitempty"`
	TopK    int                 `json:"top_k,omitempty"`
}

// Service defines the guidance chat operations.
type Service interface {
	// Ask answers a plain question grounded on the knowledge corpus.
	Ask(ctx context.Context, q Question) (knowledge.Answer, error)
	// AskEnhanced answers with caller-supplied context and conversation
	// history folded into generation.
	AskEnhanced(ctx context.Context, q Question) (knowledge.Answer, error)
}

type service struct {
	synth  *knowledge.Synthesizer
	logger logging.Logger
}

// NewService builds the chat service.
func NewService(synth *knowledge.Synthesizer, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &service{synth: synth, logger: logger.Named("advisory")}
}

func (s *service) Ask(ctx context.Context, q Question) (knowledge.Answer, error) {
	if strings.TrimSpace(q.Query) == "" {
		return knowledge.Answer{}, apperrors.InvalidParam("query must not be empty")
	}
	// Plain chat ignores caller context and history.
	return s.synth.Ask(ctx, q.Query, knowledge.AskOptions{TopK: q.TopK})
}

func (s *service) AskEnhanced(ctx context.Context, q Question) (knowledge.Answer, error) {
	if strings.TrimSpace(q.Query) == "" {
		return knowledge.Answer{}, apperrors.InvalidParam("query must not be empty")
	}
	return s.synth.Ask(ctx, q.Query, knowledge.AskOptions{
		Context: q.Context,
		History: q.History,
		TopK:    q.TopK,
	})
}
