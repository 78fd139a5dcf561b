package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CyberTrace-Intelligence/internal/application/linkage"
)

// MatchingHandler serves the entity similarity endpoints.
type MatchingHandler struct {
	svc linkage.Service
}

// NewMatchingHandler builds the handler.
func NewMatchingHandler(svc linkage.Service) *MatchingHandler {
	return &MatchingHandler{svc: svc}
}

type thresholdOverrides struct {
	Cross  *float64 `json:"cross_threshold"`
	Within *float64 `json:"within_threshold"`
}

type similarityRequest struct {
	// Thresholds override the configured score floors per pass.  Absent
	// fields keep the defaults; an explicit 0 disables the floor.
	Thresholds thresholdOverrides `json:"thresholds"`
}

// run executes both comparison passes of one similarity check: victim
// records against the official store, then victim records against each
// other.
func (h *MatchingHandler) run(c *gin.Context, semantic bool) {
	var req similarityRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	cross, err := h.svc.CrossStore(c.Request.Context(),
		linkage.Input{Threshold: req.Thresholds.Cross, Semantic: semantic})
	if err != nil {
		respondError(c, err)
		return
	}
	within, err := h.svc.WithinStore(c.Request.Context(), linkage.StoreVictim,
		linkage.Input{Threshold: req.Thresholds.Within, Semantic: semantic})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cross_db_matches":  cross.Pairs,
		"within_db_matches": within.Pairs,
		"cross_db_count":    len(cross.Pairs),
		"within_db_count":   len(within.Pairs),
		"cross_db_details":  cross.Matches,
		"within_db_details": within.Matches,
	})
}

// CheckSimilarity runs field-level matching.
func (h *MatchingHandler) CheckSimilarity(c *gin.Context) {
	h.run(c, false)
}

// CheckSimilarityAdvanced additionally scores free-text fields with
// embeddings.
func (h *MatchingHandler) CheckSimilarityAdvanced(c *gin.Context) {
	h.run(c, true)
}
