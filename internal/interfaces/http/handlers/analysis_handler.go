package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CyberTrace-Intelligence/internal/analysis"
	"github.com/turtacn/CyberTrace-Intelligence/internal/application/casework"
	"github.com/turtacn/CyberTrace-Intelligence/internal/extraction"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// AnalysisHandler serves the evidence extraction and analysis endpoints.
type AnalysisHandler struct {
	svc casework.Service
}

// NewAnalysisHandler builds the handler.
func NewAnalysisHandler(svc casework.Service) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

type fileRequest struct {
	FilePath string `json:"file_path" binding:"required"`
}

// AnalyzeAudio transcribes an audio evidence file.
func (h *AnalysisHandler) AnalyzeAudio(c *gin.Context) {
	var req fileRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.AnalyzeAudio(c.Request.Context(), req.FilePath)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcribed_text": res.Text, "not_found": res.NotFound})
}

// AnalyzeImage runs OCR over an image evidence file.
func (h *AnalysisHandler) AnalyzeImage(c *gin.Context) {
	var req fileRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.AnalyzeImage(c.Request.Context(), req.FilePath)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"extracted_text": res.Text, "not_found": res.NotFound})
}

// AnalyzeDocument extracts text from a PDF evidence file.
func (h *AnalysisHandler) AnalyzeDocument(c *gin.Context) {
	var req fileRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.AnalyzeDocument(c.Request.Context(), req.FilePath)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"extracted_text": res.Text, "not_found": res.NotFound})
}

// AnalyzeVideo transcribes audio and reads frames of a video evidence file.
func (h *AnalysisHandler) AnalyzeVideo(c *gin.Context) {
	var req fileRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.AnalyzeVideo(c.Request.Context(), req.FilePath)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transcribed_audio":    res.Transcript,
		"text_from_frames":     res.Frames,
		"combined_frames_text": extraction.JoinFrames(res.Frames),
		"not_found":            res.NotFound,
	})
}

// AnalyzeComplaint extracts structured incident details from evidence texts.
func (h *AnalysisHandler) AnalyzeComplaint(c *gin.Context) {
	var ev analysis.EvidenceTexts
	if !bindJSON(c, &ev) {
		return
	}
	details, err := h.svc.AnalyzeComplaint(c.Request.Context(), ev)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", details)
}

// Summarize produces the narrative summary of evidence texts.
func (h *AnalysisHandler) Summarize(c *gin.Context) {
	var ev analysis.EvidenceTexts
	if !bindJSON(c, &ev) {
		return
	}
	summary, err := h.svc.Summarize(c.Request.Context(), ev)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// CheckContradiction reports cross-evidence inconsistencies.
func (h *AnalysisHandler) CheckContradiction(c *gin.Context) {
	var ev analysis.EvidenceTexts
	if !bindJSON(c, &ev) {
		return
	}
	res, err := h.svc.CheckContradiction(c.Request.Context(), ev)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type classifyRequest struct {
	IncidentDetails map[string]interface{} `json:"incident_details" binding:"required"`
}

// Classify computes the complaint priority from incident details.
func (h *AnalysisHandler) Classify(c *gin.Context) {
	var req classifyRequest
	if !bindJSON(c, &req) {
		return
	}
	raw, err := json.Marshal(req.IncidentDetails)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "incident details not serializable"))
		return
	}
	res, err := h.svc.Classify(raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Complete runs the full analysis pipeline over a complaint and its
// evidence files.
func (h *AnalysisHandler) Complete(c *gin.Context) {
	var req analysis.CompleteRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Complete(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
