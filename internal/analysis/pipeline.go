package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CyberTrace-Intelligence/internal/extraction"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CyberTrace-Intelligence/internal/worker"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// EvidenceTexts carries the complaint narrative and every extracted evidence
// text under its own named field.  Fields are never concatenated before
// being handed to a sub-task; each task sees which modality said what.
type EvidenceTexts struct {
	Complaint       string `json:"complaint"`
	ImageText       string `json:"image_text,omitempty"`
	PDFText         string `json:"pdf_text,omitempty"`
	AudioText       string `json:"audio_text,omitempty"`
	VideoAudioText  string `json:"video_audio_text,omitempty"`
	VideoFramesText string `json:"video_frames_text,omitempty"`
}

// ContradictionResult is the cross-evidence consistency verdict.  A true
// HasContradiction is a review signal for an investigator, never a reason to
// auto-discard the complaint.
type ContradictionResult struct {
	Analysis         string `json:"analysis"`
	HasContradiction bool   `json:"has_contradiction"`
}

// CompleteRequest names the complaint and optional evidence files for a full
// analysis run.
type CompleteRequest struct {
	Complaint string `json:"complaint"`
	ImagePath string `json:"image_path,omitempty"`
	PDFPath   string `json:"pdf_path,omitempty"`
	AudioPath string `json:"audio_path,omitempty"`
	VideoPath string `json:"video_path,omitempty"`
}

// CompleteResult is the union of all four sub-task outputs.
type CompleteResult struct {
	IncidentDetails       json.RawMessage `json:"incident_details"`
	NarrativeSummary      string          `json:"narrative_summary"`
	ContradictionAnalysis string          `json:"contradiction_analysis"`
	HasContradiction      bool            `json:"has_contradiction"`
	Priority              string          `json:"priority"`
	PriorityScore         float64         `json:"priority_score"`

	// MissingEvidence lists supplied paths that pointed at no file.  Their
	// modality contributed empty text rather than failing the run.
	MissingEvidence []string `json:"missing_evidence,omitempty"`
}

// Pipeline orchestrates the analysis sub-tasks.
type Pipeline struct {
	runner    worker.Runner
	extractor *extraction.Extractor
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

// NewPipeline builds the analysis pipeline.
func NewPipeline(runner worker.Runner, extractor *extraction.Extractor, logger logging.Logger, metrics *prometheus.AppMetrics) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &Pipeline{runner: runner, extractor: extractor, logger: logger.Named("analysis"), metrics: metrics}
}

func (p *Pipeline) observe(stage string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.metrics.PipelineRunsTotal.WithLabelValues(stage, outcome).Inc()
	p.metrics.PipelineRunDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Details extracts structured incident details.  The returned JSON is
// task-defined and treated as opaque by the pipeline; only the classifier
// reads specific fields out of it.
func (p *Pipeline) Details(ctx context.Context, ev EvidenceTexts) (json.RawMessage, error) {
	start := time.Now()
	raw, err := p.runner.Invoke(ctx, worker.TaskIncidentDetails, ev)
	p.observe("details", start, err)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDetailsFailed,
			"incident detail extraction failed")
	}
	return raw, nil
}

// Summary produces a narrative summary of the evidence.
func (p *Pipeline) Summary(ctx context.Context, ev EvidenceTexts) (string, error) {
	start := time.Now()
	raw, err := p.runner.Invoke(ctx, worker.TaskNarrativeSummary, ev)
	p.observe("summary", start, err)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSummaryFailed,
			"narrative summary failed")
	}
	return textFromResult(raw), nil
}

// Contradiction checks the evidence set for internal inconsistencies.
func (p *Pipeline) Contradiction(ctx context.Context, ev EvidenceTexts) (ContradictionResult, error) {
	start := time.Now()
	raw, err := p.runner.Invoke(ctx, worker.TaskContradiction, ev)
	p.observe("contradiction", start, err)
	if err != nil {
		return ContradictionResult{}, apperrors.Wrap(err, apperrors.ErrCodeContradictionFailed,
			"contradiction detection failed")
	}
	var out ContradictionResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return ContradictionResult{}, apperrors.Wrap(err, apperrors.ErrCodeContradictionFailed,
			"contradiction result malformed")
	}
	return out, nil
}

// Classify runs the native priority rule over previously extracted details.
func (p *Pipeline) Classify(details json.RawMessage) (ClassificationResult, error) {
	res, err := Classify(details)
	if err != nil {
		return ClassificationResult{}, err
	}
	p.metrics.ClassificationsTotal.WithLabelValues(res.Priority).Inc()
	return res, nil
}

// GatherEvidence runs the modality extractors for every supplied path and
// assembles the named evidence texts.  Paths pointing at no file are
// reported in missing and contribute empty text.
func (p *Pipeline) GatherEvidence(ctx context.Context, req CompleteRequest) (EvidenceTexts, []string, error) {
	ev := EvidenceTexts{Complaint: req.Complaint}
	var missing []string

	g, gctx := errgroup.WithContext(ctx)

	var imageRes, pdfRes, audioRes extraction.TextResult
	var videoRes extraction.VideoResult

	g.Go(func() (err error) {
		imageRes, err = p.extractor.Image(gctx, req.ImagePath)
		return wrapExtraction(err, "image")
	})
	g.Go(func() (err error) {
		pdfRes, err = p.extractor.Document(gctx, req.PDFPath)
		return wrapExtraction(err, "pdf")
	})
	g.Go(func() (err error) {
		audioRes, err = p.extractor.Audio(gctx, req.AudioPath)
		return wrapExtraction(err, "audio")
	})
	g.Go(func() (err error) {
		videoRes, err = p.extractor.Video(gctx, req.VideoPath)
		return wrapExtraction(err, "video")
	})
	if err := g.Wait(); err != nil {
		return EvidenceTexts{}, nil, err
	}

	ev.ImageText = imageRes.Text
	ev.PDFText = pdfRes.Text
	ev.AudioText = audioRes.Text
	ev.VideoAudioText = videoRes.Transcript
	ev.VideoFramesText = extraction.JoinFrames(videoRes.Frames)

	if imageRes.NotFound {
		missing = append(missing, req.ImagePath)
	}
	if pdfRes.NotFound {
		missing = append(missing, req.PDFPath)
	}
	if audioRes.NotFound {
		missing = append(missing, req.AudioPath)
	}
	if videoRes.NotFound {
		missing = append(missing, req.VideoPath)
	}
	return ev, missing, nil
}

func wrapExtraction(err error, modality string) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(err, apperrors.ErrCodeExtractionFailed,
		modality+" evidence extraction failed")
}

// Complete runs the full analysis: evidence gathering, then details, summary
// and contradiction in parallel, then classification over the details.
// Fail-fast: the first sub-task failure aborts the run; remaining sub-tasks
// are canceled through the group context.
func (p *Pipeline) Complete(ctx context.Context, req CompleteRequest) (CompleteResult, error) {
	if strings.TrimSpace(req.Complaint) == "" {
		return CompleteResult{}, apperrors.InvalidParam("complaint text is required")
	}

	start := time.Now()
	ev, missing, err := p.GatherEvidence(ctx, req)
	if err != nil {
		p.observe("complete", start, err)
		return CompleteResult{}, err
	}

	var (
		details       json.RawMessage
		summary       string
		contradiction ContradictionResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		details, err = p.Details(gctx, ev)
		return err
	})
	g.Go(func() (err error) {
		summary, err = p.Summary(gctx, ev)
		return err
	})
	g.Go(func() (err error) {
		contradiction, err = p.Contradiction(gctx, ev)
		return err
	})
	if err := g.Wait(); err != nil {
		p.observe("complete", start, err)
		return CompleteResult{}, err
	}

	classification, err := p.Classify(details)
	if err != nil {
		p.observe("complete", start, err)
		return CompleteResult{}, err
	}
	p.observe("complete", start, nil)

	return CompleteResult{
		IncidentDetails:       details,
		NarrativeSummary:      summary,
		ContradictionAnalysis: contradiction.Analysis,
		HasContradiction:      contradiction.HasContradiction,
		Priority:              classification.Priority,
		PriorityScore:         classification.Score,
		MissingEvidence:       missing,
	}, nil
}

// textFromResult accepts the three shapes a text-producing task may return:
// {"summary": ...}, the degraded {"output": ...}, or a bare JSON string.
func textFromResult(raw json.RawMessage) string {
	var obj struct {
		Summary string `json:"summary"`
		Output  string `json:"output"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Summary != "" {
			return obj.Summary
		}
		if obj.Output != "" {
			return obj.Output
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
