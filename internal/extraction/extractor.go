// Package extraction wraps the evidence-modality worker tasks behind thin,
// stateless adapters.  Each adapter is a pure function of a file path: an
// empty path contributes empty text, a path to a nonexistent file yields an
// explicit not-found result, and only genuine processing failures surface as
// errors.
package extraction

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/worker"
)

// TextResult is the outcome of a single-text extraction (audio, image,
// document).  An empty Text is a valid, non-error value.
type TextResult struct {
	Text string `json:"text"`

	// NotFound is set when a path was supplied but no file exists there.
	// Distinguishes "nothing to extract" from "extraction produced nothing".
	NotFound bool `json:"not_found,omitempty"`
}

// VideoResult carries both video channels: the audio transcript and the
// per-frame OCR texts.  Frames stay separate; callers join them when a
// single text is needed.
type VideoResult struct {
	Transcript string   `json:"transcribed_audio"`
	Frames     []string `json:"text_from_frames"`
	NotFound   bool     `json:"not_found,omitempty"`
}

// JoinFrames flattens per-frame texts into one string with single spaces,
// dropping empty frames.
func JoinFrames(frames []string) string {
	kept := make([]string, 0, len(frames))
	for _, f := range frames {
		if s := strings.TrimSpace(f); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}

// Extractor dispatches evidence files to their modality tasks.
type Extractor struct {
	runner worker.Runner
	logger logging.Logger
}

// New builds an Extractor over the given task runner.
func New(runner worker.Runner, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{runner: runner, logger: logger.Named("extraction")}
}

// checkPath applies the shared path policy.  ok is true only when the
// adapter should actually invoke its task.
func (e *Extractor) checkPath(path string) (notFound, ok bool) {
	if path == "" {
		return false, false
	}
	if _, err := os.Stat(path); err != nil {
		e.logger.Warn("evidence file not found", logging.String("path", path))
		return true, false
	}
	return false, true
}

// Audio transcribes a recording to text.
func (e *Extractor) Audio(ctx context.Context, path string) (TextResult, error) {
	if notFound, ok := e.checkPath(path); !ok {
		return TextResult{NotFound: notFound}, nil
	}
	raw, err := e.runner.Invoke(ctx, worker.TaskTranscribeAudio,
		map[string]string{"audio_file_path": path})
	if err != nil {
		return TextResult{}, err
	}
	var out struct {
		TranscribedText string `json:"transcribed_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return TextResult{}, err
	}
	return TextResult{Text: out.TranscribedText}, nil
}

// Image runs OCR over a screenshot or photo.
func (e *Extractor) Image(ctx context.Context, path string) (TextResult, error) {
	if notFound, ok := e.checkPath(path); !ok {
		return TextResult{NotFound: notFound}, nil
	}
	raw, err := e.runner.Invoke(ctx, worker.TaskOCRImage,
		map[string]string{"image_file_path": path})
	if err != nil {
		return TextResult{}, err
	}
	var out struct {
		ExtractedText string `json:"extracted_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return TextResult{}, err
	}
	return TextResult{Text: out.ExtractedText}, nil
}

// Document extracts text from a PDF.
func (e *Extractor) Document(ctx context.Context, path string) (TextResult, error) {
	if notFound, ok := e.checkPath(path); !ok {
		return TextResult{NotFound: notFound}, nil
	}
	raw, err := e.runner.Invoke(ctx, worker.TaskExtractPDF,
		map[string]string{"pdf_file_path": path})
	if err != nil {
		return TextResult{}, err
	}
	var out struct {
		ExtractedText string `json:"extracted_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return TextResult{}, err
	}
	return TextResult{Text: out.ExtractedText}, nil
}

// Video extracts the audio transcript and per-frame OCR texts.
func (e *Extractor) Video(ctx context.Context, path string) (VideoResult, error) {
	if notFound, ok := e.checkPath(path); !ok {
		return VideoResult{NotFound: notFound}, nil
	}
	raw, err := e.runner.Invoke(ctx, worker.TaskAnalyzeVideo,
		map[string]string{"video_file_path": path})
	if err != nil {
		return VideoResult{}, err
	}
	var out struct {
		TranscribedAudio string   `json:"transcribed_audio"`
		TextFromFrames   []string `json:"text_from_frames"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return VideoResult{}, err
	}
	return VideoResult{Transcript: out.TranscribedAudio, Frames: out.TextFromFrames}, nil
}
