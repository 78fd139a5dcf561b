// Package worker implements the task invocation layer: a fixed registry of
// versioned analysis tasks and a runner that executes each invocation in a
// freshly spawned, isolated process speaking a JSON-over-stdio protocol.
package worker

import (
	"sort"

	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// Task identifiers.  The set is fixed at build time; requests naming
// anything else are rejected before a process is spawned.
const (
	TaskTranscribeAudio = "transcribe-audio"
	TaskAnalyzeVideo    = "analyze-video"
	TaskOCRImage        = "ocr-image"
	TaskExtractPDF      = "extract-pdf"
	TaskIncidentDetails = "incident-details"
	TaskNarrativeSummary = "narrative-summary"
	TaskContradiction   = "contradiction"
	TaskEmbedText       = "embed-text"
	TaskGenerate        = "generate"
	TaskWebSearch       = "web-search"
)

// TaskDescriptor describes one registered task.
type TaskDescriptor struct {
	// Name is the task identifier clients invoke.
	Name string

	// Version is bumped whenever the task program's contract changes.
	Version string

	// Program is the task's entry file, resolved relative to the configured
	// task directory.
	Program string

	// TextOnly marks tasks whose useful output is free text.  When such a
	// task exits cleanly but emits non-JSON output, the runner degrades the
	// result to {"output": <trimmed stdout>} instead of failing the call.
	TextOnly bool

	Description string
}

// registry is the fixed task set.  Keyed by task name.
var registry = map[string]TaskDescriptor{
	TaskTranscribeAudio: {
		Name:        TaskTranscribeAudio,
		Version:     "1.2.0",
		Program:     "transcribe_audio.py",
		Description: "Speech-to-text transcription of an evidence recording.",
	},
	TaskAnalyzeVideo: {
		Name:        TaskAnalyzeVideo,
		Version:     "1.1.0",
		Program:     "analyze_video.py",
		Description: "Frame sampling and per-frame scene description of evidence video.",
	},
	TaskOCRImage: {
		Name:        TaskOCRImage,
		Version:     "1.3.0",
		Program:     "ocr_image.py",
		Description: "Text extraction from screenshot or photo evidence.",
	},
	TaskExtractPDF: {
		Name:        TaskExtractPDF,
		Version:     "1.0.1",
		Program:     "extract_pdf.py",
		Description: "Text extraction from PDF documents, page by page.",
	},
	TaskIncidentDetails: {
		Name:        TaskIncidentDetails,
		Version:     "2.0.0",
		Program:     "incident_details.py",
		Description: "Structured incident field extraction from combined evidence text.",
	},
	TaskNarrativeSummary: {
		Name:        TaskNarrativeSummary,
		Version:     "2.0.0",
		Program:     "narrative_summary.py",
		TextOnly:    true,
		Description: "Narrative summary of the combined evidence.",
	},
	TaskContradiction: {
		Name:        TaskContradiction,
		Version:     "1.4.0",
		Program:     "contradiction.py",
		Description: "Cross-evidence contradiction detection.",
	},
	TaskEmbedText: {
		Name:        TaskEmbedText,
		Version:     "1.0.0",
		Program:     "embed_text.py",
		Description: "Dense vector embedding of one or more texts.",
	},
	TaskGenerate: {
		Name:        TaskGenerate,
		Version:     "1.5.0",
		Program:     "generate.py",
		TextOnly:    true,
		Description: "Grounded answer generation over supplied context.",
	},
	TaskWebSearch: {
		Name:        TaskWebSearch,
		Version:     "1.0.2",
		Program:     "web_search.py",
		TextOnly:    true,
		Description: "Web search fallback for low-confidence retrievals.",
	},
}

// Lookup resolves a task name to its descriptor.  Unknown names yield a
// spawn-class error so callers can fail before any process is started.
func Lookup(name string) (TaskDescriptor, error) {
	d, ok := registry[name]
	if !ok {
		return TaskDescriptor{}, apperrors.Newf(apperrors.ErrCodeTaskUnknown,
			"task %q is not registered", name)
	}
	return d, nil
}

// Tasks returns all registered descriptors sorted by name.
func Tasks() []TaskDescriptor {
	out := make([]TaskDescriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsSpawnError reports whether err means no worker process produced output:
// either the task is unknown or the process could not be started.
func IsSpawnError(err error) bool {
	return apperrors.IsCode(err, apperrors.ErrCodeWorkerSpawn) ||
		apperrors.IsCode(err, apperrors.ErrCodeTaskUnknown)
}
