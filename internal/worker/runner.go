package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/turtacn/CyberTrace-Intelligence/internal/config"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
)

// Runner invokes registered tasks.  Each call spawns a fresh process; no
// state survives between invocations.
type Runner interface {
	// Invoke runs the named task with payload serialized as the stdin
	// request, and returns the task's stdout result unchanged.  Blocks while
	// the concurrency limit is saturated; honors ctx cancellation by killing
	// the process.
	Invoke(ctx context.Context, task string, payload interface{}) (json.RawMessage, error)
}

type execRunner struct {
	cfg     config.WorkerConfig
	sem     *semaphore.Weighted
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewRunner builds the production Runner from configuration.
func NewRunner(cfg config.WorkerConfig, logger logging.Logger, metrics *prometheus.AppMetrics) Runner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	var sem *semaphore.Weighted
	if cfg.MaxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return &execRunner{
		cfg:     cfg,
		sem:     sem,
		logger:  logger.Named("worker"),
		metrics: metrics,
	}
}

func (r *execRunner) Invoke(ctx context.Context, task string, payload interface{}) (json.RawMessage, error) {
	desc, err := Lookup(task)
	if err != nil {
		r.observe(task, "spawn_error", 0)
		return nil, err
	}

	request, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam,
			"task payload is not serializable")
	}

	if r.sem != nil {
		if !r.sem.TryAcquire(1) {
			r.logger.Debug("worker pool saturated, waiting", logging.String("task", task))
			if acqErr := r.sem.Acquire(ctx, 1); acqErr != nil {
				r.observe(task, "saturated", 0)
				return nil, apperrors.Wrap(acqErr, apperrors.ErrCodeWorkerSaturated,
					"gave up waiting for a worker slot")
			}
		}
		defer r.sem.Release(1)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cfg.InvokeTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.InvokeTimeout)
		defer cancel()
	}

	program := filepath.Join(r.cfg.TaskDir, desc.Program)
	if _, statErr := os.Stat(program); statErr != nil {
		r.observe(task, "spawn_error", 0)
		return nil, apperrors.Wrap(statErr, apperrors.ErrCodeWorkerSpawn,
			"task program missing: "+program)
	}

	var cmd *exec.Cmd
	if r.cfg.Runtime != "" {
		cmd = exec.CommandContext(runCtx, r.cfg.Runtime, program)
	} else {
		cmd = exec.CommandContext(runCtx, program)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(request)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.metrics.WorkerActive.WithLabelValues(task).Inc()
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)
	r.metrics.WorkerActive.WithLabelValues(task).Dec()

	r.logger.Debug("worker finished",
		logging.String("task", task),
		logging.String("version", desc.Version),
		logging.Duration("elapsed", elapsed),
		logging.Bool("ok", runErr == nil))

	if runErr != nil {
		return nil, r.classifyRunError(runCtx, ctx, task, runErr, &stdout, &stderr, elapsed)
	}

	result, decErr := decodeResult(task, stdout.Bytes(), desc.TextOnly)
	switch {
	case decErr != nil:
		r.observe(task, "protocol_error", elapsed)
		return nil, decErr
	case desc.TextOnly && IsDegraded(result) && !json.Valid(stdout.Bytes()):
		r.observe(task, "degraded", elapsed)
	default:
		r.observe(task, "ok", elapsed)
	}
	return result, nil
}

// classifyRunError maps a cmd.Run failure onto the task error taxonomy.
// runCtx carries the per-invocation deadline; parent is the caller's context.
func (r *execRunner) classifyRunError(runCtx, parent context.Context, task string, runErr error, stdout, stderr *bytes.Buffer, elapsed time.Duration) error {
	// Context expiry is checked first: a canceled or timed-out context
	// surfaces as a non-ExitError when the process never started, and must
	// not be mistaken for a spawn failure.
	if parent.Err() != nil {
		r.observe(task, "canceled", elapsed)
		return apperrors.Wrap(parent.Err(), apperrors.CodeInternal,
			"task "+task+" canceled")
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.observe(task, "timeout", elapsed)
		return apperrors.Newf(apperrors.ErrCodeWorkerTimeout,
			"task %q killed after %s", task, elapsed.Round(time.Millisecond))
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		// The process never ran: interpreter missing, permission denied.
		r.observe(task, "spawn_error", elapsed)
		return apperrors.Wrap(runErr, apperrors.ErrCodeWorkerSpawn,
			"could not start task "+task)
	}

	output := stderr.String()
	if output == "" {
		output = stdout.String()
	}
	r.observe(task, "runtime_error", elapsed)
	return newRuntimeError(RuntimeFailure{
		Task:     task,
		ExitCode: exitErr.ExitCode(),
		Output:   output,
	})
}

func (r *execRunner) observe(task, outcome string, elapsed time.Duration) {
	r.metrics.WorkerInvocationsTotal.WithLabelValues(task, outcome).Inc()
	if elapsed > 0 {
		r.metrics.WorkerInvokeDuration.WithLabelValues(task).Observe(elapsed.Seconds())
	}
}
