package transcode

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"jellyshrink/internal/ffmpeg"
	"jellyshrink/internal/model"
	"jellyshrink/internal/runstore"
	"jellyshrink/internal/version"
	"jellyshrink/internal/worklist"
)

const (
	BackoffPolicyFixed       = "fixed"
	BackoffPolicyExponential = "exponential"
)

type RunOptions struct {
	ListPath          string
	BaseDir           string
	FailureLogPath    string
	ReportsDir        string
	Workers           int
	IdleWait          time.Duration
	BackoffPolicy     string
	InefficientCodecs []string
	HWAccel           string
	VideoCodec        string
	Preset            string
	Quality           int
	DryRun            bool
	Progress          bool
	RawOutput         bool
}

type RunResult struct {
	RunID          string
	ReportPath     string
	Workers        int
	Processed      int
	Committed      int
	Skipped        int
	WouldTranscode int
	RolledBack     int
	Failed         int
	InputBytes     int64
	OutputBytes    int64
	SavedBytes     int64
	Remaining      int
	NothingToDo    bool
	WorkerErrors   []string
}

// Run drains the job list with a pool of workers. Workers coordinate
// with other runs purely through the list file and claim markers; the
// exit status reflects run mechanics only, never individual files.
func Run(opts RunOptions) (RunResult, error) {
	listPath := strings.TrimSpace(opts.ListPath)
	if listPath == "" {
		return RunResult{}, fmt.Errorf("job list path is required")
	}
	baseDir := strings.TrimSpace(opts.BaseDir)
	if baseDir == "" {
		return RunResult{}, fmt.Errorf("base directory is required")
	}
	if _, err := os.Stat(listPath); err != nil {
		return RunResult{}, fmt.Errorf("job list %s: %w", listPath, err)
	}

	deps := ffmpeg.DependencyStatus()
	if !deps.FFprobeFound {
		return RunResult{}, fmt.Errorf("missing dependency: ffprobe is not installed or not on PATH")
	}
	if !opts.DryRun && !deps.FFmpegFound {
		return RunResult{}, fmt.Errorf("missing dependency: ffmpeg is not installed or not on PATH")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	idleWait := opts.IdleWait
	if idleWait <= 0 {
		idleWait = 500 * time.Millisecond
	}
	if idleWait < 50*time.Millisecond {
		idleWait = 50 * time.Millisecond
	}
	backoffPolicy, err := NormalizeBackoffPolicy(opts.BackoffPolicy)
	if err != nil {
		return RunResult{}, err
	}

	failLogPath := strings.TrimSpace(opts.FailureLogPath)
	if failLogPath == "" {
		failLogPath = "transcode_failures.log"
	}

	store := worklist.NewStore(listPath, baseDir)
	failLog := NewFailureLog(failLogPath, baseDir)
	pipeline := &Pipeline{
		InefficientCodecs: CodecSet(opts.InefficientCodecs),
		HWAccel:           opts.HWAccel,
		VideoCodec:        opts.VideoCodec,
		Preset:            opts.Preset,
		Quality:           opts.Quality,
		DryRun:            opts.DryRun,
	}

	target, err := store.CountPending()
	if err != nil {
		return RunResult{}, fmt.Errorf("read job list: %w", err)
	}
	if target == 0 {
		// Checked up front so an empty queue never spins up the pool.
		return RunResult{Workers: workers, NothingToDo: true}, nil
	}

	runID := newRunID()
	startedAt := time.Now().UTC()

	dashboardEnabled := opts.Progress && workers > 1
	var dash *multiDashboard
	if dashboardEnabled {
		dash = newMultiDashboard(workers)
		dash.SetTotals(0, target, 0, 0, 0, 0, 0)
		dash.Start()
		defer dash.Stop()
	}

	var totals runTotals
	var attemptsMu sync.Mutex
	attempts := make([]model.Attempt, 0, target)
	var workerErrs []string
	var logMu sync.Mutex

	pushTotals := func() {
		if dashboardEnabled {
			dash.SetTotals(
				int(totals.processed.Load()), target,
				int(totals.committed.Load()), int(totals.skipped.Load()),
				int(totals.rolledBack.Load()), int(totals.failed.Load()),
				totals.savedBytes(),
			)
		}
	}

	handle := func(workerID int, take worklist.Take) {
		defer func() {
			if err := take.Lock.Release(); err != nil {
				logMu.Lock()
				fmt.Fprintf(os.Stderr, "warn: release claim marker for %s: %v\n", take.Job.Path, err)
				logMu.Unlock()
			}
		}()

		name := filepath.Base(take.Job.Path)
		progressEnabled := opts.Progress && workers == 1
		progress := newLiveProgress(
			opts.Progress,
			workerID,
			name,
			int(totals.processed.Load()),
			target,
			int(totals.rolledBack.Load()+totals.failed.Load()),
		)
		if progressEnabled {
			progress.Start()
		}
		if dashboardEnabled {
			dash.SetWorker(workerID, progress)
		}
		if !progressEnabled && !dashboardEnabled {
			logMu.Lock()
			fmt.Printf("[w%d] start %s\n", workerID, name)
			logMu.Unlock()
		}

		var attempt model.Attempt
		func() {
			defer func() {
				if r := recover(); r != nil {
					attempt = model.Attempt{
						Job:         take.Job,
						Worker:      workerID,
						Outcome:     model.OutcomeFailed,
						FailureKind: model.FailureInternal,
						Error:       fmt.Sprintf("panic: %v", r),
					}
				}
			}()
			attempt = pipeline.Process(take.Job, workerID, ProcessHooks{
				Stdout:     os.Stdout,
				Stderr:     os.Stderr,
				EchoOutput: opts.RawOutput && !dashboardEnabled,
				Progress:   progress.Handle,
				Phase: func(stage string) {
					progress.SetPhase(strings.ReplaceAll(stage, "_", " "))
				},
			})
			progress.SetCodec(attempt.Codec)
		}()

		totals.add(attempt)
		attemptsMu.Lock()
		attempts = append(attempts, attempt)
		attemptsMu.Unlock()

		if !attempt.Succeeded() {
			if err := failLog.Record(attempt.Job.Path); err != nil {
				logMu.Lock()
				fmt.Fprintf(os.Stderr, "warn: record failure for %s: %v\n", attempt.Job.Path, err)
				logMu.Unlock()
			}
		}

		msg := attemptMessage(attempt)
		pushTotals()
		if progressEnabled {
			progress.Stop(msg)
		}
		if dashboardEnabled {
			dash.RemoveWorker(workerID, msg)
		}
		if !progressEnabled && !dashboardEnabled {
			logMu.Lock()
			fmt.Println(msg)
			logMu.Unlock()
		}
	}

	var wg sync.WaitGroup
	workerFn := func(workerID int) {
		defer wg.Done()
		policy := newIdleBackoff(backoffPolicy, idleWait)
		exhausted := 0
		for {
			take, err := store.TakeNext()
			if err != nil {
				attemptsMu.Lock()
				workerErrs = append(workerErrs, fmt.Sprintf("worker %d: %v", workerID, err))
				attemptsMu.Unlock()
				return
			}
			switch take.Outcome {
			case worklist.TakeClaimed:
				exhausted = 0
				policy.Reset()
				handle(workerID, take)
			case worklist.TakeNothingClaimable:
				// Remaining lines are claim-marked by someone else;
				// wait for them to finish or the list to drain.
				exhausted = 0
				idleSleep(policy, idleWait)
			case worklist.TakeExhausted:
				// One more look closes the race with a claimer that
				// removed the final line just before our read.
				exhausted++
				if exhausted >= 2 {
					return
				}
				idleSleep(policy, idleWait)
			}
		}
	}

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go workerFn(w)
	}
	wg.Wait()
	if dashboardEnabled {
		pushTotals()
	}

	finishedAt := time.Now().UTC()
	remaining, err := store.CountPending()
	if err != nil {
		remaining = 0
	}

	result := RunResult{
		RunID:          runID,
		Workers:        workers,
		Processed:      int(totals.processed.Load()),
		Committed:      int(totals.committed.Load()),
		Skipped:        int(totals.skipped.Load()),
		WouldTranscode: int(totals.wouldTranscode.Load()),
		RolledBack:     int(totals.rolledBack.Load()),
		Failed:         int(totals.failed.Load()),
		InputBytes:     totals.inputBytes.Load(),
		OutputBytes:    totals.outputBytes.Load(),
		SavedBytes:     totals.savedBytes(),
		Remaining:      remaining,
		WorkerErrors:   workerErrs,
	}

	if reportsDir := strings.TrimSpace(opts.ReportsDir); reportsDir != "" {
		if err := runstore.Mkdir(reportsDir); err != nil {
			return result, err
		}
		report := model.RunReport{
			RunID:          runID,
			Version:        version.Value,
			StartedAt:      startedAt.Format(time.RFC3339),
			FinishedAt:     finishedAt.Format(time.RFC3339),
			ListPath:       listPath,
			BaseDir:        baseDir,
			Workers:        workers,
			DryRun:         opts.DryRun,
			Processed:      result.Processed,
			Committed:      result.Committed,
			Skipped:        result.Skipped,
			WouldTranscode: result.WouldTranscode,
			RolledBack:     result.RolledBack,
			Failed:         result.Failed,
			InputBytes:     result.InputBytes,
			OutputBytes:    result.OutputBytes,
			SavedBytes:     result.SavedBytes,
			WorkerErrors:   workerErrs,
			Attempts:       attempts,
		}
		reportPath := runstore.RunReportPath(reportsDir, runID)
		if err := runstore.WriteJSON(reportPath, report); err != nil {
			return result, fmt.Errorf("write run report: %w", err)
		}
		result.ReportPath = reportPath
	}

	return result, nil
}

type runTotals struct {
	processed      atomic.Int64
	committed      atomic.Int64
	skipped        atomic.Int64
	wouldTranscode atomic.Int64
	rolledBack     atomic.Int64
	failed         atomic.Int64
	inputBytes     atomic.Int64
	outputBytes    atomic.Int64
}

func (t *runTotals) add(a model.Attempt) {
	t.processed.Add(1)
	switch a.Outcome {
	case model.OutcomeCommitted:
		t.committed.Add(1)
		t.inputBytes.Add(a.InputBytes)
		t.outputBytes.Add(a.OutputBytes)
	case model.OutcomeSkipped:
		t.skipped.Add(1)
		if a.WouldTranscode {
			t.wouldTranscode.Add(1)
		}
	case model.OutcomeRolledBack:
		t.rolledBack.Add(1)
	case model.OutcomeFailed:
		t.failed.Add(1)
	}
}

func (t *runTotals) savedBytes() int64 {
	return t.inputBytes.Load() - t.outputBytes.Load()
}

func NormalizeBackoffPolicy(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", BackoffPolicyFixed:
		return BackoffPolicyFixed, nil
	case BackoffPolicyExponential:
		return BackoffPolicyExponential, nil
	default:
		return "", fmt.Errorf("invalid backoff policy %q (expected fixed or exponential)", strings.TrimSpace(raw))
	}
}

func newIdleBackoff(policy string, idleWait time.Duration) backoff.BackOff {
	if policy == BackoffPolicyExponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = idleWait
		b.MaxInterval = 30 * time.Second
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
	return backoff.NewConstantBackOff(idleWait)
}

func idleSleep(policy backoff.BackOff, idleWait time.Duration) {
	d := policy.NextBackOff()
	if d == backoff.Stop {
		d = idleWait
	}
	time.Sleep(d)
}

func attemptMessage(a model.Attempt) string {
	name := filepath.Base(a.Job.Path)
	prefix := fmt.Sprintf("[w%d]", a.Worker)
	switch a.Outcome {
	case model.OutcomeCommitted:
		msg := fmt.Sprintf("%s done  %s (%s)", prefix, name, a.Codec)
		if saved := a.InputBytes - a.OutputBytes; saved > 0 {
			msg += fmt.Sprintf(" saved %s", formatBytesIEC(saved))
		}
		if a.Warning != "" {
			msg += " [" + a.Warning + "]"
		}
		return msg
	case model.OutcomeSkipped:
		if a.WouldTranscode {
			return fmt.Sprintf("%s would  %s (%s)", prefix, name, a.Codec)
		}
		return fmt.Sprintf("%s skip  %s (%s)", prefix, name, a.Codec)
	case model.OutcomeRolledBack:
		return fmt.Sprintf("%s fail  %s (rolled back: %s)", prefix, name, a.FailureKind)
	default:
		return fmt.Sprintf("%s fail  %s (%s)", prefix, name, a.FailureKind)
	}
}

func newRunID() string {
	return time.Now().UTC().Format("20060102T150405Z") + "_" + uuid.NewString()[:8]
}
