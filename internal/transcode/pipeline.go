package transcode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jellyshrink/internal/ffmpeg"
	"jellyshrink/internal/model"
)

const (
	BackupSuffix = ".old"
	tempSuffix   = ".tmp.mkv"
)

// BackupPathFor is where the original file sits while its replacement
// is being encoded.
func BackupPathFor(path string) string { return path + BackupSuffix }

// TempPathFor is the hidden sibling the encoder writes into before the
// commit rename.
func TempPathFor(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+tempSuffix)
}

// CodecSet normalizes a codec list into the lookup form the pipeline
// decides with.
func CodecSet(codecs []string) map[string]bool {
	set := make(map[string]bool, len(codecs))
	for _, c := range codecs {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			set[c] = true
		}
	}
	return set
}

// Pipeline carries the per-run encode configuration. One instance is
// shared by every worker; per-attempt state lives in the Attempt.
type Pipeline struct {
	InefficientCodecs map[string]bool
	HWAccel           string
	VideoCodec        string
	Preset            string
	Quality           int
	DryRun            bool
}

// ProcessHooks wires one attempt's encoder output to the caller.
type ProcessHooks struct {
	Stdout     io.Writer
	Stderr     io.Writer
	LogWriter  io.Writer
	EchoOutput bool
	Progress   func(stream ffmpeg.OutputStream, line string)
	Phase      func(stage string)
}

// Process takes a claimed job through probe, decide, backup, encode
// and commit. Every failure lands in the returned Attempt; nothing an
// individual file does can error the worker.
func (p *Pipeline) Process(job model.Job, workerID int, hooks ProcessHooks) model.Attempt {
	attempt := model.Attempt{
		Job:       job,
		Worker:    workerID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	p.run(&attempt, hooks)
	attempt.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	return attempt
}

func (p *Pipeline) run(a *model.Attempt, hooks ProcessHooks) {
	info, err := os.Stat(a.Job.Path)
	if err != nil {
		p.fail(a, model.FailureMissingInput, fmt.Errorf("stat input: %w", err))
		return
	}
	a.InputBytes = info.Size()

	if !p.step(a, hooks, model.StageProbing) {
		return
	}
	codec, err := ffmpeg.VideoCodec(a.Job.Path)
	if err != nil {
		p.fail(a, model.FailureProbe, err)
		return
	}
	a.Codec = codec

	if !p.step(a, hooks, model.StageDeciding) {
		return
	}
	if !p.InefficientCodecs[codec] {
		p.finish(a, model.OutcomeSkipped)
		return
	}
	if p.DryRun {
		a.WouldTranscode = true
		p.finish(a, model.OutcomeSkipped)
		return
	}

	if !p.step(a, hooks, model.StageBackingUp) {
		return
	}
	backup := BackupPathFor(a.Job.Path)
	if err := os.Rename(a.Job.Path, backup); err != nil {
		p.fail(a, model.FailureBackupRename, describeRenameFailure(a.Job.Path, backup, err))
		return
	}
	a.BackupPath = backup
	a.TempPath = TempPathFor(a.Job.Path)

	if !p.step(a, hooks, model.StageEncoding) {
		return
	}
	_, encErr := ffmpeg.Encode(ffmpeg.EncodeOptions{
		InputPath:  backup,
		OutputPath: a.TempPath,
		HWAccel:    p.HWAccel,
		VideoCodec: p.VideoCodec,
		Preset:     p.Preset,
		Quality:    p.Quality,
		Stdout:     hooks.Stdout,
		Stderr:     hooks.Stderr,
		LogWriter:  hooks.LogWriter,
		EchoOutput: hooks.EchoOutput,
		Progress:   hooks.Progress,
	})
	if encErr != nil {
		p.rollback(a, hooks, model.FailureEncode, encErr)
		return
	}
	if out, err := os.Stat(a.TempPath); err == nil {
		a.OutputBytes = out.Size()
	}

	if !p.step(a, hooks, model.StageCommitting) {
		return
	}
	if err := os.Rename(a.TempPath, a.Job.Path); err != nil {
		p.rollback(a, hooks, model.FailureCommitRename, describeRenameFailure(a.TempPath, a.Job.Path, err))
		return
	}
	if err := os.Remove(backup); err != nil {
		a.Warning = fmt.Sprintf("backup left behind: %v", err)
	}
	p.finish(a, model.OutcomeCommitted)
}

// rollback puts the original file back and clears the partial encode.
// A successful restore is a recorded rollback; a failed restore is a
// failure that names both errors.
func (p *Pipeline) rollback(a *model.Attempt, hooks ProcessHooks, kind string, cause error) {
	if !p.step(a, hooks, model.StageRollingBack) {
		return
	}
	var restoreErr error
	if _, err := os.Stat(a.BackupPath); err == nil {
		restoreErr = os.Rename(a.BackupPath, a.Job.Path)
	} else {
		restoreErr = fmt.Errorf("backup missing: %v", err)
	}
	if _, err := os.Stat(a.TempPath); err == nil {
		if err := os.Remove(a.TempPath); err != nil && a.Warning == "" {
			a.Warning = fmt.Sprintf("temp file left behind: %v", err)
		}
	}

	a.FailureKind = kind
	if restoreErr != nil {
		a.Error = fmt.Sprintf("%v; restore backup: %v", cause, restoreErr)
		p.finish(a, model.OutcomeFailed)
		return
	}
	a.Error = cause.Error()
	p.finish(a, model.OutcomeRolledBack)
}

func (p *Pipeline) step(a *model.Attempt, hooks ProcessHooks, stage string) bool {
	if err := model.AdvanceStage(a, stage); err != nil {
		a.Outcome = model.OutcomeFailed
		a.FailureKind = model.FailureInternal
		a.Error = err.Error()
		return false
	}
	if hooks.Phase != nil {
		hooks.Phase(stage)
	}
	return true
}

func (p *Pipeline) finish(a *model.Attempt, outcome string) {
	if err := model.AdvanceStage(a, outcome); err != nil {
		a.Outcome = model.OutcomeFailed
		a.FailureKind = model.FailureInternal
		a.Error = err.Error()
		return
	}
	a.Outcome = outcome
}

func (p *Pipeline) fail(a *model.Attempt, kind string, err error) {
	a.FailureKind = kind
	a.Error = err.Error()
	p.finish(a, model.OutcomeFailed)
}

// describeRenameFailure reports which side of a failed rename exists,
// so the operator knows whether the media file is still in place.
func describeRenameFailure(from, to string, cause error) error {
	_, fromErr := os.Stat(from)
	_, toErr := os.Stat(to)
	switch {
	case fromErr == nil && toErr != nil:
		return fmt.Errorf("rename %s -> %s: %w (source still in place)", from, to, cause)
	case fromErr != nil && toErr == nil:
		return fmt.Errorf("rename %s -> %s: %w (target exists, source gone)", from, to, cause)
	case fromErr == nil && toErr == nil:
		return fmt.Errorf("rename %s -> %s: %w (both paths exist)", from, to, cause)
	default:
		return fmt.Errorf("rename %s -> %s: %w (neither path exists)", from, to, cause)
	}
}
