// Package pipeline orchestrates a single mediated write: kill check, path
// sandboxing, risk evaluation, policy gate, explanation gate, snapshot,
// atomic write, and report persistence, in that order. The write stages run
// under both an in-process mutex and a cross-process file lock, so at most
// one change commits at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/selfgate-project/selfgate/internal/audit"
	"github.com/selfgate-project/selfgate/internal/explain"
	"github.com/selfgate-project/selfgate/internal/gate"
	"github.com/selfgate-project/selfgate/internal/kill"
	"github.com/selfgate-project/selfgate/internal/lock"
	"github.com/selfgate-project/selfgate/internal/policy"
	"github.com/selfgate-project/selfgate/internal/risk"
	"github.com/selfgate-project/selfgate/internal/sandbox"
	"github.com/selfgate-project/selfgate/internal/snapshot"
	"github.com/selfgate-project/selfgate/internal/symbols"
	"github.com/selfgate-project/selfgate/pkg/config"
	"github.com/selfgate-project/selfgate/pkg/errclass"
	"github.com/selfgate-project/selfgate/pkg/fsutil"
	"github.com/selfgate-project/selfgate/pkg/logging"
	"github.com/selfgate-project/selfgate/pkg/metrics"
	"github.com/selfgate-project/selfgate/pkg/model"
)

// defaultFileMode is used for files that did not previously exist.
const defaultFileMode fs.FileMode = 0o644

// Pipeline mediates all writes to files under the sandbox root.
type Pipeline struct {
	cfg       *config.Config
	log       *logging.Logger
	kill      *kill.Switch
	sbx       *sandbox.Sandbox
	extractor symbols.Extractor
	snapshots *snapshot.Store
	store     *audit.Store
	lock      *lock.PipelineLock
	riskEng   risk.Engine
	policyEng policy.Engine
	metrics   *metrics.Registry
}

// Option customizes pipeline construction.
type Option func(*Pipeline)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithRiskEngine replaces the default permissive risk engine.
func WithRiskEngine(e risk.Engine) Option {
	return func(p *Pipeline) { p.riskEng = e }
}

// WithPolicyEngine replaces the default allow-all policy engine.
func WithPolicyEngine(e policy.Engine) Option {
	return func(p *Pipeline) { p.policyEng = e }
}

// New builds a pipeline from a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:       cfg,
		kill:      kill.New(cfg.KillSwitchPath),
		riskEng:   risk.Permissive{},
		policyEng: policy.AllowAll{},
		metrics:   metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	sbx, err := sandbox.New(cfg.AllowedRoot)
	if err != nil {
		return nil, err
	}
	p.sbx = sbx

	ex, err := symbols.New(cfg.SymbolEngine)
	if err != nil {
		return nil, err
	}
	p.extractor = ex

	snaps, err := snapshot.NewStore(filepath.Join(cfg.ChangeLogDir, "snapshots"), cfg.SnapshotKeyHex, cfg.SnapshotKeyID)
	if err != nil {
		return nil, err
	}
	p.snapshots = snaps

	signer, err := audit.NewSigner(cfg.SigningKeyHex)
	if err != nil {
		return nil, err
	}
	store, err := audit.NewStore(cfg.ChangeLogDir, signer, cfg.UseSQLite, p.log)
	if err != nil {
		return nil, err
	}
	p.store = store

	p.lock = lock.New(cfg.ChangeLogDir)
	return p, nil
}

// Close releases the store and lock resources.
func (p *Pipeline) Close() error {
	err := p.store.Close()
	if lerr := p.lock.Close(); err == nil {
		err = lerr
	}
	return err
}

// Kill exposes the kill switch for command-level trip/reset/status.
func (p *Pipeline) Kill() *kill.Switch { return p.kill }

// Store exposes the report store for verification and history.
func (p *Pipeline) Store() *audit.Store { return p.store }

// Snapshots exposes the snapshot store for manual rollback tooling.
func (p *Pipeline) Snapshots() *snapshot.Store { return p.snapshots }

// Metrics exposes the pipeline's metrics registry.
func (p *Pipeline) Metrics() *metrics.Registry { return p.metrics }

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() *config.Config { return p.cfg }

// Apply runs the full pipeline for one change request. On success the
// target file holds req.NewContent and a report exists in the change log.
// On any rejection the target file is untouched and no report is written.
func (p *Pipeline) Apply(ctx context.Context, req model.ChangeRequest) (*model.ApplyResult, error) {
	start := time.Now()
	res, err := p.apply(ctx, req)
	p.metrics.RecordApply(err == nil, time.Since(start))
	return res, err
}

func (p *Pipeline) apply(ctx context.Context, req model.ChangeRequest) (*model.ApplyResult, error) {
	// The whole call is serialized; report IDs and mirror chaining rely on
	// non-interleaved applies.
	p.lock.AcquireProcess()
	defer p.lock.ReleaseProcess()

	if err := p.kill.RequireAlive(); err != nil {
		p.metrics.RecordRejection("kill")
		return nil, err
	}

	target, err := p.sbx.Resolve(req.Path)
	if err != nil {
		p.metrics.RecordRejection("sandbox")
		return nil, err
	}

	oldContent, fileMode, err := readCurrent(target)
	if err != nil {
		return nil, err
	}

	report := audit.BuildReport(p.extractor, req.Path, oldContent, req.NewContent, req.Author, req.Intent)

	assessment, err := p.riskEng.Evaluate(ctx, risk.Context{
		FilePath:        req.Path,
		CurrentContent:  oldContent,
		ProposedContent: req.NewContent,
		Author:          req.Author,
		Intent:          req.Intent,
		Explanation:     req.Explanation,
	})
	if err != nil {
		p.metrics.RecordRejection("risk")
		return nil, errclass.ErrRiskRejected.WithMessagef("engine: %v", err)
	}
	report.Assessment = assessment
	if !assessment.RecommendAllow {
		p.metrics.RecordRejection("risk")
		return nil, errclass.ErrRiskRejected.WithMessage(assessment.Reasoning)
	}

	decision, err := p.policyEng.Choose(ctx, policy.Plan{
		Intent:   req.Intent,
		File:     req.Path,
		DiffHash: report.DiffSHA256,
	})
	if err != nil {
		p.metrics.RecordRejection("policy")
		return nil, errclass.ErrPolicyRejected.WithMessagef("engine: %v", err)
	}
	if decision.Block {
		p.metrics.RecordRejection("policy")
		return nil, errclass.ErrPolicyRejected.WithMessage(decision.Reason)
	}

	if err := p.attachExplanation(report, req.Explanation); err != nil {
		p.metrics.RecordRejection("gate")
		return nil, err
	}

	// Cross-process lock held from snapshot through persistence.
	if err := p.lock.AcquireFile(); err != nil {
		p.metrics.RecordRejection("lock")
		return nil, err
	}
	defer p.lock.ReleaseFile()

	// The switch may have tripped while the earlier stages ran.
	if err := p.kill.RequireAlive(); err != nil {
		p.metrics.RecordRejection("kill")
		return nil, err
	}

	snapPath, meta, err := p.snapshots.Take(target, oldContent, snapshotTag(report))
	if err != nil {
		return nil, errclass.ErrIO.WithMessagef("snapshot: %v", err)
	}
	if meta != nil {
		report.KeyID = meta.KeyID
		report.Nonce = meta.Nonce
		report.Tag = meta.Tag
	}

	if err := fsutil.WriteFileDurable(target, []byte(req.NewContent), fileMode); err != nil {
		return nil, errclass.ErrIO.WithMessagef("write target: %v", err)
	}

	// The file change is already durable. A persistence failure is loud but
	// does not undo the write.
	if _, err := p.store.Save(report); err != nil {
		p.log.ErrorErr("report persistence failed after write", err, "file", req.Path, "report_id", report.ID())
	} else {
		p.log.Info("change applied",
			"file", req.Path,
			"report_id", report.ID(),
			"snapshot", snapPath,
			"added_defs", len(report.ASTDelta.AddedDefs),
			"removed_defs", len(report.ASTDelta.RemovedDefs),
		)
	}

	return &model.ApplyResult{
		ReportID:     report.ID(),
		SnapshotPath: snapPath,
		NewSHA256:    report.NewSHA256,
	}, nil
}

// attachExplanation resolves the explanation for the report and runs the
// gate according to the configured mode. A missing explanation is always
// synthesized; auto-explain additionally replaces a supplied one with the
// synthesized version. In advisory mode failures are recorded on the
// report and the change proceeds.
func (p *Pipeline) attachExplanation(report *model.Report, given *model.Explanation) error {
	if given == nil || p.cfg.AutoExplain {
		report.Explanation = explain.Generate(report)
	} else {
		report.Explanation = *given
	}
	report.ExplanationErrors = []string{}

	// Mode is re-read per apply so a config change takes effect immediately.
	mode := gate.ParseMode(p.cfg.ExplainPolicy)
	if !p.cfg.RequireExplanation || mode == gate.ModeOff {
		return nil
	}

	errs := gate.Validate(report.Explanation, report.ASTDelta)
	if len(errs) == 0 {
		return nil
	}
	report.ExplanationErrors = errs
	if mode == gate.ModeStrict {
		return errclass.ErrExplanationInvalid.WithDetails("explanation rejected", errs)
	}
	p.log.Warn("explanation failed validation, advisory mode lets it through",
		"file", report.File, "errors", errs)
	return nil
}

// snapshotTag names a snapshot after the report that records it, keeping
// snapshots write-once across repeated applies to the same file.
func snapshotTag(r *model.Report) string {
	diff12 := r.DiffSHA256
	if len(diff12) > 12 {
		diff12 = diff12[:12]
	}
	return fmt.Sprintf("%d_%s", r.TS, diff12)
}

// readCurrent returns the target's current content and mode. A missing file
// is an empty string with the default mode; any other read error is fatal.
func readCurrent(target string) (string, fs.FileMode, error) {
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", defaultFileMode, nil
		}
		return "", 0, errclass.ErrIO.WithMessagef("read target: %v", err)
	}
	mode := defaultFileMode
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}
	return string(data), mode, nil
}
