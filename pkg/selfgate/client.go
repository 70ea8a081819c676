// Package selfgate provides high-level mediated-write operations for
// embedding programs. It wraps the full change pipeline behind a small
// client surface: propose a change, inspect history, verify the log,
// trip or reset the kill switch.
package selfgate

import (
	"context"
	"crypto/ed25519"

	"github.com/selfgate-project/selfgate/internal/pipeline"
	"github.com/selfgate-project/selfgate/internal/policy"
	"github.com/selfgate-project/selfgate/internal/risk"
	"github.com/selfgate-project/selfgate/internal/verify"
	"github.com/selfgate-project/selfgate/pkg/config"
	"github.com/selfgate-project/selfgate/pkg/logging"
	"github.com/selfgate-project/selfgate/pkg/model"
)

// Client provides mediated writes under a sandbox root.
type Client struct {
	p *pipeline.Pipeline
}

// Options configures client construction. All fields are optional.
type Options struct {
	// Logger replaces the logger built from the configuration.
	Logger *logging.Logger
	// RiskEngine replaces the default permissive engine.
	RiskEngine risk.Engine
	// PolicyEngine replaces the default allow-all engine.
	PolicyEngine policy.Engine
}

// Open loads configuration for dir (file plus environment) and builds a
// client. An empty dir means the current working directory.
func Open(dir string, opts Options) (*Client, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.AllowedRoot == "" {
		cfg.AllowedRoot = dir
	}
	return OpenWithConfig(cfg, opts)
}

// OpenWithConfig builds a client from an already validated configuration.
func OpenWithConfig(cfg *config.Config, opts Options) (*Client, error) {
	var popts []pipeline.Option
	if opts.Logger != nil {
		popts = append(popts, pipeline.WithLogger(opts.Logger))
	}
	if opts.RiskEngine != nil {
		popts = append(popts, pipeline.WithRiskEngine(opts.RiskEngine))
	}
	if opts.PolicyEngine != nil {
		popts = append(popts, pipeline.WithPolicyEngine(opts.PolicyEngine))
	}
	p, err := pipeline.New(cfg, popts...)
	if err != nil {
		return nil, err
	}
	return &Client{p: p}, nil
}

// Close releases the client's resources.
func (c *Client) Close() error {
	return c.p.Close()
}

// Apply runs one change request through the full pipeline.
func (c *Client) Apply(ctx context.Context, req model.ChangeRequest) (*model.ApplyResult, error) {
	return c.p.Apply(ctx, req)
}

// Report loads a persisted change report by ID.
func (c *Client) Report(id string) (*model.Report, error) {
	return c.p.Store().Load(id)
}

// History lists report IDs, newest first. file narrows to one target path;
// limit caps the result when positive. Without the relational mirror it
// falls back to scanning report documents.
func (c *Client) History(file string, limit int) ([]string, error) {
	if m := c.p.Store().Mirror(); m != nil {
		return m.History(file, limit)
	}
	ids, err := c.p.Store().List()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if file != "" {
			r, err := c.p.Store().Load(ids[i])
			if err != nil || r.File != file {
				continue
			}
		}
		out = append(out, ids[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Verify re-checks every report and, when the mirror is enabled, the hash
// chain.
func (c *Client) Verify(ctx context.Context) (*verify.Result, error) {
	return verify.Run(ctx, c.p.Store(), c.verifyKey())
}

// Halted reports whether the kill switch is currently tripped.
func (c *Client) Halted() bool {
	return c.p.Kill().IsTripped()
}

// Kill trips the kill switch; all subsequent applies fail until Revive.
func (c *Client) Kill() error {
	return c.p.Kill().Trip()
}

// Revive removes the kill-switch sentinel. It cannot override the
// environment-level halt.
func (c *Client) Revive() error {
	return c.p.Kill().Reset()
}

// Config returns the client's effective configuration.
func (c *Client) Config() *config.Config {
	return c.p.Config()
}

// Pipeline exposes the underlying pipeline for command-level wiring.
func (c *Client) Pipeline() *pipeline.Pipeline {
	return c.p
}

func (c *Client) verifyKey() ed25519.PublicKey {
	if s := c.p.Store().Signer(); s != nil {
		return s.PublicKey()
	}
	return nil
}
