package deps

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/fenilsonani/orgest/internal/config"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/platform"
	"github.com/fenilsonani/orgest/internal/stage"
)

// Runner executes one external command to completion
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run executes name with args and returns combined output
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// TranscoderRequirement describes the configured transcoding tool
func TranscoderRequirement(cfg config.TranscoderConfig) Requirement {
	return Requirement{
		Name:        "Transcoder",
		Command:     cfg.Command,
		Description: "Converts webp to png and ts to mp4",
	}
}

// Provisioner makes sure a required tool is present, attempting a silent
// install with the platform's configured commands when it is not
type Provisioner struct {
	req         Requirement
	autoInstall bool
	commands    []string
	installers  []string
	timeout     time.Duration
	runner      Runner
	look        func(string) (string, error)
	logger      *slog.Logger
}

// Option customizes a Provisioner
type Option func(*Provisioner)

// WithRunner replaces the command runner
func WithRunner(r Runner) Option {
	return func(p *Provisioner) { p.runner = r }
}

// WithLookPath replaces the binary lookup
func WithLookPath(look func(string) (string, error)) Option {
	return func(p *Provisioner) { p.look = look }
}

// WithPlatform selects install commands for a platform other than the host
func WithPlatform(cfg config.TranscoderConfig, pl platform.Platform) Option {
	return func(p *Provisioner) {
		p.commands = cfg.InstallCommands[pl.Key()]
		p.installers = platform.InstallersFor(pl)
	}
}

// NewProvisioner creates a provisioner for the configured transcoder
func NewProvisioner(cfg config.TranscoderConfig, logger *slog.Logger, opts ...Option) *Provisioner {
	p := &Provisioner{
		req:         TranscoderRequirement(cfg),
		autoInstall: cfg.AutoInstall,
		commands:    cfg.InstallCommands[platform.Detect().Key()],
		installers:  platform.InstallersFor(platform.Detect()),
		timeout:     time.Duration(cfg.InstallTimeoutSeconds) * time.Second,
		runner:      ExecRunner{},
		look:        lookPath,
		logger:      logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Status reports whether the tool is currently available
func (p *Provisioner) Status() Status {
	return check(p.req, p.look)
}

// Ensure returns the tool's status, installing it first when missing.
// Install commands run in order until the tool becomes available; each is
// bounded by the install timeout. The returned error wraps
// stage.ErrToolMissing when the tool is still absent.
func (p *Provisioner) Ensure(ctx context.Context) (Status, error) {
	status := p.Status()
	if status.Available {
		return status, nil
	}
	if !p.autoInstall {
		return status, fmt.Errorf("%w: %s (auto install disabled)", stage.ErrToolMissing, status.Detail)
	}
	if len(p.commands) == 0 {
		return status, fmt.Errorf("%w: %s (no install commands for %s)", stage.ErrToolMissing, status.Detail, platform.Detect())
	}

	p.logger.Info("attempting to install missing tool", "tool", p.req.Command)

	for _, line := range orderByInstaller(p.commands, p.installers) {
		if err := ctx.Err(); err != nil {
			return status, err
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if _, err := p.look(args[0]); err != nil {
			p.logger.Debug("installer not present", "command", line)
			continue
		}

		if err := p.run(ctx, args); err != nil {
			p.logger.Warn("install command failed", "command", line, logging.Error(err))
			continue
		}

		status = p.Status()
		if status.Available {
			p.logger.Info("tool installed", "tool", p.req.Command, logging.FieldPath, status.Path)
			return status, nil
		}
	}

	return status, fmt.Errorf("%w: %s", stage.ErrToolMissing, status.Detail)
}

func (p *Provisioner) run(ctx context.Context, args []string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.runner.Run(ctx, args[0], args[1:]...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("timed out after %s", p.timeout)
		}
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// orderByInstaller moves commands driven by a known package manager to the
// front, in the platform's order of preference. Commands for the same
// installer, and commands for unknown ones, keep their configured order.
func orderByInstaller(commands, installers []string) []string {
	rank := func(line string) int {
		if i := slices.Index(installers, installerOf(line)); i >= 0 {
			return i
		}
		return len(installers)
	}

	ordered := slices.Clone(commands)
	slices.SortStableFunc(ordered, func(a, b string) int {
		return rank(a) - rank(b)
	})
	return ordered
}

// installerOf returns the program a command line runs, looking past sudo
func installerOf(line string) string {
	fields := strings.Fields(line)
	if len(fields) > 1 && fields[0] == "sudo" {
		return fields[1]
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// InstallerRequirements describes the platform's package managers as
// optional tools, so their presence can be reported next to the transcoder
func InstallerRequirements(installers []string) []Requirement {
	reqs := make([]Requirement, 0, len(installers))
	for _, name := range installers {
		reqs = append(reqs, Requirement{
			Name:        "Package manager",
			Command:     name,
			Description: "Installs the transcoder when it is missing",
			Optional:    true,
		})
	}
	return reqs
}
