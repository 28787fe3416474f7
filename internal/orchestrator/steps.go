package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/config"
	"github.com/richfrem/sanctuary-gateway/internal/container"
	"github.com/richfrem/sanctuary-gateway/internal/envfile"
	"github.com/richfrem/sanctuary-gateway/internal/execx"
	"github.com/richfrem/sanctuary-gateway/internal/probe"
	"github.com/richfrem/sanctuary-gateway/internal/provision"
	"github.com/richfrem/sanctuary-gateway/internal/verify"
)

// networkAttachAttempts is the fixed retry budget for the network attach
// step; attach is flaky on rootless setups and non-critical when containers
// were started with --network already.
const networkAttachAttempts = 3

// Pipeline assembles the recreate step table from configuration and the
// component seams. The zero-value fields are filled with real
// implementations by NewPipeline; tests override them with fakes.
type Pipeline struct {
	Cfg      *config.Config
	Runtime  container.Runtime
	Provider provision.Provider
	Prober   *probe.Prober

	// Seams for host-side effects.
	RunCmd   func(ctx context.Context, c execx.Cmd) (execx.Result, error)
	LookPath func(name string) bool
	Stat     func(path string) error

	logger *common.Logger
	token  string
}

// NewPipeline wires a production pipeline. The provider is passed in because
// its construction may need the runtime (the exec provider does).
func NewPipeline(cfg *config.Config, rt container.Runtime, provider provision.Provider) *Pipeline {
	prober := probe.New(cfg.Health.URL)
	if cfg.Health.Interval > 0 {
		prober.Interval = cfg.Health.Interval
	}
	if cfg.Health.Timeout > 0 {
		prober.MaxDuration = cfg.Health.Timeout
	}
	return &Pipeline{
		Cfg:      cfg,
		Runtime:  rt,
		Provider: provider,
		Prober:   prober,
		RunCmd:   execx.Run,
		LookPath: execx.LookPath,
		Stat: func(path string) error {
			_, err := os.Stat(path)
			return err
		},
		logger: common.GetLogger().WithComponent("pipeline"),
	}
}

// Steps returns the fixed-order step table.
func (p *Pipeline) Steps() []Step {
	return []Step{
		{Name: "Preflight", Policy: PolicyFatal, Run: p.preflight,
			Remedy: "install the missing tools and check the env file is readable"},
		{Name: "Teardown", Policy: PolicyWarn, Run: p.teardown},
		{Name: "EnsureVolume", Policy: PolicyFatal, Run: p.ensureVolume,
			Remedy: fmt.Sprintf("check for containers still holding volume %q", p.Cfg.Gateway.Volume)},
		{Name: "Build", Policy: PolicyFatal, Run: p.build,
			Remedy: "inspect the build output above; rerun with --force to rebuild from scratch"},
		{Name: "Launch", Policy: PolicyFatal, Run: p.launch,
			Remedy: fmt.Sprintf("run %q manually to see the full output", strings.Join(p.Cfg.Gateway.LaunchCmd, " "))},
		{Name: "NetworkAttach", Policy: PolicyWarn, Retries: networkAttachAttempts, Run: p.networkAttach},
		{Name: "AwaitHealthy", Policy: PolicyFatal, Run: p.awaitHealthy,
			Remedy: fmt.Sprintf("check container logs: %s logs %s", p.Cfg.Runtime.Bin, p.Cfg.Gateway.Container)},
		{Name: "Provision", Policy: PolicyFatal, Run: p.provision,
			Remedy: "verify admin credentials in the env file and that the gateway auth endpoints are up"},
		{Name: "Verify", Policy: PolicyWarn, Run: p.verify},
	}
}

func (p *Pipeline) preflight(ctx context.Context) error {
	for _, tool := range p.Cfg.Runtime.Tools {
		if !p.LookPath(tool) {
			return fmt.Errorf("%w: %s", ErrToolMissing, tool)
		}
	}
	if _, err := envfile.Load(p.Cfg.EnvFile); err != nil {
		return err
	}
	if err := p.ensureMaterial(ctx, "ssl certificates", p.Cfg.Certs.SSLCmd,
		p.Cfg.Certs.SSLCert, p.Cfg.Certs.SSLKey); err != nil {
		return err
	}
	return p.ensureMaterial(ctx, "jwt rsa keys", p.Cfg.Certs.JWTCmd,
		p.Cfg.Certs.JWTPublic, p.Cfg.Certs.JWTPrivate)
}

// ensureMaterial generates key material via the configured command when any
// of the named files is missing, or unconditionally under --force.
func (p *Pipeline) ensureMaterial(ctx context.Context, what string, cmd []string, files ...string) error {
	if !p.Cfg.Force {
		present := true
		for _, f := range files {
			if p.Stat(f) != nil {
				present = false
				break
			}
		}
		if present {
			p.logger.Debug("material present", "what", what)
			return nil
		}
	}
	p.logger.Info("generating material", "what", what)
	return p.runHostCmd(ctx, cmd)
}

func (p *Pipeline) runHostCmd(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	c := execx.Cmd{Name: argv[0], Args: argv[1:], Timeout: p.Cfg.Runtime.Timeout}
	if p.Cfg.DryRun {
		p.logger.Info("dry-run", "cmd", c.String())
		return nil
	}
	res, err := p.RunCmd(ctx, c)
	if err != nil {
		return err
	}
	return res.AsError(c)
}

// teardown stops and removes the gateway (current and legacy names) and the
// demo container. Finding nothing to remove is reported so the run records a
// warning; teardown stays idempotent either way.
func (p *Pipeline) teardown(ctx context.Context) error {
	names := append([]string{p.Cfg.Gateway.Container}, p.Cfg.Gateway.Aliases...)
	if p.Cfg.Demo.Container != "" {
		names = append(names, p.Cfg.Demo.Container)
	}

	removed := 0
	var errs []error
	for _, name := range names {
		if !p.Runtime.Exists(ctx, container.KindContainer, name) {
			continue
		}
		if err := p.Runtime.Stop(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
		}
		if err := p.Runtime.Remove(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if removed == 0 {
		return errors.New("no gateway containers present: nothing to tear down")
	}
	p.logger.Info("teardown complete", "removed", removed)
	return nil
}

func (p *Pipeline) ensureVolume(ctx context.Context) error {
	name := p.Cfg.Gateway.Volume
	if p.Runtime.Exists(ctx, container.KindVolume, name) {
		if err := p.Runtime.RemoveVolume(ctx, name); err != nil {
			return fmt.Errorf("removing volume %s: %w", name, err)
		}
	}
	if err := p.Runtime.CreateVolume(ctx, name); err != nil {
		return fmt.Errorf("creating volume %s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) build(ctx context.Context) error {
	if p.Cfg.Force || !p.Runtime.Exists(ctx, container.KindImage, p.Cfg.Gateway.Image) {
		if err := p.runHostCmd(ctx, p.Cfg.Gateway.BuildCmd); err != nil {
			return fmt.Errorf("building gateway image: %w", err)
		}
	} else {
		p.logger.Info("gateway image present", "image", p.Cfg.Gateway.Image)
	}

	// Demo image is best effort: missing assets skip it with a warning.
	if p.Cfg.Demo.Context == "" || p.Stat(p.Cfg.Demo.Context) != nil {
		p.logger.Warn("demo assets not found, skipping demo image", "context", p.Cfg.Demo.Context)
		return nil
	}
	if p.Cfg.Force || !p.Runtime.Exists(ctx, container.KindImage, p.Cfg.Demo.Image) {
		if err := p.Runtime.Build(ctx, p.Cfg.Demo.Image, p.Cfg.Demo.Context); err != nil {
			return fmt.Errorf("building demo image: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) launch(ctx context.Context) error {
	if p.Runtime.Exists(ctx, container.KindImage, p.Cfg.Demo.Image) {
		opts := container.RunOptions{
			Name:    p.Cfg.Demo.Container,
			Image:   p.Cfg.Demo.Image,
			Network: p.Cfg.Gateway.Network,
			Detach:  true,
		}
		if p.Cfg.Demo.Port != "" {
			opts.Ports = []string{p.Cfg.Demo.Port}
		}
		if err := p.Runtime.Run(ctx, opts); err != nil {
			return fmt.Errorf("starting demo container: %w", err)
		}
	} else {
		p.logger.Warn("demo image not found, skipping demo container")
	}

	if err := p.runHostCmd(ctx, p.Cfg.Gateway.LaunchCmd); err != nil {
		return fmt.Errorf("launching gateway: %w", err)
	}
	return nil
}

func (p *Pipeline) networkAttach(ctx context.Context) error {
	network := p.Cfg.Gateway.Network
	if !p.Runtime.Exists(ctx, container.KindNetwork, network) {
		if err := p.Runtime.CreateNetwork(ctx, network); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrNetworkAttachFailed, network, err)
		}
	}
	targets := []string{p.Cfg.Gateway.Container}
	if p.Cfg.Demo.Container != "" && p.Runtime.Exists(ctx, container.KindContainer, p.Cfg.Demo.Container) {
		targets = append(targets, p.Cfg.Demo.Container)
	}
	for _, name := range targets {
		if err := p.Runtime.ConnectNetwork(ctx, network, name); err != nil {
			return fmt.Errorf("%w: %s to %s: %v", ErrNetworkAttachFailed, name, network, err)
		}
	}
	return nil
}

func (p *Pipeline) awaitHealthy(ctx context.Context) error {
	if p.Cfg.DryRun {
		return fmt.Errorf("%w: dry-run", ErrStepSkipped)
	}
	status := p.Prober.WaitUntilHealthy(ctx)
	if status == probe.StatusHealthy {
		return nil
	}
	tail, _ := p.Runtime.Logs(ctx, p.Cfg.Gateway.Container, 20)
	return fmt.Errorf("%w: last status %s\n%s", ErrHealthTimeout, status, tail)
}

func (p *Pipeline) provision(ctx context.Context) error {
	if p.Cfg.DryRun {
		return fmt.Errorf("%w: dry-run", ErrStepSkipped)
	}
	token, err := provision.Provision(ctx, p.Provider, p.Cfg.EnvFile)
	if err != nil {
		return err
	}
	p.token = token
	return nil
}

func (p *Pipeline) verify(ctx context.Context) error {
	if p.Cfg.DryRun {
		return fmt.Errorf("%w: dry-run", ErrStepSkipped)
	}
	token := p.token
	if token == "" {
		if v, ok, err := envfile.Get(p.Cfg.EnvFile, provision.EnvKey); err == nil && ok {
			token = v
		}
	}

	base := p.Cfg.Verify.BaseURL
	report := verify.Report{
		verify.CheckHealth(ctx, base),
		verify.CheckBearerAuth(ctx, base, token),
	}

	if p.Cfg.Demo.Container != "" && p.Runtime.Exists(ctx, container.KindContainer, p.Cfg.Demo.Container) {
		spec := verify.ServerSpec{
			Name:        "hello-world",
			URL:         fmt.Sprintf("http://%s:8005/sse", p.Cfg.Demo.Container),
			Description: "Automated hello-world smoke target",
		}
		reg := verify.Result{Name: "register-demo-server", Passed: true}
		if err := verify.RegisterServer(ctx, base, token, spec); err != nil {
			reg.Passed = false
			reg.Detail = err.Error()
		}
		report = append(report, reg)
		if reg.Passed {
			report = append(report, verify.CheckToolInvocation(ctx, base, token,
				p.Cfg.Verify.Tool, map[string]interface{}{"name": "SanctuaryUser"}, "Hello, SanctuaryUser!"))
		}
	}

	if p.Cfg.Verify.Checks != "" {
		checks, err := verify.LoadChecks(p.Cfg.Verify.Checks)
		if err != nil {
			return fmt.Errorf("%w: loading checks: %v", verify.ErrVerificationFailed, err)
		}
		report = append(report, verify.RunChecks(ctx, checks)...)
	}

	for _, r := range report {
		if r.Passed {
			p.logger.WithCheck(r.Name).Info("check passed")
		} else {
			p.logger.WithCheck(r.Name).Warn("check failed", "detail", r.Detail)
		}
	}
	return report.Err()
}
