// Package container abstracts the external container tool behind a capability
// interface. The real implementation shells out to podman; orchestrator tests
// substitute a scripted fake. Commands are opaque to the rest of the code;
// only exit status contracts matter.
package container

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/richfrem/sanctuary-gateway/internal/common"
	"github.com/richfrem/sanctuary-gateway/internal/execx"
)

// Kind names a podman resource class for existence checks.
type Kind string

const (
	KindContainer Kind = "container"
	KindImage     Kind = "image"
	KindVolume    Kind = "volume"
	KindNetwork   Kind = "network"
)

// RunOptions declares the bindings for a container launch.
type RunOptions struct {
	Name    string
	Image   string
	Network string
	Detach  bool
	Ports   []string          // "host:container"
	Volumes []string          // "volume:/mount/point"
	Env     map[string]string // container environment
}

// Runtime is the capability surface gatewayctl needs from a container tool.
type Runtime interface {
	Stop(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
	CreateVolume(ctx context.Context, name string) error
	RemoveVolume(ctx context.Context, name string) error
	Build(ctx context.Context, tag, contextDir string) error
	Run(ctx context.Context, opts RunOptions) error
	CreateNetwork(ctx context.Context, name string) error
	ConnectNetwork(ctx context.Context, network, container string) error
	Exists(ctx context.Context, kind Kind, name string) bool
	Exec(ctx context.Context, container string, argv ...string) (string, error)
	CopyTo(ctx context.Context, src, container, dst string) error
	Logs(ctx context.Context, container string, tail int) (string, error)
}

const defaultCommandTimeout = 5 * time.Minute

// Podman drives the podman CLI. Bin and Timeout are overridable; runFn exists
// for argv-construction tests.
type Podman struct {
	Bin     string
	Timeout time.Duration
	DryRun  bool

	runFn func(ctx context.Context, c execx.Cmd) (execx.Result, error)
}

// NewPodman returns a Runtime backed by the podman binary on PATH.
func NewPodman() *Podman {
	return &Podman{Bin: "podman", Timeout: defaultCommandTimeout}
}

func (p *Podman) command(args ...string) execx.Cmd {
	bin := p.Bin
	if bin == "" {
		bin = "podman"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return execx.Cmd{Name: bin, Args: args, Timeout: timeout}
}

func (p *Podman) run(ctx context.Context, c execx.Cmd) (execx.Result, error) {
	if p.DryRun {
		common.GetLogger().WithComponent("container").Info("dry-run", "cmd", c.String())
		return execx.Result{}, nil
	}
	if p.runFn != nil {
		return p.runFn(ctx, c)
	}
	return execx.Run(ctx, c)
}

func (p *Podman) exec(ctx context.Context, args ...string) error {
	c := p.command(args...)
	res, err := p.run(ctx, c)
	if err != nil {
		return err
	}
	return res.AsError(c)
}

func (p *Podman) Stop(ctx context.Context, name string) error {
	return p.exec(ctx, "stop", name)
}

func (p *Podman) Remove(ctx context.Context, name string) error {
	return p.exec(ctx, "rm", name)
}

func (p *Podman) CreateVolume(ctx context.Context, name string) error {
	return p.exec(ctx, "volume", "create", name)
}

func (p *Podman) RemoveVolume(ctx context.Context, name string) error {
	return p.exec(ctx, "volume", "rm", name)
}

func (p *Podman) Build(ctx context.Context, tag, contextDir string) error {
	return p.exec(ctx, "build", "-t", tag, contextDir)
}

func (p *Podman) Run(ctx context.Context, opts RunOptions) error {
	args := []string{"run"}
	if opts.Detach {
		args = append(args, "-d")
	}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}
	for _, port := range opts.Ports {
		args = append(args, "-p", port)
	}
	for _, vol := range opts.Volumes {
		args = append(args, "-v", vol)
	}
	for k, v := range opts.Env {
		args = append(args, "-e", k+"="+v)
	}
	args = append(args, opts.Image)
	return p.exec(ctx, args...)
}

func (p *Podman) CreateNetwork(ctx context.Context, name string) error {
	return p.exec(ctx, "network", "create", name)
}

func (p *Podman) ConnectNetwork(ctx context.Context, network, container string) error {
	c := p.command("network", "connect", network, container)
	res, err := p.run(ctx, c)
	if err != nil {
		return err
	}
	// Rejoining an already-attached container is a success for our purposes.
	if res.ExitCode != 0 && strings.Contains(strings.ToLower(res.Stderr), "already connected") {
		return nil
	}
	return res.AsError(c)
}

// Exists mirrors `podman <kind> exists <name>`: exit 0 means present.
func (p *Podman) Exists(ctx context.Context, kind Kind, name string) bool {
	var c execx.Cmd
	if kind == KindContainer {
		c = p.command("container", "exists", name)
	} else {
		c = p.command(string(kind), "exists", name)
	}
	res, err := p.run(ctx, c)
	if err != nil {
		return false
	}
	return res.ExitCode == 0
}

func (p *Podman) Exec(ctx context.Context, container string, argv ...string) (string, error) {
	args := append([]string{"exec", container}, argv...)
	c := p.command(args...)
	res, err := p.run(ctx, c)
	if err != nil {
		return "", err
	}
	if err := res.AsError(c); err != nil {
		return res.Stdout, err
	}
	return res.Stdout, nil
}

func (p *Podman) CopyTo(ctx context.Context, src, container, dst string) error {
	return p.exec(ctx, "cp", src, container+":"+dst)
}

func (p *Podman) Logs(ctx context.Context, container string, tail int) (string, error) {
	args := []string{"logs"}
	if tail > 0 {
		args = append(args, "--tail", strconv.Itoa(tail))
	}
	args = append(args, container)
	c := p.command(args...)
	res, err := p.run(ctx, c)
	if err != nil {
		return "", err
	}
	if err := res.AsError(c); err != nil {
		return "", err
	}
	// podman writes container stderr to the command's stderr stream.
	return res.Stdout + res.Stderr, nil
}
