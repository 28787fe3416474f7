package container

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/richfrem/sanctuary-gateway/internal/execx"
)

// recordingRunner captures argv lines and replays scripted results.
type recordingRunner struct {
	cmds    []string
	results []execx.Result
}

func (r *recordingRunner) run(_ context.Context, c execx.Cmd) (execx.Result, error) {
	r.cmds = append(r.cmds, c.String())
	if len(r.results) == 0 {
		return execx.Result{}, nil
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res, nil
}

func newTestPodman(rec *recordingRunner) *Podman {
	return &Podman{Bin: "podman", runFn: rec.run}
}

func TestRun_ArgvConstruction(t *testing.T) {
	rec := &recordingRunner{}
	p := newTestPodman(rec)
	err := p.Run(context.Background(), RunOptions{
		Name:    "mcp_gateway",
		Image:   "localhost/mcpgateway/mcpgateway:latest",
		Network: "sanctuary_network",
		Detach:  true,
		Ports:   []string{"4444:4444"},
		Volumes: []string{"mcp_gateway_data:/app/data"},
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	got := rec.cmds[0]
	for _, want := range []string{
		"podman run -d",
		"--name mcp_gateway",
		"--network sanctuary_network",
		"-p 4444:4444",
		"-v mcp_gateway_data:/app/data",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("argv %q missing %q", got, want)
		}
	}
	if !strings.HasSuffix(got, "localhost/mcpgateway/mcpgateway:latest") {
		t.Fatalf("image must come last: %q", got)
	}
}

func TestConnectNetwork_AlreadyConnectedIsSuccess(t *testing.T) {
	rec := &recordingRunner{results: []execx.Result{
		{ExitCode: 125, Stderr: `Error: container "mcp_gateway" is already connected to network "sanctuary_network"`},
	}}
	p := newTestPodman(rec)
	if err := p.ConnectNetwork(context.Background(), "sanctuary_network", "mcp_gateway"); err != nil {
		t.Fatalf("already-connected must be tolerated, got: %v", err)
	}
}

func TestConnectNetwork_RealFailure(t *testing.T) {
	rec := &recordingRunner{results: []execx.Result{
		{ExitCode: 125, Stderr: "Error: network connect is not supported with slirp4netns"},
	}}
	p := newTestPodman(rec)
	err := p.ConnectNetwork(context.Background(), "sanctuary_network", "mcp_gateway")
	if !errors.Is(err, execx.ErrProcessNonZeroExit) {
		t.Fatalf("expected ErrProcessNonZeroExit, got %v", err)
	}
}

func TestExists_ExitCodeContract(t *testing.T) {
	rec := &recordingRunner{results: []execx.Result{{ExitCode: 0}, {ExitCode: 1}}}
	p := newTestPodman(rec)
	if !p.Exists(context.Background(), KindVolume, "mcp_gateway_data") {
		t.Fatalf("exit 0 means the resource exists")
	}
	if p.Exists(context.Background(), KindVolume, "mcp_gateway_data") {
		t.Fatalf("exit 1 means the resource is absent")
	}
	if rec.cmds[0] != "podman volume exists mcp_gateway_data" {
		t.Fatalf("unexpected argv: %q", rec.cmds[0])
	}
}

func TestExec_ReturnsStdoutAndClassifiedError(t *testing.T) {
	rec := &recordingRunner{results: []execx.Result{
		{ExitCode: 0, Stdout: "BOOTSTRAP_TOKEN_START:abc:BOOTSTRAP_TOKEN_END\n"},
		{ExitCode: 2, Stderr: "no such file"},
	}}
	p := newTestPodman(rec)

	out, err := p.Exec(context.Background(), "mcp_gateway", "python3", "/tmp/bootstrap_token.py")
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if !strings.Contains(out, "BOOTSTRAP_TOKEN_START:abc") {
		t.Fatalf("stdout not returned: %q", out)
	}

	_, err = p.Exec(context.Background(), "mcp_gateway", "python3", "/tmp/missing.py")
	if !errors.Is(err, execx.ErrProcessNonZeroExit) {
		t.Fatalf("expected classified non-zero exit, got %v", err)
	}
}

func TestDryRun_ExecutesNothing(t *testing.T) {
	rec := &recordingRunner{}
	p := newTestPodman(rec)
	p.DryRun = true
	if err := p.Stop(context.Background(), "mcp_gateway"); err != nil {
		t.Fatalf("dry-run must succeed: %v", err)
	}
	if len(rec.cmds) != 0 {
		t.Fatalf("dry-run must not invoke the runner, got %v", rec.cmds)
	}
}
