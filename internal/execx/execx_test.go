package execx

import (
	"context"
	"testing"
	"time"
)

func TestRun_CapturesStdout(t *testing.T) {
	res, err := Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo hello"}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", res.ExitCode)
	}
	if res.Stdout != "hello\n" {
		t.Fatalf("expected stdout %q, got %q", "hello\n", res.Stdout)
	}
}

func TestRun_NonZeroExitIsNotError(t *testing.T) {
	res, err := Run(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo oops >&2; exit 3"}})
	if err != nil {
		t.Fatalf("non-zero exit must not surface as error, got: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %d", res.ExitCode)
	}
	if res.Stderr != "oops\n" {
		t.Fatalf("expected stderr captured, got %q", res.Stderr)
	}
}

func TestRun_TimeoutKillsChild(t *testing.T) {
	start := time.Now()
	res, err := Run(context.Background(), Cmd{
		Name:    "sh",
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("timeout must be reported in the result, not as error: %v", err)
	}
	if !res.TimedOut {
		t.Fatalf("expected TimedOut=true, result: %+v", res)
	}
	if res.ExitCode != 124 {
		t.Fatalf("expected exit 124 on timeout, got %d", res.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("child was not killed promptly, took %v", elapsed)
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	res, err := Run(context.Background(), Cmd{Name: "definitely-not-a-real-binary-xyz"})
	if err == nil {
		t.Fatalf("expected spawn error for missing binary")
	}
	if res.ExitCode != -1 {
		t.Fatalf("expected exit -1 for spawn failure, got %d", res.ExitCode)
	}
}

func TestRun_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	res, err := Run(context.Background(), Cmd{Name: "pwd", Dir: dir})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// Resolve through symlinks on platforms where TempDir is a link.
	if got := res.Stdout; got == "" {
		t.Fatalf("expected pwd output")
	}
}

func TestLookPath(t *testing.T) {
	if !LookPath("sh") {
		t.Fatalf("expected sh to be on PATH")
	}
	if LookPath("definitely-not-a-real-binary-xyz") {
		t.Fatalf("expected missing binary to report false")
	}
}
