package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/verifier/pkg/verifier"
)

type stubEngine struct {
	nav     verifier.Navigation
	navErr  error
	waitErr error
}

type stubSession struct{ e *stubEngine }

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Open(ctx context.Context, opts verifier.Options) (verifier.Session, error) {
	return stubSession{e}, nil
}

func (s stubSession) Navigate(ctx context.Context, url string) (verifier.Navigation, error) {
	return s.e.nav, s.e.navErr
}

func (s stubSession) WaitVisible(ctx context.Context, loc verifier.Locator, timeout time.Duration) error {
	return s.e.waitErr
}

func (s stubSession) Screenshot(ctx context.Context, full bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s stubSession) Close() error { return nil }

func TestParseFlags(t *testing.T) {
	cli := NewCLI()
	cli.parseFlags([]string{"-e", "chromedp", "--imprint", "-s"})

	if cli.Options.Engine != "chromedp" {
		t.Errorf("Expected Engine to be 'chromedp', got %s", cli.Options.Engine)
	}

	if !cli.Options.Imprint {
		t.Errorf("Expected Imprint to be true")
	}

	if !cli.Silence {
		t.Errorf("Expected Silence to be true")
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	cli := NewCLI()
	cli.parseFlags(nil)

	if cli.Options.Engine != verifier.EngineRod {
		t.Errorf("Expected Engine to be %q, got %q", verifier.EngineRod, cli.Options.Engine)
	}

	if cli.Options.TargetURL != "http://localhost:3000" {
		t.Errorf("Expected TargetURL to be 'http://localhost:3000', got %s", cli.Options.TargetURL)
	}

	if cli.Options.ScreenshotPath != "jules-scratch/verification/verification.png" {
		t.Errorf("Expected ScreenshotPath to be the verification path, got %s", cli.Options.ScreenshotPath)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
		step string
	}{
		{nil, exitOK, "verify"},
		{errors.New("boom"), exitFailure, "verify"},
		{&verifier.NavigationError{URL: "http://localhost:3000/"}, exitNavigation, "navigate"},
		{&verifier.VisibilityTimeoutError{Locator: "role=heading"}, exitVisibility, "wait for heading"},
		{&verifier.FilesystemError{Op: "create", Path: "x", Err: os.ErrPermission}, exitFilesystem, "save screenshot"},
		{fmt.Errorf("wrapped: %w", &verifier.FilesystemError{Err: os.ErrPermission}), exitFilesystem, "save screenshot"},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
		if tt.err != nil {
			if got := step(tt.err); got != tt.step {
				t.Errorf("step(%v) = %q, want %q", tt.err, got, tt.step)
			}
		}
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		engine *stubEngine
		want   int
	}{
		{"success", &stubEngine{nav: verifier.Navigation{StatusCode: 200}}, exitOK},
		{"unreachable", &stubEngine{navErr: errors.New("net::ERR_CONNECTION_REFUSED")}, exitNavigation},
		{"missing heading", &stubEngine{nav: verifier.Navigation{StatusCode: 200}, waitErr: verifier.ErrWaitTimeout}, exitVisibility},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := NewCLI()
			cli.Options.ScreenshotPath = filepath.Join(t.TempDir(), "verification.png")
			cli.WithEngine(tt.engine)

			if got := cli.run(context.Background()); got != tt.want {
				t.Fatalf("Expected exit code %d, got %d", tt.want, got)
			}

			_, err := os.Stat(cli.Options.ScreenshotPath)
			if tt.want == exitOK && err != nil {
				t.Errorf("Expected screenshot to exist: %v", err)
			}
			if tt.want != exitOK && err == nil {
				t.Errorf("Expected no screenshot on failure")
			}
		})
	}
}

func TestRunSilenced(t *testing.T) {
	cli := NewCLI()
	cli.Options.ScreenshotPath = filepath.Join(t.TempDir(), "verification.png")
	cli.WithEngine(&stubEngine{navErr: errors.New("net::ERR_CONNECTION_REFUSED")})

	log.SetLevel(log.FatalLevel)
	defer log.SetLevel(log.InfoLevel)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	stderr := os.Stderr
	os.Stderr = w

	code := cli.run(context.Background())

	os.Stderr = stderr
	w.Close()
	out, _ := io.ReadAll(r)

	if code != exitNavigation {
		t.Errorf("Expected exit code %d, got %d", exitNavigation, code)
	}

	if len(out) != 0 {
		t.Errorf("Expected no output when silenced, got %q", out)
	}
}
