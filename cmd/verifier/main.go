package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/verifier/pkg/verifier"
)

const (
	usage = `USAGE:
  verifier [options]

Opens http://localhost:3000 in a headless browser, waits up to 10 seconds for
the heading "BIENVENIDO A ENERGY" and saves a screenshot to
jules-scratch/verification/verification.png.

OPTIONS:
  -e,   --engine                 browser driver: rod, chromedp, playwright             (Default: rod)
        --imprint                add the target origin below the screenshot            (Default: false)
  -s,   --silence                only print fatal errors
        --debug                  enable debug mode
        --version                display version

EXIT CODES:
  0 verified, 1 other failure, 2 navigation failed, 3 heading not visible, 4 screenshot not written
`
)

const (
	exitOK = iota
	exitFailure
	exitNavigation
	exitVisibility
	exitFilesystem
)

type cli struct {
	*verifier.Verifier
	Silence bool
}

func NewCLI() *cli {
	return &cli{Verifier: verifier.NewVerifierWithOptions(verifier.NewOptions())}
}

func init() {
	log.Init("verifier")
}

func main() {
	cli := NewCLI()
	cli.parseFlags(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.run(ctx)
	stop()

	os.Exit(code)
}

func (cli *cli) run(ctx context.Context) int {
	result, err := cli.Run(ctx)
	if err != nil {
		return handleRunError(err)
	}

	if result.Similarity >= 0 {
		log.Debugf("Previous screenshot similarity: %d%%", result.Similarity)
	}
	log.Resultf("Verified %s in %v, screenshot saved to %s", result.TargetURL, result.Elapsed, result.File)
	return exitOK
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	var (
		navErr *verifier.NavigationError
		visErr *verifier.VisibilityTimeoutError
		fsErr  *verifier.FilesystemError
	)

	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &navErr):
		return exitNavigation
	case errors.As(err, &visErr):
		return exitVisibility
	case errors.As(err, &fsErr):
		return exitFilesystem
	default:
		return exitFailure
	}
}

// step names the stage of the run that produced err.
func step(err error) string {
	switch exitCode(err) {
	case exitNavigation:
		return "navigate"
	case exitVisibility:
		return "wait for heading"
	case exitFilesystem:
		return "save screenshot"
	default:
		return "verify"
	}
}

func handleRunError(err error) int {
	log.Errorf("Could not %s: %v", step(err), err)
	return exitCode(err)
}
