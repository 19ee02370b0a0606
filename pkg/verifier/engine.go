package verifier

import (
	"context"
	"fmt"
	"time"
)

const (
	EngineRod        = "rod"
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

// Engine launches browser sessions.
type Engine interface {
	Name() string
	Open(ctx context.Context, opts Options) (Session, error)
}

// Session is a browser process with a single page. Close releases both and
// must be called exactly once.
type Session interface {
	Navigate(ctx context.Context, url string) (Navigation, error)
	WaitVisible(ctx context.Context, loc Locator, timeout time.Duration) error
	Screenshot(ctx context.Context, full bool) ([]byte, error)
	Close() error
}

// Navigation describes the main document response.
type Navigation struct {
	URL        string // Landing URL after redirects
	StatusCode int
}

// EngineByName returns the engine registered under name.
func EngineByName(name string) (Engine, error) {
	switch name {
	case "", EngineRod:
		return RodEngine{}, nil
	case EngineChromedp:
		return ChromedpEngine{}, nil
	case EnginePlaywright:
		return PlaywrightEngine{}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want %s, %s or %s)", name, EngineRod, EngineChromedp, EnginePlaywright)
	}
}
