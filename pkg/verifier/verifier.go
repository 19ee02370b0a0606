package verifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/goutils/urlutil"
)

const Version = "0.1.0"

const (
	DefaultTargetURL      = "http://localhost:3000"
	DefaultHeadingName    = "BIENVENIDO A ENERGY"
	DefaultScreenshotPath = "jules-scratch/verification/verification.png"
	DefaultVisibleTimeout = 10 * time.Second
)

type Verifier struct {
	Debug   bool
	Options Options
	engine  Engine
}

// Result contains the outcome of a successful verification run.
type Result struct {
	TargetURL  string
	LandingURL string
	StatusCode int
	Image      Image
	File       string        // Path the screenshot was written to
	Elapsed    time.Duration // Time spent waiting for the locator
	Similarity int           // ssdeep score against the previous screenshot, -1 if unknown
}

// Options contains the options for a verification run.
type Options struct {
	TargetURL               string        // Page to open
	Locator                 Locator       // Element that must become visible
	VisibleTimeout          time.Duration // Bound for the visibility wait
	NavigationTimeout       time.Duration // Bound for the navigation
	ScreenshotPath          string        // Where the screenshot is written
	Engine                  string        // Browser driver (rod, chromedp, playwright)
	Headless                bool          // Run in headless mode
	CaptureWidth            int           // Width of the viewport
	CaptureHeight           int           // Height of the viewport
	CaptureFull             bool          // Take a full-page screenshot
	UserAgent               string        // User agent, empty keeps the browser's
	IgnoreCertificateErrors bool          // Ignore certificate errors
	Imprint                 bool          // Add the target origin below the screenshot
	CompareWithPrevious     bool          // Score the capture against the file it replaces
}

// NewOptions returns Options initialized with default values.
func NewOptions() Options {
	return Options{
		TargetURL: DefaultTargetURL,
		Locator: Locator{
			Role:       "heading",
			Name:       DefaultHeadingName,
			IgnoreCase: true,
		},
		VisibleTimeout:          DefaultVisibleTimeout,
		NavigationTimeout:       30 * time.Second,
		ScreenshotPath:          DefaultScreenshotPath,
		Engine:                  EngineRod,
		Headless:                true,
		CaptureWidth:            1280,
		CaptureHeight:           720,
		CaptureFull:             false,
		IgnoreCertificateErrors: true,
		Imprint:                 false,
		CompareWithPrevious:     true,
	}
}

// NewVerifier creates a Verifier with default options.
func NewVerifier() *Verifier {
	return &Verifier{Options: NewOptions()}
}

// NewVerifierWithOptions creates a Verifier with the provided options.
func NewVerifierWithOptions(options Options) *Verifier {
	return &Verifier{Options: options}
}

// WithEngine makes the verifier drive the browser through e instead of
// resolving Options.Engine.
func (v *Verifier) WithEngine(e Engine) *Verifier {
	v.engine = e
	return v
}

// SetDebug enables or disables debug mode.
func (v *Verifier) SetDebug(debug bool) {
	v.Debug = debug
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func Init() {
	log.Init("verifier")
	log.SetLevel(log.InfoLevel)
}

// Run opens the target in a fresh browser session, waits for the locator to
// become visible and saves a screenshot. The session is closed before Run
// returns, on every path.
func (v *Verifier) Run(ctx context.Context) (result *Result, err error) {
	opts := v.Options

	engine := v.engine
	if engine == nil {
		engine, err = EngineByName(opts.Engine)
		if err != nil {
			return nil, err
		}
	}

	targetURL, err := normalize(opts.TargetURL)
	if err != nil {
		return nil, &NavigationError{URL: opts.TargetURL, Err: err}
	}

	log.Debugf("Opening %s session", engine.Name())
	session, err := engine.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("error launching %s browser: %w", engine.Name(), err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warnf("Could not close %s session: %v", engine.Name(), cerr)
		}
	}()

	result = &Result{TargetURL: targetURL, Similarity: -1}

	log.Debugf("Navigating to %s", targetURL)
	navCtx, cancel := context.WithTimeout(ctx, opts.NavigationTimeout)
	nav, err := session.Navigate(navCtx, targetURL)
	cancel()
	if err != nil {
		return nil, &NavigationError{URL: targetURL, StatusCode: nav.StatusCode, Err: err}
	}
	if nav.StatusCode >= 400 {
		return nil, &NavigationError{URL: targetURL, StatusCode: nav.StatusCode}
	}
	result.StatusCode = nav.StatusCode
	result.LandingURL = nav.URL

	log.Debugf("Waiting up to %v for %s", opts.VisibleTimeout, opts.Locator)
	start := time.Now()
	err = session.WaitVisible(ctx, opts.Locator, opts.VisibleTimeout)
	result.Elapsed = time.Since(start)
	if err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			return nil, &VisibilityTimeoutError{Locator: opts.Locator.String(), Elapsed: result.Elapsed, Err: err}
		}
		return nil, fmt.Errorf("error waiting for %s: %w", opts.Locator, err)
	}

	result.Image, err = session.Screenshot(ctx, opts.CaptureFull)
	if err != nil {
		return nil, fmt.Errorf("error capturing screenshot for %s: %w", targetURL, err)
	}

	if opts.Imprint {
		result.Image, err = result.Image.Imprint(targetURL)
		if err != nil {
			return nil, err
		}
	}

	if opts.CompareWithPrevious {
		result.Similarity = compareWithFile(result.Image, opts.ScreenshotPath)
	}

	if err := result.Image.Save(opts.ScreenshotPath); err != nil {
		return nil, err
	}
	result.File = opts.ScreenshotPath

	return result, nil
}

// compareWithFile scores img against the screenshot currently stored at path.
func compareWithFile(img Image, path string) int {
	previous, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Debugf("Could not read previous screenshot %s: %v", path, err)
		}
		return -1
	}

	score, err := img.SimilarityTo(previous)
	if err != nil {
		log.Debugf("Could not compare with previous screenshot: %v", err)
		return -1
	}

	log.Debugf("Screenshot is %d%% similar to the previous one", score)
	return score
}

// normalize ensures the target has a scheme and a trailing slash.
func normalize(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("empty target URL")
	}

	if !urlutil.HasScheme(target) {
		target = "http://" + target
	}

	return urlutil.EnsureTrailingSlash(target)
}
