package verifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/root4loot/goutils/log"
)

// PlaywrightEngine drives Chromium through the Playwright driver, installing
// the driver and browser on first use.
type PlaywrightEngine struct{}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

func (PlaywrightEngine) Name() string { return EnginePlaywright }

func (PlaywrightEngine) Open(ctx context.Context, opts Options) (Session, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s := &playwrightSession{pw: pw}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	s.browser, err = pw.Chromium.Launch(launchOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	pageOpts := playwright.BrowserNewPageOptions{
		IgnoreHttpsErrors: playwright.Bool(opts.IgnoreCertificateErrors),
	}
	if opts.CaptureWidth != 0 && opts.CaptureHeight != 0 {
		pageOpts.Viewport = &playwright.Size{Width: opts.CaptureWidth, Height: opts.CaptureHeight}
	}
	if opts.UserAgent != "" {
		pageOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	s.page, err = s.browser.NewPage(pageOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return s, nil
}

// milliseconds converts the time left before ctx's deadline, capped at
// bound, into a Playwright timeout.
func milliseconds(ctx context.Context, bound time.Duration) *float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); bound == 0 || left < bound {
			bound = left
		}
	}
	if bound <= 0 {
		bound = time.Millisecond
	}
	return playwright.Float(float64(bound.Milliseconds()))
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) (Navigation, error) {
	var nav Navigation

	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   milliseconds(ctx, 0),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return nav, fmt.Errorf("navigation failed: %w", err)
	}

	if resp != nil {
		nav.StatusCode = resp.Status()
	}
	nav.URL = s.page.URL()

	return nav, nil
}

func (s *playwrightSession) WaitVisible(ctx context.Context, loc Locator, timeout time.Duration) error {
	locator := s.page.GetByRole(playwright.AriaRole(loc.Role), playwright.PageGetByRoleOptions{
		Name: loc.Regexp(),
	})

	err := locator.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: milliseconds(ctx, timeout),
	})
	if errors.Is(err, playwright.ErrTimeout) && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", ErrWaitTimeout, err)
	}
	return err
}

func (s *playwrightSession) Screenshot(ctx context.Context, full bool) ([]byte, error) {
	return s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(full),
		Timeout:  milliseconds(ctx, 30*time.Second),
	})
}

func (s *playwrightSession) Close() error {
	var errs []error

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if err := s.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
	}

	if len(errs) > 0 {
		log.Debugf("playwright shutdown: %v", errs)
	}
	return errors.Join(errs...)
}
