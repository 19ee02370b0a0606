package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/root4loot/goutils/log"
)

// RodEngine drives a local Chromium through go-rod.
type RodEngine struct{}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func (RodEngine) Name() string { return EngineRod }

func (RodEngine) Open(ctx context.Context, opts Options) (Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(true)

	if path, found := launcher.LookPath(); found {
		l = l.Bin(path)
	} else {
		log.Debugf("No local browser found, rod will download one")
	}

	if opts.UserAgent != "" {
		l.Set("user-agent", opts.UserAgent)
	}

	if opts.IgnoreCertificateErrors {
		l.Set("ignore-certificate-errors", "true")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("error starting browser: %w", err)
	}

	s := &rodSession{launcher: l}

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("error connecting to browser: %w", err)
	}

	s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("error opening page: %w", err)
	}

	if opts.CaptureWidth != 0 && opts.CaptureHeight != 0 {
		viewport := &proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.CaptureWidth,
			Height:            opts.CaptureHeight,
			DeviceScaleFactor: 1,
			Mobile:            false,
		}

		if err := s.page.SetViewport(viewport); err != nil {
			s.Close()
			return nil, fmt.Errorf("error setting viewport: %w", err)
		}
	}

	return s, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) (Navigation, error) {
	var nav Navigation
	page := s.page.Context(ctx)

	var status int
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(url); err != nil {
		return nav, err
	}

	wait()
	nav.StatusCode = status

	if err := page.WaitLoad(); err != nil {
		return nav, err
	}

	info, err := page.Info()
	if err != nil {
		return nav, err
	}
	nav.URL = info.URL

	return nav, nil
}

func (s *rodSession) WaitVisible(ctx context.Context, loc Locator, timeout time.Duration) error {
	page := s.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	_, err := page.ElementByJS(rod.Eval(findVisibleJS, loc.jsArgs()...))
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", ErrWaitTimeout, err)
	}
	return err
}

func (s *rodSession) Screenshot(ctx context.Context, full bool) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(full, nil)
}

func (s *rodSession) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}
