package verifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
)

// ChromedpEngine drives a local Chrome through chromedp's exec allocator.
type ChromedpEngine struct{}

type chromedpSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	mu     sync.Mutex
	status int
}

func (ChromedpEngine) Name() string { return EngineChromedp }

// customFlags returns the allocator options derived from opts.
func customFlags(opts Options) []chromedp.ExecAllocatorOption {
	var flags []chromedp.ExecAllocatorOption

	flags = append(flags, chromedp.Flag("headless", opts.Headless), chromedp.NoSandbox)

	if path, found := launcher.LookPath(); found {
		flags = append(flags, chromedp.ExecPath(path))
	}

	if opts.IgnoreCertificateErrors {
		flags = append(flags, chromedp.Flag("ignore-certificate-errors", true))
	}

	if opts.UserAgent != "" {
		flags = append(flags, chromedp.UserAgent(opts.UserAgent))
	}

	if opts.CaptureWidth != 0 && opts.CaptureHeight != 0 {
		flags = append(flags, chromedp.WindowSize(opts.CaptureWidth, opts.CaptureHeight))
	}

	return flags
}

func (ChromedpEngine) Open(ctx context.Context, opts Options) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], customFlags(opts)...)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &chromedpSession{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			s.mu.Lock()
			s.status = int(e.Response.Status)
			s.mu.Unlock()
		}
	})

	// The first Run starts the browser and must not carry a deadline, or the
	// browser is torn down when the deadline passes.
	tasks := chromedp.Tasks{network.Enable()}
	if opts.CaptureWidth != 0 && opts.CaptureHeight != 0 {
		tasks = append(tasks, chromedp.EmulateViewport(int64(opts.CaptureWidth), int64(opts.CaptureHeight)))
	}

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// runWith runs actions on the tab, bounded by ctx.
func (s *chromedpSession) runWith(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) (Navigation, error) {
	var nav Navigation

	err := s.runWith(ctx,
		chromedp.Navigate(url),
		chromedp.Location(&nav.URL),
	)

	s.mu.Lock()
	nav.StatusCode = s.status
	s.mu.Unlock()

	return nav, err
}

func (s *chromedpSession) WaitVisible(ctx context.Context, loc Locator, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var found bool
	err := s.runWith(waitCtx, chromedp.Poll(loc.findExpr()+" !== null", &found,
		chromedp.WithPollingInterval(100*time.Millisecond),
		chromedp.WithPollingTimeout(timeout),
	))

	timedOut := errors.Is(err, chromedp.ErrPollingTimeout) || errors.Is(err, context.DeadlineExceeded)
	if timedOut && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", ErrWaitTimeout, err)
	}
	return err
}

func (s *chromedpSession) Screenshot(ctx context.Context, full bool) ([]byte, error) {
	var buf []byte

	action := chromedp.CaptureScreenshot(&buf)
	if full {
		action = chromedp.FullScreenshot(&buf, 100)
	}

	if err := s.runWith(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelTab()
	s.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
