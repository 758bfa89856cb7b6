package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// navBuffer bounds queued navigation events; extra events are dropped.
const navBuffer = 16

// BrowserOptions configures a Browser source.
type BrowserOptions struct {
	// RemoteURL attaches to a running Chrome's DevTools endpoint
	// (e.g. ws://127.0.0.1:9222) instead of launching one. Attaching keeps
	// the user's signed-in session.
	RemoteURL string

	// Headless launches Chrome without a window. Ignored with RemoteURL.
	Headless bool
}

// Browser reads a live page through the Chrome DevTools protocol. The page is
// loaded on the first snapshot; later snapshots read whatever the tab shows,
// including in-page navigation.
type Browser struct {
	url string

	mu        sync.Mutex
	navigated bool
	ctx       context.Context
	cancel    []context.CancelFunc

	mainFrame cdp.FrameID // only touched from the tab's event loop
	navs      chan string
}

// NewBrowser allocates a browser tab for url. Chrome is started (or attached
// to) lazily on the first snapshot.
func NewBrowser(parent context.Context, url string, opts BrowserOptions) *Browser {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, execOpts...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	b := &Browser{
		url:    url,
		ctx:    tabCtx,
		cancel: []context.CancelFunc{tabCancel, allocCancel},
		navs:   make(chan string, navBuffer),
	}
	chromedp.ListenTarget(tabCtx, b.handleEvent)
	return b
}

// handleEvent runs on the tab's event loop and must not block.
func (b *Browser) handleEvent(ev any) {
	var url string
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		b.mainFrame = e.Frame.ID
		url = e.Frame.URL + e.Frame.URLFragment
	case *page.EventNavigatedWithinDocument:
		if e.FrameID != b.mainFrame {
			return
		}
		url = e.URL
	default:
		return
	}
	select {
	case b.navs <- url:
	default:
	}
}

// OnNavigate implements Navigator. fn runs on its own goroutine until the
// browser is closed.
func (b *Browser) OnNavigate(fn func(url string)) {
	go func() {
		for {
			select {
			case <-b.ctx.Done():
				return
			case url := <-b.navs:
				fn(url)
			}
		}
	}()
}

// Snapshot implements Source.
func (b *Browser) Snapshot(ctx context.Context) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The first Run allocates the browser and tab and binds their lifetime to
	// its context, so it must use the long-lived tab context.
	if !b.navigated {
		if err := chromedp.Run(b.ctx); err != nil {
			return nil, fmt.Errorf("start browser: %w", err)
		}
	}

	// chromedp actions run against the tab context; ctx only bounds the wait.
	runCtx, stop := context.WithCancel(b.ctx)
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-runCtx.Done():
		}
	}()

	var actions []chromedp.Action
	if !b.navigated {
		actions = append(actions, chromedp.Navigate(b.url), chromedp.WaitReady("body", chromedp.ByQuery))
	}

	var location, title, doc string
	actions = append(actions,
		chromedp.Location(&location),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &doc, chromedp.ByQuery),
	)
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	b.navigated = true

	snap, err := parse(strings.NewReader(doc), location)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	// The live location wins over any canonical link.
	snap.URL = location
	if title != "" {
		snap.Title = title
	}
	return snap, nil
}

// Close implements Source.
func (b *Browser) Close() error {
	for _, c := range b.cancel {
		c()
	}
	return nil
}
