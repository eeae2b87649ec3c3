package tests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/metaversal/asset-portal/tests/common"
)

var (
	envOnce sync.Once
	envURL  string
)

// serverURL returns the portal URL, skipping the test when no server is
// available. Set PORTAL_TEST_URL to run against a manually started stack, or
// PORTAL_TEST_CONTAINERS=1 to build and run the Docker environment.
func serverURL(t *testing.T) string {
	t.Helper()

	if url := os.Getenv("PORTAL_TEST_URL"); url != "" {
		return url
	}
	if os.Getenv("PORTAL_TEST_CONTAINERS") == "" {
		t.Skip("set PORTAL_TEST_URL or PORTAL_TEST_CONTAINERS=1 to run browser tests")
	}

	envOnce.Do(func() {
		if env := common.StartPortal(t); env != nil {
			envURL = env.URL()
		}
	})
	if envURL == "" {
		t.Fatal("test environment did not start")
	}
	return envURL
}

// newBrowser creates a headless Chrome context with a 30s timeout.
func newBrowser(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)
	ctx, timeoutCancel := context.WithTimeout(ctx, 30*time.Second)

	cancel := func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
	}
	return ctx, cancel
}

// jsErrorCollector listens for JS exceptions and console.error calls.
// Attach before chromedp.Navigate.
type jsErrorCollector struct {
	mu     sync.Mutex
	errors []string
}

func newJSErrorCollector(ctx context.Context) *jsErrorCollector {
	c := &jsErrorCollector{}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		c.mu.Lock()
		defer c.mu.Unlock()

		switch e := ev.(type) {
		case *runtime.EventExceptionThrown:
			desc := e.ExceptionDetails.Text
			if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
				desc = e.ExceptionDetails.Exception.Description
			}
			c.errors = append(c.errors, fmt.Sprintf("EXCEPTION: %s", desc))

		case *runtime.EventConsoleAPICalled:
			if e.Type == runtime.APITypeError {
				var parts []string
				for _, arg := range e.Args {
					if arg.Value != nil {
						parts = append(parts, string(arg.Value))
					} else if arg.Description != "" {
						parts = append(parts, arg.Description)
					}
				}
				if len(parts) > 0 {
					msg := strings.Join(parts, " ")
					if !strings.Contains(msg, "favicon") {
						c.errors = append(c.errors, fmt.Sprintf("console.error: %s", msg))
					}
				}
			}
		}
	})

	return c
}

func (c *jsErrorCollector) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.errors))
	copy(out, c.errors)
	return out
}

// navigateAndWait navigates to a page, waits for body, and gives the page
// scripts time to load data.
func navigateAndWait(ctx context.Context, url string) error {
	return chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(800*time.Millisecond),
	)
}

// loginAndNavigate establishes a session via the callback leg (the dev
// backend accepts any provider token), then loads the target page.
func loginAndNavigate(t *testing.T, ctx context.Context, targetURL string) error {
	t.Helper()
	base := serverURL(t)
	return chromedp.Run(ctx,
		chromedp.Navigate(base+"/auth/callback?token=ui-test-token"),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Navigate(targetURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(800*time.Millisecond),
	)
}

func isHidden(ctx context.Context, selector string) (bool, error) {
	return common.IsHidden(ctx, selector)
}

func isVisible(ctx context.Context, selector string) (bool, error) {
	return common.IsVisible(ctx, selector)
}

func elementCount(ctx context.Context, selector string) (int, error) {
	return common.ElementCount(ctx, selector)
}

// takeScreenshot saves a full-page capture under the results directory.
// Failures are logged, not fatal.
func takeScreenshot(t *testing.T, ctx context.Context, subdir, name string) {
	t.Helper()
	dir := common.GetScreenshotDir(subdir)
	if err := common.Screenshot(ctx, filepath.Join(dir, name)); err != nil {
		t.Logf("screenshot %s/%s: %v", subdir, name, err)
	}
}

func assertTextContains(ctx context.Context, selector, expected, what string) error {
	ok, actual, err := common.TextContains(ctx, selector, expected)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %q does not contain %q", what, actual, expected)
	}
	return nil
}
