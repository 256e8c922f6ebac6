package httpfeed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// chromeMu serializes all Chrome usage so only one instance runs at a time
var chromeMu sync.Mutex

// resolveWithJS is replaced in tests.
var resolveWithJS = resolveMirrorWithJS

// resolveMirror follows a mirror link to the bookmaker's current host.
// HTTP redirects are tried first; pages that redirect from JavaScript are
// loaded in a headless browser.
func resolveMirror(ctx context.Context, client *http.Client, mirrorURL, userAgent string, timeout time.Duration) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mirrorURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		slog.Info("HTTP mirror request failed, falling back to JavaScript resolution", "mirror_url", mirrorURL, "error", err)
		resolved, err := resolveWithJS(ctx, mirrorURL, userAgent, timeout)
		if err != nil {
			return "", err
		}
		return normalizeBaseURL(resolved), nil
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()
	if finalURL != mirrorURL {
		slog.Info("Resolved mirror", "from", mirrorURL, "to", finalURL, "method", "HTTP redirect")
		return normalizeBaseURL(finalURL), nil
	}

	// Check if we got HTML (might need JavaScript execution)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err == nil && looksLikeJSRedirect(string(body)) {
			slog.Debug("Detected JavaScript redirect, using headless browser", "mirror_url", mirrorURL)
			resolved, err := resolveWithJS(ctx, mirrorURL, userAgent, timeout)
			if err != nil {
				return "", err
			}
			return normalizeBaseURL(resolved), nil
		}
	}
	return normalizeBaseURL(finalURL), nil
}

func looksLikeJSRedirect(body string) bool {
	return strings.Contains(body, "window.location") ||
		strings.Contains(body, "location.href") ||
		strings.Contains(body, "document.location") ||
		strings.Contains(body, "location.replace")
}

// resolveMirrorWithJS uses headless browser to execute JavaScript and get final URL
func resolveMirrorWithJS(parent context.Context, mirrorURL, userAgent string, timeout time.Duration) (string, error) {
	chromeMu.Lock()
	defer chromeMu.Unlock()

	chromeDir, err := os.MkdirTemp("", "propline_chrome_")
	if err != nil {
		return "", fmt.Errorf("create chrome temp dir: %w", err)
	}
	defer os.RemoveAll(chromeDir)

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserDataDir(chromeDir),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	ctx, cancel = chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		slog.Debug("chromedp", "message", fmt.Sprintf(format, v...))
	}))
	defer cancel()

	var finalURL string
	err = chromedp.Run(ctx,
		chromedp.Navigate(mirrorURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp navigation: %w", err)
	}

	if finalURL == "" || finalURL == mirrorURL {
		err = chromedp.Run(ctx,
			chromedp.Sleep(5*time.Second),
			chromedp.Location(&finalURL),
		)
		if err != nil {
			return "", fmt.Errorf("chromedp wait: %w", err)
		}
	}
	if finalURL == "" {
		return "", fmt.Errorf("mirror %s did not resolve", mirrorURL)
	}

	slog.Info("Resolved mirror", "from", mirrorURL, "to", finalURL, "method", "JavaScript redirect")
	return finalURL, nil
}

// normalizeBaseURL returns scheme://host from a full redirect URL (no path/query, no default port).
// e.g. https://book-7731.bar:443/en/promo?tag=x -> https://book-7731.bar
func normalizeBaseURL(resolved string) string {
	u, err := url.Parse(resolved)
	if err != nil {
		return resolved
	}
	host := u.Hostname()
	port := u.Port()
	if port != "" && port != "80" && port != "443" {
		host = net.JoinHostPort(u.Hostname(), port)
	}
	return u.Scheme + "://" + host
}

// rebase moves feedURL onto base, keeping its path and query.
func rebase(feedURL, base string) (string, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.Scheme = b.Scheme
	u.Host = b.Host
	return u.String(), nil
}
