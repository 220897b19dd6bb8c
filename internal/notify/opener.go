package notify

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"modcheck/internal/logging"
)

// LinkOpener opens a help page for the user.
type LinkOpener interface {
	Open(rawURL string) error
}

// BrowserOpener opens links in the system's default browser.
type BrowserOpener struct {
	goos  string
	start func(name string, args ...string) error
}

// NewBrowserOpener returns an opener for the running OS.
func NewBrowserOpener() *BrowserOpener {
	return &BrowserOpener{goos: runtime.GOOS, start: startDetached}
}

func startDetached(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open implements LinkOpener. Only http and https links are opened.
func (b *BrowserOpener) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid link %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: unsupported scheme", rawURL)
	}

	name, args := browserCommand(b.goos, u.String())
	if err := b.start(name, args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func browserCommand(goos, link string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", link}
	case "darwin":
		return "open", []string{link}
	default:
		return "xdg-open", []string{link}
	}
}

// NopOpener logs the link instead of opening it.
type NopOpener struct {
	Logger *zap.Logger
}

// Open implements LinkOpener.
func (o NopOpener) Open(rawURL string) error {
	logging.For(o.Logger, logging.CategoryNotify).Info("Link not opened", zap.String("url", rawURL))
	return nil
}
