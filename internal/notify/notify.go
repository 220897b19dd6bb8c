// Package notify shows installation warnings to the user.
//
// A Presenter blocks until the user answers the notice. The terminal
// presenter draws a modal prompt; the headless presenter is used when no
// interactive terminal is attached and never displays anything.
package notify

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"modcheck/internal/logging"
)

// ErrHeadless is returned by presenters that cannot display a notice.
var ErrHeadless = errors.New("notify: no interactive terminal")

// Notice is one warning as shown to the user.
type Notice struct {
	Key   string
	Title string

	// Body is markdown.
	Body   string
	Footer string

	// URL is offered to the user when set.
	URL string
}

// Question returns the yes/no prompt for the notice.
func (n Notice) Question() string {
	if n.URL == "" {
		return ""
	}
	return "Open the installation guide in your browser?"
}

// Presenter displays a notice and blocks until it is dismissed. It returns
// whether the user accepted the question. A nil error means the notice was
// displayed.
type Presenter interface {
	Present(n Notice) (bool, error)
}

// HeadlessPresenter never displays anything.
type HeadlessPresenter struct{}

// Present implements Presenter.
func (HeadlessPresenter) Present(Notice) (bool, error) { return false, ErrHeadless }

// Auto returns a terminal presenter when stdin and stdout are terminals and
// headless is not forced.
func Auto(forceHeadless bool, logger *zap.Logger) Presenter {
	log := logging.For(logger, logging.CategoryNotify)
	if forceHeadless {
		log.Debug("Headless mode forced")
		return HeadlessPresenter{}
	}
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		log.Debug("No interactive terminal, notices will only be logged")
		return HeadlessPresenter{}
	}
	return NewTerminalPresenter(os.Stdin, os.Stdout)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
