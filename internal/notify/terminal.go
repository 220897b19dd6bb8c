package notify

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth = 80
	minWidth     = 24
)

var (
	warningColor = lipgloss.Color("#FFC107")
	mutedColor   = lipgloss.Color("#8a94a6")
	accentColor  = lipgloss.Color("#8BC34A")
)

type styles struct {
	Box    lipgloss.Style
	Title  lipgloss.Style
	Footer lipgloss.Style
	URL    lipgloss.Style
	Prompt lipgloss.Style
	Help   lipgloss.Style
}

func newStyles(width int) styles {
	return styles{
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warningColor).
			Padding(1, 2).
			Width(width),
		Title: lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true),
		Footer: lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true),
		URL: lipgloss.NewStyle().
			Foreground(accentColor).
			Underline(true),
		Prompt: lipgloss.NewStyle().
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(mutedColor),
	}
}

type keyMap struct {
	Yes     key.Binding
	No      key.Binding
	Dismiss key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("y/enter", "open guide"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N"),
			key.WithHelp("n", "skip"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc", "close"),
		),
	}
}

// noticeModel is the bubbletea model of the warning modal.
type noticeModel struct {
	notice   Notice
	body     string
	keys     keyMap
	styles   styles
	answered bool
	accepted bool
}

func newNoticeModel(n Notice, body string, width int) noticeModel {
	return noticeModel{
		notice: n,
		body:   body,
		keys:   defaultKeyMap(),
		styles: newStyles(width),
	}
}

func (m noticeModel) Init() tea.Cmd { return nil }

func (m noticeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.styles = newStyles(boxWidth(size.Width))
		return m, nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		m.answered = true
		m.accepted = m.notice.URL != ""
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.No), key.Matches(keyMsg, m.keys.Dismiss):
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m noticeModel) View() string {
	if m.answered {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("⚠ " + m.notice.Title))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(m.body))
	if m.notice.Footer != "" {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Footer.Render(m.notice.Footer))
	}

	if q := m.notice.Question(); q != "" {
		b.WriteString("\n\n")
		b.WriteString(m.styles.URL.Render(m.notice.URL))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Prompt.Render(q))
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render(m.help(m.keys.Yes, m.keys.No)))
	} else {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Help.Render("enter/esc continue"))
	}

	return m.styles.Box.Render(b.String()) + "\n"
}

// boxWidth fits the box, border included, into a terminal of the given width.
func boxWidth(terminal int) int {
	w := terminal - 2
	if w > defaultWidth {
		w = defaultWidth
	}
	if w < minWidth {
		w = minWidth
	}
	return w
}

func (m noticeModel) help(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	return strings.Join(parts, " • ")
}

// TerminalPresenter shows notices as a modal prompt in the terminal.
type TerminalPresenter struct {
	in    io.Reader
	out   io.Writer
	width int
}

// NewTerminalPresenter creates a presenter reading keys from in and drawing
// to out.
func NewTerminalPresenter(in io.Reader, out io.Writer) *TerminalPresenter {
	return &TerminalPresenter{in: in, out: out, width: defaultWidth}
}

// Present implements Presenter.
func (p *TerminalPresenter) Present(n Notice) (bool, error) {
	m := newNoticeModel(n, p.renderBody(n.Body), p.width)

	prog := tea.NewProgram(m,
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
		tea.WithoutSignalHandler(),
	)
	final, err := prog.Run()
	if err != nil {
		return false, fmt.Errorf("notice prompt failed: %w", err)
	}

	fm, ok := final.(noticeModel)
	if !ok {
		return false, nil
	}
	return fm.accepted, nil
}

// renderBody renders markdown for the terminal. The raw text is used when
// rendering fails.
func (p *TerminalPresenter) renderBody(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(p.width-6),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
