package notify

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNotice = Notice{
	Key:    "LiqMixAISlop",
	Title:  "Incompatible texture pack",
	Body:   "Remove the **legacy** upscale pack.",
	Footer: "This warning will be shown on 2 more launches before it is limited to once every 7 days.",
	URL:    "https://github.com/ShizCalev/MGSHDFix#installation",
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNoticeModel_Answers(t *testing.T) {
	tests := []struct {
		name     string
		notice   Notice
		msg      tea.KeyMsg
		accepted bool
	}{
		{"yes", testNotice, runeKey('y'), true},
		{"enter", testNotice, tea.KeyMsg{Type: tea.KeyEnter}, true},
		{"no", testNotice, runeKey('n'), false},
		{"escape", testNotice, tea.KeyMsg{Type: tea.KeyEsc}, false},
		{"ctrl+c", testNotice, tea.KeyMsg{Type: tea.KeyCtrlC}, false},
		{"enter without link", Notice{Title: "t", Body: "b"}, tea.KeyMsg{Type: tea.KeyEnter}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newNoticeModel(tt.notice, tt.notice.Body, defaultWidth)
			next, cmd := m.Update(tt.msg)

			fm := next.(noticeModel)
			assert.True(t, fm.answered)
			assert.Equal(t, tt.accepted, fm.accepted)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestNoticeModel_IgnoresOtherInput(t *testing.T) {
	m := newNoticeModel(testNotice, testNotice.Body, defaultWidth)

	next, cmd := m.Update(runeKey('x'))
	assert.Nil(t, cmd)
	assert.False(t, next.(noticeModel).answered)

	next, cmd = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Nil(t, cmd)
	assert.False(t, next.(noticeModel).answered)
}

// plainText strips the box border and joins wrapped lines.
func plainText(view string) string {
	view = ansi.Strip(view)
	view = strings.Map(func(r rune) rune {
		if strings.ContainsRune("│─╭╮╰╯", r) {
			return ' '
		}
		return r
	}, view)
	return strings.Join(strings.Fields(view), " ")
}

func TestNoticeModel_View(t *testing.T) {
	m := newNoticeModel(testNotice, testNotice.Body, defaultWidth)
	view := plainText(m.View())

	assert.Contains(t, view, "Incompatible texture pack")
	assert.Contains(t, view, "legacy")
	assert.Contains(t, view, "limited to once every 7 days")
	assert.Contains(t, view, "https://github.com/ShizCalev/MGSHDFix#installation")
	assert.Contains(t, view, testNotice.Question())

	plain := newNoticeModel(Notice{Title: "t", Body: "b"}, "b", defaultWidth)
	assert.NotContains(t, plain.View(), "browser")
	assert.Contains(t, plain.View(), "continue")

	answered, _ := m.Update(runeKey('n'))
	assert.Empty(t, answered.View())
}

func TestNoticeModel_FitsTerminalWidth(t *testing.T) {
	m := newNoticeModel(testNotice, testNotice.Body, defaultWidth)

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 50, Height: 20})
	assert.Nil(t, cmd)
	for _, line := range strings.Split(strings.TrimRight(next.View(), "\n"), "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 50, line)
	}
	assert.Contains(t, plainText(next.View()), "limited to once every 7 days")

	wide, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 50})
	assert.LessOrEqual(t, lipgloss.Width(wide.View()), defaultWidth+2)
}

func TestBoxWidth(t *testing.T) {
	assert.Equal(t, 48, boxWidth(50))
	assert.Equal(t, defaultWidth, boxWidth(300))
	assert.Equal(t, minWidth, boxWidth(10))
}

func TestTerminalPresenter_Present(t *testing.T) {
	tests := []struct {
		input    string
		accepted bool
	}{
		{"y", true},
		{"n", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var out bytes.Buffer
			p := NewTerminalPresenter(strings.NewReader(tt.input), &out)

			accepted, err := p.Present(testNotice)
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, accepted)
		})
	}
}

func TestTerminalPresenter_RenderBody(t *testing.T) {
	p := NewTerminalPresenter(strings.NewReader(""), &bytes.Buffer{})
	out := p.renderBody("Remove the **legacy** pack.")
	assert.Contains(t, out, "legacy")
	assert.Contains(t, out, "pack.")
}

func TestHeadlessPresenter(t *testing.T) {
	accepted, err := HeadlessPresenter{}.Present(testNotice)
	assert.False(t, accepted)
	assert.True(t, errors.Is(err, ErrHeadless))
}

func TestAuto_ForcedHeadless(t *testing.T) {
	p := Auto(true, zap.NewNop())
	_, ok := p.(HeadlessPresenter)
	assert.True(t, ok)
}

func TestNoticeQuestion(t *testing.T) {
	assert.NotEmpty(t, testNotice.Question())
	assert.Empty(t, Notice{}.Question())
}
