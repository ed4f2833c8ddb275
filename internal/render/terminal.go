package render

import (
	"context"
	"errors"
	"fmt"
	"insightai/internal/conversation"
	"insightai/internal/model"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Conversation is what the terminal chat drives
type Conversation interface {
	Submit(ctx context.Context, text string) error
	Snapshot() *model.Snapshot
}

// Feed returns an observer that forwards snapshots to ch without ever blocking the conversation
func Feed(ch chan<- *model.Snapshot) func(*model.Snapshot) {
	return func(snap *model.Snapshot) {
		select {
		case ch <- snap:
		default:
		}
	}
}

const maxBubbleWidth = 64

type snapshotMsg struct{ snap *model.Snapshot }

type submittedMsg struct{ err error }

type seenMsg struct{}

// ChatModel is the bubbletea model of the respondent chat
type ChatModel struct {
	ctx       context.Context
	conv      Conversation
	updates   <-chan *model.Snapshot
	theme     Theme
	seenDelay time.Duration
	now       func() time.Time

	snap    *model.Snapshot
	input   []rune
	pending bool
	notice  string
	width   int
}

// NewChatModel creates the terminal chat. updates should carry the conversation's
// observer snapshots (see Feed); it may be nil.
func NewChatModel(ctx context.Context, conv Conversation, updates <-chan *model.Snapshot, seenDelay time.Duration) *ChatModel {
	snap := conv.Snapshot()
	return &ChatModel{
		ctx:       ctx,
		conv:      conv,
		updates:   updates,
		theme:     ThemeFor(snap.Skin),
		seenDelay: seenDelay,
		now:       time.Now,
		snap:      snap,
		width:     80,
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m *ChatModel) waitForSnapshot() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case snap, ok := <-m.updates:
			if !ok {
				return nil
			}
			return snapshotMsg{snap: snap}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *ChatModel) submit(text string) tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{err: m.conv.Submit(m.ctx, text)}
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = msg.snap
		return m, m.waitForSnapshot()

	case submittedMsg:
		m.pending = false
		m.snap = m.conv.Snapshot()
		m.notice = ""
		switch {
		case msg.err == nil, errors.Is(msg.err, conversation.ErrSubmitFailed):
			// failures already show up in the transcript
		default:
			m.notice = msg.err.Error()
		}
		return m, tea.Tick(m.seenDelay, func(time.Time) tea.Msg { return seenMsg{} })

	case seenMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}

	if m.snap.Done {
		if msg.Type == tea.KeyEnter || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.pending || m.snap.Submitting {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEnter:
		text := strings.TrimSpace(string(m.input))
		if text == "" {
			return m, nil
		}
		m.input = m.input[:0]
		m.pending = true
		return m, m.submit(text)
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m *ChatModel) View() string {
	var b strings.Builder
	t := m.theme

	b.WriteString(t.Header.Render(m.snap.SurveyTitle))
	b.WriteString(" ")
	b.WriteString(t.Status.Render(m.status()))
	b.WriteString("\n\n")

	now := m.now()
	for _, msg := range m.snap.Transcript {
		b.WriteString(m.renderMessage(msg, now))
		b.WriteString("\n")
	}

	if m.pending || m.snap.Submitting {
		b.WriteString(t.Meta.Render(t.Typing))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if t.ShowProgress && !m.snap.Done {
		b.WriteString(t.Meta.Render(fmt.Sprintf("%s %d%%", ProgressBar(m.snap.Progress, 30), m.snap.Progress)))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(t.Error.Render(m.notice))
		b.WriteString("\n")
	}

	switch {
	case m.snap.Done:
		b.WriteString(t.Hint.Render("Survey complete. Press enter to exit."))
	case m.pending || m.snap.Submitting:
		b.WriteString(t.Hint.Render("…"))
	default:
		b.WriteString(t.Prompt.Render("> ") + string(m.input) + "█")
		b.WriteString("\n")
		b.WriteString(t.Hint.Render("enter to send • esc to quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// status follows the skin's header copy, with the typing state shown immediately
func (m *ChatModel) status() string {
	if m.pending && m.snap.Skin == conversation.SkinWhatsApp && !m.snap.Done {
		return m.theme.Typing
	}
	return m.snap.Status
}

func (m *ChatModel) renderMessage(msg model.Message, now time.Time) string {
	t := m.theme
	style := t.Bot
	switch {
	case msg.Role == model.RoleRespondent:
		style = t.Respondent
	case msg.Error:
		style = t.Error
	case msg.Final:
		style = t.Final
	case msg.FollowUp:
		style = t.FollowUp
	}

	var body strings.Builder
	if msg.QuestionLabel != "" {
		body.WriteString(t.Label.Render(msg.QuestionLabel))
		body.WriteString("\n")
	}
	if t.BoldMarkup {
		for _, seg := range Segments(msg.Text) {
			if seg.Bold {
				body.WriteString(t.Bold.Render(seg.Text))
			} else {
				body.WriteString(seg.Text)
			}
		}
	} else {
		body.WriteString(msg.Text)
	}

	meta := Clock(msg.SentAt)
	if ticks := Ticks(msg, now, m.seenDelay); ticks != "" {
		if ticks == "✓✓" {
			meta += " " + t.Seen.Render(ticks)
		} else {
			meta += " " + ticks
		}
	}
	text := body.String()
	style = style.Width(min(lipgloss.Width(text)+2, maxBubbleWidth, max(m.width-4, 20)))
	bubble := lipgloss.JoinVertical(lipgloss.Left, style.Render(text), t.Meta.Render(meta))

	if msg.Role == model.RoleRespondent {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, bubble)
	}
	return bubble
}

// Run starts the full-screen chat and blocks until the respondent quits
func Run(ctx context.Context, conv Conversation, updates <-chan *model.Snapshot, seenDelay time.Duration) error {
	p := tea.NewProgram(NewChatModel(ctx, conv, updates, seenDelay), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
