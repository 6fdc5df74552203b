// Package tui is a terminal chat client over the query pipeline.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragbot/internal/chunker"
	"ragbot/internal/pipeline"
)

// Answerer is the TUI-facing subset of the pipeline.
type Answerer interface {
	Answer(ctx context.Context, query string) (*pipeline.Result, error)
}

type answerMsg struct {
	query  string
	result *pipeline.Result
	err    error
}

// Model is the Bubble Tea model for the chat client. The cursor is -1 while
// the response is shown and indexes the supporting documents otherwise.
type Model struct {
	answerer  Answerer
	timeout   time.Duration
	subtitle  string
	input     textinput.Model
	viewport  viewport.Model
	result    *pipeline.Result
	status    string
	cursor    int
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a chat model. timeout bounds each answer; 0 means none.
func New(answerer Answerer, subtitle string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask something and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		answerer: answerer,
		timeout:  timeout,
		subtitle: subtitle,
		input:    ti,
		viewport: vp,
		cursor:   -1,
		status:   "Ready. up/down cycles supporting documents.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if m.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}
		res, err := m.answerer.Answer(ctx, q)
		return answerMsg{query: q, result: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + subtitle
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := max(3, msg.Height-reserved)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.render())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = nil
		} else {
			m.result = msg.result
			m.lastQuery = msg.query
			m.status = fmt.Sprintf("Answered %q with %d documents", msg.query, len(msg.result.Context.Documents))
			if msg.result.Degraded {
				m.status += " (retrieval failed)"
			}
		}
		m.cursor = -1
		m.viewport.SetContent(m.render())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Thinking..."
				m.input.SetValue("")
				return m, m.ask(q)
			}
		case "down":
			if n := m.documentCount(); n > 0 {
				m.cursor = (m.cursor+2)%(n+1) - 1
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "up":
			if n := m.documentCount(); n > 0 {
				m.cursor = (m.cursor+n+1)%(n+1) - 1
				m.viewport.SetContent(m.render())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("ragbot")
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.subtitle)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + subtitle + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) documentCount() int {
	if m.result == nil {
		return 0
	}
	return len(m.result.Context.Documents)
}

func (m Model) render() string {
	if m.result == nil {
		return "No answer yet."
	}
	if m.cursor < 0 {
		body := m.result.Response
		if body == "" {
			body = "(empty response)"
		}
		return lipgloss.NewStyle().Bold(true).Render("Response") + "\n\n" + body
	}
	d := m.result.Context.Documents[m.cursor]
	title := fmt.Sprintf("Document %d/%d  score=%.3f", m.cursor+1, m.documentCount(), d.Score)
	if d.Source != "" {
		title += "  " + d.Source
	}
	return title + "\n\n" + highlightBestSentence(d.Text, m.lastQuery)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

func highlightBestSentence(text, query string) string {
	sentences := chunker.SplitSentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
