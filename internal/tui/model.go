package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kbase/internal/docstore"
	"kbase/internal/domain"
	"kbase/internal/summarizer"
)

// Searcher is the TUI-facing subset of the knowledge base.
type Searcher interface {
	Query(text string, k int) []domain.SearchResult
	Stats() domain.Stats
}

// Options tune the result list.
type Options struct {
	TopK         int
	MaxSentences int
}

// Model is the Bubble Tea model for the query UI.
type Model struct {
	kb       Searcher
	opts     Options
	input    textinput.Model
	viewport viewport.Model
	stats    domain.Stats
	results  []domain.SearchResult
	digest   string
	status   string
	cursor   int
	ready    bool
	query    string
}

// New creates a model over kb.
func New(kb Searcher, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask the knowledge base and press Enter"
	ti.Focus()
	st := kb.Stats()
	status := fmt.Sprintf("%d chunks from %d sources. Type to search.", st.ChunkCount, st.UniqueSourceCount)
	if st.ChunkCount == 0 {
		status = "The knowledge base is empty. Run kbase ingest first."
	}
	return Model{kb: kb, opts: opts, input: ti, viewport: viewport.New(0, 0), stats: st, status: status}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		// header, digest, status and a spacer
		reserved := 4 + qh
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if q := strings.TrimSpace(m.input.Value()); q != "" {
				m.search(q)
				return m, nil
			}
		case tea.KeyDown, tea.KeyTab:
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case tea.KeyUp, tea.KeyShiftTab:
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) search(q string) {
	m.results = m.kb.Query(q, m.opts.TopK)
	m.query = q
	m.cursor = 0
	m.digest = summarizer.Digest(q, m.results, m.opts.MaxSentences)
	if len(m.results) == 0 {
		m.status = fmt.Sprintf("No results for %q", q)
	} else {
		m.status = fmt.Sprintf("%d results for %q (%s)", len(m.results), q, m.stats.Strategy)
	}
	m.viewport.SetContent(m.renderCurrent())
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("kbase") + " " +
		dimStyle.Render(fmt.Sprintf("%d chunks · %d sources · %s", m.stats.ChunkCount, m.stats.UniqueSourceCount, m.stats.Strategy))
	digest := dimStyle.Render(m.digest)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + digest + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  distance=%.3f  %s", m.cursor+1, len(m.results), r.Distance, docstore.Basename(r.Metadata.Source()))
	if idx, ok := r.Metadata[domain.KeyChunkIndex].(int64); ok {
		if total, ok := r.Metadata[domain.KeyTotalChunks].(int64); ok {
			title += fmt.Sprintf("  chunk %d/%d", idx+1, total)
		}
	}
	return title + "\n\n" + highlight(r.Content, m.query)
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	wordRe         = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// highlight marks the words of text that appear in query.
func highlight(text, query string) string {
	want := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		if len(w) > 2 {
			want[w] = true
		}
	}
	if len(want) == 0 {
		return text
	}
	return wordRe.ReplaceAllStringFunc(text, func(w string) string {
		if want[strings.ToLower(w)] {
			return highlightStyle.Render(w)
		}
		return w
	})
}
