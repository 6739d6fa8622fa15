package browsecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/stacks/pkg/knowledge"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type browseView int

const (
	viewCollections browseView = iota
	viewQuery
	viewResults
	viewDetail
)

type browseOptions struct {
	Collection     string
	TopK           int
	ScoreThreshold float64
}

type browseModel struct {
	client  *knowledge.Client
	options browseOptions

	view             browseView
	collections      []collectionEntry
	collectionCursor int
	collection       string

	input        textinput.Model
	lastQuery    string
	results      []resultEntry
	resultCursor int
	detailIndex  int

	searching bool
	status    string

	width  int
	height int
	keys   browseKeyMap
	help   help.Model
}

type collectionEntry struct {
	Name  string
	Count *int
}

type resultEntry struct {
	ID    string
	Score *float64
	Text  string
	Raw   json.RawMessage
}

var (
	browseTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	browseMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	browseAccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	browseSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	browseDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	browseScoreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	browseHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("39")).Bold(true)
	browseErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type browseKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Refresh, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter, k.Back}, {k.Refresh, k.Quit}}
}

func defaultKeyMap() browseKeyMap {
	return browseKeyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:   key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "drill")),
		Back:    key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("esc", "back")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type collectionsLoadedMsg struct {
	collections []collectionEntry
	err         error
}

type searchDoneMsg struct {
	envelope knowledge.SearchEnvelope
}

func runBrowseTUI(ctx context.Context, client *knowledge.Client, options browseOptions) error {
	envelope := client.ListCollections(ctx)
	if !envelope.Success {
		return fmt.Errorf("listing collections failed: %s", envelope.Error)
	}

	model := newBrowseModel(client, options, decodeCollections(envelope.Collections))

	if options.Collection != "" {
		model.collection = options.Collection
		model.view = viewQuery
		model.input.Focus()
	}

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newBrowseModel(client *knowledge.Client, options browseOptions, collections []collectionEntry) browseModel {
	input := textinput.New()
	input.Placeholder = "search the knowledge base"
	input.CharLimit = 512
	input.Width = 48

	return browseModel{
		client:      client,
		options:     options,
		view:        viewCollections,
		collections: collections,
		input:       input,
		keys:        defaultKeyMap(),
		help:        help.New(),
	}
}

func (m browseModel) Init() bubbletea.Cmd {
	if m.view == viewQuery {
		return textinput.Blink
	}
	return nil
}

func (m browseModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = min(max(m.width-8, 20), 64)
		return m, nil
	case collectionsLoadedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.status = ""
		m.collections = msg.collections
		if len(m.collections) == 0 {
			m.collectionCursor = 0
		} else {
			m.collectionCursor = clamp(m.collectionCursor, len(m.collections)-1)
		}
		return m, nil
	case searchDoneMsg:
		m.searching = false
		if !msg.envelope.Success {
			m.status = msg.envelope.Error
			return m, nil
		}
		m.status = ""
		m.results = decodeResults(msg.envelope.Results)
		m.resultCursor = 0
		m.view = viewResults
		return m, nil
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and other component messages belong to the input.
	if m.view == viewQuery {
		var cmd bubbletea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m browseModel) View() string {
	switch m.view {
	case viewCollections:
		return m.viewCollections()
	case viewQuery:
		return m.viewQuery()
	case viewResults:
		return m.viewResults()
	case viewDetail:
		return m.viewDetail()
	}
	return m.viewCollections()
}

func (m browseModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, bubbletea.Quit
	}

	// The query view owns the keyboard while typing.
	if m.view == viewQuery {
		switch msg.String() {
		case "esc":
			m.input.Blur()
			m.status = ""
			m.view = viewCollections
			return m, nil
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				m.status = "enter a query first"
				return m, nil
			}
			m.lastQuery = query
			m.searching = true
			m.status = ""
			return m, runSearchCmd(m.client, knowledge.SearchRequest{
				Query:          query,
				Collection:     m.collection,
				TopK:           m.options.TopK,
				ScoreThreshold: m.options.ScoreThreshold,
			})
		default:
			var cmd bubbletea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q":
		return m, bubbletea.Quit
	case "j", "down":
		return m.moveCursor(1)
	case "k", "up":
		return m.moveCursor(-1)
	case "l", "enter":
		return m.drill()
	case "h", "esc":
		return m.back()
	case "r":
		if m.view == viewCollections {
			m.status = "refreshing..."
			return m, loadCollectionsCmd(m.client)
		}
	}

	return m, nil
}

func (m browseModel) moveCursor(delta int) (bubbletea.Model, bubbletea.Cmd) {
	switch m.view {
	case viewCollections:
		if len(m.collections) == 0 {
			return m, nil
		}
		m.collectionCursor = clamp(m.collectionCursor+delta, len(m.collections)-1)
	case viewResults:
		if len(m.results) == 0 {
			return m, nil
		}
		m.resultCursor = clamp(m.resultCursor+delta, len(m.results)-1)
	}
	return m, nil
}

func (m browseModel) drill() (bubbletea.Model, bubbletea.Cmd) {
	switch m.view {
	case viewCollections:
		if len(m.collections) == 0 {
			return m, nil
		}
		m.collection = m.collections[m.collectionCursor].Name
		m.status = ""
		m.view = viewQuery
		return m, m.input.Focus()
	case viewResults:
		if len(m.results) == 0 {
			return m, nil
		}
		m.detailIndex = m.resultCursor
		m.view = viewDetail
	}
	return m, nil
}

func (m browseModel) back() (bubbletea.Model, bubbletea.Cmd) {
	switch m.view {
	case viewResults:
		m.view = viewQuery
		return m, m.input.Focus()
	case viewDetail:
		m.view = viewResults
	}
	return m, nil
}

func (m browseModel) viewCollections() string {
	headerLeft := browseTitleStyle.Render("stacks browse")
	headerRight := browseMutedStyle.Render(fmt.Sprintf("%d collections", len(m.collections)))
	lines := []string{renderHeaderLine(m.width, headerLeft, headerRight), renderRule(m.width), ""}

	lines = append(lines, browseSectionStyle.Render("collections"), renderRule(m.width))

	if len(m.collections) == 0 {
		lines = append(lines, browseMutedStyle.Render("no collections"), browseMutedStyle.Render("press r to refresh"))
	} else {
		maxVisible := listHeight(m.height)
		start, end := visibleRange(len(m.collections), m.collectionCursor, maxVisible)
		for i := start; i < end; i++ {
			entry := m.collections[i]
			cursor := " "
			if i == m.collectionCursor {
				cursor = ">"
			}

			count := ""
			if entry.Count != nil {
				count = fmt.Sprintf("  %d documents", *entry.Count)
			}

			line := fmt.Sprintf("%s %-24s%s", cursor, truncateText(entry.Name, 24), browseMutedStyle.Render(count))
			if i == m.collectionCursor {
				line = browseHighlightStyle.Render(fmt.Sprintf("%s %-24s%s", cursor, truncateText(entry.Name, 24), count))
			}
			lines = append(lines, line)
		}
	}

	lines = append(lines, "", m.statusLine(), m.viewFooter())
	return strings.Join(lines, "\n")
}

func (m browseModel) viewQuery() string {
	headerLeft := browseTitleStyle.Render("stacks browse › " + m.collection)
	headerRight := browseMutedStyle.Render(fmt.Sprintf("top %d · threshold %.2f", m.options.TopK, m.options.ScoreThreshold))
	lines := []string{renderHeaderLine(m.width, headerLeft, headerRight), renderRule(m.width), ""}

	lines = append(lines, browseSectionStyle.Render("query"), renderRule(m.width))
	lines = append(lines, m.input.View(), "")

	if m.searching {
		lines = append(lines, browseAccentStyle.Render("searching..."))
	} else {
		lines = append(lines, browseMutedStyle.Render("enter to search · esc to change collection"))
	}

	lines = append(lines, "", m.statusLine(), m.viewFooter())
	return strings.Join(lines, "\n")
}

func (m browseModel) viewResults() string {
	headerLeft := browseTitleStyle.Render(fmt.Sprintf("stacks browse › %s › %q", m.collection, m.lastQuery))
	headerRight := browseMutedStyle.Render(fmt.Sprintf("%d results", len(m.results)))
	lines := []string{renderHeaderLine(m.width, headerLeft, headerRight), renderRule(m.width), ""}

	lines = append(lines, browseSectionStyle.Render("results"), renderRule(m.width))

	if len(m.results) == 0 {
		lines = append(lines, browseMutedStyle.Render("no matches"), browseMutedStyle.Render("esc to refine the query"))
	} else {
		maxVisible := listHeight(m.height)
		start, end := visibleRange(len(m.results), m.resultCursor, maxVisible)
		for i := start; i < end; i++ {
			lines = append(lines, m.renderResultLine(i))
		}
	}

	lines = append(lines, "", m.statusLine(), m.viewFooter())
	return strings.Join(lines, "\n")
}

func (m browseModel) renderResultLine(i int) string {
	entry := m.results[i]
	cursor := " "
	if i == m.resultCursor {
		cursor = ">"
	}

	score := "     "
	if entry.Score != nil {
		score = fmt.Sprintf("%.2f", *entry.Score)
	}

	preview := oneLine(entry.Text)
	if preview == "" {
		preview = oneLine(string(entry.Raw))
	}
	previewWidth := max(lineWidth(m.width)-32, 16)
	preview = ansi.Truncate(preview, previewWidth, "…")

	if i == m.resultCursor {
		return browseHighlightStyle.Render(fmt.Sprintf("%s #%-3d %s  %-18s %s", cursor, i+1, score, truncateText(entry.ID, 18), preview))
	}

	return fmt.Sprintf("%s %s %s  %s %s",
		cursor,
		browseAccentStyle.Render(fmt.Sprintf("#%-3d", i+1)),
		browseScoreStyle.Render(score),
		browseTitleStyle.Render(fmt.Sprintf("%-18s", truncateText(entry.ID, 18))),
		preview,
	)
}

func (m browseModel) viewDetail() string {
	entry := m.results[clamp(m.detailIndex, len(m.results)-1)]

	label := entry.ID
	if label == "" {
		label = fmt.Sprintf("result %d", m.detailIndex+1)
	}
	headerLeft := browseTitleStyle.Render(fmt.Sprintf("stacks browse › %s › %s", m.collection, label))
	headerRight := ""
	if entry.Score != nil {
		headerRight = browseMutedStyle.Render(fmt.Sprintf("score %.4f", *entry.Score))
	}
	lines := []string{renderHeaderLine(m.width, headerLeft, headerRight), renderRule(m.width), ""}

	body := m.detailBody(entry)
	maxLines := max(m.height-len(lines)-4, 8)
	if len(body) > maxLines {
		body = append(body[:maxLines], browseMutedStyle.Render("..."))
	}
	lines = append(lines, body...)

	lines = append(lines, "", m.viewFooter())
	return strings.Join(lines, "\n")
}

func (m browseModel) detailBody(entry resultEntry) []string {
	width := max(lineWidth(m.width)-2, 20)

	if entry.Text != "" {
		return wrapText(entry.Text, width)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, entry.Raw, "", "  "); err != nil {
		return strings.Split(string(entry.Raw), "\n")
	}
	return strings.Split(pretty.String(), "\n")
}

func (m browseModel) statusLine() string {
	if m.status == "" {
		return ""
	}
	return browseErrorStyle.Render(m.status)
}

func (m browseModel) viewFooter() string {
	return browseMutedStyle.Render(m.help.View(m.keys))
}

func loadCollectionsCmd(client *knowledge.Client) bubbletea.Cmd {
	return func() bubbletea.Msg {
		envelope := client.ListCollections(context.Background())
		if !envelope.Success {
			return collectionsLoadedMsg{err: fmt.Errorf("%s", envelope.Error)}
		}
		return collectionsLoadedMsg{collections: decodeCollections(envelope.Collections)}
	}
}

func runSearchCmd(client *knowledge.Client, req knowledge.SearchRequest) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return searchDoneMsg{envelope: client.Search(context.Background(), req)}
	}
}

// decodeCollections accepts both plain name strings and objects with a name
// field, matching what knowledge base servers return.
func decodeCollections(raws *[]json.RawMessage) []collectionEntry {
	if raws == nil {
		return nil
	}

	entries := make([]collectionEntry, 0, len(*raws))
	for _, raw := range *raws {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			entries = append(entries, collectionEntry{Name: name})
			continue
		}

		var obj struct {
			Name  string `json:"name"`
			Count *int   `json:"count"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
			entries = append(entries, collectionEntry{Name: obj.Name, Count: obj.Count})
			continue
		}

		entries = append(entries, collectionEntry{Name: string(raw)})
	}

	return entries
}

func decodeResults(raws *[]json.RawMessage) []resultEntry {
	if raws == nil {
		return nil
	}

	entries := make([]resultEntry, 0, len(*raws))
	for _, raw := range *raws {
		var doc struct {
			ID      string   `json:"id"`
			Score   *float64 `json:"score"`
			Text    string   `json:"text"`
			Content string   `json:"content"`
		}

		entry := resultEntry{Raw: raw}
		if err := json.Unmarshal(raw, &doc); err == nil {
			entry.ID = doc.ID
			entry.Score = doc.Score
			entry.Text = doc.Text
			if entry.Text == "" {
				entry.Text = doc.Content
			}
		}

		entries = append(entries, entry)
	}

	return entries
}

func clamp(value, upper int) int {
	if value < 0 {
		return 0
	}
	if value > upper {
		return upper
	}
	return value
}

func lineWidth(width int) int {
	if width <= 0 {
		return 80
	}
	return width
}

func listHeight(height int) int {
	if height <= 0 {
		return 20
	}
	return max(height-10, 5)
}

func renderRule(width int) string {
	return browseDividerStyle.Render(strings.Repeat("─", lineWidth(width)))
}

func renderHeaderLine(width int, left, right string) string {
	w := lineWidth(width)
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= w {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := w - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func truncateText(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func oneLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := []string{}
	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
			current = current + " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if total <= size {
		return 0, total
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	start := max(cursor-(size/2), 0)
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}
