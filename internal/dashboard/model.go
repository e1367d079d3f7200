// Package dashboard implements the terminal dashboard and the command output formatting.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/seodash/pkg/api"
	"github.com/lepinkainen/seodash/pkg/apperror"
)

// Tab is one page of the dashboard
type Tab int

// Dashboard tabs
const (
	TabOverview Tab = iota
	TabProjects
	TabSites
)

func (t Tab) String() string {
	switch t {
	case TabOverview:
		return "Overview"
	case TabProjects:
		return "Projects"
	case TabSites:
		return "Sites"
	default:
		return "Unknown"
	}
}

// ViewMode represents the current view mode
type ViewMode int

// View modes for the dashboard
const (
	ListViewMode ViewMode = iota
	DetailViewMode
)

// Source is the data the dashboard reads; *api.Client implements it
type Source interface {
	GetDashboardData(ctx context.Context) *api.DashboardData
	GetProjects(ctx context.Context) ([]api.Project, error)
	GetSiteStats(ctx context.Context) ([]api.SiteStats, error)
}

// Options selects the tabs shown
type Options struct {
	SiteStats bool
	// ClearSession is called when a load fails with an error that invalidates the credential
	ClearSession func(ctx context.Context) error
}

// loadedMsg carries the result of a load; seq ties it to the load that started it
type loadedMsg struct {
	seq      uint64
	tab      Tab
	data     *api.DashboardData
	projects []api.Project
	sites    []api.SiteStats
	err      error
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	activeTab     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")).Padding(0, 1)
	inactiveTab   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

// Model represents the Bubble Tea model for the dashboard
type Model struct {
	src     Source
	purge   func(ctx context.Context) error
	parent  context.Context
	loadCtx context.Context
	cancel  context.CancelFunc
	seq     uint64

	tabs     []Tab
	active   int
	viewMode ViewMode
	loading  bool
	err      error

	data     *api.DashboardData
	projects []api.Project
	sites    []api.SiteStats

	cursor int
	width  int
	height int
}

// NewModel creates a dashboard model. The first load is prepared here and
// started by Init; every load is canceled when ctx is.
func NewModel(ctx context.Context, src Source, opts Options) Model {
	tabs := []Tab{TabOverview, TabProjects}
	if opts.SiteStats {
		tabs = append(tabs, TabSites)
	}

	m := Model{
		src:    src,
		purge:  opts.ClearSession,
		parent: ctx,
		tabs:   tabs,
	}
	m.beginLoad()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.fetch()
}

// ActiveTab returns the tab on screen
func (m Model) ActiveTab() Tab {
	return m.tabs[m.active]
}

// Loading reports whether a load is in flight
func (m Model) Loading() bool {
	return m.loading
}

// Err returns the error of the last load
func (m Model) Err() error {
	return m.err
}

// beginLoad cancels the load in flight and prepares a new one
func (m *Model) beginLoad() {
	if m.cancel != nil {
		m.cancel()
	}
	m.loadCtx, m.cancel = context.WithCancel(m.parent)
	m.seq++
	m.loading = true
	m.err = nil
}

// fetch returns the command running the prepared load
func (m Model) fetch() tea.Cmd {
	ctx, seq, tab, src, purge := m.loadCtx, m.seq, m.ActiveTab(), m.src, m.purge
	return func() tea.Msg {
		msg := loadedMsg{seq: seq, tab: tab}
		switch tab {
		case TabOverview:
			msg.data = src.GetDashboardData(ctx)
		case TabProjects:
			msg.projects, msg.err = src.GetProjects(ctx)
		case TabSites:
			msg.sites, msg.err = src.GetSiteStats(ctx)
		}

		if msg.err != nil && purge != nil && apperror.PurgesCredentials(apperror.Classify(msg.err)) {
			if err := purge(ctx); err != nil {
				slog.Error("Failed to purge session", "error", err)
			}
		}
		return msg
	}
}

func (m Model) reload() (tea.Model, tea.Cmd) {
	m.beginLoad()
	return m, m.fetch()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	return m, tea.Quit
}

func (m Model) switchTab(delta int) (tea.Model, tea.Cmd) {
	m.active = (m.active + delta + len(m.tabs)) % len(m.tabs)
	m.cursor = 0
	m.viewMode = ListViewMode
	return m.reload()
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		return m.applyLoad(msg), nil

	case tea.KeyMsg:
		switch m.viewMode {
		case ListViewMode:
			return m.updateListView(msg)
		case DetailViewMode:
			return m.updateDetailView(msg)
		}
	}

	return m, nil
}

// applyLoad stores a load result unless a newer load superseded it
func (m Model) applyLoad(msg loadedMsg) Model {
	if msg.seq != m.seq {
		return m
	}

	m.loading = false
	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return m
		}
		m.err = msg.err
		return m
	}

	switch msg.tab {
	case TabOverview:
		m.data = msg.data
	case TabProjects:
		m.projects = msg.projects
	case TabSites:
		m.sites = msg.sites
	}
	if m.cursor >= m.rows() {
		m.cursor = 0
	}
	return m
}

func (m Model) rows() int {
	switch m.ActiveTab() {
	case TabProjects:
		return len(m.projects)
	case TabSites:
		return len(m.sites)
	default:
		return 0
	}
}

// updateListView handles key presses in list view mode
func (m Model) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()

	case "tab", "right", "l":
		return m.switchTab(1)

	case "shift+tab", "left", "h":
		return m.switchTab(-1)

	case "r":
		return m.reload()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < m.rows()-1 {
			m.cursor++
		}

	case "enter":
		if m.ActiveTab() == TabProjects && m.cursor < len(m.projects) {
			m.viewMode = DetailViewMode
		}
	}

	return m, nil
}

// updateDetailView handles key presses in the project detail view
func (m Model) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()

	case "esc":
		m.viewMode = ListViewMode
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	if m.viewMode == DetailViewMode && m.cursor < len(m.projects) {
		p := m.projects[m.cursor]
		return FormatProjectDetail(&p) + "\n" + footerStyle.Render("esc: back to list • q: quit")
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render("SEO Dashboard"))
	b.WriteString("  ")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(footerStyle.Render(fmt.Sprintf("Loading %s…", strings.ToLower(m.ActiveTab().String()))))
	case m.err != nil:
		category := apperror.Classify(m.err)
		b.WriteString(errorStyle.Render(apperror.Title(category)))
		b.WriteString("\n")
		b.WriteString(wrapText(m.err.Error(), 70))
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("Press r to retry"))
	default:
		b.WriteString(m.renderBody())
	}

	b.WriteString("\n\n")
	footer := "tab/←/→: switch • ↑/↓ or j/k: navigate • r: refresh • q: quit"
	if m.ActiveTab() == TabProjects {
		footer = "tab/←/→: switch • ↑/↓ or j/k: navigate • enter: details • r: refresh • q: quit"
	}
	b.WriteString(footerStyle.Render(footer))

	return b.String()
}

func (m Model) renderTabs() string {
	rendered := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		if i == m.active {
			rendered = append(rendered, activeTab.Render(t.String()))
		} else {
			rendered = append(rendered, inactiveTab.Render(t.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderBody() string {
	switch m.ActiveTab() {
	case TabOverview:
		if m.data == nil {
			return ""
		}
		return FormatOverview(m.data)
	case TabProjects:
		return m.renderProjectList()
	case TabSites:
		if len(m.sites) == 0 {
			return "No sites yet."
		}
		return renderTable([]string{"Domain", "Projects", "Avg health", "Last scraped"}, siteRows(m.sites))
	}
	return ""
}

// renderProjectList renders the projects with the selected row highlighted
func (m Model) renderProjectList() string {
	if len(m.projects) == 0 {
		return "No projects yet. Run `seodash scrape <url>` to add one."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d projects\n\n", len(m.projects))

	visibleStart, visibleEnd := 0, len(m.projects)
	if m.height > 0 {
		maxVisible := m.height - 8 // header, tabs, footer and padding
		if maxVisible > 0 && maxVisible < len(m.projects) {
			visibleStart = max(m.cursor-maxVisible/2, 0)
			visibleEnd = visibleStart + maxVisible
			if visibleEnd > len(m.projects) {
				visibleEnd = len(m.projects)
				visibleStart = max(visibleEnd-maxVisible, 0)
			}
		}
	}

	for i := visibleStart; i < visibleEnd; i++ {
		p := m.projects[i]
		line := fmt.Sprintf("%-40s %5s  %s", truncate(orDash(p.Title), 40), formatScore(p.HealthScore), truncate(p.URL, 50))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("→ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// Run starts the Bubble Tea program
func Run(ctx context.Context, src Source, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, src, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
