package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/seodash/pkg/api"
	"github.com/lepinkainen/seodash/pkg/apperror"
)

type fakeSource struct {
	mu       sync.Mutex
	contexts []context.Context
	data     *api.DashboardData
	projects []api.Project
	sites    []api.SiteStats
	err      error
}

func (f *fakeSource) record(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts = append(f.contexts, ctx)
}

func (f *fakeSource) GetDashboardData(ctx context.Context) *api.DashboardData {
	f.record(ctx)
	return f.data
}

func (f *fakeSource) GetProjects(ctx context.Context) ([]api.Project, error) {
	f.record(ctx)
	return f.projects, f.err
}

func (f *fakeSource) GetSiteStats(ctx context.Context) ([]api.SiteStats, error) {
	f.record(ctx)
	return f.sites, f.err
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update() returned %T", next)
	}
	return model, cmd
}

func newSource() *fakeSource {
	return &fakeSource{
		data: &api.DashboardData{TotalProjects: 2, AverageHealthScore: 80},
		projects: []api.Project{
			{ID: "1", Title: "Example", URL: "https://example.com/", HealthScore: 90},
			{ID: "2", Title: "Other", URL: "https://other.org/", HealthScore: 70},
		},
		sites: []api.SiteStats{{Domain: "example.com", Projects: 1, AverageHealthScore: 90}},
	}
}

func TestModelInitialLoad(t *testing.T) {
	src := newSource()
	m := NewModel(context.Background(), src, Options{})

	if !m.Loading() {
		t.Error("new model should be loading")
	}
	if m.ActiveTab() != TabOverview {
		t.Errorf("ActiveTab() = %v, want Overview", m.ActiveTab())
	}
	if !strings.Contains(m.View(), "Loading overview") {
		t.Errorf("View() while loading = %q", m.View())
	}

	m, _ = update(t, m, m.Init()())

	if m.Loading() {
		t.Error("model still loading after result")
	}
	if !strings.Contains(m.View(), "Recent projects") {
		t.Errorf("View() did not render overview: %q", m.View())
	}
}

func TestModelTabSwitchCancelsAndDropsStaleResult(t *testing.T) {
	src := newSource()
	m := NewModel(context.Background(), src, Options{SiteStats: true})
	first := m.Init()()

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.ActiveTab() != TabProjects {
		t.Fatalf("ActiveTab() = %v, want Projects", m.ActiveTab())
	}
	if err := src.contexts[0].Err(); !errors.Is(err, context.Canceled) {
		t.Errorf("first load context err = %v, want canceled", err)
	}

	// The overview result arrives after the switch and must be ignored
	m, _ = update(t, m, first)
	if !m.Loading() {
		t.Error("stale result ended the current load")
	}
	if m.data != nil {
		t.Error("stale overview data was stored")
	}

	m, _ = update(t, m, cmd())
	if m.Loading() {
		t.Error("model still loading after projects result")
	}
	if len(m.projects) != 2 {
		t.Errorf("projects = %d, want 2", len(m.projects))
	}
}

func TestModelTabsWrap(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		key      tea.KeyMsg
		expected Tab
	}{
		{"back from overview wraps to projects", Options{}, tea.KeyMsg{Type: tea.KeyShiftTab}, TabProjects},
		{"back from overview wraps to sites", Options{SiteStats: true}, keyRunes("h"), TabSites},
		{"forward", Options{SiteStats: true}, keyRunes("l"), TabProjects},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(context.Background(), newSource(), tt.opts)
			m, _ = update(t, m, tt.key)
			if m.ActiveTab() != tt.expected {
				t.Errorf("ActiveTab() = %v, want %v", m.ActiveTab(), tt.expected)
			}
		})
	}
}

func TestModelRefreshStartsNewLoad(t *testing.T) {
	src := newSource()
	m := NewModel(context.Background(), src, Options{})
	m, _ = update(t, m, m.Init()())

	m, cmd := update(t, m, keyRunes("r"))
	if !m.Loading() || cmd == nil {
		t.Fatal("refresh did not start a load")
	}
	m, _ = update(t, m, cmd())
	if m.Loading() {
		t.Error("refresh result not applied")
	}
	if len(src.contexts) != 2 {
		t.Errorf("source called %d times, want 2", len(src.contexts))
	}
}

func TestModelLoadError(t *testing.T) {
	src := newSource()
	src.err = apperror.BackendUnavailable(503, "Service Unavailable", nil)
	m := NewModel(context.Background(), src, Options{})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, cmd())

	if m.Err() == nil {
		t.Fatal("Err() = nil, want load error")
	}
	view := m.View()
	if !strings.Contains(view, apperror.Title(apperror.CategoryServer)) {
		t.Errorf("View() missing error title: %q", view)
	}
	if !strings.Contains(view, "Press r to retry") {
		t.Errorf("View() missing retry hint: %q", view)
	}
}

func TestModelLoadErrorPurgesSessionOnlyForAuthFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantPurge bool
	}{
		{"auth", apperror.AuthRequired(401, "Token expired"), true},
		{"server", apperror.BackendUnavailable(503, "Service Unavailable", nil), false},
		{"network", apperror.BackendUnavailable(0, "network error", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource()
			src.err = tt.err
			purged := 0
			m := NewModel(context.Background(), src, Options{
				ClearSession: func(context.Context) error {
					purged++
					return nil
				},
			})

			m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
			m, _ = update(t, m, cmd())

			if m.Err() == nil {
				t.Fatal("Err() = nil, want load error")
			}
			if got := purged > 0; got != tt.wantPurge {
				t.Errorf("session purged = %v, want %v", got, tt.wantPurge)
			}
		})
	}
}

func TestModelCursorAndDetail(t *testing.T) {
	src := newSource()
	m := NewModel(context.Background(), src, Options{})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, cmd())

	m, _ = update(t, m, keyRunes("j"))
	m, _ = update(t, m, keyRunes("j"))
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	m, _ = update(t, m, keyRunes("k"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.viewMode != DetailViewMode {
		t.Fatal("enter did not open detail view")
	}
	if !strings.Contains(m.View(), "https://example.com/") {
		t.Errorf("detail view = %q", m.View())
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.viewMode != ListViewMode {
		t.Error("esc did not return to list")
	}
}

func TestModelQuitCancelsLoad(t *testing.T) {
	src := newSource()
	m := NewModel(context.Background(), src, Options{})
	m.Init()()

	_, cmd := update(t, m, keyRunes("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command did not return tea.QuitMsg")
	}
	if src.contexts[0].Err() == nil {
		t.Error("quit did not cancel the load in flight")
	}
}

func TestModelParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := newSource()
	src.err = context.Canceled
	m := NewModel(ctx, src, Options{})
	cancel()

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, cmd())

	if m.Err() != nil {
		t.Errorf("canceled load should not surface an error, got %v", m.Err())
	}
}
