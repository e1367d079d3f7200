package dashboard

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/seodash/pkg/apperror"
	"github.com/lepinkainen/seodash/pkg/navigate"
)

var surfaceStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("9")).
	Padding(0, 1)

// RenderErrorSurface renders the error surface for a classified failure:
// a title, the message and the fixed suggestions of the category.
func RenderErrorSurface(category apperror.Category, message string) string {
	var b strings.Builder

	b.WriteString(errorStyle.Render(apperror.Title(category)))
	b.WriteString("\n")
	if message != "" {
		b.WriteString("\n")
		b.WriteString(wrapText(message, 70))
		b.WriteString("\n")
	}
	b.WriteString("\nTry the following:\n")
	for _, s := range apperror.Suggestions(category) {
		fmt.Fprintf(&b, "  • %s\n", s)
	}

	return surfaceStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// TerminalNavigator shows routes as terminal output. Error routes render the
// error surface, the login and dashboard routes print a hint.
// While held, routes are queued instead of written.
type TerminalNavigator struct {
	mu        sync.Mutex
	out       io.Writer
	errorSeen bool
	held      bool
	pending   []string
}

// NewTerminalNavigator creates a navigator writing to out
func NewTerminalNavigator(out io.Writer) *TerminalNavigator {
	return &TerminalNavigator{out: out}
}

// Navigate implements navigate.Navigator
func (n *TerminalNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.held {
		n.pending = append(n.pending, route)
		return
	}
	n.show(route)
}

// show writes one route. Caller holds n.mu.
func (n *TerminalNavigator) show(route string) {
	if category, message, ok := navigate.ParseErrorRoute(route); ok {
		n.errorSeen = true
		fmt.Fprintln(n.out, RenderErrorSurface(category, message))
		return
	}

	switch route {
	case navigate.LoginPath:
		fmt.Fprintln(n.out, footerStyle.Render("Signed out. Run `seodash login` to sign in."))
	case navigate.DashboardPath:
		fmt.Fprintln(n.out, footerStyle.Render("Signed in. Run `seodash dashboard` to open the dashboard."))
	}
}

// Hold queues routes until Release; used while the interactive dashboard owns the terminal
func (n *TerminalNavigator) Hold() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.held = true
}

// Release writes the queued routes and resumes direct output
func (n *TerminalNavigator) Release() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.held = false
	pending := n.pending
	n.pending = nil

	// repeated loads can hit the same failure; show each route once
	seen := make(map[string]bool, len(pending))
	for _, route := range pending {
		if seen[route] {
			continue
		}
		seen[route] = true
		n.show(route)
	}
}

// ErrorShown reports whether an error surface has been rendered
func (n *TerminalNavigator) ErrorShown() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.errorSeen
}
