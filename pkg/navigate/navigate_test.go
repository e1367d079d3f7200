package navigate

import (
	"strings"
	"testing"

	"github.com/lepinkainen/seodash/pkg/apperror"
)

func TestErrorRouteRoundTrip(t *testing.T) {
	route := ErrorRoute(apperror.CategoryAuth, "Session expired & please sign in")

	if !strings.HasPrefix(route, ErrorPath+"?") {
		t.Fatalf("ErrorRoute() = %q, want prefix %q", route, ErrorPath+"?")
	}
	if !strings.Contains(route, "type=auth") {
		t.Errorf("ErrorRoute() = %q, missing type=auth", route)
	}

	category, message, ok := ParseErrorRoute(route)
	if !ok {
		t.Fatal("ParseErrorRoute() ok = false")
	}
	if category != apperror.CategoryAuth {
		t.Errorf("category = %q, want auth", category)
	}
	if message != "Session expired & please sign in" {
		t.Errorf("message = %q", message)
	}
}

func TestParseErrorRouteRejectsOtherPaths(t *testing.T) {
	if _, _, ok := ParseErrorRoute(DashboardPath); ok {
		t.Error("ParseErrorRoute(/dashboard) ok = true")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	if r.Last() != "" {
		t.Errorf("Last() on empty recorder = %q", r.Last())
	}

	var nav Navigator = &r
	nav.Navigate(LoginPath)
	nav.Navigate(DashboardPath)

	if got := r.Last(); got != DashboardPath {
		t.Errorf("Last() = %q, want %q", got, DashboardPath)
	}
	if got := len(r.Routes()); got != 2 {
		t.Errorf("len(Routes()) = %d, want 2", got)
	}
}
