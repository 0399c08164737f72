package logging

import "testing"

func TestRenderTemplateSubstitutesTokens(t *testing.T) {
	got := renderTemplate("logs/{name}-{index}-{time}.log", "web", 2, "1700000000")
	want := "logs/web-2-1700000000.log"
	if got != want {
		t.Errorf("renderTemplate() = %q, want %q", got, want)
	}
}

func TestFileSinksEmptyTemplateYieldsNoSinks(t *testing.T) {
	sinks := FileSinks([]string{"web", "api"}, "")
	if len(sinks) != 0 {
		t.Errorf("expected no sinks for empty template, got %d", len(sinks))
	}
}

func TestFileSinksCreatesOnePerProcess(t *testing.T) {
	dir := t.TempDir()
	sinks := FileSinks([]string{"web", "api"}, dir+"/{name}.log")
	if len(sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(sinks))
	}
	if _, ok := sinks["web"]; !ok {
		t.Errorf("missing sink for web")
	}
	if _, ok := sinks["api"]; !ok {
		t.Errorf("missing sink for api")
	}
}
