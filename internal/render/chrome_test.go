package render

import "testing"

func TestResolveExecutableOverrideWins(t *testing.T) {
	got := resolveExecutable("/opt/chrome/chrome",
		func(string) string { return "/env/chrome" },
		func(string) bool { return true })
	if got != "/opt/chrome/chrome" {
		t.Fatalf("expected override, got %q", got)
	}
}

func TestResolveExecutableEnvFallback(t *testing.T) {
	got := resolveExecutable("",
		func(key string) string {
			if key == "CHROME_BIN" {
				return "/env/chrome"
			}
			return ""
		},
		func(string) bool { return true })
	if got != "/env/chrome" {
		t.Fatalf("expected env path, got %q", got)
	}
}

func TestResolveExecutableWellKnownPath(t *testing.T) {
	got := resolveExecutable("",
		func(string) string { return "" },
		func(path string) bool { return path == "/usr/bin/chromium" })
	if got != "/usr/bin/chromium" {
		t.Fatalf("expected the existing well-known path, got %q", got)
	}
}

func TestResolveExecutableHardcodedDefault(t *testing.T) {
	got := resolveExecutable("",
		func(string) string { return "" },
		func(string) bool { return false })
	if got != defaultChromePath {
		t.Fatalf("expected hardcoded default, got %q", got)
	}
}
