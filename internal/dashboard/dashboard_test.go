package dashboard

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandlerServesRoot(t *testing.T) {
	w := get(t, Handler(""), "/")

	if w.Code != http.StatusOK {
		t.Errorf("GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET /: response doesn't contain HTML doctype")
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestHandlerServesAssets(t *testing.T) {
	h := Handler("")
	for _, asset := range []string{"/app.js", "/style.css"} {
		w := get(t, h, asset)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200", asset, w.Code)
		}
		if strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
			t.Errorf("GET %s: served index.html instead of the asset", asset)
		}
	}
}

func TestHandlerScriptSubscribesToChannels(t *testing.T) {
	w := get(t, Handler(""), "/app.js")
	if !strings.Contains(w.Body.String(), "channels=telemetry,events") {
		t.Error("app.js does not subscribe to the telemetry and events channels")
	}
}

func TestHandlerFallback(t *testing.T) {
	h := Handler("")
	for _, target := range []string{"/nonexistent", "/some/deep/route"} {
		w := get(t, h, target)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200", target, w.Code)
		}
		if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
			t.Errorf("GET %s: fallback didn't serve index.html", target)
		}
	}
}

func TestHandlerFilesystemMode(t *testing.T) {
	dir := t.TempDir()
	indexContent := `<!DOCTYPE html><html><body>filesystem dashboard</body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "test.js"), []byte("console.log('test')"), 0644); err != nil {
		t.Fatal(err)
	}

	h := Handler(dir)

	if w := get(t, h, "/"); !strings.Contains(w.Body.String(), "filesystem dashboard") {
		t.Errorf("filesystem GET /: got %q", w.Body.String())
	}
	if w := get(t, h, "/test.js"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "console.log") {
		t.Errorf("filesystem GET /test.js: %d %q", w.Code, w.Body.String())
	}
	if w := get(t, h, "/deep/route"); !strings.Contains(w.Body.String(), "filesystem dashboard") {
		t.Error("filesystem fallback didn't serve filesystem index.html")
	}
}

func TestHandlerInvalidDirFallsBackToEmbed(t *testing.T) {
	w := get(t, Handler("/nonexistent/dir/that/does/not/exist"), "/")

	if w.Code != http.StatusOK {
		t.Errorf("invalid dir GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("invalid dir: didn't fall back to embedded index.html")
	}
}
