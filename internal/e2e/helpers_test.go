package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scriptd/internal/engine/jsengine"
	"scriptd/internal/httpapi"
	"scriptd/internal/journal"
	"scriptd/internal/manager"
	"scriptd/internal/registry"
	"scriptd/pkg/types"
)

// createModulesDir writes the given files (relative path to source) into a
// temporary modules directory.
func createModulesDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, src := range files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", p, err)
		}
		if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
			t.Fatalf("write temp module %s: %v", p, err)
		}
	}
	return dir
}

type server struct {
	*httptest.Server
	sched   *manager.Scheduler
	svc     *manager.Service
	journal *journal.Journal
}

// newServer wires a JavaScript runtime, the HTTP API and a journal the way
// scriptd serve does, on an isolated scheduler.
func newServer(t *testing.T, dir string, cfg manager.Config) *server {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	cfg.Engine = jsengine.Factory(jsengine.Options{Dir: dir})
	cfg.Publisher = j
	sched := manager.New(cfg)
	list := func() ([]types.Module, error) { return registry.LoadDir(dir, "js") }
	svc, err := manager.NewService(context.Background(), sched, "js", list)
	if err != nil {
		t.Fatalf("start service: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(svc, j))
	s := &server{Server: srv, sched: sched, svc: svc, journal: j}
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Close()
		_ = j.Close()
	})
	return s
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func invoke(t *testing.T, s *server, req types.InvokeRequest) (int, types.InvokeResponse, types.ErrorResponse) {
	t.Helper()
	b, _ := json.Marshal(req)
	resp, body := httpPostJSON(t, s.URL+"/invoke", b)
	var ok types.InvokeResponse
	var bad types.ErrorResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(body, &ok); err != nil {
			t.Fatalf("decode invoke response %s: %v", body, err)
		}
	} else {
		_ = json.Unmarshal(body, &bad)
	}
	return resp.StatusCode, ok, bad
}

func status(t *testing.T, s *server) types.StatusResponse {
	t.Helper()
	resp, body := httpGet(t, s.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status: %d", resp.StatusCode)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return st
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
