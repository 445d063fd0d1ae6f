package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"scriptd/internal/manager"
	"scriptd/pkg/types"
)

var modules = map[string]string{
	"math/ops.js": `
function invoke(a, b) { return a + b; }
function mul(a, b) { return a * b; }
function spin(ms) { var t = Date.now(); while (Date.now() - t < ms) {} return ms; }
function fail() { throw new Error("script failure"); }
`,
	"greet.js": `module.exports = function (name) { return { greeting: "hello " + name }; };`,
}

func TestE2E_ListModulesAndStatus(t *testing.T) {
	s := newServer(t, createModulesDir(t, modules), manager.Config{Workers: 4})

	resp, body := httpGet(t, s.URL+"/modules")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/modules: %d", resp.StatusCode)
	}
	var mods types.ModulesResponse
	if err := json.Unmarshal(body, &mods); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mods.Modules) != 2 || mods.Modules[0].ID != "greet" || mods.Modules[1].ID != "math.ops" {
		t.Fatalf("modules=%+v", mods.Modules)
	}

	st := status(t, s)
	if st.State != "running" || st.Engine != "js" || st.Workers != 4 || st.RefCount < 1 {
		t.Fatalf("status=%+v", st)
	}
	if resp, _ := httpGet(t, s.URL+"/readyz"); resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz: %d", resp.StatusCode)
	}
}

func TestE2E_SyncAndAsyncAgree(t *testing.T) {
	s := newServer(t, createModulesDir(t, modules), manager.Config{Workers: 4})

	code, sync, _ := invoke(t, s, types.InvokeRequest{Module: "math.ops", Entry: "mul", Args: []any{6, 7}})
	if code != http.StatusOK || sync.Mode != "sync" {
		t.Fatalf("sync: %d %+v", code, sync)
	}
	code, async, _ := invoke(t, s, types.InvokeRequest{Module: "math.ops", Entry: "mul", Args: []any{6, 7}, Async: true})
	if code != http.StatusOK || async.Mode != "async" {
		t.Fatalf("async: %d %+v", code, async)
	}
	if sync.Result != async.Result || sync.Result != float64(42) {
		t.Fatalf("results differ: %v vs %v", sync.Result, async.Result)
	}

	code, greet, _ := invoke(t, s, types.InvokeRequest{Module: "greet", Args: []any{"ada"}})
	if code != http.StatusOK {
		t.Fatalf("greet: %d", code)
	}
	if m, ok := greet.Result.(map[string]any); !ok || m["greeting"] != "hello ada" {
		t.Fatalf("greet result=%#v", greet.Result)
	}

	// Repeated lookups reuse one registry entry per (module, entry).
	st := status(t, s)
	if len(st.Callables) != 2 {
		t.Fatalf("callables=%+v", st.Callables)
	}
}

func TestE2E_ErrorMapping(t *testing.T) {
	s := newServer(t, createModulesDir(t, modules), manager.Config{Workers: 2})

	cases := []struct {
		name string
		req  types.InvokeRequest
		want int
	}{
		{"missing module", types.InvokeRequest{Module: "nope"}, http.StatusNotFound},
		{"missing entry", types.InvokeRequest{Module: "math.ops", Entry: "div"}, http.StatusNotFound},
		{"script throws", types.InvokeRequest{Module: "math.ops", Entry: "fail"}, http.StatusInternalServerError},
		{"script throws async", types.InvokeRequest{Module: "math.ops", Entry: "fail", Async: true}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, _, e := invoke(t, s, tc.req)
		if code != tc.want || e.Code != tc.want || e.Error == "" {
			t.Fatalf("%s: status=%d body=%+v", tc.name, code, e)
		}
	}
}

// TestE2E_Backpressure429 fills a one-slot queue behind a busy single worker
// and expects the next async request to be rejected.
func TestE2E_Backpressure429(t *testing.T) {
	s := newServer(t, createModulesDir(t, modules), manager.Config{Workers: 1, QueueDepth: 1})

	var wg sync.WaitGroup
	codes := make(chan int, 2)
	spin := func() {
		defer wg.Done()
		code, _, _ := invoke(t, s, types.InvokeRequest{Module: "math.ops", Entry: "spin", Args: []any{400}, Async: true})
		codes <- code
	}

	wg.Add(1)
	go spin()
	waitFor(t, "worker busy", func() bool { return status(t, s).ExecLockHeld })
	wg.Add(1)
	go spin()
	waitFor(t, "queued task", func() bool { return status(t, s).QueueLen == 1 })

	code, _, e := invoke(t, s, types.InvokeRequest{Module: "math.ops", Entry: "spin", Args: []any{1}, Async: true})
	if code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d (%+v)", code, e)
	}
	wg.Wait()
	close(codes)
	for c := range codes {
		if c != http.StatusOK {
			t.Fatalf("accepted request finished with %d", c)
		}
	}
	if st := status(t, s); st.TasksRejected < 1 {
		t.Fatalf("rejections not counted: %+v", st)
	}
}

func TestE2E_Journal(t *testing.T) {
	s := newServer(t, createModulesDir(t, modules), manager.Config{Workers: 2})
	invoke(t, s, types.InvokeRequest{Module: "math.ops", Args: []any{1, 2}})
	invoke(t, s, types.InvokeRequest{Module: "math.ops", Entry: "fail", Async: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	resp, body := httpGet(t, s.URL+"/invocations?module=math.ops")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/invocations: %d", resp.StatusCode)
	}
	var out types.InvocationsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	outcomes := map[string]string{}
	for _, r := range out.Records {
		if r.Event == manager.EventTaskDone {
			outcomes[r.Mode] = r.Outcome
		}
	}
	if outcomes["sync"] != "ok" || outcomes["async"] != "error" {
		t.Fatalf("records=%+v", out.Records)
	}
}

func TestE2E_ShutdownDrainsAndRefusesRestart(t *testing.T) {
	s := newServer(t, createModulesDir(t, modules), manager.Config{Workers: 2})
	lease, err := s.sched.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	h, err := lease.GetModule("math.ops", "spin")
	if err != nil {
		t.Fatalf("get module: %v", err)
	}
	pending := make([]*manager.Pending[int], 0, 4)
	for i := 0; i < 4; i++ {
		pending = append(pending, manager.QueueInvokeAs[int](h, 20))
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close handle: %v", err)
	}
	if err := lease.Close(); err != nil {
		t.Fatalf("close lease: %v", err)
	}
	if err := s.svc.Close(); err != nil {
		t.Fatalf("close service: %v", err)
	}
	for i, p := range pending {
		if n, err := p.Get(); err != nil || n != 20 {
			t.Fatalf("task %d: %d, %v", i, n, err)
		}
	}
	if st := s.sched.State(); st != manager.StateStopped {
		t.Fatalf("state=%s", st)
	}
	if _, err := s.sched.Acquire(context.Background()); !manager.IsReinitialization(err) {
		t.Fatalf("expected reinitialization error, got %v", err)
	}
	code, _, _ := invoke(t, s, types.InvokeRequest{Module: "math.ops", Args: []any{1, 2}})
	if code != http.StatusServiceUnavailable {
		t.Fatalf("invoke after shutdown: %d", code)
	}
}
