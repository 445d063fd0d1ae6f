package manager

import (
	"testing"

	"scriptd/pkg/types"
)

func TestServiceInvoke(t *testing.T) {
	f := newFakeEngine()
	s, _ := newTestScheduler(t, f, nil)
	mods := []types.Module{{ID: "math", Kind: "fake"}}
	svc, err := NewService(testCtx(t), s, "fake", func() ([]types.Module, error) { return mods, nil })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	resp, err := svc.Invoke(testCtx(t), types.InvokeRequest{Module: "math", Entry: "add", Args: []any{1.0, 2.0}})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.Result != int64(3) || resp.Mode != "sync" {
		t.Fatalf("unexpected response %+v", resp)
	}
	resp, err = svc.Invoke(testCtx(t), types.InvokeRequest{Module: "math", Args: nil, Async: true})
	if err != nil {
		t.Fatalf("async Invoke: %v", err)
	}
	if resp.Result != "ok" || resp.Entry != DefaultEntryPoint || resp.Mode != "async" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, err := svc.Invoke(testCtx(t), types.InvokeRequest{Module: "nope"}); !IsResolution(err) {
		t.Fatalf("expected resolution error, got %v", err)
	}

	st := svc.Status()
	if st.Engine != "fake" || len(st.Callables) != 2 || !svc.Ready() {
		t.Fatalf("unexpected status %+v", st)
	}
	// Handles are cached per (module, entry).
	if st.RefCount != 3 {
		t.Fatalf("expected 3 leases, got %d", st.RefCount)
	}
	got, err := svc.ListModules()
	if err != nil || len(got) != 1 {
		t.Fatalf("ListModules = %v, %v", got, err)
	}

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", s.State())
	}
	if _, err := svc.Invoke(testCtx(t), types.InvokeRequest{Module: "math"}); !IsUnavailable(err) {
		t.Fatalf("expected unavailable after close, got %v", err)
	}
}
