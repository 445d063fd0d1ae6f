package wasmengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"scriptd/internal/engine"
	"scriptd/internal/manager"
)

// addWasm exports "add" and "invoke", both (i32, i32) -> i32 addition.
var addWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32, i32) -> i32
	0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	// function section
	0x03, 0x02, 0x01, 0x00,
	// export section: "add", "invoke" -> func 0
	0x07, 0x10, 0x02,
	0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x06, 'i', 'n', 'v', 'o', 'k', 'e', 0x00, 0x00,
	// code section: local.get 0, local.get 1, i32.add
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
}

func modulesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "math"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math", "add.wasm"), addWasm, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.wasm"), []byte("not wasm"), 0o644))
	return dir
}

func started(t *testing.T) *Engine {
	t.Helper()
	SetLogger(zaptest.NewLogger(t))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	e := New(Options{Dir: modulesDir(t), MemoryLimitPages: 16})
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func TestCallExportedFunction(t *testing.T) {
	e := started(t)
	mod, err := e.Import("math.add")
	require.NoError(t, err)
	fn, err := e.Resolve(mod, "add")
	require.NoError(t, err)

	v, err := e.Call(fn, 2, 3)
	require.NoError(t, err)
	var n int
	require.NoError(t, v.Decode(&n))
	assert.Equal(t, 5, n)
	v.Release()

	v, err = e.Call(fn, -7, 2.0)
	require.NoError(t, err)
	var i int32
	require.NoError(t, v.Decode(&i))
	assert.EqualValues(t, -5, i)
}

func TestCallArgumentErrors(t *testing.T) {
	e := started(t)
	mod, err := e.Import("math.add")
	require.NoError(t, err)
	fn, err := e.Resolve(mod, "add")
	require.NoError(t, err)

	_, err = e.Call(fn, 1)
	assert.ErrorContains(t, err, "expected 2 argument(s)")
	_, err = e.Call(fn, 1.5, 1)
	assert.Error(t, err)
	_, err = e.Call(fn, "1", 1)
	assert.Error(t, err)
	_, err = e.Call(fn, int64(1)<<32, 1)
	assert.ErrorContains(t, err, "argument 0")
	_, err = e.Call(fn, 1, -(int64(1)<<31)-1)
	assert.ErrorContains(t, err, "argument 1")
}

func TestNarrowResultDecodeFails(t *testing.T) {
	e := started(t)
	mod, err := e.Import("math.add")
	require.NoError(t, err)
	fn, err := e.Resolve(mod, "add")
	require.NoError(t, err)

	v, err := e.Call(fn, 100, 100)
	require.NoError(t, err)
	defer v.Release()
	var small int8
	assert.Error(t, v.Decode(&small))
	var n int16
	require.NoError(t, v.Decode(&n))
	assert.EqualValues(t, 200, n)
}

func TestResolutionFailures(t *testing.T) {
	e := started(t)
	_, err := e.Import("math.missing")
	assert.ErrorIs(t, err, engine.ErrModuleNotFound)

	_, err = e.Import("junk")
	require.Error(t, err)
	assert.NotErrorIs(t, err, engine.ErrModuleNotFound)

	mod, err := e.Import("math.add")
	require.NoError(t, err)
	_, err = e.Resolve(mod, "sub")
	assert.ErrorIs(t, err, engine.ErrEntryNotFound)
}

func TestThroughScheduler(t *testing.T) {
	dir := modulesDir(t)
	s := manager.New(manager.Config{Engine: Factory(Options{Dir: dir}), Workers: 2})
	m, err := s.Acquire(context.Background())
	require.NoError(t, err)

	h, err := m.GetModule("math.add", "")
	require.NoError(t, err)
	n, err := manager.Invoke[int](h, 19, 23)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	got, err := manager.QueueInvokeAs[int64](h, 1, 2).Get()
	require.NoError(t, err)
	assert.EqualValues(t, 3, got)

	_, err = m.GetModule("math.add", "sub")
	assert.True(t, manager.IsResolution(err))

	require.NoError(t, h.Close())
	require.NoError(t, m.Close())
}
