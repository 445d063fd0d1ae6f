package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"scriptd/internal/manager"
)

const (
	greetSrc = "function invoke(name) { return \"hello \" + name; }\n"
	mathSrc  = "function invoke(a, b) { return a + b; }\nfunction twice(x) { return { value: x * 2 }; }\n"
)

// modulesDir lays out a small modules tree shared by the command tests.
func modulesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"greet.js":    greetSrc,
		"math/add.js": mathSrc,
		"notes.txt":   "ignored",
		"bin/x.wasm":  "\x00asm",
	}
	for rel, src := range files {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	}
	return dir
}

// execute runs the CLI with an isolated scheduler per invocation.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(&rootOptions{scheduler: manager.New})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
