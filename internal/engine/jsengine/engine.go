// Package jsengine runs JavaScript modules on an embedded QuickJS VM.
//
// A module id maps to <dir>/<a/b>.js. The file is evaluated once in its own
// function scope with CommonJS-style module and exports bindings; an entry
// point is either a function on module.exports or a top-level function
// declared in the file. Values cross the boundary as JSON.
package jsengine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"modernc.org/quickjs"

	"scriptd/internal/common/fsutil"
	"scriptd/internal/convert"
	"scriptd/internal/engine"
)

// Options configure an Engine.
type Options struct {
	// Dir is the modules directory.
	Dir string
	// Logger receives console output from scripts. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Engine is an engine.Engine backed by a single QuickJS VM.
type Engine struct {
	dir string
	log zerolog.Logger
	vm  *quickjs.VM
}

// New returns an engine for modules under opts.Dir. The VM is created by Start.
func New(opts Options) *Engine {
	e := &Engine{dir: opts.Dir, log: zerolog.Nop()}
	if opts.Logger != nil {
		e.log = opts.Logger.With().Str("engine", "js").Logger()
	}
	return e
}

// Factory adapts New to engine.Factory.
func Factory(opts Options) engine.Factory {
	return func() (engine.Engine, error) { return New(opts), nil }
}

const prelude = `globalThis.__scriptd = {
	mods: Object.create(null),
	fns: [],
	slots: Object.create(null),
	next: 0,
	logs: [],
	out: function (v) { var s = JSON.stringify(v); return s === undefined ? "null" : s; }
};
(function () {
	var push = function (level) {
		return function () {
			var parts = [];
			for (var i = 0; i < arguments.length; i++) {
				var a = arguments[i];
				parts.push(typeof a === "string" ? a : JSON.stringify(a));
			}
			__scriptd.logs.push([level, parts.join(" ")]);
		};
	};
	globalThis.console = { log: push("info"), info: push("info"), warn: push("warn"), error: push("error"), debug: push("debug") };
})();
"ok"`

// Start creates the VM.
func (e *Engine) Start(ctx context.Context) error {
	vm, err := quickjs.NewVM()
	if err != nil {
		return fmt.Errorf("create quickjs vm: %w", err)
	}
	if _, err := vm.Eval(prelude, quickjs.EvalGlobal); err != nil {
		vm.Close()
		return fmt.Errorf("install prelude: %w", err)
	}
	e.vm = vm
	e.log.Debug().Str("dir", e.dir).Msg("quickjs vm created")
	return nil
}

// Close destroys the VM.
func (e *Engine) Close(ctx context.Context) error {
	if e.vm == nil {
		return nil
	}
	err := e.vm.Close()
	e.vm = nil
	e.log.Debug().Msg("quickjs vm closed")
	return err
}

// module is the handle returned by Import: the key under which the module's
// resolver function is stored in the VM.
type module struct {
	id  string
	key string
}

// callable is an index into the VM-side function table.
type callable struct {
	module string
	entry  string
	index  int
}

// Import evaluates the module file once and stores its resolver.
func (e *Engine) Import(moduleID string) (engine.Module, error) {
	if e.vm == nil {
		return nil, engine.ErrNotStarted
	}
	path, err := fsutil.ModuleFile(e.dir, moduleID, ".js")
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, engine.ErrModuleNotFound)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, engine.ErrModuleNotFound)
		}
		return nil, fmt.Errorf("read module: %w", err)
	}
	key := strconv.Quote(moduleID)
	script := "__scriptd.mods[" + key + "] = " + wrapModule(string(src)) + `; "ok"`
	if _, err := e.eval(script); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", path, err)
	}
	e.log.Debug().Str("module", moduleID).Str("path", path).Msg("module loaded")
	return &module{id: moduleID, key: key}, nil
}

// wrapModule returns an expression evaluating the module source in its own
// scope and yielding a resolver from entry name to function. The resolver uses
// a direct eval so that top-level function declarations are visible to it;
// names that resolve to globals are refused.
func wrapModule(src string) string {
	return `(function () {
var module = { exports: {} };
var exports = module.exports;
` + src + `
;
return function (__name) {
	var x = module.exports;
	if (x && Object.prototype.hasOwnProperty.call(x, __name) && typeof x[__name] === "function") { return x[__name]; }
	if (typeof x === "function" && __name === "invoke") { return x; }
	if (__name in globalThis) { return undefined; }
	try {
		var f = eval(__name);
		if (typeof f === "function") { return f; }
	} catch (e) {}
	return undefined;
};
})()`
}

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Resolve looks the entry up and appends it to the VM-side function table.
func (e *Engine) Resolve(mod engine.Module, name string) (engine.Callable, error) {
	if e.vm == nil {
		return nil, engine.ErrNotStarted
	}
	m, ok := mod.(*module)
	if !ok {
		return nil, fmt.Errorf("jsengine: foreign module handle %T", mod)
	}
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("%q is not an identifier: %w", name, engine.ErrEntryNotFound)
	}
	out, err := e.evalString(`(function () {
	var f = __scriptd.mods[` + m.key + `](` + strconv.Quote(name) + `);
	if (typeof f !== "function") { return "-1"; }
	__scriptd.fns.push(f);
	return String(__scriptd.fns.length - 1);
})()`)
	if err != nil {
		return nil, fmt.Errorf("resolve %s.%s: %w", m.id, name, err)
	}
	idx, err := strconv.Atoi(out)
	if err != nil {
		return nil, fmt.Errorf("resolve %s.%s: bad index %q", m.id, name, out)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s.%s: %w", m.id, name, engine.ErrEntryNotFound)
	}
	return &callable{module: m.id, entry: name, index: idx}, nil
}

// Call invokes the function and parks the result in a VM-side slot.
func (e *Engine) Call(fn engine.Callable, args ...any) (engine.Value, error) {
	if e.vm == nil {
		return nil, engine.ErrNotStarted
	}
	c, ok := fn.(*callable)
	if !ok {
		return nil, fmt.Errorf("jsengine: foreign callable %T", fn)
	}
	argv := make([]string, 0, len(args))
	for i, a := range args {
		lit, err := e.argument(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		argv = append(argv, lit)
	}
	out, err := e.evalString(`(function () {
	var r = __scriptd.fns[` + strconv.Itoa(c.index) + `](` + strings.Join(argv, ", ") + `);
	var n = __scriptd.next++;
	__scriptd.slots[n] = r;
	return String(n);
})()`)
	e.flushConsole(c)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.module, c.entry, err)
	}
	slot, err := strconv.Atoi(out)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: bad slot %q", c.module, c.entry, out)
	}
	return &value{e: e, slot: slot}, nil
}

// argument renders a Go argument as a JavaScript expression.
func (e *Engine) argument(a any) (string, error) {
	if v, ok := a.(*value); ok {
		if v.e != e || v.released {
			return "", fmt.Errorf("value is not live in this engine")
		}
		return "__scriptd.slots[" + strconv.Itoa(v.slot) + "]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// flushConsole forwards console output captured during a call to the logger.
func (e *Engine) flushConsole(c *callable) {
	out, err := e.evalString(`JSON.stringify(__scriptd.logs.splice(0))`)
	if err != nil || out == "[]" {
		return
	}
	var lines [][2]string
	if json.Unmarshal([]byte(out), &lines) != nil {
		return
	}
	for _, l := range lines {
		lvl, err := zerolog.ParseLevel(l[0])
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		e.log.WithLevel(lvl).Str("module", c.module).Str("entry", c.entry).Msg(l[1])
	}
}

func (e *Engine) eval(script string) (any, error) {
	return e.vm.Eval(script, quickjs.EvalGlobal)
}

func (e *Engine) evalString(script string) (string, error) {
	r, err := e.eval(script)
	if err != nil {
		return "", err
	}
	s, ok := r.(string)
	if !ok {
		return "", fmt.Errorf("expected string from vm, got %T", r)
	}
	return s, nil
}

// value is a call result held in the VM until Release.
type value struct {
	e        *Engine
	slot     int
	released bool
}

// Decode serializes the value to JSON inside the VM and assigns it to dst.
// Functions, symbols and undefined decode as null.
func (v *value) Decode(dst any) error {
	if v.released {
		return fmt.Errorf("jsengine: value already released")
	}
	if v.e.vm == nil {
		return engine.ErrNotStarted
	}
	out, err := v.e.evalString(`__scriptd.out(__scriptd.slots[` + strconv.Itoa(v.slot) + `])`)
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}
	return convert.FromJSON(dst, []byte(out))
}

// Release drops the slot so the VM can collect the value.
func (v *value) Release() {
	if v.released {
		return
	}
	v.released = true
	if v.e.vm != nil {
		_, _ = v.e.eval(`delete __scriptd.slots[` + strconv.Itoa(v.slot) + `]; "ok"`)
	}
}
