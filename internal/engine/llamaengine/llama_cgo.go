//go:build llama

package llamaengine

// cgo link directives for the in-process llama runtime.
//   - An rpath of $ORIGIN lets the loader find libllama.so next to the binary.
//   - -L${SRCDIR}/../../../bin finds libllama.so at link time.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../../bin -lllama
*/
import "C"
