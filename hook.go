// hook.go: process-wide registration of source preprocessors.
//
// Interactive shells that want to accept ddmm syntax register the transform
// as a preprocessing step. Instead of module-level installed flags, each
// registration is an explicit Hook handle with Install/Uninstall, so tests
// and embedders can hold several independent hooks safely.
package ddmm

import (
	"sync"

	"github.com/tevino/abool/v2"
)

// Preprocessor rewrites interactive input before it reaches the host
// compiler. Transform satisfies this signature.
type Preprocessor func(src string) string

var (
	hookMu sync.Mutex
	hooks  []*Hook
)

// Hook is an installable preprocessing step. Create with NewHook; the zero
// value is not usable.
type Hook struct {
	name      string
	fn        Preprocessor
	installed *abool.AtomicBool
}

// NewHook returns an uninstalled hook. name is only used for identification
// by embedders; it carries no registry semantics.
func NewHook(name string, fn Preprocessor) *Hook {
	return &Hook{name: name, fn: fn, installed: abool.New()}
}

// Name returns the identifier the hook was created with.
func (h *Hook) Name() string { return h.name }

// Installed reports whether the hook is currently registered.
func (h *Hook) Installed() bool { return h.installed.IsSet() }

// Install registers the hook. It reports whether the state changed: false
// means the hook was already installed.
func (h *Hook) Install() bool {
	if !h.installed.SetToIf(false, true) {
		return false
	}
	hookMu.Lock()
	hooks = append(hooks, h)
	hookMu.Unlock()
	return true
}

// Uninstall removes the hook. It reports whether the state changed: false
// means the hook was not installed.
func (h *Hook) Uninstall() bool {
	if !h.installed.SetToIf(true, false) {
		return false
	}
	hookMu.Lock()
	for i, other := range hooks {
		if other == h {
			hooks = append(hooks[:i], hooks[i+1:]...)
			break
		}
	}
	hookMu.Unlock()
	return true
}

// Preprocess applies every installed hook to src in installation order and
// returns the result. With no hooks installed it returns src unchanged.
func Preprocess(src string) string {
	hookMu.Lock()
	fns := make([]Preprocessor, 0, len(hooks))
	for _, h := range hooks {
		fns = append(fns, h.fn)
	}
	hookMu.Unlock()

	for _, fn := range fns {
		src = fn(src)
	}
	return src
}
