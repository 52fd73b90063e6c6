package environ

import (
	"bytes"
	"os"
	"sort"
	"strings"
	"sync"
)

// Var is a simple K->V environment mapping.
type Var map[string]string

// DeleteVar is a sentinel value. Any key whose value equals DeleteVar is
// removed by Filter instead of being exported to the child. Mutators (shell
// integration) use it to unset inherited variables.
const DeleteVar = "\x00ptysup:delete-env-var\x00"

// PrewarmSocketVar is the coordination socket variable set for children that
// are not launched through the prewarm fast path. It is stripped from the
// captured process environment so it never leaks from one child to the next.
const PrewarmSocketVar = "PTYSUP_PREWARM_SOCKET"

// ParseBlock parses a raw C environ block (consecutive KEY=VALUE\x00 records,
// as read from a process) into a Var. The block is usually raw data from the
// target process: it may contain trailing garbage and records that do not
// look like assignments. Malformed records are skipped, never an error.
func ParseBlock(data []byte) Var {
	ret := make(Var)
	pos := 0
	for pos < len(data) {
		i := bytes.IndexByte(data[pos:], 0)
		// NUL at the current position or no NUL at all means finish
		if i <= 0 {
			break
		}
		rec := data[pos : pos+i]
		if eq := bytes.IndexByte(rec, '='); eq > 0 {
			ret[string(rec[:eq])] = string(rec[eq+1:])
		}
		pos += i + 1
	}
	return ret
}

// Clone returns a shallow copy of v.
func (v Var) Clone() Var {
	out := make(Var, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Update applies all entries of o on top of v.
func (v Var) Update(o Var) {
	for k, val := range o {
		v[k] = val
	}
}

// Filter returns v without keys whose value is the DeleteVar sentinel.
func (v Var) Filter() Var {
	out := make(Var, len(v))
	for k, val := range v {
		if val == DeleteVar {
			continue
		}
		out[k] = val
	}
	return out
}

// Serialize renders v as a sorted KEY=VALUE slice suitable for the spawn
// primitive. Sorting keeps the output stable for logging and tests.
func (v Var) Serialize() []string {
	out := make([]string, 0, len(v))
	for k, val := range v {
		if k == "" {
			continue
		}
		out = append(out, k+"="+val)
	}
	sort.Strings(out)
	return out
}

// ProcessEnv captures the ambient environment of this process, minus the
// prewarm socket variable.
func ProcessEnv() Var {
	ans := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			ans[kv[:i]] = kv[i+1:]
		}
	}
	delete(ans, PrewarmSocketVar)
	return ans
}

// lcCtypeAtStartup records whether LC_CTYPE was already present in the
// ambient environment before this runtime started. The darwin correction in
// the environment builder only strips the platform default, never a value
// that was there first.
var lcCtypeAtStartup = func() bool {
	_, ok := os.LookupEnv("LC_CTYPE")
	return ok
}()

// LCCtypeAtStartup reports whether LC_CTYPE predates this process's runtime.
func LCCtypeAtStartup() bool { return lcCtypeAtStartup }

// Process-wide default environment. Captured lazily from the ambient
// environment and optionally replaced wholesale by privileged configuration
// code before any child launches.
var defaults struct {
	mu              sync.Mutex
	env             Var
	lcCtypeSetByVal bool
}

// SetDefault replaces the default environment with the ambient environment
// updated by val. It records whether val itself defined LC_CTYPE so the
// platform correction in the environment builder never removes a variable
// the user asked for.
func SetDefault(val Var) {
	env := ProcessEnv()
	has := false
	if val != nil {
		_, has = val["LC_CTYPE"]
		env.Update(val)
	}
	defaults.mu.Lock()
	defaults.env = env
	defaults.lcCtypeSetByVal = has
	defaults.mu.Unlock()
}

// Default returns a copy of the default environment, falling back to the
// ambient environment when SetDefault has not been called.
func Default() Var {
	defaults.mu.Lock()
	env := defaults.env
	defaults.mu.Unlock()
	if env == nil {
		return ProcessEnv()
	}
	return env.Clone()
}

// LCCtypeSetByUser reports whether the last SetDefault call explicitly
// defined LC_CTYPE.
func LCCtypeSetByUser() bool {
	defaults.mu.Lock()
	defer defaults.mu.Unlock()
	return defaults.lcCtypeSetByVal
}

// ResetDefault clears the stored default environment. Test helper.
func ResetDefault() {
	defaults.mu.Lock()
	defaults.env = nil
	defaults.lcCtypeSetByVal = false
	defaults.mu.Unlock()
}
