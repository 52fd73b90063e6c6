// Package prewarm is the default implementation of the child.Prewarmer
// collaborator: it tracks workloads handed to an already-running warm worker
// and exposes the coordination socket path. The actual hand-off is delegated
// to an AttachFunc supplied by the embedding controller, since the wire
// protocol to the worker is outside this package's concern.
package prewarm

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/loykin/ptysup/internal/child"
	"github.com/loykin/ptysup/internal/environ"
)

// ErrNoAttach is returned when a prewarm attach is requested but no attach
// primitive was configured.
var ErrNoAttach = errors.New("prewarm: no attach primitive configured")

// AttachFunc performs the actual hand-off to the warm worker and returns the
// pid that now owns the terminal.
type AttachFunc func(slave *os.File, argv []string, cwd string, env environ.Var, stdin []byte) (int, error)

// Handle is one attached workload.
type Handle struct {
	ID    string
	Pid   int
	Ready bool
}

// Registry implements child.Prewarmer.
type Registry struct {
	socketPath string
	workerPid  int
	attach     AttachFunc
	logger     *slog.Logger

	mu       sync.Mutex
	children map[string]*Handle
}

func NewRegistry(socketPath string, workerPid int, attach AttachFunc, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		socketPath: socketPath,
		workerPid:  workerPid,
		attach:     attach,
		logger:     logger,
		children:   make(map[string]*Handle),
	}
}

// Attach hands the workload to the warm worker and records a Handle for it.
func (r *Registry) Attach(slave *os.File, argv []string, cwd string, env environ.Var, stdin []byte) (child.AttachResult, error) {
	if r.attach == nil {
		return child.AttachResult{}, ErrNoAttach
	}
	pid, err := r.attach(slave, argv, cwd, env, stdin)
	if err != nil {
		return child.AttachResult{}, fmt.Errorf("prewarm attach: %w", err)
	}
	h := &Handle{ID: uuid.NewString(), Pid: pid}
	r.mu.Lock()
	r.children[h.ID] = h
	r.mu.Unlock()
	r.logger.Debug("prewarm child attached", "id", h.ID, "pid", pid)
	return child.AttachResult{ChildID: h.ID, Pid: pid}, nil
}

// SocketEnvVar is the coordination socket path exported to children not
// using the fast path.
func (r *Registry) SocketEnvVar() string { return r.socketPath }

// MarkReady records that the terminal side for childID is fully set up.
func (r *Registry) MarkReady(childID string) {
	r.mu.Lock()
	h, ok := r.children[childID]
	if ok {
		h.Ready = true
	}
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("mark ready for unknown prewarm child", "id", childID)
	}
}

// WorkerPid is the pid of the warm worker process.
func (r *Registry) WorkerPid() int { return r.workerPid }

// Child looks up a recorded handle.
func (r *Registry) Child(id string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.children[id]
	if !ok {
		return Handle{}, false
	}
	return *h, true
}

// Forget drops the handle for id, typically after the child exits.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	delete(r.children, id)
	r.mu.Unlock()
}
