package volknob

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ControlMode selects which audio target a knob controls
type ControlMode string

const (
	ControlModeSystem      ControlMode = "system"
	ControlModeApplication ControlMode = "application"
)

// Resolver turns a control mode and an optional application name into a
// SinkHandle. It owns the name-to-pid resolution cache: entries are written
// on every successful match and evicted the moment validation fails, and
// every resolution (cached or not) is re-confirmed against a live wpctl
// status report, since pids get reused and audio clients only exist while
// audio is flowing.
type Resolver struct {
	logger *zap.SugaredLogger
	tool   runner
	procs  processLister

	// two knobs resolving the same name concurrently must not race on the
	// overwrite-or-evict decision
	cache map[string]int
	lock  sync.Mutex
}

// NewResolver creates a Resolver on top of the given wpctl runner and
// process lister.
func NewResolver(logger *zap.SugaredLogger, tool runner, procs processLister) *Resolver {
	logger = logger.Named("resolver")

	r := &Resolver{
		logger: logger,
		tool:   tool,
		procs:  procs,
		cache:  make(map[string]int),
	}

	logger.Debug("Created resolver instance")

	return r
}

// Resolve maps the requested target to a sink handle.
//
// System mode needs no lookup at all: wpctl accepts a symbolic alias for the
// default output. Application mode revalidates any cached pid against the
// status report first, and only falls back to a full process enumeration and
// match cycle when the cache misses or the cached pid went stale.
func (r *Resolver) Resolve(ctx context.Context, mode ControlMode, appName string) (SinkHandle, error) {
	switch mode {
	case ControlModeSystem:
		return DefaultSink(), nil

	case ControlModeApplication:
		if appName == "" {
			return SinkHandle{}, ErrMissingAppName
		}

	default:
		return SinkHandle{}, fmt.Errorf("unknown control mode %q: %w", mode, ErrMissingAppName)
	}

	report, err := r.tool.Run(ctx, "status")
	if err != nil {
		return SinkHandle{}, fmt.Errorf("get status report: %w", err)
	}

	if pid, ok := r.cachedPID(appName); ok {
		if reportListsPID(report, pid) {
			r.logger.Debugw("Cached pid still valid", "app", appName, "pid", pid)
			return ProcessSink(pid), nil
		}

		r.logger.Debugw("Evicting stale cache entry", "app", appName, "pid", pid)
		r.evict(appName)
	}

	pids, err := r.procs.FindPIDs(appName)
	if err != nil {
		return SinkHandle{}, fmt.Errorf("find pids for %q: %w", appName, err)
	}

	if len(pids) == 0 {
		r.logger.Debugw("No running process matches", "app", appName)
		return SinkHandle{}, fmt.Errorf("%q: %w", appName, ErrAppNotFound)
	}

	// when several processes share the name, the first one confirmed by the
	// status report wins; order is not guaranteed
	for _, pid := range pids {
		if reportListsPID(report, pid) {
			r.store(appName, pid)
			r.logger.Debugw("Resolved application to audio client", "app", appName, "pid", pid)
			return ProcessSink(pid), nil
		}
	}

	r.logger.Debugw("Application running but not playing", "app", appName, "pids", pids)

	return SinkHandle{}, fmt.Errorf("%q: %w", appName, ErrAppNotPlaying)
}

// FlushCache drops all cached resolutions. Called on config reload, since a
// changed target name makes old entries meaningless.
func (r *Resolver) FlushCache() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.cache = make(map[string]int)
	r.logger.Debug("Resolution cache flushed")
}

func (r *Resolver) cachedPID(appName string) (int, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	pid, ok := r.cache[appName]
	return pid, ok
}

func (r *Resolver) store(appName string, pid int) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.cache[appName] = pid
}

func (r *Resolver) evict(appName string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.cache, appName)
}
