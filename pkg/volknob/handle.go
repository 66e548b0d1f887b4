package volknob

import "fmt"

// wpctl accepts this as a target without any device discovery
const defaultSinkTarget = "@DEFAULT_AUDIO_SINK@"

type sinkKind int

const (
	sinkDefault sinkKind = iota
	sinkProcess
)

// SinkHandle identifies an addressable audio target: either the system-wide
// default output, or the audio client owned by a specific process.
//
// A process handle is only meaningful for as long as its pid is alive and
// currently owns an active audio client; the resolver re-validates both
// properties on every resolution instead of trusting a stored handle.
type SinkHandle struct {
	kind sinkKind
	pid  int
}

// DefaultSink returns the handle for the system default output.
func DefaultSink() SinkHandle {
	return SinkHandle{kind: sinkDefault}
}

// ProcessSink returns a handle scoped to the audio client owned by pid.
func ProcessSink(pid int) SinkHandle {
	return SinkHandle{kind: sinkProcess, pid: pid}
}

// IsDefault reports whether the handle targets the system default output.
func (h SinkHandle) IsDefault() bool {
	return h.kind == sinkDefault
}

// PID returns the owning process id for a process handle, and 0 for the
// default handle.
func (h SinkHandle) PID() int {
	if h.kind != sinkProcess {
		return 0
	}
	return h.pid
}

func (h SinkHandle) String() string {
	if h.kind == sinkDefault {
		return defaultSinkTarget
	}

	return fmt.Sprintf("pid %d", h.pid)
}
