package volknob

import (
	"fmt"

	ps "github.com/mitchellh/go-ps"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

// processLister enumerates live pids by executable name. An empty result
// with a nil error means "no such process", which is distinct from a failure
// to read the process table.
type processLister interface {
	FindPIDs(name string) ([]int, error)
}

type psProcessLister struct {
	logger *zap.SugaredLogger
}

func newProcessLister(logger *zap.SugaredLogger) *psProcessLister {
	return &psProcessLister{logger: logger.Named("processes")}
}

// FindPIDs returns the pids of every running process whose executable name
// exactly matches name (case-sensitive, as typed by the user).
func (l *psProcessLister) FindPIDs(name string) ([]int, error) {
	processes, err := ps.Processes()
	if err != nil {
		l.logger.Warnw("Failed to enumerate processes", "error", err)
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	pids := []int{}

	for _, process := range processes {
		if process.Executable() == name {
			pids = append(pids, process.Pid())
		}
	}

	pids = funk.UniqInt(pids)

	l.logger.Debugw("Enumerated processes by name", "name", name, "pids", pids)

	return pids, nil
}
