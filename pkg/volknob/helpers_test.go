package volknob

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

func newTestLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// fakeRunner replays canned responses keyed by the joined argument list and
// records every invocation for assertions.
type fakeRunner struct {
	responses map[string]string
	errs      map[string]error
	calls     [][]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: map[string]string{},
		errs:      map[string]error{},
	}
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)

	key := strings.Join(args, " ")

	if err, ok := f.errs[key]; ok {
		return "", err
	}

	return f.responses[key], nil
}

func (f *fakeRunner) callKeys() []string {
	keys := make([]string, len(f.calls))
	for i, call := range f.calls {
		keys[i] = strings.Join(call, " ")
	}
	return keys
}

// fakeLister serves a fixed process table.
type fakeLister struct {
	pids  map[string][]int
	err   error
	calls []string
}

func (f *fakeLister) FindPIDs(name string) ([]int, error) {
	f.calls = append(f.calls, name)

	if f.err != nil {
		return nil, f.err
	}

	return f.pids[name], nil
}

// fakeNotifier records notifications instead of popping toasts.
type fakeNotifier struct {
	titles []string
}

func (f *fakeNotifier) Notify(title string, _ string) {
	f.titles = append(f.titles, title)
}
