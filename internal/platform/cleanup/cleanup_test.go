package cleanup

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

type fakeTask struct {
	name string
	runs int
	err  error
}

func (f *fakeTask) Name() string { return f.name }
func (f *fakeTask) Run(_ context.Context) (int, error) {
	f.runs++
	return f.runs, f.err
}

func TestOnScheduleTick_RunsAllTasks(t *testing.T) {
	trigger := NewTrigger(zerolog.New(os.Stderr))
	a := &fakeTask{name: "a"}
	b := &fakeTask{name: "b"}
	trigger.Register(a)
	trigger.Register(b)

	trigger.OnScheduleTick(context.Background())
	trigger.OnScheduleTick(context.Background())

	if a.runs != 2 || b.runs != 2 {
		t.Errorf("expected both tasks to run twice, got a=%d b=%d", a.runs, b.runs)
	}
}

func TestOnScheduleTick_FailureDoesNotStopOthers(t *testing.T) {
	trigger := NewTrigger(zerolog.New(os.Stderr))
	failing := &fakeTask{name: "failing", err: errors.New("nope")}
	ok := &fakeTask{name: "ok"}
	trigger.Register(failing)
	trigger.Register(ok)

	trigger.OnScheduleTick(context.Background())

	if ok.runs != 1 {
		t.Errorf("expected healthy task to run despite earlier failure, got %d runs", ok.runs)
	}
}
