package jobs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeRefresher struct {
	calls    int
	err      error
	deadline bool
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	_, f.deadline = ctx.Deadline()
	return f.err
}

func TestNewCron_InvalidSpec(t *testing.T) {
	for _, spec := range []string{"", "every day", "0 0 9 * * MON"} {
		if _, err := NewCron(spec, zerolog.Nop(), &fakeRefresher{}); err == nil {
			t.Errorf("NewCron(%q) expected error", spec)
		}
	}
}

func TestCron_Run(t *testing.T) {
	target := &fakeRefresher{}
	cr, err := NewCron("0 9 * * MON-FRI", zerolog.Nop(), target)
	if err != nil {
		t.Fatalf("NewCron error: %v", err)
	}

	cr.run()
	if target.calls != 1 {
		t.Errorf("calls = %d, want 1", target.calls)
	}
	if !target.deadline {
		t.Error("refresh ran without a deadline")
	}
}

func TestCron_RunLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	target := &fakeRefresher{err: errors.New("jira down")}
	cr, err := NewCron("*/5 * * * *", zerolog.New(&buf), target)
	if err != nil {
		t.Fatalf("NewCron error: %v", err)
	}

	cr.run()
	if !strings.Contains(buf.String(), "jira down") {
		t.Errorf("log = %s, want refresh error", buf.String())
	}
}

func TestCron_StartStop(t *testing.T) {
	cr, err := NewCron("0 9 * * *", zerolog.Nop(), &fakeRefresher{})
	if err != nil {
		t.Fatalf("NewCron error: %v", err)
	}
	cr.Start()

	done := make(chan struct{})
	go func() {
		cr.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
