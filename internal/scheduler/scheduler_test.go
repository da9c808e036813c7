package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/TejoMag/internal/pipeline"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingRunner) Run(ctx context.Context) pipeline.RunSummary {
	b.calls.Add(1)
	b.started <- struct{}{}
	<-b.release
	return pipeline.RunSummary{RunID: "run", Persisted: 2}
}

type funcRunner func(ctx context.Context) pipeline.RunSummary

func (f funcRunner) Run(ctx context.Context) pipeline.RunSummary { return f(ctx) }

func TestTriggerRejectedWhileRunning(t *testing.T) {
	r := newBlockingRunner()
	s, err := New("@every 1h", r, -1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Trigger(context.Background())
		done <- err
	}()

	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first run did not start")
	}

	if !s.Status().Running {
		t.Fatalf("status should report running")
	}
	if _, err := s.Trigger(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("second trigger err = %v, want ErrRunInProgress", err)
	}
	// 定时触发在忙碌时直接跳过
	s.tick()

	close(r.release)
	if err := <-done; err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if n := r.calls.Load(); n != 1 {
		t.Fatalf("runner called %d times, want 1", n)
	}

	st := s.Status()
	if st.Running || st.LastRun == nil || st.LastRun.Persisted != 2 || st.Runs != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestTriggerSurvivesPanic(t *testing.T) {
	var calls int
	s, err := New("@every 1h", funcRunner(func(context.Context) pipeline.RunSummary {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return pipeline.RunSummary{RunID: "ok"}
	}), -1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := s.Trigger(context.Background()); err == nil {
		t.Fatalf("panicking run should return an error")
	}
	if st := s.Status(); st.LastError == "" || st.Running {
		t.Fatalf("status after panic = %+v", st)
	}

	sum, err := s.Trigger(context.Background())
	if err != nil || sum.RunID != "ok" {
		t.Fatalf("run after panic = %+v, %v", sum, err)
	}
	if st := s.Status(); st.LastError != "" || st.Runs != 2 {
		t.Fatalf("status = %+v", st)
	}
}

func TestStartRunsFirstJobAfterDelay(t *testing.T) {
	ran := make(chan struct{}, 1)
	s, err := New("0 * * * *", funcRunner(func(context.Context) pipeline.RunSummary {
		ran <- struct{}{}
		return pipeline.RunSummary{}
	}), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("startup run did not fire")
	}
	if st := s.Status(); st.NextRun == nil || st.CronSpec != "0 * * * *" {
		t.Fatalf("status = %+v", st)
	}
}

func TestNewRejectsInvalidCronExpression(t *testing.T) {
	if _, err := New("not a cron", funcRunner(func(context.Context) pipeline.RunSummary { return pipeline.RunSummary{} }), 0); err == nil {
		t.Fatalf("invalid cron expression should fail")
	}
}

func TestStopWaitsForStartupRun(t *testing.T) {
	r := newBlockingRunner()
	s, err := New("0 * * * *", r, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()

	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("startup run did not start")
	}

	stopped := s.Stop()
	select {
	case <-stopped.Done():
		t.Fatalf("Stop finished while the startup run was still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	if _, err := s.Trigger(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("trigger during run err = %v", err)
	}

	close(r.release)
	select {
	case <-stopped.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not finish after the run completed")
	}

	if _, err := s.Trigger(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("trigger after stop err = %v, want ErrStopped", err)
	}
}
