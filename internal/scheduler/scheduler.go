package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LJTian/TejoMag/internal/pipeline"
	"github.com/robfig/cron/v3"
)

// ErrRunInProgress 已有一轮在执行时拒绝手动触发
var ErrRunInProgress = errors.New("run in progress")

// ErrStopped Stop 之后不再接受新的一轮
var ErrStopped = errors.New("scheduler stopped")

// Runner 执行一轮完整采集
type Runner interface {
	Run(ctx context.Context) pipeline.RunSummary
}

type Status struct {
	Running   bool                 `json:"running"`
	CronSpec  string               `json:"cronSpec"`
	NextRun   *time.Time           `json:"nextRun,omitempty"`
	LastRun   *pipeline.RunSummary `json:"lastRun,omitempty"`
	LastError string               `json:"lastError,omitempty"`
	Runs      int                  `json:"runs"`
}

// Scheduler 定时 + 手动触发，同一时刻最多一轮在执行
type Scheduler struct {
	cron         *cron.Cron
	entry        cron.EntryID
	spec         string
	runner       Runner
	startupDelay time.Duration

	running atomic.Bool

	mu         sync.Mutex
	last       *pipeline.RunSummary
	lastErr    string
	runs       int
	startTimer *time.Timer
	stopped    bool

	// 跟踪所有执行中的一轮：定时、启动延迟与手动触发
	inflight sync.WaitGroup
}

func New(spec string, runner Runner, startupDelay time.Duration) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))))

	s := &Scheduler{
		cron:         c,
		spec:         spec,
		runner:       runner,
		startupDelay: startupDelay,
	}

	id, err := c.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.startupDelay < 0 {
		return
	}
	// 延迟执行首轮采集，避免与服务启动争抢资源
	s.mu.Lock()
	s.startTimer = time.AfterFunc(s.startupDelay, s.tick)
	s.mu.Unlock()
}

// Stop 停止定时器并拒绝新的一轮；返回的 context 在 cron 停止且进行中的任务全部结束后关闭
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.stopped = true
	if s.startTimer != nil {
		s.startTimer.Stop()
	}
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.inflight.Wait()
		cancel()
	}()
	return ctx
}

// Trigger 同步执行一轮；已有任务在执行时立即返回 ErrRunInProgress
func (s *Scheduler) Trigger(ctx context.Context) (pipeline.RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return pipeline.RunSummary{}, ErrRunInProgress
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.running.Store(false)
		return pipeline.RunSummary{}, ErrStopped
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	// 先清 running 再 Done，Stop 返回后状态已是空闲
	defer func() {
		s.running.Store(false)
		s.inflight.Done()
	}()

	return s.execute(ctx)
}

func (s *Scheduler) tick() {
	if _, err := s.Trigger(context.Background()); err != nil {
		switch {
		case errors.Is(err, ErrRunInProgress):
			log.Println("scheduler: previous run still active, skip")
			return
		case errors.Is(err, ErrStopped):
			return
		}
		log.Printf("scheduler: run failed: %v", err)
	}
}

func (s *Scheduler) execute(ctx context.Context) (sum pipeline.RunSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
			s.mu.Lock()
			s.lastErr = err.Error()
			s.runs++
			s.mu.Unlock()
		}
	}()

	log.Println("scheduler: start collect job...")
	sum = s.runner.Run(ctx)

	s.mu.Lock()
	s.last = &sum
	s.lastErr = ""
	s.runs++
	s.mu.Unlock()
	return sum, nil
}

func (s *Scheduler) Running() bool { return s.running.Load() }

func (s *Scheduler) Status() Status {
	st := Status{Running: s.running.Load(), CronSpec: s.spec}

	if e := s.cron.Entry(s.entry); e.Valid() && !e.Next.IsZero() {
		next := e.Next
		st.NextRun = &next
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		last := *s.last
		st.LastRun = &last
	}
	st.LastError = s.lastErr
	st.Runs = s.runs
	return st
}
