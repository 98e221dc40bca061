package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bazarkala/bazarkala-backend/pkg/logger"
)

func TestRunCycleSkipsWhileSweepInFlight(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	job := &blockingJob{block: block, started: started}

	svc := newServiceTest(t, &fakeLock{allow: true}, job)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := svc.runCycle(context.Background()); err != nil {
			t.Errorf("runCycle: %v", err)
		}
	}()

	<-started
	// Second cycle fires while the first is still running: skipped, not queued.
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("overlapping runCycle: %v", err)
	}
	close(block)
	wg.Wait()

	if got := job.runs(); got != 1 {
		t.Fatalf("expected exactly 1 job run, got %d", got)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &countingJob{}
	lock := &fakeLock{allow: false}
	svc := newServiceTest(t, lock, job)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.count != 0 {
		t.Fatalf("expected no job runs without the lock, got %d", job.count)
	}
	if lock.acquires != 1 {
		t.Fatalf("expected 1 acquire attempt, got %d", lock.acquires)
	}
	if lock.releases != 0 {
		t.Fatalf("lock must not be released when never acquired, got %d", lock.releases)
	}
}

func TestRunCycleReleasesLock(t *testing.T) {
	job := &countingJob{}
	lock := &fakeLock{allow: true}
	svc := newServiceTest(t, lock, job)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.count != 1 {
		t.Fatalf("expected 1 job run, got %d", job.count)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released, got %d", lock.releases)
	}
}

func newServiceTest(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Interval: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

type fakeLock struct {
	allow    bool
	acquires int
	releases int
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	return l.allow, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.releases++
	return nil
}

type countingJob struct {
	count int
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.count++
	return nil
}

type blockingJob struct {
	mu      sync.Mutex
	count   int
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (j *blockingJob) Name() string { return "blocking" }

func (j *blockingJob) Run(context.Context) error {
	j.mu.Lock()
	j.count++
	j.mu.Unlock()
	j.once.Do(func() { close(j.started) })
	<-j.block
	return nil
}

func (j *blockingJob) runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}
