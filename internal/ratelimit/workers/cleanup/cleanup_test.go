package cleanup

// Justification: these tests verify the sweep loop's contract against a
// mock store so they run without waiting out real rate-limit windows. The
// store's own eviction logic is covered in the ratelimit package.

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type mockSweeper struct {
	mu         sync.Mutex
	sweepCalls int
	removed    int
	err        error
}

func (m *mockSweeper) SweepExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepCalls++
	return m.removed, m.err
}

func (m *mockSweeper) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepCalls
}

type CleanupSuite struct {
	suite.Suite
	store  *mockSweeper
	worker *Worker
}

func TestCleanupSuite(t *testing.T) {
	suite.Run(t, new(CleanupSuite))
}

func (s *CleanupSuite) SetupTest() {
	s.store = &mockSweeper{}
	s.worker = New(s.store)
}

func (s *CleanupSuite) TestRunOnceReportsRemovals() {
	s.store.removed = 5

	removed, err := s.worker.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(5, removed)
	s.Equal(1, s.store.calls())
}

func (s *CleanupSuite) TestRunOncePropagatesStoreError() {
	s.store.err = errors.New("store broken")

	_, err := s.worker.RunOnce(context.Background())
	s.Require().Error(err)
}

func (s *CleanupSuite) TestStartStopsOnContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.worker.Start(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("worker did not stop after context cancellation")
	}
}

func (s *CleanupSuite) TestStartSweepsOnTicker() {
	worker := New(s.store, WithInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- worker.Start(ctx)
	}()

	s.Eventually(func() bool {
		return s.store.calls() >= 2
	}, time.Second, 5*time.Millisecond, "expected at least two sweep runs")

	cancel()
	<-done
}
