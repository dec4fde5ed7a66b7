package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vertexautomation/site-server/internal/service"
)

type stubRenewer struct {
	calls  atomic.Int32
	result service.RenewalResult
	err    error
}

func (s *stubRenewer) RenewExpired(ctx context.Context) (service.RenewalResult, error) {
	s.calls.Add(1)
	return s.result, s.err
}

type stubCleaner struct {
	calls atomic.Int32
	count int64
	err   error
}

func (s *stubCleaner) CleanupExpired(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.count, s.err
}

func TestRenewalJob_RunOnce(t *testing.T) {
	t.Run("runs both tasks", func(t *testing.T) {
		codes := &stubRenewer{result: service.RenewalResult{Renewed: 2}}
		sessions := &stubCleaner{count: 5}
		job := NewRenewalJob(codes, sessions, time.Hour)

		result := job.RunOnce(context.Background())

		assert.Equal(t, 2, result.Renewed)
		assert.Equal(t, int32(1), codes.calls.Load())
		assert.Equal(t, int32(1), sessions.calls.Load())
	})

	t.Run("renewal failure does not skip session cleanup", func(t *testing.T) {
		codes := &stubRenewer{err: errors.New("db down")}
		sessions := &stubCleaner{}
		job := NewRenewalJob(codes, sessions, time.Hour)

		job.RunOnce(context.Background())

		assert.Equal(t, int32(1), sessions.calls.Load())
	})

	t.Run("nil session cleaner", func(t *testing.T) {
		codes := &stubRenewer{}
		job := NewRenewalJob(codes, nil, time.Hour)

		assert.NotPanics(t, func() { job.RunOnce(context.Background()) })
	})
}

func TestRenewalJob_StartStop(t *testing.T) {
	codes := &stubRenewer{}
	sessions := &stubCleaner{}
	job := NewRenewalJob(codes, sessions, 10*time.Millisecond)

	job.Start()
	assert.Eventually(t, func() bool { return codes.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	job.Stop()

	after := codes.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, codes.calls.Load())
}
