package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vertexautomation/site-server/internal/config"
	"github.com/vertexautomation/site-server/internal/service"
)

type CodeRenewer interface {
	RenewExpired(ctx context.Context) (service.RenewalResult, error)
}

type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// RenewalJob periodically replaces expired unused access codes and drops
// expired sessions.
type RenewalJob struct {
	codes    CodeRenewer
	sessions SessionCleaner
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
}

func NewRenewalJob(codes CodeRenewer, sessions SessionCleaner, interval time.Duration) *RenewalJob {
	return &RenewalJob{
		codes:    codes,
		sessions: sessions,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (j *RenewalJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("renewal job started")
}

// Stop waits for an in-flight run to finish.
func (j *RenewalJob) Stop() {
	close(j.done)
	<-j.stopped
	log.Info().Msg("renewal job stopped")
}

func (j *RenewalJob) run() {
	defer close(j.stopped)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.tick()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.tick()
		}
	}
}

func (j *RenewalJob) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), config.RenewalJobTimeout)
	defer cancel()
	j.RunOnce(ctx)
}

// RunOnce performs a single pass. Failures are logged; the next pass retries.
func (j *RenewalJob) RunOnce(ctx context.Context) service.RenewalResult {
	result, err := j.codes.RenewExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to renew access codes")
	}

	if j.sessions != nil {
		count, err := j.sessions.CleanupExpired(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to cleanup sessions")
		} else if count > 0 {
			log.Info().Int64("count", count).Msg("cleaned up sessions")
		}
	}
	return result
}
