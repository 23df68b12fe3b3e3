package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"
)

// DefaultKeepAliveSchedule pings every 14 minutes, inside typical free-tier idle limits
const DefaultKeepAliveSchedule = "*/14 * * * *"

// KeepAliveJob periodically requests a URL so the hosting platform keeps the process awake
type KeepAliveJob struct {
	url      string
	schedule string
	client   *http.Client
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKeepAliveJob validates the cron schedule and creates the job
func NewKeepAliveJob(url, schedule string, client *http.Client, logger zerolog.Logger) (*KeepAliveJob, error) {
	if url == "" {
		return nil, fmt.Errorf("keep-alive url is required")
	}
	if schedule == "" {
		schedule = DefaultKeepAliveSchedule
	}
	g := gronx.New()
	if !g.IsValid(schedule) {
		return nil, fmt.Errorf("invalid keep-alive schedule %q", schedule)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &KeepAliveJob{
		url:      url,
		schedule: schedule,
		client:   client,
		log:      logger.With().Str("component", "keepalive").Logger(),
	}, nil
}

// Start starts the ping loop
func (j *KeepAliveJob) Start(ctx context.Context) {
	j.ctx, j.cancel = context.WithCancel(ctx)

	j.wg.Add(1)
	go j.loop()

	j.log.Info().Str("url", j.url).Str("schedule", j.schedule).Msg("keep-alive started")
}

// Stop stops the ping loop and waits for it to exit
func (j *KeepAliveJob) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
	j.log.Info().Msg("keep-alive stopped")
}

// NextRun returns the first tick strictly after ref
func (j *KeepAliveJob) NextRun(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(j.schedule, ref, false)
}

func (j *KeepAliveJob) loop() {
	defer j.wg.Done()

	for {
		next, err := j.NextRun(time.Now())
		if err != nil {
			j.log.Error().Err(err).Msg("failed to compute next keep-alive tick")
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-j.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := j.Ping(j.ctx); err != nil {
				j.log.Warn().Err(err).Msg("keep-alive ping failed")
			}
		}
	}
}

// Ping requests the URL once
func (j *KeepAliveJob) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", j.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ping %s: status %d", j.url, resp.StatusCode)
	}
	j.log.Debug().Int("status", resp.StatusCode).Msg("keep-alive ping ok")
	return nil
}
