// Package worker refreshes remote playlist state in the background.
package worker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

const jobTimeout = 30 * time.Second

// Job asks for the remote state of one stored playlist to be refreshed.
type Job struct {
	PlaylistID string
	RemoteID   string
}

// Pool manages background workers for sync jobs.
type Pool struct {
	remote ports.PlaylistWriter
	repo   ports.PlaylistRepository
	jobs   chan Job
	wg     sync.WaitGroup
	logger *log.Logger
	now    func() time.Time

	// mu guards stopped so Submit never sends on the closed queue.
	mu      sync.RWMutex
	stopped bool
}

var (
	_ ports.SyncQueue         = (*Pool)(nil)
	_ ports.PlaylistRefresher = (*Pool)(nil)
)

// NewPool creates a worker pool with the given queue size.
func NewPool(remote ports.PlaylistWriter, repo ports.PlaylistRepository, queueSize int, logger *log.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pool{
		remote: remote,
		repo:   repo,
		jobs:   make(chan Job, queueSize),
		logger: logger.With("component", "worker"),
		now:    time.Now,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for workers to finish. Later submits are
// rejected. Stop is safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking and reports whether it was accepted.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.logger.Warn("dropping sync job, pool stopped", "playlist", job.PlaylistID)
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.logger.Warn("dropping sync job, queue full", "playlist", job.PlaylistID)
		return false
	}
}

func (p *Pool) processJob(job Job) {
	if job.RemoteID == "" {
		p.logger.Warn("no remote id, skipping sync", "playlist", job.PlaylistID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := p.sync(ctx, job.PlaylistID, job.RemoteID); err != nil {
		p.logger.Warn("sync failed", "playlist", job.PlaylistID, "error", err)
	}
}

// sync copies the remote state of one playlist onto its stored record.
func (p *Pool) sync(ctx context.Context, playlistID, remoteID string) error {
	remote, err := p.remote.GetPlaylist(ctx, remoteID)
	if err != nil {
		return err
	}
	info := domain.SyncInfo{
		Name:       remote.Name,
		SnapshotID: remote.SnapshotID,
		Public:     remote.Public,
		TrackCount: remote.TrackCount,
		URL:        remote.URL,
		SyncedAt:   p.now().UTC(),
	}
	if err := p.repo.MarkSynced(ctx, playlistID, info); err != nil {
		return err
	}
	p.logger.Debug("playlist synced", "playlist", playlistID, "tracks", remote.TrackCount)
	return nil
}

// RefreshStale implements ports.PlaylistRefresher. It syncs every stored
// playlist of the owner whose cache is older than ttl, in the caller's
// goroutine. A 404 deletes the record; a 429 stops the pass and is reported
// so the caller can relay Retry-After. Other failures skip the playlist.
func (p *Pool) RefreshStale(ctx context.Context, ownerID string, ttl time.Duration) (domain.RefreshReport, error) {
	var report domain.RefreshReport
	playlists, err := p.repo.ListByOwner(ctx, ownerID, time.Time{})
	if err != nil {
		return report, err
	}

	now := p.now()
	for _, pl := range playlists {
		if pl.RemoteID == "" || !pl.IsStale(now, ttl) {
			report.Skipped++
			continue
		}
		err := p.sync(ctx, pl.ID, pl.RemoteID)
		if err == nil {
			report.Refreshed++
			continue
		}
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		var upstream *domain.UpstreamError
		switch {
		case errors.As(err, &upstream) && upstream.Status == http.StatusNotFound:
			if err := p.repo.Delete(ctx, pl.ID); err != nil {
				p.logger.Warn("delete vanished playlist failed", "playlist", pl.ID, "error", err)
				report.Skipped++
				continue
			}
			p.logger.Info("removed playlist deleted upstream", "playlist", pl.ID)
			report.Deleted++
		case errors.As(err, &upstream) && upstream.Status == http.StatusTooManyRequests:
			report.RateLimited = true
			report.RetryAfter = upstream.RetryAfter
			p.logger.Warn("refresh rate limited, serving cached playlists", "retry_after", upstream.RetryAfter)
			return report, nil
		default:
			p.logger.Warn("refresh failed", "playlist", pl.ID, "error", err)
			report.Skipped++
		}
	}
	return report, nil
}

// Enqueue implements ports.SyncQueue.
func (p *Pool) Enqueue(playlistID, remoteID string) bool {
	return p.Submit(Job{PlaylistID: playlistID, RemoteID: remoteID})
}
