package services

import (
	"context"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/repository"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"
)

// RefreshMode tells the caller how to refresh the repository after a submission
type RefreshMode string

const (
	RefreshNone      RefreshMode = "none"
	RefreshImmediate RefreshMode = "immediate"
	RefreshDelayed   RefreshMode = "delayed"
)

// Synchronizer reconciles the repository with the remote store
type Synchronizer struct {
	remote RemoteStore
	repo   *repository.Repository
	delay  time.Duration
}

func NewSynchronizer(remote RemoteStore, repo *repository.Repository, delay time.Duration) *Synchronizer {
	return &Synchronizer{remote: remote, repo: repo, delay: delay}
}

// Delay is the wait used by delayed refreshes
func (s *Synchronizer) Delay() time.Duration {
	return s.delay
}

// Refresh fetches every record and replaces the repository contents.
// An unconfigured fetch endpoint is an error only when required is set.
// Unrecognised responses count as zero records. Network and remote
// failures leave the repository untouched.
func (s *Synchronizer) Refresh(ctx context.Context, required bool) error {
	records, err := s.remote.FetchRecords(ctx)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.ConfigurationMissing:
			if required {
				return err
			}
			return nil
		case apperr.ParseFailure:
			logging.Errorf("Treating unrecognised records response as empty: %v", err)
			s.repo.ReplaceAll(nil)
			return nil
		default:
			return err
		}
	}

	s.repo.ReplaceAll(records)
	return nil
}

// ScheduleRefresh refreshes once after delay. The timer cannot be cancelled;
// if ctx is done when it fires the refresh is skipped. The returned channel
// closes when the scheduled work has finished.
func (s *Synchronizer) ScheduleRefresh(ctx context.Context, delay time.Duration) <-chan struct{} {
	done := make(chan struct{})
	time.AfterFunc(delay, func() {
		defer close(done)
		if ctx.Err() != nil {
			logging.Infof("Delayed refresh skipped, consumer is gone")
			return
		}
		if err := s.Refresh(ctx, false); err != nil {
			logging.Errorf("Delayed refresh failed: %v", err)
		}
	})
	return done
}

// Apply runs the refresh discipline chosen by the submission pipeline.
// appCtx must outlive the request that triggered it.
func (s *Synchronizer) Apply(appCtx context.Context, mode RefreshMode, required bool) error {
	switch mode {
	case RefreshImmediate:
		return s.Refresh(appCtx, required)
	case RefreshDelayed:
		s.ScheduleRefresh(appCtx, s.delay)
	}
	return nil
}

// Records returns the current repository snapshot
func (s *Synchronizer) Records() []models.PurchaseRecord {
	return s.repo.All()
}
