package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/photonav/gallery/internal/labeling"
	"github.com/photonav/gallery/internal/mediaindex"
	"github.com/photonav/gallery/internal/models"
	"github.com/photonav/gallery/internal/observability"
	"github.com/photonav/gallery/internal/reactive"
	"github.com/photonav/gallery/internal/repository"
)

// SyncStatus is the externally visible state of the sync engine.
type SyncStatus struct {
	Running    bool
	LastSyncAt time.Time
	Upserted   int
	Pruned     int
	LastError  string
}

// SyncEngine pulls the full media index and upserts it into the cache.
// It performs no direct UI update; views observe the cache through the
// query layer. At most one refresh runs at a time; a refresh requested
// while one is active is dropped, not queued.
type SyncEngine struct {
	index   mediaindex.Index
	media   repository.MediaRepo
	labels  repository.LabelRepo
	labeler labeling.Labeler
	log     *observability.Logger

	inFlight atomic.Bool
	status   *reactive.Feed[SyncStatus]

	// onFailure clears the UI loading flag so a failed first sync never
	// leaves a perpetual spinner.
	onFailure func()
}

// NewSyncEngine creates a sync engine. onFailure may be nil.
func NewSyncEngine(index mediaindex.Index, media repository.MediaRepo, labels repository.LabelRepo, labeler labeling.Labeler, onFailure func()) *SyncEngine {
	if labeler == nil {
		labeler = labeling.NullLabeler{}
	}
	return &SyncEngine{
		index:     index,
		media:     media,
		labels:    labels,
		labeler:   labeler,
		log:       observability.GetLogger().WithField("component", "sync"),
		status:    reactive.NewFeedOf(SyncStatus{}),
		onFailure: onFailure,
	}
}

// Status exposes the sync status stream.
func (s *SyncEngine) Status() *reactive.Feed[SyncStatus] { return s.status }

// Refresh runs one full sync pass: fetch both catalogs, upsert by id,
// prune rows the index no longer returns, then kick the labeling
// side-check. Idempotent; running twice with no external change produces
// no observable diff. Failures keep the cache at its last-known-good
// state.
func (s *SyncEngine) Refresh(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Debug("refresh already in flight, dropping request")
		return
	}
	defer s.inFlight.Store(false)

	ctx, span := observability.StartServiceSpan(ctx, "sync", "refresh")
	defer span.End()

	start := time.Now()
	s.publishStatus(func(st *SyncStatus) { st.Running = true })

	upserted, pruned, err := s.refreshOnce(ctx)
	if err != nil {
		observability.RecordError(span, err)
		s.log.Errorf("refresh failed: %v", err)
		s.publishStatus(func(st *SyncStatus) {
			st.Running = false
			st.LastError = err.Error()
		})
		if s.onFailure != nil {
			s.onFailure()
		}
		return
	}

	observability.SetSuccess(span)
	span.SetAttributes(
		observability.RecordCount(upserted),
		observability.Duration(time.Since(start)),
	)
	s.log.Infof("refresh complete: %d records, %d pruned in %s", upserted, pruned, time.Since(start).Round(time.Millisecond))
	s.publishStatus(func(st *SyncStatus) {
		st.Running = false
		st.LastSyncAt = time.Now()
		st.Upserted = upserted
		st.Pruned = pruned
		st.LastError = ""
	})

	s.checkLabeling(ctx)
}

func (s *SyncEngine) refreshOnce(ctx context.Context) (int, int, error) {
	images, err := s.index.QueryImages(ctx)
	if err != nil {
		return 0, 0, err
	}
	videos, err := s.index.QueryVideos(ctx)
	if err != nil {
		return 0, 0, err
	}

	records := make([]models.MediaRecord, 0, len(images)+len(videos))
	keep := make([]int64, 0, len(images)+len(videos))
	for i := range images {
		records = append(records, images[i].Record())
		keep = append(keep, images[i].ID)
	}
	for i := range videos {
		records = append(records, videos[i].Record())
		keep = append(keep, videos[i].ID)
	}

	if err := s.media.UpsertAll(ctx, records); err != nil {
		return 0, 0, err
	}
	pruned, err := s.media.PruneMissing(ctx, keep)
	if err != nil {
		return 0, 0, err
	}
	// Label rows follow their media out of the cache.
	if _, err := s.labels.PruneExcept(ctx, keep); err != nil {
		s.log.Warnf("label prune failed: %v", err)
	}

	return len(records), pruned, nil
}

// checkLabeling computes the unlabeled count and, when non-zero, asks the
// labeling collaborator to run. Fire-and-forget; failure is non-fatal.
func (s *SyncEngine) checkLabeling(ctx context.Context) {
	total, err := s.media.Count(ctx)
	if err != nil {
		s.log.Warnf("labeling side-check count failed: %v", err)
		return
	}
	processed, err := s.labels.ProcessedIDs(ctx)
	if err != nil {
		s.log.Warnf("labeling side-check failed: %v", err)
		return
	}
	unlabeled := total - len(processed)
	if unlabeled <= 0 {
		return
	}

	s.log.Debugf("%d records need labeling", unlabeled)
	go func() {
		if err := s.labeler.RunNow(context.WithoutCancel(ctx)); err != nil {
			s.log.Warnf("labeling request failed: %v", err)
		}
	}()
}

func (s *SyncEngine) publishStatus(mutate func(*SyncStatus)) {
	st, _ := s.status.Get()
	mutate(&st)
	s.status.Publish(st)
}
