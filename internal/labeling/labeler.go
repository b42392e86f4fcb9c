// Package labeling declares the external ML-labeling collaborator. The
// core only decides when to ask for labeling; the work itself runs
// elsewhere and lands in the labels side-table.
package labeling

import "context"

// Labeler is the write-trigger side of the labeling collaborator. All
// requests are fire-and-forget; a failed request is non-fatal.
type Labeler interface {
	// RunNow asks for an immediate labeling pass over unprocessed media.
	RunNow(ctx context.Context) error
	// SchedulePeriodic registers a recurring labeling job.
	SchedulePeriodic(ctx context.Context) error
	// ScheduleDeferred registers a one-shot job for when the device idles.
	ScheduleDeferred(ctx context.Context) error
}

// NullLabeler is the no-op implementation used when no labeling backend is
// configured.
type NullLabeler struct{}

func (NullLabeler) RunNow(context.Context) error           { return nil }
func (NullLabeler) SchedulePeriodic(context.Context) error { return nil }
func (NullLabeler) ScheduleDeferred(context.Context) error { return nil }
