package worker

import (
	"context"
	"errors"
)

var errJobPanicked = errors.New("job handler panicked")
var errUnknownJobType = errors.New("unknown job type")

// dispatch translates a job's payload into calls against the
// compositor, notification, recording, and ingest-admin clients. Errors
// are returned to the caller, which logs and moves on — a failed job is
// never retried by default (§4.4).
func (w *Worker) dispatch(ctx context.Context, job Job) error {
	switch job.Type {
	case ToggleSource:
		return w.compositor.ToggleSource(ctx, payloadSceneSource(job, "scene_source"), payloadBool(job, "only_off"))

	case RestartMedia:
		return w.compositor.RestartMedia(ctx, payloadString(job, "input"))

	case FlashLoading:
		return w.compositor.ToggleSource(ctx, payloadSceneSource(job, "scene_source"), payloadBool(job, "only_off"))

	case SwitchDynamicSource:
		w.compositor.SwitchToNewSource(ctx, payloadString(job, "rtmp_url"), payloadString(job, "scene"))
		return nil

	case KickPublisher:
		return w.ingestAdmin.KickPublisher(ctx, payloadString(job, "stream_key"))

	case StartRecording:
		return w.recorder.Start(ctx, payloadString(job, "stream_key"), payloadString(job, "dj_name"))

	case StopRecording:
		return w.recorder.Stop(ctx, payloadString(job, "stream_key"), payloadString(job, "dj_name"))

	case SendNotification:
		return w.notifier.Notify(ctx, payloadString(job, "message"))

	case CheckStreamHealth:
		// Health sampling runs on its own goroutine per source (C5); this
		// job type exists for an operator-triggered one-off check and is
		// a no-op until that surface is wired up.
		return nil

	case StartStream, SwitchStream:
		// Driven directly by the stream manager's start_stream/switch_stream,
		// never enqueued as jobs themselves; reserved for symmetry with the
		// job-type enumeration in the original design.
		return nil

	default:
		return errUnknownJobType
	}
}
