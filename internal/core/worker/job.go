// Package worker runs the single-consumer job queue that serializes
// every compositor RPC and the notification/recording/ingest side
// effects the rest of the orchestrator schedules.
package worker

import (
	"time"

	"github.com/google/uuid"
)

// Type names a job variant. The worker dispatches on this field.
type Type string

const (
	StartStream        Type = "START_STREAM"
	SwitchStream        Type = "SWITCH_STREAM" // reserved: switches are driven directly by the stream manager, not dispatched as a job today
	ToggleSource        Type = "TOGGLE_SOURCE"
	KickPublisher       Type = "KICK_PUBLISHER"
	RestartMedia        Type = "RESTART_MEDIA"
	StopRecording       Type = "STOP_RECORDING"
	StartRecording      Type = "START_RECORDING"
	SendNotification    Type = "SEND_NOTIFICATION"
	FlashLoading        Type = "FLASH_LOADING"
	CheckStreamHealth   Type = "CHECK_STREAM_HEALTH"
	SwitchDynamicSource Type = "SWITCH_DYNAMIC_SOURCE"
)

// compositorClass is the set of job types that must respect the
// inter-job spacing delay (§4.4).
var compositorClass = map[Type]bool{
	ToggleSource:        true,
	RestartMedia:        true,
	FlashLoading:        true,
	SwitchDynamicSource: true,
}

// IsCompositorClass reports whether t must respect OBS_JOB_DELAY spacing.
func IsCompositorClass(t Type) bool {
	return compositorClass[t]
}

// Job is one unit of work on the worker's queue. Payload fields are
// looked up by job handlers via the typed accessors in payload.go.
type Job struct {
	ID         string
	Type       Type
	Payload    map[string]any
	EnqueuedAt time.Time
}

// New builds a Job stamped with a fresh correlation id and the current
// time as its enqueue timestamp.
func New(t Type, payload map[string]any) Job {
	return Job{
		ID:         uuid.NewString(),
		Type:       t,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
}
