// internal/storage/storage.go
package storage

import "github.com/OCAP2/racesim/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession(r *core.SessionResult) error

	// Event recording
	RecordLap(e *core.LapEvent) error
	RecordPitStop(e *core.PitEvent) error
	RecordCollision(e *core.CollisionEvent) error
	RecordCarSample(s *core.CarSample) error
	RecordRetirement(e *core.RetireEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the results server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// QueueReporter is an optional interface for backends that buffer writes.
type QueueReporter interface {
	QueueLengths() map[string]int
}
