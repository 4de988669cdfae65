package events

import "github.com/asaskevich/EventBus"

// GlobalBus is the shared event bus for the entire application
var GlobalBus EventBus.Bus

func init() {
	GlobalBus = EventBus.New()
}

// Event types for application-wide coordination
const (
	// Shutdown events
	EventShutdownRequested = "app:shutdown:requested"
	EventShutdownComplete  = "app:shutdown:complete"

	// Sync events
	EventSyncStarted  = "sync:started"
	EventSyncStopped  = "sync:stopped"
	EventFileUploaded = "sync:file:uploaded"
	EventFileOpened   = "sync:file:opened"

	// Remote tree events
	EventTreeRefresh = "tree:refresh"
)
