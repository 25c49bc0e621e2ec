// internal/channels/adapter.go
package channels

import (
	"context"

	"taskhub-notifier/internal/models"
)

// Adapter is the uniform capability contract every transport implements.
// Adapters never let a transport error escape: Send returns a non-nil error
// on anything short of confirmed acceptance, and the dispatcher records it.
type Adapter interface {
	// Name is the channel label used in results, preferences and metrics.
	Name() string

	// Available reports whether required credentials/config were present at
	// construction. Computed once, not re-checked per call.
	Available() bool

	// Reaches reports whether the user has a delivery address for this
	// channel.
	Reaches(u models.User) bool

	// Send attempts delivery. A nil return means the transport confirmed
	// acceptance.
	Send(ctx context.Context, u models.User, content models.Content) error

	// Status is a side-effect-free diagnostic snapshot.
	Status() Status
}

// Status describes one channel for the ops status endpoint.
type Status struct {
	Name           string `json:"name"`
	Available      bool   `json:"available"`
	HasCredentials bool   `json:"hasCredentials"`
	Backend        string `json:"backend,omitempty"`
}
