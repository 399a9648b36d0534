package session

import (
	"time"

	"github.com/gmssh-project/gmssh/pkg/models"
)

// Event is one state-change notification pushed to the presentation layer.
// Reason is non-nil only for Failed.
type Event struct {
	State  models.SessionState
	Reason error
	Time   time.Time
}
