package runtime

import (
	"errors"
	"fmt"

	"github.com/hikevindiaz/linkai/pkg/models"
)

// CapabilityError rejects an operation the channel's declared capabilities
// forbid. It is raised before any persistence or provider call, so the
// caller can fix the request and retry with no side effects.
type CapabilityError struct {
	Channel models.ChannelType
	Reason  string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("channel %s: %s", e.Channel, e.Reason)
}

// IsCapabilityError reports whether err is a capability rejection.
func IsCapabilityError(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}

// PersistenceError wraps a conversation store failure. It is fatal for the
// current call; when raised before generation no provider spend occurred.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
