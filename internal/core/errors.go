package core

import (
	"errors"
	"fmt"
)

// ErrChannelClosed is returned by Recv when the subscriber's channel was
// evicted from the registry while it was waiting.
var ErrChannelClosed = errors.New("channel closed")

// LagError reports that a subscriber fell more than the ring capacity
// behind the write cursor. Not fatal: the cursor has already been
// snapped to the oldest retained event, the missed ones are gone.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("subscriber lagged, %d events dropped", e.Missed)
}
