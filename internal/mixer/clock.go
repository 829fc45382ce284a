package mixer

import "time"

// Clock supplies the engine's notion of now. The time-lock check is the
// only consumer; tests substitute a manual clock to hit the boundary
// exactly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
