package app

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickConnection
)

// Policy decides what happens to a receiver whose outbound buffer cannot
// keep up with the room.
type Policy interface {
	OnBackpressure(c *Connection) BackpressureAction
}

// KickSlowPolicy drops the lagging connection so one slow peer never
// stalls delivery to the rest of the room.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnBackpressure(c *Connection) BackpressureAction {
	return KickConnection
}
