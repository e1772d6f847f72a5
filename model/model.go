package model

// EventType discriminates the events delivered to consumers.
type EventType int

const (
	TouchDown EventType = iota
	TouchUp
	TouchMove
	SwipeLeft
	SwipeRight
	SwipeUp
	SwipeDown
	PinchIn
	PinchOut
	LongPress
	DoubleTap
	// Rotate is reserved; the recogniser never emits it.
	Rotate
)

var eventTypeNames = map[EventType]string{
	TouchDown:  "touch_down",
	TouchUp:    "touch_up",
	TouchMove:  "touch_move",
	SwipeLeft:  "swipe_left",
	SwipeRight: "swipe_right",
	SwipeUp:    "swipe_up",
	SwipeDown:  "swipe_down",
	PinchIn:    "pinch_in",
	PinchOut:   "pinch_out",
	LongPress:  "long_press",
	DoubleTap:  "double_tap",
	Rotate:     "rotate",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}

	return "unknown"
}

// TouchPoint is one slot record. TrackingID < 0 means the slot is empty.
type TouchPoint struct {
	TrackingID int
	RawX       int
	RawY       int
	X          int
	Y          int
	StartX     int
	StartY     int
	// Timestamp is monotonic milliseconds at first contact.
	Timestamp int64
}

func (p TouchPoint) Active() bool {
	return p.TrackingID >= 0
}

// TouchEvent is the value handed to consumers. X and Y hold the centroid
// of active touches; Value carries swipe magnitude or pinch delta in pixels.
type TouchEvent struct {
	Type       EventType
	TouchCount int
	X          int
	Y          int
	Value      int
	Timestamp  int64
	Touches    []TouchPoint
}

// EventCount aggregates the stored event log per gesture type.
type EventCount struct {
	Type  EventType
	Count int
}
