package touch

import (
	"github.com/dkovalev/touchcal/model"
)

// MaxSlots is the fixed capacity of the touch-state table.
const MaxSlots = 10

// slotTable tracks per-slot contact state. The owning Reader guards it with
// the touch lock; nothing here locks on its own.
type slotTable struct {
	slots   [MaxSlots]model.TouchPoint
	current int
}

func newSlotTable() *slotTable {
	t := &slotTable{}
	t.reset()

	return t
}

func (t *slotTable) reset() {
	for i := range t.slots {
		t.slots[i] = model.TouchPoint{TrackingID: -1}
	}

	t.current = 0
}

func (t *slotTable) setSlot(n int) {
	if n >= 0 && n < MaxSlots {
		t.current = n
	}
}

// activate transitions the current slot to active, stamping the start
// position from whatever coordinates the slot holds right now. The gesture
// detector re-freezes start at the first sync of the contact.
func (t *slotTable) activate(trackingID int, now int64) {
	s := &t.slots[t.current]
	s.TrackingID = trackingID
	s.StartX = s.X
	s.StartY = s.Y
	s.Timestamp = now
}

func (t *slotTable) deactivate() {
	t.slots[t.current].TrackingID = -1
}

func (t *slotTable) activeCount() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].Active() {
			n++
		}
	}

	return n
}

// active returns copies of the active slots in slot order.
func (t *slotTable) active() []model.TouchPoint {
	out := make([]model.TouchPoint, 0, MaxSlots)
	for i := range t.slots {
		if t.slots[i].Active() {
			out = append(out, t.slots[i])
		}
	}

	return out
}
