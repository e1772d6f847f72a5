package touch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotTableLifecycle(t *testing.T) {
	tbl := newSlotTable()
	assert.Equal(t, 0, tbl.activeCount())

	tbl.setSlot(2)
	tbl.activate(42, 1000)
	assert.Equal(t, 1, tbl.activeCount())
	assert.Equal(t, 42, tbl.slots[2].TrackingID)
	assert.Equal(t, int64(1000), tbl.slots[2].Timestamp)

	tbl.setSlot(0)
	tbl.activate(43, 1001)
	assert.Equal(t, 2, tbl.activeCount())

	active := tbl.active()
	assert.Len(t, active, 2)
	// Slot order, not activation order.
	assert.Equal(t, 43, active[0].TrackingID)
	assert.Equal(t, 42, active[1].TrackingID)

	tbl.setSlot(2)
	tbl.deactivate()
	assert.Equal(t, 1, tbl.activeCount())

	tbl.reset()
	assert.Equal(t, 0, tbl.activeCount())
	assert.Equal(t, 0, tbl.current)
}

func TestSlotTableIgnoresOutOfRangeSlot(t *testing.T) {
	tbl := newSlotTable()

	tbl.setSlot(MaxSlots + 5)
	assert.Equal(t, 0, tbl.current)

	tbl.setSlot(-1)
	assert.Equal(t, 0, tbl.current)
}

func TestActiveCountMatchesTrackingIDs(t *testing.T) {
	tbl := newSlotTable()

	for i := range 4 {
		tbl.setSlot(i)
		tbl.activate(i*7, int64(i))
	}

	ids := 0
	for i := range tbl.slots {
		if tbl.slots[i].TrackingID >= 0 {
			ids++
		}
	}

	assert.Equal(t, ids, tbl.activeCount())
	assert.Len(t, tbl.active(), ids)
}
