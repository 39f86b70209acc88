package screen

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbox/internal/store"
)

// recDisplay records draw calls for assertions.
type recDisplay struct {
	calls []string
}

func (d *recDisplay) DrawText(x, y int, s string, fg, bg Color) {
	d.calls = append(d.calls, fmt.Sprintf("text(%d,%d,%q)", x, y, s))
}

func (d *recDisplay) FillRect(x, y, w, h int, c Color) {
	d.calls = append(d.calls, fmt.Sprintf("rect(%d,%d,%d,%d)", x, y, w, h))
}

func (d *recDisplay) FillScreen(c Color) {
	d.calls = append(d.calls, "clear")
}

func (d *recDisplay) reset() { d.calls = nil }

func (d *recDisplay) has(sub string) bool {
	for _, c := range d.calls {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

func (d *recDisplay) clears() int {
	n := 0
	for _, c := range d.calls {
		if c == "clear" {
			n++
		}
	}
	return n
}

func TestStatusColors(t *testing.T) {
	assert.Equal(t, ColorRed, StatusColor(store.StatusPending))
	assert.Equal(t, ColorGreen, StatusColor(store.StatusCompleted))
	assert.Equal(t, ColorYellow, StatusColor(store.StatusRepeat))
	assert.Equal(t, "PENDING", StatusLabel(store.StatusPending))
	assert.Equal(t, "REPEAT", StatusLabel(store.StatusRepeat))
}

func TestStateView(t *testing.T) {
	var s State
	assert.Equal(t, ViewIdle, s.View())
	assert.True(t, s.Idle())
	s.Set(ViewMenu)
	assert.Equal(t, ViewMenu, s.View())
	assert.False(t, s.Idle())
}

func TestDrawIdleFullThenIncremental(t *testing.T) {
	d := &recDisplay{}
	s := New(d)
	now := time.Date(2025, time.January, 10, 7, 30, 0, 0, time.UTC)

	s.DrawIdle(now, nil)
	assert.Equal(t, 1, d.clears(), "first paint clears the panel")
	assert.True(t, d.has(`"07:30"`))
	assert.True(t, d.has(`"2025-01-10"`))

	// Same minute: nothing to redraw.
	d.reset()
	s.DrawIdle(now.Add(10*time.Second), nil)
	assert.Empty(t, d.calls)

	// Minute rollover repaints only the minute cell.
	d.reset()
	s.DrawIdle(now.Add(time.Minute), nil)
	assert.Equal(t, 0, d.clears())
	assert.True(t, d.has(`"31"`))
	assert.False(t, d.has(`"07:31"`))

	// Midnight rolls hour, minute and date without a full clear.
	d.reset()
	s.DrawIdle(time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, 0, d.clears())
	assert.True(t, d.has(`"00"`))
	assert.True(t, d.has(`"2025-01-11"`))
}

func TestDrawIdleUpcomingTeaser(t *testing.T) {
	d := &recDisplay{}
	s := New(d)
	now := time.Date(2025, time.January, 10, 7, 30, 0, 0, time.UTC)
	next := &store.Reminder{Hour: 9, Minute: 0, Content: "UONG THUOC", Status: store.StatusPending}

	s.DrawIdle(now, next)
	assert.True(t, d.has("KE TIEP 09:00 UONG THUOC"))
}

func TestShowAlarmCoversIdle(t *testing.T) {
	d := &recDisplay{}
	s := New(d)
	now := time.Date(2025, time.January, 10, 7, 30, 0, 0, time.UTC)
	s.DrawIdle(now, nil)
	require.False(t, s.AlarmShown())

	s.ShowAlarm(store.Reminder{Hour: 7, Minute: 30, Content: "UONG THUOC", Date: "2025-01-10"})
	assert.True(t, s.AlarmShown())
	assert.True(t, d.has(`"UONG THUOC"`))

	// Invalidation drops the alarm flag and forces a full repaint.
	s.InvalidateIdle()
	assert.False(t, s.AlarmShown())
	d.reset()
	s.DrawIdle(now, nil)
	assert.Equal(t, 1, d.clears())
}

func TestShowFeedbackIgnoresEmpty(t *testing.T) {
	d := &recDisplay{}
	s := New(d)
	s.ShowFeedback("", ColorGreen)
	assert.Empty(t, d.calls)
	s.ShowFeedback("DA HOAN THANH", ColorGreen)
	assert.True(t, d.has(`"DA HOAN THANH"`))
}

func TestDrawListMarksSelection(t *testing.T) {
	d := &recDisplay{}
	s := New(d)
	items := []store.Reminder{
		{Hour: 7, Minute: 30, Content: "a", Status: store.StatusPending},
		{Hour: 8, Minute: 0, Content: "b", Status: store.StatusRepeat},
	}
	s.DrawList("DANH SACH LICH", items, 1)
	assert.True(t, d.has(`"  07:30 a"`))
	assert.True(t, d.has(`"> 08:00 b"`))
}

func TestDrawPresetListWindows(t *testing.T) {
	d := &recDisplay{}
	s := New(d)
	presets := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}

	s.DrawPresetList("CHON NOI DUNG", presets, 7)
	assert.False(t, d.has(`"  p0"`), "selection past the first page scrolls the window")
	assert.True(t, d.has(`"> p7"`))
}
