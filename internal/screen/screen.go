// Package screen is the rendering boundary of the core: a narrow Display
// contract implemented by the TFT driver (or the simulator), the shared UI
// view state, and the draw helpers used by both the alarm tasks and the
// button controller.
package screen

import (
	"sync"
	"sync/atomic"
	"time"

	"remindbox/internal/store"
	"remindbox/internal/timeutil"
)

// Color is a 16-bit RGB565 value.
type Color uint16

const (
	ColorBlack  Color = 0x0000
	ColorWhite  Color = 0xFFFF
	ColorRed    Color = 0xF800
	ColorGreen  Color = 0x07E0
	ColorBlue   Color = 0x001F
	ColorYellow Color = 0xFFE0
)

// Panel geometry and glyph cell size shared by every renderer.
const (
	Width  = 128
	Height = 160
	FontW  = 7
	FontH  = 13
)

// Display is everything the core needs from the panel driver.
type Display interface {
	DrawText(x, y int, s string, fg, bg Color)
	FillRect(x, y, w, h int, c Color)
	FillScreen(c Color)
}

// View identifies which screen the controller is showing.
type View int32

const (
	ViewIdle View = iota
	ViewMenu
	ViewList
	ViewDetail
	ViewEditPick
	ViewEditMenu
	ViewEditContent
	ViewEditDate
	ViewEditTime
	ViewAddContent
	ViewAddDate
	ViewAddTime
	ViewDelPick
)

// State is the current view, shared between the controller (writer) and
// the alarm tasks (readers).
type State struct {
	v atomic.Int32
}

func (s *State) View() View { return View(s.v.Load()) }
func (s *State) Set(v View) { s.v.Store(int32(v)) }
func (s *State) Idle() bool { return s.View() == ViewIdle }

// StatusColor maps a reminder status to its list color.
func StatusColor(st store.Status) Color {
	switch st {
	case store.StatusPending:
		return ColorRed
	case store.StatusCompleted:
		return ColorGreen
	case store.StatusRepeat:
		return ColorYellow
	}
	return ColorWhite
}

// StatusLabel maps a reminder status to its display label.
func StatusLabel(st store.Status) string {
	switch st {
	case store.StatusPending:
		return "PENDING"
	case store.StatusCompleted:
		return "COMPLETED"
	case store.StatusRepeat:
		return "REPEAT"
	}
	return ""
}

// Screen wraps a Display with the draw helpers and the idle-clock redraw
// cache. Safe for use from multiple goroutines.
type Screen struct {
	mu sync.Mutex
	d  Display

	// idle redraw cache
	shownHour, shownMin    int
	shownY, shownM, shownD int
	idleX, idleY           int
	alarmShown             bool
}

func New(d Display) *Screen {
	return &Screen{
		d:         d,
		shownHour: -1, shownMin: -1,
		shownY: -1, shownM: -1, shownD: -1,
	}
}

func centerX(s string) int {
	x := (Width - len(s)*FontW) / 2
	if x < 0 {
		x = 0
	}
	return x
}

// line converts a text row to a pixel y coordinate.
func line(row int) int { return row * FontH }

// InvalidateIdle forces the next DrawIdle to repaint everything and marks
// the alarm screen as gone.
func (s *Screen) InvalidateIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Screen) invalidateLocked() {
	s.shownHour, s.shownMin = -1, -1
	s.shownY, s.shownM, s.shownD = -1, -1, -1
	s.alarmShown = false
}

// AlarmShown reports whether the alarm screen currently covers the idle
// clock.
func (s *Screen) AlarmShown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarmShown
}

// ShowAlarm paints the full-screen alarm notice for a due reminder.
func (s *Screen) ShowAlarm(r store.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(10, line(1), "NHAC NHO:", ColorGreen, ColorBlack)
	s.d.DrawText(10, line(3), timeutil.FormatTime(r.Hour, r.Minute), ColorWhite, ColorBlack)
	s.d.DrawText(10, line(5), r.Content, ColorWhite, ColorBlack)
	s.d.DrawText(10, line(7), r.Date, ColorYellow, ColorBlack)
	s.shownHour, s.shownMin = -1, -1
	s.shownY, s.shownM, s.shownD = -1, -1, -1
	s.alarmShown = true
}

// ShowFeedback paints a centered transient message.
func (s *Screen) ShowFeedback(msg string, c Color) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(centerX(msg), (Height-FontH)/2, msg, c, ColorBlack)
}

// DrawIdle maintains the idle clock screen: a full paint after an
// invalidation, otherwise only the hour/minute/date cells that changed.
// next, when non-nil, is the upcoming reminder teaser.
func (s *Screen) DrawIdle(now time.Time, next *store.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cy, cm, cd := now.Year(), int(now.Month()), now.Day()
	if s.shownHour == -1 || s.shownMin == -1 || s.shownY == -1 {
		s.d.FillScreen(ColorBlack)
		title := "THOI GIAN HIEN TAI"
		s.d.DrawText(centerX(title), line(1), title, ColorGreen, ColorBlack)
		s.idleX = (Width - 5*FontW) / 2
		s.idleY = (Height-FontH)/2 - 6
		s.d.DrawText(s.idleX, s.idleY, timeutil.FormatTime(now.Hour(), now.Minute()), ColorWhite, ColorBlack)
		date := timeutil.FormatDate(cy, cm, cd)
		s.d.DrawText(centerX(date), s.idleY+FontH+6, date, ColorYellow, ColorBlack)
		s.shownHour, s.shownMin = now.Hour(), now.Minute()
		s.shownY, s.shownM, s.shownD = cy, cm, cd
		s.drawUpcomingLocked(next)
		return
	}
	if now.Hour() != s.shownHour {
		s.d.FillRect(s.idleX, s.idleY, 2*FontW, FontH, ColorBlack)
		s.d.DrawText(s.idleX, s.idleY, twoDigits(now.Hour()), ColorWhite, ColorBlack)
		s.shownHour = now.Hour()
		s.drawUpcomingLocked(next)
	}
	if now.Minute() != s.shownMin {
		mx := s.idleX + 3*FontW
		s.d.FillRect(mx, s.idleY, 2*FontW, FontH, ColorBlack)
		s.d.DrawText(mx, s.idleY, twoDigits(now.Minute()), ColorWhite, ColorBlack)
		s.shownMin = now.Minute()
		s.drawUpcomingLocked(next)
	}
	if cy != s.shownY || cm != s.shownM || cd != s.shownD {
		date := timeutil.FormatDate(cy, cm, cd)
		s.d.FillRect(0, s.idleY+FontH+6, Width, FontH, ColorBlack)
		s.d.DrawText(centerX(date), s.idleY+FontH+6, date, ColorYellow, ColorBlack)
		s.shownY, s.shownM, s.shownD = cy, cm, cd
	}
}

func (s *Screen) drawUpcomingLocked(next *store.Reminder) {
	y := Height - 2*FontH
	s.d.FillRect(0, y, Width, FontH, ColorBlack)
	if next == nil {
		return
	}
	text := "KE TIEP " + timeutil.FormatTime(next.Hour, next.Minute) + " " + next.Content
	if len(text) > Width/FontW {
		text = text[:Width/FontW]
	}
	s.d.DrawText(2, y, text, StatusColor(next.Status), ColorBlack)
}

func twoDigits(v int) string {
	return string([]byte{byte('0' + v/10%10), byte('0' + v%10)})
}

// MenuItems are the four root menu actions.
var MenuItems = []string{"XEM LICH", "SUA LICH", "THEM LICH", "XOA LICH"}

// DrawMenu paints the root menu with the given selection.
func (s *Screen) DrawMenu(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(centerX("MENU"), line(0), "MENU", ColorGreen, ColorBlack)
	for i, item := range MenuItems {
		s.drawPickLineLocked(2+i*2, item, i == index, ColorWhite)
	}
}

// DrawList paints a titled reminder list with the pick cursor.
func (s *Screen) DrawList(title string, items []store.Reminder, pick int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(centerX(title), line(0), title, ColorGreen, ColorBlack)
	for i, r := range items {
		if i >= 10 {
			break
		}
		text := timeutil.FormatTime(r.Hour, r.Minute) + " " + r.Content
		s.drawPickLineLocked(2+i, text, i == pick, StatusColor(r.Status))
	}
}

// DrawDetail paints one reminder in full.
func (s *Screen) DrawDetail(r store.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(centerX("CHI TIET"), line(0), "CHI TIET", ColorGreen, ColorBlack)
	s.d.DrawText(4, line(2), r.Content, ColorWhite, ColorBlack)
	s.d.DrawText(4, line(4), timeutil.FormatTime(r.Hour, r.Minute), ColorWhite, ColorBlack)
	s.d.DrawText(4, line(6), r.Date, ColorYellow, ColorBlack)
	s.d.DrawText(4, line(8), StatusLabel(r.Status), StatusColor(r.Status), ColorBlack)
}

// DrawPresetList paints the content preset picker. A window of six
// entries follows the selection.
func (s *Screen) DrawPresetList(title string, presets []string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(centerX(title), line(0), title, ColorGreen, ColorBlack)
	base := (index / 6) * 6
	for i := 0; i < 6 && base+i < len(presets); i++ {
		s.drawPickLineLocked(2+i, presets[base+i], base+i == index, ColorWhite)
	}
}

// EditMenuItems are the per-reminder edit targets.
var EditMenuItems = []string{"NOI DUNG", "NGAY", "GIO"}

// DrawEditMenu paints the edit submenu.
func (s *Screen) DrawEditMenu(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(centerX("CHINH LICH"), line(0), "CHINH LICH", ColorGreen, ColorBlack)
	for i, item := range EditMenuItems {
		s.drawPickLineLocked(2+i*2, item, i == index, ColorWhite)
	}
}

// DrawDateEditor paints the day/month editor; selRight highlights the
// month field.
func (s *Screen) DrawDateEditor(title string, day, month int, selRight bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(centerX(title), line(0), title, ColorGreen, ColorBlack)
	dayColor, monthColor := ColorYellow, ColorWhite
	if selRight {
		dayColor, monthColor = ColorWhite, ColorYellow
	}
	x := (Width - 5*FontW) / 2
	y := (Height - FontH) / 2
	s.d.DrawText(x, y, twoDigits(day), dayColor, ColorBlack)
	s.d.DrawText(x+2*FontW, y, "/", ColorWhite, ColorBlack)
	s.d.DrawText(x+3*FontW, y, twoDigits(month), monthColor, ColorBlack)
}

// DrawTimeEditor paints the hour/minute editor; selMinute highlights the
// minute field.
func (s *Screen) DrawTimeEditor(title string, hour, minute int, selMinute bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.FillScreen(ColorBlack)
	s.d.DrawText(centerX(title), line(0), title, ColorGreen, ColorBlack)
	hourColor, minColor := ColorYellow, ColorWhite
	if selMinute {
		hourColor, minColor = ColorWhite, ColorYellow
	}
	x := (Width - 5*FontW) / 2
	y := (Height - FontH) / 2
	s.d.DrawText(x, y, twoDigits(hour), hourColor, ColorBlack)
	s.d.DrawText(x+2*FontW, y, ":", ColorWhite, ColorBlack)
	s.d.DrawText(x+3*FontW, y, twoDigits(minute), minColor, ColorBlack)
}

func (s *Screen) drawPickLineLocked(row int, text string, picked bool, c Color) {
	marker := "  "
	if picked {
		marker = "> "
	}
	t := marker + text
	if len(t) > Width/FontW {
		t = t[:Width/FontW]
	}
	s.d.DrawText(2, line(row), t, c, ColorBlack)
}
