// Package ui runs the four-button front panel: the root menu, the list,
// detail, edit, add and delete flows, and the alarm interrupt keys.
package ui

import (
	"context"
	"log/slog"
	"time"

	"remindbox/internal/alarm"
	"remindbox/internal/clock"
	"remindbox/internal/gesture"
	"remindbox/internal/screen"
	"remindbox/internal/store"
	"remindbox/internal/timeutil"
)

// Edges is one scan of the four buttons; true means a fresh press.
type Edges struct {
	OK     bool
	Back   bool
	Next   bool
	Cancel bool
}

func (e Edges) any() bool { return e.OK || e.Back || e.Next || e.Cancel }

// Buttons delivers debounced press edges.
type Buttons interface {
	Scan() Edges
}

// Presets are the selectable reminder labels.
var Presets = []string{
	"BAO THUC", "HOP SANG", "HOP CHIEU", "TAP THE DUC",
	"UONG THUOC", "NHAC HANH LY", "GOI DIEN", "KHOI HANH",
	"DI CHO", "DON TRE", "NHAC LAM VIEC", "NHAC SINH NHAT",
}

const (
	listTitle   = "DANH SACH LICH"
	pickTitle   = "CHON LICH"
	deleteTitle = "XOA LICH"
	presetTitle = "CHON NOI DUNG"

	defaultTick = 20 * time.Millisecond
)

// draft holds the date/time/content being composed in the add and edit
// flows before it is committed to the store.
type draft struct {
	content    string
	day, month int
	hour, min  int
	right      bool // month or minute field selected
}

// Controller owns the front-panel state machine. One goroutine runs it;
// the alarm tasks only share the view state and the session handshake.
type Controller struct {
	btns    Buttons
	store   *store.Store
	session *alarm.Session
	rec     *gesture.Recognizer
	scr     *screen.Screen
	state   *screen.State
	snd     alarm.Sounder
	clk     clock.Clock
	log     *slog.Logger

	SnoozeDelay   time.Duration
	FeedbackPause time.Duration
	Tick          time.Duration

	menuIndex     int
	editMenuIndex int
	presetIndex   int
	editTargetID  int
	d             draft
}

// New wires the controller. snd may be nil.
func New(btns Buttons, st *store.Store, sess *alarm.Session, rec *gesture.Recognizer, scr *screen.Screen, state *screen.State, snd alarm.Sounder, clk clock.Clock, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		btns:          btns,
		store:         st,
		session:       sess,
		rec:           rec,
		scr:           scr,
		state:         state,
		snd:           snd,
		clk:           clk,
		log:           log.With("component", "ui"),
		SnoozeDelay:   alarm.DefaultSnoozeDelay,
		FeedbackPause: 900 * time.Millisecond,
		Tick:          defaultTick,
	}
}

// Run polls the buttons until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		c.Step()
	}
}

// Step handles one button scan. Exposed so tests can drive the state
// machine without the ticker.
func (c *Controller) Step() {
	e := c.btns.Scan()
	if !e.any() {
		return
	}
	switch c.session.Phase() {
	case alarm.PhaseRinging:
		c.handleAlarm(e)
		return
	case alarm.PhaseResolving:
		// Resolution in progress elsewhere; buttons are dead.
		return
	}
	switch c.state.View() {
	case screen.ViewIdle:
		if e.OK {
			c.enterMenu()
		}
	case screen.ViewMenu:
		c.handleMenu(e)
	case screen.ViewList:
		c.handlePick(e, listTitle, c.openDetail, c.enterMenu)
	case screen.ViewDetail:
		c.enterList()
	case screen.ViewEditPick:
		c.handlePick(e, pickTitle, c.openEditMenu, c.enterMenu)
	case screen.ViewEditMenu:
		c.handleEditMenu(e)
	case screen.ViewEditContent:
		c.handlePreset(e, c.commitEditContent, c.openEditMenuAgain)
	case screen.ViewEditDate:
		c.handleDate(e, screen.ViewEditDate, "CHINH NGAY", c.commitEditDate, c.openEditMenuAgain)
	case screen.ViewEditTime:
		c.handleTime(e, screen.ViewEditTime, "CHINH GIO", c.commitEditTime, c.openEditMenuAgain)
	case screen.ViewAddContent:
		c.handlePreset(e, c.beginAddDate, c.enterMenu)
	case screen.ViewAddDate:
		c.handleDate(e, screen.ViewAddDate, "CHON NGAY", c.beginAddTime, c.enterMenu)
	case screen.ViewAddTime:
		c.handleTime(e, screen.ViewAddTime, "CHON GIO", c.commitAdd, c.enterMenu)
	case screen.ViewDelPick:
		c.handleDelete(e)
	}
}

// handleAlarm is the interrupt path while an alarm rings. Cancel
// dismisses it (snoozing a repeating reminder), OK dismisses it and
// opens the menu. The resolution is raced against the gesture resolver.
func (c *Controller) handleAlarm(e Edges) {
	switch {
	case e.Cancel:
		if !c.session.TryResolve() {
			return
		}
		c.silence()
		idx, _ := c.session.Current()
		if r, err := c.store.Get(idx); err == nil && r.Status == store.StatusRepeat {
			c.session.ArmSnooze(idx, c.clk.Now().Add(c.SnoozeDelay))
			c.log.Info("alarm cancelled, repeat snoozed", "id", r.ID)
			c.scr.ShowFeedback(alarm.FeedbackSnoozed, screen.ColorYellow)
			c.pause()
		} else {
			c.session.ClearSnooze()
			c.log.Info("alarm cancelled", "index", idx)
		}
		c.enterIdle()
		c.session.Finish()

	case e.OK:
		if !c.session.TryResolve() {
			return
		}
		c.silence()
		c.log.Info("alarm dismissed to menu")
		c.session.Finish()
		c.enterMenu()
	}
}

func (c *Controller) silence() {
	if c.snd != nil {
		c.snd.SetBuzzer(false)
	}
	c.rec.Disable()
}

func (c *Controller) pause() {
	if c.FeedbackPause > 0 {
		time.Sleep(c.FeedbackPause)
	}
}

func (c *Controller) enterIdle() {
	c.scr.InvalidateIdle()
	c.state.Set(screen.ViewIdle)
}

func (c *Controller) enterMenu() {
	c.menuIndex = 0
	c.state.Set(screen.ViewMenu)
	c.scr.DrawMenu(c.menuIndex)
}

func (c *Controller) handleMenu(e Edges) {
	switch {
	case e.Next:
		c.menuIndex = (c.menuIndex + 1) % len(screen.MenuItems)
		c.scr.DrawMenu(c.menuIndex)
	case e.Back:
		c.menuIndex = (c.menuIndex + len(screen.MenuItems) - 1) % len(screen.MenuItems)
		c.scr.DrawMenu(c.menuIndex)
	case e.Cancel:
		c.enterIdle()
	case e.OK:
		switch c.menuIndex {
		case 0:
			c.state.Set(screen.ViewList)
			c.drawList(listTitle)
		case 1:
			c.state.Set(screen.ViewEditPick)
			c.drawList(pickTitle)
		case 2:
			if c.store.Len() >= store.MaxReminders {
				c.scr.ShowFeedback("DANH SACH DAY", screen.ColorRed)
				c.pause()
				c.scr.DrawMenu(c.menuIndex)
				return
			}
			c.presetIndex = 0
			c.state.Set(screen.ViewAddContent)
			c.scr.DrawPresetList(presetTitle, Presets, 0)
		case 3:
			c.state.Set(screen.ViewDelPick)
			c.drawList(deleteTitle)
		}
	}
}

func (c *Controller) drawList(title string) {
	c.scr.DrawList(title, c.store.Snapshot(), c.store.PickIndex())
}

func (c *Controller) enterList() {
	c.state.Set(screen.ViewList)
	c.drawList(listTitle)
}

// handlePick navigates a reminder list; ok fires on the selected entry.
func (c *Controller) handlePick(e Edges, title string, ok func(), cancel func()) {
	n := c.store.Len()
	switch {
	case e.Next:
		if n > 0 {
			c.store.SetPickIndex((c.store.PickIndex() + 1) % n)
		}
		c.drawList(title)
	case e.Back:
		if n > 0 {
			c.store.SetPickIndex((c.store.PickIndex() + n - 1) % n)
		}
		c.drawList(title)
	case e.Cancel:
		cancel()
	case e.OK:
		if n > 0 {
			ok()
		}
	}
}

func (c *Controller) openDetail() {
	r, err := c.store.Get(c.store.PickIndex())
	if err != nil {
		return
	}
	c.state.Set(screen.ViewDetail)
	c.scr.DrawDetail(r)
}

func (c *Controller) openEditMenu() {
	r, err := c.store.Get(c.store.PickIndex())
	if err != nil {
		return
	}
	c.editTargetID = r.ID
	c.editMenuIndex = 0
	c.state.Set(screen.ViewEditMenu)
	c.scr.DrawEditMenu(0)
}

func (c *Controller) openEditMenuAgain() {
	c.state.Set(screen.ViewEditMenu)
	c.scr.DrawEditMenu(c.editMenuIndex)
}

func (c *Controller) handleEditMenu(e Edges) {
	switch {
	case e.Next:
		c.editMenuIndex = (c.editMenuIndex + 1) % len(screen.EditMenuItems)
		c.scr.DrawEditMenu(c.editMenuIndex)
	case e.Back:
		c.editMenuIndex = (c.editMenuIndex + len(screen.EditMenuItems) - 1) % len(screen.EditMenuItems)
		c.scr.DrawEditMenu(c.editMenuIndex)
	case e.Cancel:
		c.state.Set(screen.ViewEditPick)
		c.drawList(pickTitle)
	case e.OK:
		r, err := c.store.GetByID(c.editTargetID)
		if err != nil {
			c.openEditMenuAgain()
			return
		}
		switch c.editMenuIndex {
		case 0:
			c.presetIndex = presetIndexOf(r.Content)
			c.state.Set(screen.ViewEditContent)
			c.scr.DrawPresetList(presetTitle, Presets, c.presetIndex)
		case 1:
			c.d.day, c.d.month = dayMonthOf(r.Date, c.clk.Now())
			c.d.right = false
			c.state.Set(screen.ViewEditDate)
			c.scr.DrawDateEditor("CHINH NGAY", c.d.day, c.d.month, false)
		case 2:
			c.d.hour, c.d.min = r.Hour, r.Minute
			c.d.right = false
			c.state.Set(screen.ViewEditTime)
			c.scr.DrawTimeEditor("CHINH GIO", c.d.hour, c.d.min, false)
		}
	}
}

func presetIndexOf(content string) int {
	for i, p := range Presets {
		if p == content {
			return i
		}
	}
	return 0
}

func dayMonthOf(date string, now time.Time) (int, int) {
	if _, m, d, err := timeutil.ParseDate(date); err == nil {
		return d, m
	}
	return now.Day(), int(now.Month())
}

// handlePreset navigates the content preset list.
func (c *Controller) handlePreset(e Edges, ok func(), cancel func()) {
	switch {
	case e.Next:
		c.presetIndex = (c.presetIndex + 1) % len(Presets)
		c.scr.DrawPresetList(presetTitle, Presets, c.presetIndex)
	case e.Back:
		c.presetIndex = (c.presetIndex + len(Presets) - 1) % len(Presets)
		c.scr.DrawPresetList(presetTitle, Presets, c.presetIndex)
	case e.Cancel:
		cancel()
	case e.OK:
		ok()
	}
}

// handleDate adjusts the day field, then the month field; the second OK
// commits. Next and Back step the selected field with wrap-around.
func (c *Controller) handleDate(e Edges, v screen.View, title string, commit func(), cancel func()) {
	year := c.clk.Now().Year()
	switch {
	case e.Next:
		if c.d.right {
			c.d.month++
		} else {
			c.d.day++
		}
	case e.Back:
		if c.d.right {
			c.d.month--
		} else {
			c.d.day--
		}
	case e.Cancel:
		cancel()
		return
	case e.OK:
		if !c.d.right {
			c.d.right = true
		} else {
			timeutil.ClampDayMonth(&c.d.day, &c.d.month, year)
			commit()
			return
		}
	}
	timeutil.ClampDayMonth(&c.d.day, &c.d.month, year)
	c.state.Set(v)
	c.scr.DrawDateEditor(title, c.d.day, c.d.month, c.d.right)
}

// handleTime mirrors handleDate for the hour and minute fields.
func (c *Controller) handleTime(e Edges, v screen.View, title string, commit func(), cancel func()) {
	switch {
	case e.Next:
		if c.d.right {
			c.d.min++
		} else {
			c.d.hour++
		}
	case e.Back:
		if c.d.right {
			c.d.min--
		} else {
			c.d.hour--
		}
	case e.Cancel:
		cancel()
		return
	case e.OK:
		if !c.d.right {
			c.d.right = true
		} else {
			timeutil.ClampClock(&c.d.hour, &c.d.min)
			commit()
			return
		}
	}
	timeutil.ClampClock(&c.d.hour, &c.d.min)
	c.state.Set(v)
	c.scr.DrawTimeEditor(title, c.d.hour, c.d.min, c.d.right)
}

func (c *Controller) commitEditContent() {
	content := Presets[c.presetIndex]
	if err := c.store.Update(c.editTargetID, store.Patch{Content: &content}); err != nil {
		c.log.Error("edit content", "id", c.editTargetID, "err", err)
	}
	c.saveQuiet()
	c.openEditMenuAgain()
}

func (c *Controller) commitEditDate() {
	date := timeutil.FormatDate(c.clk.Now().Year(), c.d.month, c.d.day)
	if err := c.store.Update(c.editTargetID, store.Patch{Date: &date}); err != nil {
		c.log.Error("edit date", "id", c.editTargetID, "err", err)
	}
	c.saveQuiet()
	c.openEditMenuAgain()
}

func (c *Controller) commitEditTime() {
	hour, minute := c.d.hour, c.d.min
	if err := c.store.Update(c.editTargetID, store.Patch{Hour: &hour, Minute: &minute}); err != nil {
		c.log.Error("edit time", "id", c.editTargetID, "err", err)
	}
	c.saveQuiet()
	c.openEditMenuAgain()
}

func (c *Controller) beginAddDate() {
	now := c.clk.Now()
	c.d.content = Presets[c.presetIndex]
	c.d.day, c.d.month = now.Day(), int(now.Month())
	c.d.right = false
	c.state.Set(screen.ViewAddDate)
	c.scr.DrawDateEditor("CHON NGAY", c.d.day, c.d.month, false)
}

func (c *Controller) beginAddTime() {
	now := c.clk.Now()
	c.d.hour, c.d.min = now.Hour(), now.Minute()
	c.d.right = false
	c.state.Set(screen.ViewAddTime)
	c.scr.DrawTimeEditor("CHON GIO", c.d.hour, c.d.min, false)
}

func (c *Controller) commitAdd() {
	date := timeutil.FormatDate(c.clk.Now().Year(), c.d.month, c.d.day)
	id, err := c.store.Add(date, c.d.hour, c.d.min, c.d.content, store.StatusPending)
	if err != nil {
		c.log.Error("add reminder", "err", err)
		c.scr.ShowFeedback("DANH SACH DAY", screen.ColorRed)
		c.pause()
		c.enterMenu()
		return
	}
	c.saveQuiet()
	c.log.Info("reminder added from panel", "id", id)
	c.scr.ShowFeedback("DA THEM LICH", screen.ColorGreen)
	c.pause()
	c.enterIdle()
}

func (c *Controller) handleDelete(e Edges) {
	c.handlePick(e, deleteTitle, func() {
		idx := c.store.PickIndex()
		if err := c.store.DeleteAt(idx); err != nil {
			c.log.Error("delete reminder", "index", idx, "err", err)
		}
		c.saveQuiet()
		if c.store.Len() == 0 {
			c.enterMenu()
			return
		}
		c.drawList(deleteTitle)
	}, c.enterMenu)
}

func (c *Controller) saveQuiet() {
	if err := c.store.Save(); err != nil {
		c.log.Error("save", "err", err)
	}
}
