// Package store owns the canonical reminder list. All access goes through
// one store-wide lock with timeout-bounded acquisition; callers treat a
// lock timeout as "operation abandoned this call" and decide themselves
// whether to retry.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"remindbox/internal/timeutil"
)

// MaxReminders is the fixed capacity of the live set.
const MaxReminders = 16

// MaxContentLen bounds the human-readable label, in bytes.
const MaxContentLen = 63

// Status is the lifecycle state of a reminder.
type Status string

const (
	// StatusPending marks a reminder that has not triggered yet.
	StatusPending Status = "pending"
	// StatusCompleted marks a reminder that will never fire again.
	StatusCompleted Status = "completed"
	// StatusRepeat marks a reminder that re-fires daily at its stored
	// time; the date field is irrelevant while in this state.
	StatusRepeat Status = "repeat"
)

// Valid reports whether s is one of the three recognized statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted || s == StatusRepeat
}

// Reminder is a single scheduled entry.
type Reminder struct {
	ID      int
	Date    string // "YYYY-MM-DD"
	Hour    int
	Minute  int
	Content string
	Status  Status
}

var (
	ErrStoreFull     = errors.New("reminder list is full")
	ErrNotFound      = errors.New("reminder not found")
	ErrOutOfRange    = errors.New("index out of range")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidField  = errors.New("invalid field")
	ErrLockTimeout   = errors.New("store lock not acquired in time")
)

// Notifier receives best-effort change events. Failures must be handled by
// the implementation; the store never blocks on them.
type Notifier interface {
	Publish(topic string, payload []byte)
}

// Persistence is the durable snapshot collaborator. LoadAll returns an
// empty set and nextID 1 when no prior data exists.
type Persistence interface {
	SaveAll(reminders []Reminder, nextID int) error
	LoadAll() ([]Reminder, int, error)
}

// DefaultLockWait bounds how long an operation waits for the store lock.
const DefaultLockWait = time.Second

// Store holds up to MaxReminders live entries in a contiguous prefix of a
// fixed backing array.
type Store struct {
	lock     chan struct{}
	lockWait time.Duration

	reminders [MaxReminders]Reminder
	count     int
	nextID    int
	pickIndex int

	persist  Persistence
	notifier Notifier
	log      *slog.Logger
}

// New builds an empty store. persist and notifier may be nil; a nil
// notifier silently drops change events.
func New(persist Persistence, notifier Notifier, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		lock:     make(chan struct{}, 1),
		lockWait: DefaultLockWait,
		nextID:   1,
		persist:  persist,
		notifier: notifier,
		log:      log.With("component", "store"),
	}
}

// SetLockWait overrides the lock acquisition bound. Intended for tests.
func (s *Store) SetLockWait(d time.Duration) { s.lockWait = d }

// SetNotifier installs the change-event sink. Call during wiring, before
// any operation runs.
func (s *Store) SetNotifier(n Notifier) { s.notifier = n }

func (s *Store) acquire() error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-time.After(s.lockWait):
		s.log.Error("lock timeout", "wait", s.lockWait)
		return ErrLockTimeout
	}
}

func (s *Store) release() { <-s.lock }

// changeEvent is the wire shape mirrored to the sync collaborator.
type changeEvent struct {
	ID      int    `json:"id"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
	Content string `json:"content,omitempty"`
	Status  string `json:"status,omitempty"`
}

func (s *Store) notify(topic string, ev changeEvent) {
	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("encode change event", "topic", topic, "err", err)
		return
	}
	s.notifier.Publish(topic, payload)
}

func validateFields(date string, hour, minute int, content string, status Status) error {
	if !timeutil.ValidDate(date) {
		return fmt.Errorf("%w: date %q", ErrInvalidField, date)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: time %02d:%02d", ErrInvalidField, hour, minute)
	}
	if len(content) > MaxContentLen {
		return fmt.Errorf("%w: content too long (%d bytes)", ErrInvalidField, len(content))
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return nil
}

// Add appends a new reminder and returns its assigned id.
func (s *Store) Add(date string, hour, minute int, content string, status Status) (int, error) {
	if err := validateFields(date, hour, minute, content, status); err != nil {
		return 0, err
	}
	if err := s.acquire(); err != nil {
		return 0, err
	}
	id, err := s.addLocked(0, date, hour, minute, content, status)
	s.release()
	if err != nil {
		return 0, err
	}
	s.log.Info("reminder added", "id", id, "date", date,
		"time", timeutil.FormatTime(hour, minute), "content", content, "status", status)
	s.notify("add", changeEvent{
		ID: id, Date: date, Time: timeutil.FormatTime(hour, minute),
		Content: content, Status: string(status),
	})
	return id, nil
}

// MergeAdd applies an inbound sync add without re-notifying. id <= 0 asks
// the store to assign the next id. An id already present overwrites that
// reminder in place, keeping ids unique when a remote add is replayed.
func (s *Store) MergeAdd(id int, date string, hour, minute int, content string, status Status) (int, error) {
	if err := validateFields(date, hour, minute, content, status); err != nil {
		return 0, err
	}
	if err := s.acquire(); err != nil {
		return 0, err
	}
	if id > 0 {
		if i := s.indexOfLocked(id); i >= 0 {
			s.reminders[i] = Reminder{
				ID: id, Date: date, Hour: hour, Minute: minute,
				Content: content, Status: status,
			}
			s.release()
			s.log.Info("reminder merged in place", "id", id)
			return id, nil
		}
	}
	got, err := s.addLocked(id, date, hour, minute, content, status)
	s.release()
	if err == nil {
		s.log.Info("reminder merged", "id", got)
	}
	return got, err
}

func (s *Store) addLocked(id int, date string, hour, minute int, content string, status Status) (int, error) {
	if s.count >= MaxReminders {
		s.log.Error("add rejected, list full")
		return 0, ErrStoreFull
	}
	if id <= 0 {
		id = s.nextID
	}
	s.reminders[s.count] = Reminder{
		ID: id, Date: date, Hour: hour, Minute: minute,
		Content: content, Status: status,
	}
	s.count++
	s.recomputeNextIDLocked()
	return id, nil
}

// Patch carries optional update fields; nil members leave the stored
// record untouched.
type Patch struct {
	Date    *string
	Hour    *int
	Minute  *int
	Content *string
	Status  *Status
}

func (p Patch) validate() error {
	if p.Date != nil && !timeutil.ValidDate(*p.Date) {
		return fmt.Errorf("%w: date %q", ErrInvalidField, *p.Date)
	}
	if p.Hour != nil && (*p.Hour < 0 || *p.Hour > 23) {
		return fmt.Errorf("%w: hour %d", ErrInvalidField, *p.Hour)
	}
	if p.Minute != nil && (*p.Minute < 0 || *p.Minute > 59) {
		return fmt.Errorf("%w: minute %d", ErrInvalidField, *p.Minute)
	}
	if p.Content != nil && len(*p.Content) > MaxContentLen {
		return fmt.Errorf("%w: content too long", ErrInvalidField)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}
	return nil
}

// Update applies the non-nil fields of p to the reminder with the given
// id. An empty patch succeeds and changes nothing.
func (s *Store) Update(id int, p Patch) error {
	return s.update(id, p, true)
}

// MergeUpdate applies an inbound sync update without re-notifying.
func (s *Store) MergeUpdate(id int, p Patch) error {
	return s.update(id, p, false)
}

func (s *Store) update(id int, p Patch, broadcast bool) error {
	if err := p.validate(); err != nil {
		return err
	}
	if err := s.acquire(); err != nil {
		return err
	}
	i := s.indexOfLocked(id)
	if i < 0 {
		s.release()
		s.log.Error("update: reminder not found", "id", id)
		return ErrNotFound
	}
	r := &s.reminders[i]
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Hour != nil {
		r.Hour = *p.Hour
	}
	if p.Minute != nil {
		r.Minute = *p.Minute
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	ev := changeEvent{
		ID: id, Date: r.Date, Time: timeutil.FormatTime(r.Hour, r.Minute),
		Content: r.Content, Status: string(r.Status),
	}
	s.release()
	s.log.Info("reminder updated", "id", id)
	if broadcast {
		s.notify("update", ev)
	}
	return nil
}

// SetStatus validates and sets the status of the reminder with the given id.
func (s *Store) SetStatus(id int, status Status) error {
	if !status.Valid() {
		s.log.Error("invalid status", "status", status)
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.acquire(); err != nil {
		return err
	}
	i := s.indexOfLocked(id)
	if i < 0 {
		s.release()
		s.log.Error("set status: reminder not found", "id", id)
		return ErrNotFound
	}
	s.reminders[i].Status = status
	s.release()
	s.log.Info("reminder status", "id", id, "status", status)
	s.notify("status", changeEvent{ID: id, Status: string(status)})
	return nil
}

// DeleteAt removes the reminder at index idx, shifting later entries left
// and clamping the pick index back into range.
func (s *Store) DeleteAt(idx int) error {
	if err := s.acquire(); err != nil {
		return err
	}
	id, err := s.deleteLocked(idx)
	s.release()
	if err != nil {
		return err
	}
	s.log.Info("reminder deleted", "id", id, "index", idx)
	s.notify("delete", changeEvent{ID: id})
	return nil
}

// MergeDelete removes the reminder with the given id without re-notifying.
func (s *Store) MergeDelete(id int) error {
	if err := s.acquire(); err != nil {
		return err
	}
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.release()
		s.log.Error("merge delete: reminder not found", "id", id)
		return ErrNotFound
	}
	_, err := s.deleteLocked(idx)
	s.release()
	if err == nil {
		s.log.Info("reminder merge-deleted", "id", id)
	}
	return err
}

func (s *Store) deleteLocked(idx int) (int, error) {
	if idx < 0 || idx >= s.count {
		s.log.Error("delete: index out of range", "index", idx)
		return 0, ErrOutOfRange
	}
	id := s.reminders[idx].ID
	copy(s.reminders[idx:], s.reminders[idx+1:s.count])
	s.reminders[s.count-1] = Reminder{}
	s.count--
	if s.pickIndex >= s.count {
		s.pickIndex = max(s.count-1, 0)
	}
	s.recomputeNextIDLocked()
	return id, nil
}

func (s *Store) indexOfLocked(id int) int {
	for i := 0; i < s.count; i++ {
		if s.reminders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) recomputeNextIDLocked() {
	maxID := 0
	for i := 0; i < s.count; i++ {
		if s.reminders[i].ID > maxID {
			maxID = s.reminders[i].ID
		}
	}
	if maxID > 0 {
		s.nextID = maxID + 1
	} else {
		s.nextID = 1
	}
}

// Recalc rebuilds count and the id counter by scanning the whole backing
// array for occupied slots. Used defensively after a bulk load.
func (s *Store) Recalc() error {
	if err := s.acquire(); err != nil {
		return err
	}
	count, maxID := 0, 0
	for i := range s.reminders {
		r := &s.reminders[i]
		if r.ID > 0 || r.Content != "" || r.Date != "" {
			count++
			if r.ID > maxID {
				maxID = r.ID
			}
		}
	}
	s.count = count
	if maxID > 0 {
		s.nextID = maxID + 1
	} else {
		s.nextID = 1
	}
	s.release()
	return nil
}

// Save pushes the whole live set plus the id counter to the persistence
// collaborator. A failed save leaves the in-memory store authoritative.
func (s *Store) Save() error {
	if s.persist == nil {
		return nil
	}
	if err := s.acquire(); err != nil {
		return err
	}
	live := make([]Reminder, s.count)
	copy(live, s.reminders[:s.count])
	nextID := s.nextID
	s.release()
	if err := s.persist.SaveAll(live, nextID); err != nil {
		s.log.Error("save failed", "err", err)
		return fmt.Errorf("save reminders: %w", err)
	}
	s.log.Info("reminders saved", "count", len(live))
	return nil
}

// Load replaces the live set with the persisted snapshot, then recomputes
// the structural counters. Absence of prior data yields an empty store.
func (s *Store) Load() error {
	if s.persist == nil {
		return nil
	}
	loaded, nextID, err := s.persist.LoadAll()
	if err != nil {
		s.log.Error("load failed", "err", err)
		return fmt.Errorf("load reminders: %w", err)
	}
	if err := s.acquire(); err != nil {
		return err
	}
	if len(loaded) > MaxReminders {
		loaded = loaded[:MaxReminders]
	}
	s.reminders = [MaxReminders]Reminder{}
	copy(s.reminders[:], loaded)
	s.count = len(loaded)
	s.nextID = nextID
	// Correct structural drift in the snapshot.
	count, maxID := 0, 0
	for i := range s.reminders {
		r := &s.reminders[i]
		if r.ID > 0 || r.Content != "" || r.Date != "" {
			count++
			if r.ID > maxID {
				maxID = r.ID
			}
		}
	}
	s.count = count
	if maxID > 0 {
		s.nextID = maxID + 1
	} else {
		s.nextID = 1
	}
	s.release()
	s.log.Info("reminders loaded", "count", s.count)
	return nil
}

// FindDue returns a copy of the first reminder, in store order, that is
// due at the given date and minute: daily repeats match on time alone,
// everything else must also match today's date.
func (s *Store) FindDue(today string, hour, minute int) (Reminder, int, bool) {
	if err := s.acquire(); err != nil {
		return Reminder{}, 0, false
	}
	defer s.release()
	for i := 0; i < s.count; i++ {
		r := &s.reminders[i]
		if (r.Status == StatusRepeat || r.Date == today) &&
			r.Hour == hour && r.Minute == minute {
			return *r, i, true
		}
	}
	return Reminder{}, 0, false
}

// Get returns a copy of the reminder at index idx.
func (s *Store) Get(idx int) (Reminder, error) {
	if err := s.acquire(); err != nil {
		return Reminder{}, err
	}
	defer s.release()
	if idx < 0 || idx >= s.count {
		return Reminder{}, ErrOutOfRange
	}
	return s.reminders[idx], nil
}

// GetByID returns a copy of the reminder with the given id.
func (s *Store) GetByID(id int) (Reminder, error) {
	if err := s.acquire(); err != nil {
		return Reminder{}, err
	}
	defer s.release()
	if i := s.indexOfLocked(id); i >= 0 {
		return s.reminders[i], nil
	}
	return Reminder{}, ErrNotFound
}

// Snapshot returns a copy of the live set.
func (s *Store) Snapshot() []Reminder {
	if err := s.acquire(); err != nil {
		return nil
	}
	defer s.release()
	out := make([]Reminder, s.count)
	copy(out, s.reminders[:s.count])
	return out
}

// Len returns the number of live reminders.
func (s *Store) Len() int {
	if err := s.acquire(); err != nil {
		return 0
	}
	defer s.release()
	return s.count
}

// NextID exposes the id counter, mainly for tests and diagnostics.
func (s *Store) NextID() int {
	if err := s.acquire(); err != nil {
		return 0
	}
	defer s.release()
	return s.nextID
}

// PickIndex returns the UI selection cursor owned by the store, kept here
// so deletions can clamp it atomically with the shift.
func (s *Store) PickIndex() int {
	if err := s.acquire(); err != nil {
		return 0
	}
	defer s.release()
	return s.pickIndex
}

// SetPickIndex moves the UI selection cursor, clamped to the live range.
func (s *Store) SetPickIndex(i int) {
	if err := s.acquire(); err != nil {
		return
	}
	defer s.release()
	if i < 0 || s.count == 0 {
		i = 0
	} else if i >= s.count {
		i = s.count - 1
	}
	s.pickIndex = i
}
