package store

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures published change events.
type recordingNotifier struct {
	mu     sync.Mutex
	topics []string
	events []map[string]any
}

func (n *recordingNotifier) Publish(topic string, payload []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
	var ev map[string]any
	json.Unmarshal(payload, &ev)
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.topics)
}

// memPersist is an in-memory Persistence for save/load tests.
type memPersist struct {
	reminders []Reminder
	nextID    int
	saves     int
}

func (p *memPersist) SaveAll(reminders []Reminder, nextID int) error {
	p.reminders = append([]Reminder(nil), reminders...)
	p.nextID = nextID
	p.saves++
	return nil
}

func (p *memPersist) LoadAll() ([]Reminder, int, error) {
	if p.nextID == 0 {
		return nil, 1, nil
	}
	return p.reminders, p.nextID, nil
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := New(nil, nil, nil)

	id, err := s.Add("2025-01-10", 7, 30, "UONG THUOC", StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, s.NextID())

	id, err = s.Add("2025-01-11", 8, 0, "HOP SANG", StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Equal(t, 3, s.NextID())
}

func TestAddValidation(t *testing.T) {
	s := New(nil, nil, nil)

	_, err := s.Add("2025-13-01", 7, 0, "x", StatusPending)
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = s.Add("2025-01-10", 24, 0, "x", StatusPending)
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = s.Add("2025-01-10", 7, 0, "x", Status("bogus"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	long := make([]byte, MaxContentLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = s.Add("2025-01-10", 7, 0, string(long), StatusPending)
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.Equal(t, 0, s.Len())
}

func TestAddFullList(t *testing.T) {
	s := New(nil, nil, nil)
	for i := 0; i < MaxReminders; i++ {
		_, err := s.Add("2025-01-10", i%24, 0, "x", StatusPending)
		require.NoError(t, err)
	}
	_, err := s.Add("2025-01-10", 7, 0, "overflow", StatusPending)
	assert.ErrorIs(t, err, ErrStoreFull)
	assert.Equal(t, MaxReminders, s.Len())
}

func TestDeleteShiftsAndClampsPick(t *testing.T) {
	s := New(nil, nil, nil)
	for i := 0; i < 3; i++ {
		_, err := s.Add("2025-01-10", i, 0, "x", StatusPending)
		require.NoError(t, err)
	}
	s.SetPickIndex(2)

	require.NoError(t, s.DeleteAt(2))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.PickIndex())

	// The survivors keep their order and ids stay unique.
	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 1, snap[0].ID)
	assert.Equal(t, 2, snap[1].ID)

	require.NoError(t, s.DeleteAt(0))
	require.NoError(t, s.DeleteAt(0))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.PickIndex())
	assert.Equal(t, 1, s.NextID())
}

func TestDeleteOutOfRange(t *testing.T) {
	s := New(nil, nil, nil)
	assert.ErrorIs(t, s.DeleteAt(0), ErrOutOfRange)
	assert.ErrorIs(t, s.DeleteAt(-1), ErrOutOfRange)
}

func TestNextIDFollowsMaxAfterMerge(t *testing.T) {
	s := New(nil, nil, nil)
	_, err := s.MergeAdd(7, "2025-01-10", 7, 0, "x", StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 8, s.NextID())

	id, err := s.MergeAdd(-1, "2025-01-10", 8, 0, "y", StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 8, id)
	assert.Equal(t, 9, s.NextID())
}

func TestMergeAddExistingIDOverwritesInPlace(t *testing.T) {
	s := New(nil, nil, nil)
	_, err := s.MergeAdd(3, "2025-01-10", 7, 30, "x", StatusPending)
	require.NoError(t, err)

	// A replayed remote add with the same id must not create a twin.
	id, err := s.MergeAdd(3, "2025-01-11", 9, 0, "y", StatusRepeat)
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.Equal(t, 1, s.Len())

	r, err := s.GetByID(3)
	require.NoError(t, err)
	assert.Equal(t, "y", r.Content)
	assert.Equal(t, "2025-01-11", r.Date)
	assert.Equal(t, 9, r.Hour)
	assert.Equal(t, StatusRepeat, r.Status)
	assert.Equal(t, 4, s.NextID())
}

func TestUpdateEmptyPatchIsIdempotent(t *testing.T) {
	s := New(nil, nil, nil)
	id, err := s.Add("2025-01-10", 7, 30, "UONG THUOC", StatusPending)
	require.NoError(t, err)

	require.NoError(t, s.Update(id, Patch{}))
	r, err := s.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "UONG THUOC", r.Content)
	assert.Equal(t, 7, r.Hour)
	assert.Equal(t, StatusPending, r.Status)
}

func TestUpdateFields(t *testing.T) {
	s := New(nil, nil, nil)
	id, err := s.Add("2025-01-10", 7, 30, "UONG THUOC", StatusPending)
	require.NoError(t, err)

	hour, minute := 9, 15
	st := StatusRepeat
	require.NoError(t, s.Update(id, Patch{Hour: &hour, Minute: &minute, Status: &st}))

	r, err := s.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, 9, r.Hour)
	assert.Equal(t, 15, r.Minute)
	assert.Equal(t, StatusRepeat, r.Status)
	assert.Equal(t, "2025-01-10", r.Date)

	assert.ErrorIs(t, s.Update(99, Patch{Hour: &hour}), ErrNotFound)

	bad := 60
	assert.ErrorIs(t, s.Update(id, Patch{Minute: &bad}), ErrInvalidField)
}

func TestSetStatus(t *testing.T) {
	s := New(nil, nil, nil)
	id, err := s.Add("2025-01-10", 7, 30, "x", StatusPending)
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(id, StatusCompleted))
	r, _ := s.GetByID(id)
	assert.Equal(t, StatusCompleted, r.Status)

	assert.ErrorIs(t, s.SetStatus(id, Status("nah")), ErrInvalidStatus)
	assert.ErrorIs(t, s.SetStatus(42, StatusPending), ErrNotFound)
}

func TestFindDue(t *testing.T) {
	s := New(nil, nil, nil)
	_, err := s.Add("2025-01-10", 7, 30, "today", StatusPending)
	require.NoError(t, err)
	_, err = s.Add("2025-01-11", 7, 30, "tomorrow", StatusPending)
	require.NoError(t, err)
	_, err = s.Add("2000-01-01", 9, 0, "daily", StatusRepeat)
	require.NoError(t, err)

	r, idx, ok := s.FindDue("2025-01-10", 7, 30)
	require.True(t, ok)
	assert.Equal(t, "today", r.Content)
	assert.Equal(t, 0, idx)

	// Repeats match on time regardless of date.
	r, _, ok = s.FindDue("2025-01-10", 9, 0)
	require.True(t, ok)
	assert.Equal(t, "daily", r.Content)

	_, _, ok = s.FindDue("2025-01-10", 7, 31)
	assert.False(t, ok)
}

func TestNotifierEvents(t *testing.T) {
	n := &recordingNotifier{}
	s := New(nil, n, nil)

	id, err := s.Add("2025-01-10", 7, 30, "UONG THUOC", StatusPending)
	require.NoError(t, err)
	require.NoError(t, s.SetStatus(id, StatusCompleted))
	require.NoError(t, s.DeleteAt(0))

	assert.Equal(t, []string{"add", "status", "delete"}, n.topics)
	assert.Equal(t, "UONG THUOC", n.events[0]["content"])
	assert.Equal(t, "07:30", n.events[0]["time"])
	assert.Equal(t, "completed", n.events[1]["status"])
}

func TestMergeOpsAreQuiet(t *testing.T) {
	n := &recordingNotifier{}
	s := New(nil, n, nil)

	id, err := s.MergeAdd(-1, "2025-01-10", 7, 30, "x", StatusPending)
	require.NoError(t, err)
	st := StatusRepeat
	require.NoError(t, s.MergeUpdate(id, Patch{Status: &st}))
	require.NoError(t, s.MergeDelete(id))

	assert.Equal(t, 0, n.count())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := &memPersist{}
	s := New(p, nil, nil)
	_, err := s.Add("2025-01-10", 7, 30, "UONG THUOC", StatusPending)
	require.NoError(t, err)
	_, err = s.Add("2000-01-01", 9, 0, "daily", StatusRepeat)
	require.NoError(t, err)
	require.NoError(t, s.Save())

	s2 := New(p, nil, nil)
	require.NoError(t, s2.Load())
	assert.Equal(t, 2, s2.Len())
	assert.Equal(t, 3, s2.NextID())
	r, err := s2.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "daily", r.Content)
	assert.Equal(t, StatusRepeat, r.Status)
}

func TestLoadCorrectsCounterDrift(t *testing.T) {
	p := &memPersist{
		reminders: []Reminder{{ID: 5, Date: "2025-01-10", Hour: 7, Content: "x", Status: StatusPending}},
		nextID:    2, // stale, below max id
	}
	s := New(p, nil, nil)
	require.NoError(t, s.Load())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 6, s.NextID())
}

func TestRecalc(t *testing.T) {
	s := New(nil, nil, nil)
	_, err := s.Add("2025-01-10", 7, 30, "x", StatusPending)
	require.NoError(t, err)
	require.NoError(t, s.Recalc())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, s.NextID())
}

func TestSetPickIndexClamps(t *testing.T) {
	s := New(nil, nil, nil)
	s.SetPickIndex(5)
	assert.Equal(t, 0, s.PickIndex())

	_, err := s.Add("2025-01-10", 7, 30, "x", StatusPending)
	require.NoError(t, err)
	_, err = s.Add("2025-01-10", 8, 30, "y", StatusPending)
	require.NoError(t, err)

	s.SetPickIndex(5)
	assert.Equal(t, 1, s.PickIndex())
	s.SetPickIndex(-1)
	assert.Equal(t, 0, s.PickIndex())
}

func TestConcurrentAddsStayConsistent(t *testing.T) {
	s := New(nil, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < MaxReminders; i++ {
		wg.Add(1)
		go func(h int) {
			defer wg.Done()
			s.Add("2025-01-10", h%24, 0, "x", StatusPending)
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap, MaxReminders)
	seen := map[int]bool{}
	maxID := 0
	for _, r := range snap {
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	assert.Equal(t, maxID+1, s.NextID())
}
