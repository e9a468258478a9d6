package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"faceattend/internal/logger"
	"faceattend/internal/model"
)

type fakeStudents struct {
	enrolled map[string]bool
	err      error
	lookups  int
}

func (f *fakeStudents) Exists(id string) (bool, error) {
	f.lookups++
	if f.err != nil {
		return false, f.err
	}
	return f.enrolled[id], nil
}

type fakeRecords struct {
	marked   map[string]bool // studentID|date
	writes   int
	checks   int
	checkErr error
	markErr  error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{marked: map[string]bool{}}
}

func (f *fakeRecords) IsMarked(id, date string) (bool, error) {
	f.checks++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.marked[id+"|"+date], nil
}

func (f *fakeRecords) Mark(id, date, clock string, status model.Status) (bool, error) {
	f.writes++
	if f.markErr != nil {
		return false, f.markErr
	}
	key := id + "|" + date
	if f.marked[key] {
		return false, nil
	}
	f.marked[key] = true
	return true, nil
}

var t0 = time.Date(2025, 5, 12, 9, 0, 0, 0, time.Local)

func newTestGate(students *fakeStudents, records *fakeRecords) *Gate {
	return NewGate(students, records, DefaultCooldown, DefaultRecentCapacity, logger.Discard(), nil)
}

func TestGate_MarksEnrolledStudent(t *testing.T) {
	records := newFakeRecords()
	g := newTestGate(&fakeStudents{enrolled: map[string]bool{"S1": true}}, records)

	assert.Equal(t, Marked, g.Offer(context.Background(), "S1", "Alice", t0))
	assert.True(t, records.marked["S1|2025-05-12"])
	assert.Equal(t, 1, records.writes)
}

func TestGate_CooldownSuppressesWithoutStorage(t *testing.T) {
	students := &fakeStudents{enrolled: map[string]bool{"S1": true}}
	records := newFakeRecords()
	g := newTestGate(students, records)

	assert.Equal(t, Marked, g.Offer(context.Background(), "S1", "Alice", t0))
	lookups, checks, writes := students.lookups, records.checks, records.writes

	for _, dt := range []time.Duration{0, time.Second, 4999 * time.Millisecond} {
		assert.Equal(t, SuppressedCooldown, g.Offer(context.Background(), "S1", "Alice", t0.Add(dt)))
	}

	assert.Equal(t, lookups, students.lookups)
	assert.Equal(t, checks, records.checks)
	assert.Equal(t, writes, records.writes)
}

func TestGate_AfterCooldownHitsDailyUniqueness(t *testing.T) {
	records := newFakeRecords()
	g := newTestGate(&fakeStudents{enrolled: map[string]bool{"S1": true}}, records)

	assert.Equal(t, Marked, g.Offer(context.Background(), "S1", "Alice", t0))
	assert.Equal(t, SuppressedAlreadyMarkedToday, g.Offer(context.Background(), "S1", "Alice", t0.Add(5*time.Second)))
	assert.Equal(t, 1, records.writes)
}

func TestGate_AlreadyMarkedAfterRestart(t *testing.T) {
	students := &fakeStudents{enrolled: map[string]bool{"S1": true}}
	records := newFakeRecords()
	records.marked["S1|2025-05-12"] = true

	g := newTestGate(students, records)

	assert.Equal(t, SuppressedAlreadyMarkedToday, g.Offer(context.Background(), "S1", "Alice", t0))
	assert.Equal(t, SuppressedAlreadyMarkedToday, g.Offer(context.Background(), "S1", "Alice", t0.Add(time.Second)))
	assert.Equal(t, 0, records.writes)
}

func TestGate_NextDayMarksAgain(t *testing.T) {
	records := newFakeRecords()
	g := newTestGate(&fakeStudents{enrolled: map[string]bool{"S1": true}}, records)

	assert.Equal(t, Marked, g.Offer(context.Background(), "S1", "Alice", t0))
	assert.Equal(t, Marked, g.Offer(context.Background(), "S1", "Alice", t0.Add(24*time.Hour)))
}

func TestGate_UnknownStudent(t *testing.T) {
	records := newFakeRecords()
	g := newTestGate(&fakeStudents{enrolled: map[string]bool{}}, records)

	assert.Equal(t, StudentNotFound, g.Offer(context.Background(), "S1", "Alice", t0))
	assert.Equal(t, 0, records.writes)
}

func TestGate_StorageFailures(t *testing.T) {
	boom := errors.New("database is locked")

	g := newTestGate(&fakeStudents{err: boom}, newFakeRecords())
	assert.Equal(t, WriteFailed, g.Offer(context.Background(), "S1", "Alice", t0))

	records := newFakeRecords()
	records.checkErr = boom
	g = newTestGate(&fakeStudents{enrolled: map[string]bool{"S1": true}}, records)
	assert.Equal(t, WriteFailed, g.Offer(context.Background(), "S1", "Alice", t0))

	records = newFakeRecords()
	records.markErr = boom
	g = newTestGate(&fakeStudents{enrolled: map[string]bool{"S1": true}}, records)
	assert.Equal(t, WriteFailed, g.Offer(context.Background(), "S1", "Alice", t0))

	// no cooldown entry after a failure: the next frame retries
	records.markErr = nil
	assert.Equal(t, Marked, g.Offer(context.Background(), "S1", "Alice", t0.Add(time.Second)))
}

func TestGate_CancelledContext(t *testing.T) {
	records := newFakeRecords()
	g := newTestGate(&fakeStudents{enrolled: map[string]bool{"S1": true}}, records)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, WriteFailed, g.Offer(ctx, "S1", "Alice", t0))
	assert.Equal(t, 0, records.writes)
}

func TestGate_RecencyBufferEvictsOldest(t *testing.T) {
	enrolled := map[string]bool{}
	ids := []string{"A", "B", "C"}
	for _, id := range ids {
		enrolled[id] = true
	}
	records := newFakeRecords()
	g := NewGate(&fakeStudents{enrolled: enrolled}, records, DefaultCooldown, 2, logger.Discard(), nil)

	for _, id := range ids {
		assert.Equal(t, Marked, g.Offer(context.Background(), id, id, t0))
	}
	assert.Len(t, g.recent, 2)
	assert.Equal(t, "B", g.recent[0].studentID)

	// A was evicted, so it reaches storage and hits the daily constraint
	assert.Equal(t, SuppressedAlreadyMarkedToday, g.Offer(context.Background(), "A", "A", t0.Add(time.Second)))
	assert.Equal(t, SuppressedCooldown, g.Offer(context.Background(), "C", "C", t0.Add(time.Second)))
}

func TestGate_Reset(t *testing.T) {
	records := newFakeRecords()
	g := newTestGate(&fakeStudents{enrolled: map[string]bool{"S1": true}}, records)

	g.Offer(context.Background(), "S1", "Alice", t0)
	g.Reset()
	assert.Equal(t, SuppressedAlreadyMarkedToday, g.Offer(context.Background(), "S1", "Alice", t0.Add(time.Second)))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "marked", Marked.String())
	assert.Equal(t, "suppressed_cooldown", SuppressedCooldown.String())
	assert.Equal(t, "write_failed", WriteFailed.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
