package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func mockDatabase() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}
	err = db.AutoMigrate(&Run{})
	if err != nil {
		panic(err)
	}

	return db
}

func testRun(resourceId string) *Run {
	return &Run{
		ResourceId: resourceId,
		Kind:       RunKindTrace,
		Path:       "/tmp/trace.1234.xt",
		Host:       "wren.example.com",
		RequestURI: "/checkout",
		RequestId:  "req-1",
		StartedAt:  time.Now(),
		Duration:   0.125,
		PeakMemory: 1 << 20,
	}
}

func Test_CreateRunSucceeds(t *testing.T) {
	m := New(mockDatabase())

	created, err := m.CreateRun(testRun("run-123"))
	assert.NoError(t, err, "create run")
	assert.NotZero(t, created.ID, "row id assigned")
	assert.Equal(t, "run-123", created.ResourceId, "resource id")
	assert.Equal(t, RunKindTrace, created.Kind, "kind")
	assert.Equal(t, "/tmp/trace.1234.xt", created.Path, "path")
	assert.False(t, created.StartedAt.IsZero(), "started at set")
}

func Test_CreateRunFails_DuplicateResourceId(t *testing.T) {
	m := New(mockDatabase())

	_, err := m.CreateRun(testRun("run-123"))
	assert.NoError(t, err, "first create")

	_, err = m.CreateRun(testRun("run-123"))
	assert.Error(t, err, "duplicate resource id rejected")
}

func Test_GetRunReturnsRecord(t *testing.T) {
	m := New(mockDatabase())

	_, err := m.CreateRun(testRun("run-123"))
	assert.NoError(t, err, "create run")

	run, err := m.GetRun(&Run{ResourceId: "run-123"})
	assert.NoError(t, err, "get run")
	assert.Equal(t, "/checkout", run.RequestURI, "request uri")
}

func Test_GetRunReturnsError_NotFound(t *testing.T) {
	m := New(mockDatabase())

	_, err := m.GetRun(&Run{ResourceId: "missing"})
	assert.ErrorIs(t, err, ErrRunNotFound, "missing run")
}

func Test_ListRunsReturnsNewestFirst(t *testing.T) {
	m := New(mockDatabase())

	older := testRun("run-1")
	older.StartedAt = time.Now().Add(-time.Hour)
	_, err := m.CreateRun(older)
	assert.NoError(t, err, "create older run")

	_, err = m.CreateRun(testRun("run-2"))
	assert.NoError(t, err, "create newer run")

	var runs []Run
	_, err = m.ListRuns(&runs)
	assert.NoError(t, err, "list runs")
	assert.Len(t, runs, 2, "both runs listed")
	assert.Equal(t, "run-2", runs[0].ResourceId, "newest first")
}

func Test_DeleteRunRemovesRecord(t *testing.T) {
	m := New(mockDatabase())

	created, err := m.CreateRun(testRun("run-123"))
	assert.NoError(t, err, "create run")

	err = m.DeleteRun(created)
	assert.NoError(t, err, "delete run")

	_, err = m.GetRun(&Run{ResourceId: "run-123"})
	assert.ErrorIs(t, err, ErrRunNotFound, "record gone")
}

func Test_SubscribeRunEventsReceivesCreateAndDelete(t *testing.T) {
	m := New(mockDatabase())
	events := m.SubscribeRunEvents()

	created, err := m.CreateRun(testRun("run-123"))
	assert.NoError(t, err, "create run")

	event := <-events
	assert.Equal(t, "create", event.Type, "create event")
	assert.Equal(t, "run-123", event.ResourceId, "event resource id")

	err = m.DeleteRun(created)
	assert.NoError(t, err, "delete run")

	event = <-events
	assert.Equal(t, "delete", event.Type, "delete event")
}

func Test_UnsubscribeRunEventsClosesChannel(t *testing.T) {
	m := New(mockDatabase())
	events := m.SubscribeRunEvents()

	m.UnsubscribeRunEvents(events)

	_, err := m.CreateRun(testRun("run-123"))
	assert.NoError(t, err, "create run")

	event, open := <-events
	assert.False(t, open, "channel closed")
	assert.Empty(t, event.ResourceId, "no event delivered")
}

func Test_UnsubscribeRunEventsIgnoresUnknownChannel(t *testing.T) {
	m := New(mockDatabase())
	known := m.SubscribeRunEvents()

	m.UnsubscribeRunEvents(make(chan RunEvent))

	_, err := m.CreateRun(testRun("run-123"))
	assert.NoError(t, err, "create run")

	event := <-known
	assert.Equal(t, "create", event.Type, "known subscriber still served")
}
