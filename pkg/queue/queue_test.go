package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/models"
	"profilesync/pkg/table/memtable"
)

var header = []string{"USERNAME", "STATUS", "LAST_SCRAPED", "NOTES"}

func openQueue(t *testing.T, mem *memtable.Table, l logger.Logger) *Queue {
	t.Helper()
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)
	q, err := Open(context.Background(), mem, "Target", l, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return q
}

func TestOpenMissingWorksheet(t *testing.T) {
	_, err := Open(context.Background(), memtable.New(), "Target", logger.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestLoadPendingInRowOrder(t *testing.T) {
	mem := memtable.New()
	mem.AddWorksheet("Target", header,
		[]string{"alice", "PENDING"},
		[]string{"bob", "COMPLETED", "2024-04-01 10:00", ""},
		[]string{"", "PENDING"},
		[]string{"carol", "pending", "", "retry"},
		[]string{"dave", "FAILED", "", "timeout"},
	)
	q := openQueue(t, mem, logger.NewNopLogger())

	items, err := q.LoadPending(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.QueueItem{Identifier: "alice", RowIndex: 2, Status: models.StatusPending}, items[0])
	assert.Equal(t, "carol", items[1].Identifier)
	assert.Equal(t, 5, items[1].RowIndex)
	assert.Equal(t, "retry", items[1].LastNote)
}

func TestLoadPendingSkipsDuplicatesAndMalformedRows(t *testing.T) {
	mem := memtable.New()
	mem.AddWorksheet("Target", header,
		[]string{"alice", "PENDING"},
		[]string{"ghost"},
		[]string{"alice", "PENDING"},
		[]string{"zed", "MAYBE"},
	)
	tl := logger.NewTestLogger()
	q := openQueue(t, mem, tl)

	items, err := q.LoadPending(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].RowIndex)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 3)
	assert.True(t, tl.HasMessage("Duplicate pending identifier ignored"))
}

func TestLoadPendingRejectsBadHeader(t *testing.T) {
	for name, rows := range map[string][][]string{
		"empty":        {},
		"wrong header": {{"NAME", "STATE"}, {"alice", "PENDING"}},
	} {
		t.Run(name, func(t *testing.T) {
			mem := memtable.New()
			mem.AddWorksheet("Target", rows...)
			q := openQueue(t, mem, logger.NewNopLogger())
			_, err := q.LoadPending(context.Background())
			require.Error(t, err)
			assert.True(t, errs.IsType(err, errs.ErrorTypeDataAnomaly))
		})
	}
}

func TestCommitStatusWritesOneRange(t *testing.T) {
	mem := memtable.New()
	mem.AddWorksheet("Target", header, []string{"alice", "PENDING"}, []string{"bob", "PENDING"})
	q := openQueue(t, mem, logger.NewNopLogger())
	ctx := context.Background()

	items, err := q.LoadPending(ctx)
	require.NoError(t, err)
	mem.ResetLog()

	require.NoError(t, q.CommitStatus(ctx, &items[0], models.StatusCompleted, ""))
	require.NoError(t, q.CommitStatus(ctx, &items[1], models.StatusFailed, "profile not found"))

	rows := mem.Rows("Target")
	assert.Equal(t, []string{"alice", "COMPLETED", "2024-05-01 09:30", ""}, rows[1])
	assert.Equal(t, []string{"bob", "FAILED", "", "profile not found"}, rows[2])
	assert.Equal(t, 2, mem.CallCount("UpdateRange"))
	assert.Equal(t, "B2:D2", mem.Calls()[0].Detail)

	assert.Equal(t, models.StatusCompleted, items[0].Status)
	require.NotNil(t, items[0].CompletedAt)
	assert.Nil(t, items[1].CompletedAt)
}

func TestCommitFailureLeavesItemPending(t *testing.T) {
	mem := memtable.New()
	mem.AddWorksheet("Target", header, []string{"alice", "PENDING"})
	q := openQueue(t, mem, logger.NewNopLogger())
	ctx := context.Background()

	items, err := q.LoadPending(ctx)
	require.NoError(t, err)

	mem.FailNext("UpdateRange", errors.New("network down"))
	require.Error(t, q.CommitStatus(ctx, &items[0], models.StatusCompleted, ""))
	assert.Equal(t, models.StatusPending, items[0].Status)

	again, err := q.LoadPending(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 1, "uncommitted item is claimed again")
}

func TestListParsesCommittedTimestamp(t *testing.T) {
	mem := memtable.New()
	mem.AddWorksheet("Target", header, []string{"bob", "COMPLETED", "2024-04-01 10:00", "ok"})
	q := openQueue(t, mem, logger.NewNopLogger())

	items, err := q.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].CompletedAt)
	assert.Equal(t, 10, items[0].CompletedAt.Hour())
	assert.Equal(t, "ok", items[0].LastNote)
}

func TestAddSkipsKnownIdentifiers(t *testing.T) {
	mem := memtable.New()
	mem.AddWorksheet("Target", header, []string{"alice", "COMPLETED"})
	q := openQueue(t, mem, logger.NewNopLogger())

	added, err := q.Add(context.Background(), "alice", "bob", " bob ", "", "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	rows := mem.Rows("Target")
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"bob", "PENDING", "", ""}, rows[2])
	assert.Equal(t, "carol", rows[3][0])
}
