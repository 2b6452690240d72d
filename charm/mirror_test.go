package charm

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/models"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorRecordAndLatest(t *testing.T) {
	m := NewMirror(NewTestClient(t))
	ctx := context.Background()

	c := models.NewContract(models.StatusDraft)
	c.ID = uuid.New()
	c.Notes = "first"

	rev1, err := m.Record(ctx, c)
	require.NoError(t, err)
	_, err = ulid.Parse(rev1)
	require.NoError(t, err)

	c.Notes = "second"
	c.Status = models.StatusIncomplete
	rev2, err := m.Record(ctx, c)
	require.NoError(t, err)
	assert.Greater(t, rev2, rev1)

	latest, err := m.Latest(c.ID)
	require.NoError(t, err)
	assert.Equal(t, rev2, latest.Revision)
	assert.Equal(t, "second", latest.Contract.Notes)

	history, err := m.History(c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Contract.Notes)
	assert.Equal(t, models.StatusDraft, history[0].Contract.Status)
	assert.Equal(t, models.StatusIncomplete, history[1].Contract.Status)
}

func TestMirrorRevisionsOrderedWithinOneMillisecond(t *testing.T) {
	m := NewMirror(NewTestClient(t))
	fixed := time.Date(2024, 11, 4, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	c := models.NewContract(models.StatusDraft)
	c.ID = uuid.New()

	var revs []string
	for i := 0; i < 5; i++ {
		rev, err := m.Record(context.Background(), c)
		require.NoError(t, err)
		revs = append(revs, rev)
	}
	for i := 1; i < len(revs); i++ {
		assert.Greater(t, revs[i], revs[i-1])
	}
}

func TestMirrorUnknownContract(t *testing.T) {
	m := NewMirror(NewTestClient(t))

	_, err := m.Latest(uuid.New())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	history, err := m.History(uuid.New())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMirrorContractsAndReset(t *testing.T) {
	client := NewTestClient(t)
	m := NewMirror(client)
	ctx := context.Background()

	a, b := models.NewContract(models.StatusDraft), models.NewContract(models.StatusDraft)
	a.ID, b.ID = uuid.New(), uuid.New()
	_, err := m.Record(ctx, a)
	require.NoError(t, err)
	_, err = m.Record(ctx, b)
	require.NoError(t, err)
	_, err = m.Record(ctx, b)
	require.NoError(t, err)

	ids, err := m.Contracts()
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)

	require.NoError(t, client.Reset())
	ids, err = m.Contracts()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMirrorRespectsCancelledContext(t *testing.T) {
	m := NewMirror(NewTestClient(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Record(ctx, models.NewContract(models.StatusDraft))
	assert.ErrorIs(t, err, context.Canceled)
}
