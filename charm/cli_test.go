package charm

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCommand(t *testing.T) {
	client := NewTestClient(t)
	c := models.NewContract(models.StatusComplete)
	c.ID = uuid.New()
	number := "1001"
	c.ContractNumber = &number
	_, err := NewMirror(client).Record(context.Background(), c)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, HistoryCommand(client, &out, []string{c.ID.String()}))
	assert.Contains(t, out.String(), "REVISION")
	assert.Contains(t, out.String(), "Complete")
	assert.Contains(t, out.String(), "1001")

	assert.Error(t, HistoryCommand(client, &out, nil))
	assert.Error(t, HistoryCommand(client, &out, []string{"nope"}))
}

func TestStatusAndWipeCommands(t *testing.T) {
	client := NewTestClient(t)
	c := models.NewContract(models.StatusDraft)
	c.ID = uuid.New()
	_, err := NewMirror(client).Record(context.Background(), c)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, StatusCommand(client, &out, nil))
	assert.Contains(t, out.String(), "Contracts: 1")
	assert.Contains(t, out.String(), "Connected (local)")

	out.Reset()
	require.NoError(t, WipeCommand(client, &out, nil))
	assert.Contains(t, out.String(), "--confirm")
	ids, _ := NewMirror(client).Contracts()
	assert.Len(t, ids, 1)

	out.Reset()
	require.NoError(t, WipeCommand(client, &out, []string{"--confirm"}))
	ids, _ = NewMirror(client).Contracts()
	assert.Empty(t, ids)

	require.NoError(t, SyncCommand(client, &out, nil))
}
