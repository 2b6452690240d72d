// ABOUTME: Shared fixtures for MCP handler tests
// ABOUTME: In-memory SQLite service and party helpers
package handlers

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/db"
	"github.com/harperreed/grainbroker/sequence"
)

func setupTestService(t *testing.T) *contracts.Service {
	t.Helper()

	database, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.InitSchema(database))
	t.Cleanup(func() { _ = database.Close() })

	svc, err := contracts.New(
		db.NewContractRepository(database),
		db.NewPartyRepository(database),
		db.NewCounterRepository(database),
		contracts.WithNumberFormat(sequence.Format{Prefix: "GB-"}),
	)
	require.NoError(t, err)
	return svc
}

func addBuyer(t *testing.T, h *PartyHandlers, name string) PartyOutput {
	t.Helper()
	_, out, err := h.AddBuyer(context.Background(), nil, AddPartyInput{Name: name})
	require.NoError(t, err)
	return out
}

func addSeller(t *testing.T, h *PartyHandlers, name string) PartyOutput {
	t.Helper()
	_, out, err := h.AddSeller(context.Background(), nil, AddPartyInput{Name: name})
	require.NoError(t, err)
	return out
}

func tonnes(v float64) *float64 { return &v }

func completeFields(buyer, seller string) ContractFieldsInput {
	return ContractFieldsInput{
		ContractDate:       "2024-11-04",
		Buyer:              buyer,
		Seller:             seller,
		Tonnes:             tonnes(120),
		Season:             "2024-25",
		BrokeragePayableBy: "Buyer",
		Commodity:          "Wheat",
		Grade:              "APW1",
		PriceExGST:         "$385/t delivered",
	}
}
