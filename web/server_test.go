// ABOUTME: Tests for the web UI
// ABOUTME: Renders each page through httptest
package web

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/db"
	"github.com/harperreed/grainbroker/logger"
	"github.com/harperreed/grainbroker/models"
	"github.com/harperreed/grainbroker/sequence"
)

type fixture struct {
	handler  http.Handler
	svc      *contracts.Service
	contract *models.Contract
	draft    *models.Contract
}

func setup(t *testing.T) *fixture {
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

	ctx := context.Background()
	buyer := &models.Party{Kind: models.PartyBuyer, Name: "Riverina Grain Co"}
	seller := &models.Party{Kind: models.PartySeller, Name: "Mallee Farms", Contacts: []models.Contact{
		{Name: "Sam Hill", Email: "sam@mallee.example", PhoneNumber: "0400 000 001", IsPrimary: true},
	}}
	require.NoError(t, svc.AddParty(ctx, buyer))
	require.NoError(t, svc.AddParty(ctx, seller))

	date := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	tonnes := 320.5
	c := models.NewContract(models.StatusComplete)
	c.ContractDate = &date
	c.BuyerID = &buyer.ID
	c.SellerID = &seller.ID
	c.Tonnes = &tonnes
	c.Season = "2024-25"
	c.BrokeragePayableBy = models.BrokerageBuyer
	c.Commodity = "Canola"
	require.NoError(t, svc.Create(ctx, c))

	draft := models.NewContract(models.StatusDraft)
	draft.SellerID = &seller.ID
	require.NoError(t, svc.Create(ctx, draft))

	server, err := NewServer(svc, logger.Nop())
	require.NoError(t, err)
	return &fixture{handler: server.Handler(), svc: svc, contract: c, draft: draft}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDashboardPage(t *testing.T) {
	f := setup(t)
	rec := f.get(t, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Contracts by status")
	assert.Contains(t, body, "Awaiting invoice: GB-1")
}

func TestContractsPageFiltersByStatus(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/contracts?status=Complete")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "GB-1")
	assert.Contains(t, rec.Body.String(), "Riverina Grain Co")
	assert.NotContains(t, rec.Body.String(), "(unnumbered)")

	rec = f.get(t, "/contracts?status=Draft")
	assert.Contains(t, rec.Body.String(), "(unnumbered)")

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/contracts?status=Settled").Code)
}

func TestContractDetailPage(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/contracts/GB-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Canola")
	assert.Contains(t, rec.Body.String(), "320.50")

	rec = f.get(t, "/contracts/"+f.draft.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Needed before leaving Draft: contractDate, buyer, tonnes, season, brokeragePayableBy")

	assert.Equal(t, http.StatusNotFound, f.get(t, "/contracts/"+uuid.New().String()).Code)
}

func TestPartiesPage(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/sellers?q=mallee")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sam Hill (primary)")

	rec = f.get(t, "/buyers?q=nobody")
	assert.Contains(t, rec.Body.String(), "None found.")
}

func TestGraphPage(t *testing.T) {
	f := setup(t)

	rec := f.get(t, "/graph?buyer="+f.contract.BuyerID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Riverina Grain Co")

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/graph?seller=nope").Code)
}
