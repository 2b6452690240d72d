// ABOUTME: Tests for contract persistence
// ABOUTME: Covers lifecycle enforcement at commit, number uniqueness, references and soft delete
package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contractFixture struct {
	ctx       context.Context
	parties   *PartyRepository
	contracts *ContractRepository
	buyer     *models.Party
	seller    *models.Party
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &contractFixture{
		ctx:       context.Background(),
		parties:   NewPartyRepository(db),
		contracts: NewContractRepository(db),
	}
	f.buyer = createParty(t, f.parties, models.PartyBuyer, "Riverina Grain Co")
	f.seller = createParty(t, f.parties, models.PartySeller, "Mallee Farms")
	return f
}

func (f *contractFixture) complete(status models.Status) *models.Contract {
	date := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	tonnes := 250.0
	buyer, seller := f.buyer.ID, f.seller.ID
	c := models.NewContract(status)
	c.ContractDate = &date
	c.BuyerID = &buyer
	c.SellerID = &seller
	c.Tonnes = &tonnes
	c.Season = "2024-25"
	c.BrokeragePayableBy = models.BrokerageSeller
	c.Commodity = "Wheat"
	c.Grade = "APW1"
	c.PriceExGST = "$345.00/t"
	return c
}

func strPtr(s string) *string { return &s }

func TestContractCreateRoundTrip(t *testing.T) {
	f := newContractFixture(t)

	c := f.complete(models.StatusIncomplete)
	c.ContractNumber = strPtr("1001")
	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	c.DeliveryPeriod = models.DeliveryPeriod{Start: &start, End: &end}
	c.BuyerContact = &models.Contact{Name: "Jo Bloggs", Email: "jo@riverina.example", PhoneNumber: "0400 111 222"}
	c.Notes = "Subject to quality"

	require.NoError(t, f.contracts.Create(f.ctx, c))
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.False(t, c.UpdatedAt.IsZero())

	found, err := f.contracts.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "1001", found.Number())
	assert.Equal(t, models.StatusIncomplete, found.Status)
	assert.Equal(t, f.buyer.ID, *found.BuyerID)
	assert.Equal(t, f.seller.ID, *found.SellerID)
	assert.InDelta(t, 250.0, *found.Tonnes, 0.0001)
	assert.Equal(t, models.BrokerageSeller, found.BrokeragePayableBy)
	assert.Equal(t, "APW1", found.Grade)
	assert.Equal(t, "$345.00/t", found.PriceExGST)
	assert.Equal(t, "Subject to quality", found.Notes)
	require.NotNil(t, found.BuyerContact)
	assert.Equal(t, "Jo Bloggs", found.BuyerContact.Name)
	assert.Nil(t, found.SellerContact)
	require.NotNil(t, found.DeliveryPeriod.Start)
	assert.True(t, start.Equal(*found.DeliveryPeriod.Start))
	assert.Nil(t, found.XeroInvoiceID)

	byNumber, err := f.contracts.GetByNumber(f.ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byNumber.ID)
}

func TestContractCreateDefaultsToIncomplete(t *testing.T) {
	f := newContractFixture(t)

	c := &models.Contract{}
	err := f.contracts.Create(f.ctx, c)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindCompleteness))
	assert.Equal(t, models.Status(""), c.Status, "failed write leaves the caller untouched")
	assert.Equal(t, uuid.Nil, c.ID)
}

func TestDraftSavesWithoutRequiredFields(t *testing.T) {
	f := newContractFixture(t)

	c := models.NewContract(models.StatusDraft)
	require.NoError(t, f.contracts.Create(f.ctx, c))

	found, err := f.contracts.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, found.Status)
	assert.Nil(t, found.BuyerID)
	assert.Nil(t, found.Tonnes)
}

func TestFailedSaveLeavesStoredStateUnchanged(t *testing.T) {
	f := newContractFixture(t)

	c := models.NewContract(models.StatusDraft)
	c.Notes = "first"
	require.NoError(t, f.contracts.Create(f.ctx, c))
	updatedAt := c.UpdatedAt

	c.Status = models.StatusComplete
	c.Notes = "second"
	err := f.contracts.Save(f.ctx, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contractDate is required when status is Complete")

	found, err := f.contracts.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, found.Status)
	assert.Equal(t, "first", found.Notes)
	assert.True(t, updatedAt.Equal(found.UpdatedAt))
}

func TestSaveAdvancesUpdatedAtAndKeepsCreatedAt(t *testing.T) {
	f := newContractFixture(t)

	c := f.complete(models.StatusIncomplete)
	require.NoError(t, f.contracts.Create(f.ctx, c))
	created, updated := c.CreatedAt, c.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	c.Status = models.StatusComplete
	c.CreatedAt = time.Time{}
	require.NoError(t, f.contracts.Save(f.ctx, c))

	assert.True(t, created.Equal(c.CreatedAt))
	assert.True(t, c.UpdatedAt.After(updated))

	found, err := f.contracts.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, found.Status)
	assert.True(t, created.Equal(found.CreatedAt))
}

func TestContractNumberUniqueness(t *testing.T) {
	f := newContractFixture(t)

	// Absent numbers never collide
	require.NoError(t, f.contracts.Create(f.ctx, models.NewContract(models.StatusDraft)))
	require.NoError(t, f.contracts.Create(f.ctx, models.NewContract(models.StatusDraft)))

	first := f.complete(models.StatusIncomplete)
	first.ContractNumber = strPtr("1001")
	require.NoError(t, f.contracts.Create(f.ctx, first))

	dup := f.complete(models.StatusIncomplete)
	dup.ContractNumber = strPtr("1001")
	err := f.contracts.Create(f.ctx, dup)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindUniqueness))
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, `contractNumber "1001" is already in use`, err.Error())

	second := f.complete(models.StatusIncomplete)
	second.ContractNumber = strPtr("1002")
	require.NoError(t, f.contracts.Create(f.ctx, second))

	second.ContractNumber = strPtr("1001")
	err = f.contracts.Save(f.ctx, second)
	assert.True(t, models.IsKind(err, models.KindUniqueness))
}

func TestBlankContractNumberIsAbsent(t *testing.T) {
	f := newContractFixture(t)

	first := models.NewContract(models.StatusDraft)
	first.ContractNumber = strPtr("")
	require.NoError(t, f.contracts.Create(f.ctx, first))
	assert.Nil(t, first.ContractNumber)

	second := models.NewContract(models.StatusDraft)
	second.ContractNumber = strPtr("   ")
	require.NoError(t, f.contracts.Create(f.ctx, second))
	assert.Nil(t, second.ContractNumber)

	third := f.complete(models.StatusIncomplete)
	third.ContractNumber = strPtr(" 1001 ")
	require.NoError(t, f.contracts.Create(f.ctx, third))
	assert.Equal(t, "1001", third.Number())

	third.ContractNumber = strPtr("")
	require.NoError(t, f.contracts.Save(f.ctx, third))
	got, err := f.contracts.Get(f.ctx, third.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ContractNumber)
}

func TestContractReferencesMustResolve(t *testing.T) {
	f := newContractFixture(t)

	c := f.complete(models.StatusIncomplete)
	ghost := uuid.New()
	c.BuyerID = &ghost

	err := f.contracts.Create(f.ctx, c)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindReference))
	assert.Contains(t, err.Error(), ghost.String())

	// A seller id is not a buyer
	c.BuyerID = &f.seller.ID
	assert.True(t, models.IsKind(f.contracts.Create(f.ctx, c), models.KindReference))
}

func TestDeletedPartyBlocksNewReferencesOnly(t *testing.T) {
	f := newContractFixture(t)

	existing := f.complete(models.StatusIncomplete)
	require.NoError(t, f.contracts.Create(f.ctx, existing))

	require.NoError(t, f.parties.SoftDelete(f.ctx, models.PartyBuyer, f.buyer.ID))

	// Unchanged reference on an existing contract still saves
	existing.Status = models.StatusComplete
	require.NoError(t, f.contracts.Save(f.ctx, existing))

	// New contracts cannot point at the deleted buyer
	fresh := f.complete(models.StatusIncomplete)
	err := f.contracts.Create(f.ctx, fresh)
	assert.True(t, models.IsKind(err, models.KindReference))

	// Draft contracts are checked too
	draft := models.NewContract(models.StatusDraft)
	draft.BuyerID = &f.buyer.ID
	assert.True(t, models.IsKind(f.contracts.Create(f.ctx, draft), models.KindReference))
}

func TestContractSoftDelete(t *testing.T) {
	f := newContractFixture(t)

	c := f.complete(models.StatusComplete)
	require.NoError(t, f.contracts.Create(f.ctx, c))

	require.NoError(t, f.contracts.SoftDelete(f.ctx, c.ID))

	_, err := f.contracts.Get(f.ctx, c.ID)
	assert.ErrorIs(t, err, models.ErrContractNotFound)

	kept, err := f.contracts.GetIncludingDeleted(f.ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, kept.IsDeleted)
	require.NotNil(t, kept.DeletedAt)
	assert.False(t, kept.DeletedAt.Before(kept.CreatedAt))
	assert.Equal(t, "2024-25", kept.Season)
	assert.Equal(t, models.StatusComplete, kept.Status)

	listed, err := f.contracts.Find(f.ctx, models.ContractFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)

	audit, err := f.contracts.Find(f.ctx, models.ContractFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, audit, 1)

	assert.ErrorIs(t, f.contracts.Save(f.ctx, kept), models.ErrContractNotFound)
	assert.NoError(t, f.contracts.SoftDelete(f.ctx, c.ID))
	assert.ErrorIs(t, f.contracts.SoftDelete(f.ctx, uuid.New()), models.ErrContractNotFound)
}

func TestSoftDeleteSkipsLifecycleEngine(t *testing.T) {
	f := newContractFixture(t)

	c := models.NewContract(models.StatusDraft)
	require.NoError(t, f.contracts.Create(f.ctx, c))

	// Force a non-Draft status with missing fields directly in storage
	_, err := f.contracts.db.Exec(`UPDATE contracts SET status = 'Complete' WHERE id = ?`, c.ID.String())
	require.NoError(t, err)

	assert.NoError(t, f.contracts.SoftDelete(f.ctx, c.ID))
}

func TestContractFind(t *testing.T) {
	f := newContractFixture(t)
	other := createParty(t, f.parties, models.PartyBuyer, "Wimmera Grain Traders")

	a := f.complete(models.StatusIncomplete)
	require.NoError(t, f.contracts.Create(f.ctx, a))
	time.Sleep(2 * time.Millisecond)

	b := f.complete(models.StatusComplete)
	b.BuyerID = &other.ID
	b.Season = "2023-24"
	require.NoError(t, f.contracts.Create(f.ctx, b))
	time.Sleep(2 * time.Millisecond)

	d := models.NewContract(models.StatusDraft)
	require.NoError(t, f.contracts.Create(f.ctx, d))

	all, err := f.contracts.Find(f.ctx, models.ContractFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, d.ID, all[0].ID, "most recently updated first")

	byStatus, err := f.contracts.Find(f.ctx, models.ContractFilter{Status: models.StatusComplete})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, b.ID, byStatus[0].ID)

	byBuyer, err := f.contracts.Find(f.ctx, models.ContractFilter{BuyerID: &f.buyer.ID})
	require.NoError(t, err)
	require.Len(t, byBuyer, 1)
	assert.Equal(t, a.ID, byBuyer[0].ID)

	bySeller, err := f.contracts.Find(f.ctx, models.ContractFilter{SellerID: &f.seller.ID, Season: "2023-24"})
	require.NoError(t, err)
	require.Len(t, bySeller, 1)
	assert.Equal(t, b.ID, bySeller[0].ID)

	limited, err := f.contracts.Find(f.ctx, models.ContractFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestContractSummarize(t *testing.T) {
	f := newContractFixture(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.contracts.Create(f.ctx, f.complete(models.StatusComplete)))
	}
	require.NoError(t, f.contracts.Create(f.ctx, models.NewContract(models.StatusDraft)))
	gone := f.complete(models.StatusInvoiced)
	require.NoError(t, f.contracts.Create(f.ctx, gone))
	require.NoError(t, f.contracts.SoftDelete(f.ctx, gone.ID))

	summaries, err := f.contracts.Summarize(f.ctx)
	require.NoError(t, err)
	require.Len(t, summaries, len(models.Statuses))

	got := make(map[models.Status]models.StatusSummary)
	for _, s := range summaries {
		got[s.Status] = s
	}
	assert.Equal(t, 1, got[models.StatusDraft].Count)
	assert.Equal(t, 0, got[models.StatusIncomplete].Count)
	assert.Equal(t, 2, got[models.StatusComplete].Count)
	assert.InDelta(t, 500.0, got[models.StatusComplete].Tonnes, 0.0001)
	assert.Equal(t, 0, got[models.StatusInvoiced].Count)
}
