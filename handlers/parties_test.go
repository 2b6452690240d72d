// ABOUTME: Tests for buyer and seller MCP tool handlers
// ABOUTME: Validates tool input/output and error handling
package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBuyerAndSeller(t *testing.T) {
	h := NewPartyHandlers(setupTestService(t))
	ctx := context.Background()

	_, buyer, err := h.AddBuyer(ctx, nil, AddPartyInput{
		Name: "Riverina Grain Co",
		ABN:  "51 824 753 556",
		Contacts: []ContactInput{
			{Name: "Sam", Email: "sam@riverina.example", PhoneNumber: "0400 111 222", IsPrimary: true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "buyer", buyer.Kind)
	assert.NotEmpty(t, buyer.ID)
	require.Len(t, buyer.Contacts, 1)
	assert.True(t, buyer.Contacts[0].IsPrimary)

	_, seller, err := h.AddSeller(ctx, nil, AddPartyInput{Name: "Mallee Farms"})
	require.NoError(t, err)
	assert.Equal(t, "seller", seller.Kind)
}

func TestAddPartyValidation(t *testing.T) {
	h := NewPartyHandlers(setupTestService(t))
	ctx := context.Background()

	_, _, err := h.AddBuyer(ctx, nil, AddPartyInput{})
	assert.ErrorContains(t, err, "name is required")

	_, _, err = h.AddSeller(ctx, nil, AddPartyInput{
		Name:     "Mallee Farms",
		Contacts: []ContactInput{{Name: "Jo"}},
	})
	assert.Error(t, err)
}

func TestFindParties(t *testing.T) {
	h := NewPartyHandlers(setupTestService(t))
	ctx := context.Background()

	addBuyer(t, h, "Riverina Grain Co")
	addBuyer(t, h, "Wimmera Traders")
	addSeller(t, h, "Riverina Farms")

	_, out, err := h.FindParties(ctx, nil, FindPartiesInput{Kind: "buyer", Query: "riverina"})
	require.NoError(t, err)
	require.Len(t, out.Parties, 1)
	assert.Equal(t, "Riverina Grain Co", out.Parties[0].Name)

	_, _, err = h.FindParties(ctx, nil, FindPartiesInput{Kind: "broker"})
	assert.ErrorContains(t, err, "invalid kind")
}

func TestUpdateParty(t *testing.T) {
	h := NewPartyHandlers(setupTestService(t))
	ctx := context.Background()

	buyer := addBuyer(t, h, "Riverina Grain Co")

	_, out, err := h.UpdateParty(ctx, nil, UpdatePartyInput{
		Kind:   "buyer",
		ID:     buyer.ID,
		Fields: AddPartyInput{Email: "accounts@riverina.example"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Riverina Grain Co", out.Name)
	assert.Equal(t, "accounts@riverina.example", out.Email)
}

func TestDeletePartyByName(t *testing.T) {
	h := NewPartyHandlers(setupTestService(t))
	ctx := context.Background()

	addSeller(t, h, "Mallee Farms")

	_, out, err := h.DeleteParty(ctx, nil, DeletePartyInput{Kind: "seller", ID: "mallee farms"})
	require.NoError(t, err)
	assert.True(t, out.Success)

	_, found, err := h.FindParties(ctx, nil, FindPartiesInput{Kind: "seller"})
	require.NoError(t, err)
	assert.Empty(t, found.Parties)
}
