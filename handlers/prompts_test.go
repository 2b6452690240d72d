package handlers

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getPrompt(h *PromptHandlers, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	return h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: name, Arguments: args},
	})
}

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, res.Messages, 1)
	text, ok := res.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestContractReviewPromptListsMissingFields(t *testing.T) {
	svc := setupTestService(t)
	contracts := NewContractHandlers(svc)
	prompts := NewPromptHandlers(svc)

	_, draft, err := contracts.CreateContract(context.Background(), nil, ContractFieldsInput{
		Status: "Draft",
		Season: "2024-25",
	})
	require.NoError(t, err)

	res, err := getPrompt(prompts, "contract-review", map[string]string{"contract": draft.ID})
	require.NoError(t, err)

	text := promptText(t, res)
	assert.Contains(t, text, "status Draft")
	assert.Contains(t, text, "Missing before it can leave Draft: contractDate, buyer, seller, tonnes, brokeragePayableBy")
}

func TestPartyOverviewPrompt(t *testing.T) {
	svc := setupTestService(t)
	parties := NewPartyHandlers(svc)
	contracts := NewContractHandlers(svc)
	prompts := NewPromptHandlers(svc)

	buyer := addBuyer(t, parties, "Riverina Grain Co")
	seller := addSeller(t, parties, "Mallee Farms")
	_, _, err := contracts.CreateContract(context.Background(), nil, completeFields(buyer.ID, seller.ID))
	require.NoError(t, err)

	res, err := getPrompt(prompts, "party-overview", map[string]string{"kind": "seller", "id": seller.ID})
	require.NoError(t, err)

	text := promptText(t, res)
	assert.Contains(t, text, "Overview of seller: Mallee Farms")
	assert.Contains(t, text, "Contracts: 1")
	assert.Contains(t, text, "Total tonnes: 120")
}

func TestUnknownPrompt(t *testing.T) {
	_, err := getPrompt(NewPromptHandlers(setupTestService(t)), "deal-analysis", nil)
	assert.ErrorContains(t, err, "unknown prompt")
}
