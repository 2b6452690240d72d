package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readResource(t *testing.T, h *ResourceHandlers, uri string) (*mcp.ReadResourceResult, error) {
	t.Helper()
	return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
}

func TestReadResources(t *testing.T) {
	svc := setupTestService(t)
	parties := NewPartyHandlers(svc)
	contracts := NewContractHandlers(svc)
	resources := NewResourceHandlers(svc)

	buyer := addBuyer(t, parties, "Riverina Grain Co")
	seller := addSeller(t, parties, "Mallee Farms")
	_, created, err := contracts.CreateContract(context.Background(), nil, completeFields(buyer.ID, seller.ID))
	require.NoError(t, err)

	t.Run("contracts list", func(t *testing.T) {
		res, err := readResource(t, resources, "grain://contracts")
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, "application/json", res.Contents[0].MIMEType)

		var list []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &list))
		assert.Len(t, list, 1)
	})

	t.Run("contract by number", func(t *testing.T) {
		res, err := readResource(t, resources, "grain://contracts/"+*created.ContractNumber)
		require.NoError(t, err)
		assert.Contains(t, res.Contents[0].Text, created.ID)
	})

	t.Run("buyer with contracts", func(t *testing.T) {
		res, err := readResource(t, resources, "grain://buyers/"+buyer.ID)
		require.NoError(t, err)

		var body struct {
			Party     map[string]interface{}   `json:"party"`
			Contracts []map[string]interface{} `json:"contracts"`
		}
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &body))
		assert.Equal(t, "Riverina Grain Co", body.Party["name"])
		assert.Len(t, body.Contracts, 1)
	})

	t.Run("summary", func(t *testing.T) {
		res, err := readResource(t, resources, "grain://summary")
		require.NoError(t, err)
		assert.Contains(t, res.Contents[0].Text, `"Incomplete"`)
	})

	t.Run("bad scheme", func(t *testing.T) {
		_, err := readResource(t, resources, "crm://contacts")
		assert.ErrorContains(t, err, "invalid URI scheme")
	})

	t.Run("unknown resource", func(t *testing.T) {
		_, err := readResource(t, resources, "grain://deals")
		assert.ErrorContains(t, err, "unknown resource")
	})
}
