// ABOUTME: MCP resource handlers for exposing the contract book
// ABOUTME: Provides read-only access to contracts, buyers, sellers and the status summary via URI
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "grain://"

type ResourceHandlers struct {
	svc *contracts.Service
}

func NewResourceHandlers(svc *contracts.Service) *ResourceHandlers {
	return &ResourceHandlers{svc: svc}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	switch parts[0] {
	case "contracts":
		if len(parts) == 1 || parts[1] == "" {
			found, err := h.svc.Find(ctx, models.ContractFilter{Limit: 1000})
			if err != nil {
				return nil, fmt.Errorf("failed to fetch contracts: %w", err)
			}
			return jsonResource(uri, found)
		}
		contract, err := h.svc.Lookup(ctx, parts[1])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch contract: %w", err)
		}
		return jsonResource(uri, contract)

	case "buyers":
		return h.readParties(ctx, uri, models.PartyBuyer, parts[1:])

	case "sellers":
		return h.readParties(ctx, uri, models.PartySeller, parts[1:])

	case "summary":
		summary, err := h.svc.Summary(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to summarise contracts: %w", err)
		}
		return jsonResource(uri, summary)

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func (h *ResourceHandlers) readParties(ctx context.Context, uri string, kind models.PartyKind, rest []string) (*mcp.ReadResourceResult, error) {
	if len(rest) == 0 || rest[0] == "" {
		parties, err := h.svc.FindParties(ctx, kind, "", 1000)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %ss: %w", kind, err)
		}
		return jsonResource(uri, parties)
	}

	id, err := uuid.Parse(rest[0])
	if err != nil {
		return nil, fmt.Errorf("invalid %s ID: %w", kind, err)
	}
	party, err := h.svc.GetParty(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
	}
	found, err := h.svc.Find(ctx, partyFilter(kind, id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contracts: %w", err)
	}

	return jsonResource(uri, map[string]interface{}{
		"party":     party,
		"contracts": found,
	})
}

func partyFilter(kind models.PartyKind, id uuid.UUID) models.ContractFilter {
	filter := models.ContractFilter{Limit: 1000}
	if kind == models.PartyBuyer {
		filter.BuyerID = &id
	} else {
		filter.SellerID = &id
	}
	return filter
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
