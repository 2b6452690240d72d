// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph and dashboard tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/models"
	"github.com/harperreed/grainbroker/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	svc *contracts.Service
}

func NewVizHandlers(svc *contracts.Service) *VizHandlers {
	return &VizHandlers{svc: svc}
}

type GenerateGraphInput struct {
	Status string `json:"status,omitempty" jsonschema:"Only include contracts with this status"`
	Buyer  string `json:"buyer,omitempty" jsonschema:"Only include contracts with this buyer (ID or exact name)"`
	Seller string `json:"seller,omitempty" jsonschema:"Only include contracts with this seller (ID or exact name)"`
	Season string `json:"season,omitempty" jsonschema:"Only include contracts for this season"`
}

type GenerateGraphOutput struct {
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	filter := models.ContractFilter{Status: models.Status(input.Status), Season: input.Season}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, GenerateGraphOutput{}, fmt.Errorf("invalid status: %s", input.Status)
	}
	if input.Buyer != "" {
		buyer, err := h.svc.ResolveParty(ctx, models.PartyBuyer, input.Buyer)
		if err != nil {
			return nil, GenerateGraphOutput{}, fmt.Errorf("failed to resolve buyer: %w", err)
		}
		filter.BuyerID = &buyer.ID
	}
	if input.Seller != "" {
		seller, err := h.svc.ResolveParty(ctx, models.PartySeller, input.Seller)
		if err != nil {
			return nil, GenerateGraphOutput{}, fmt.Errorf("failed to resolve seller: %w", err)
		}
		filter.SellerID = &seller.ID
	}

	dot, err := viz.NewGraphGenerator(h.svc).GenerateContractGraph(ctx, filter)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{
		DOTSource: dot,
		NodeCount: strings.Count(dot, "[label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text            string                 `json:"text"`
	Statuses        []models.StatusSummary `json:"statuses"`
	AwaitingInvoice []string               `json:"awaiting_invoice,omitempty"`
	StaleDrafts     []string               `json:"stale_drafts,omitempty"`
}

func (h *VizHandlers) Dashboard(ctx context.Context, request *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	stats, err := viz.GenerateDashboardStats(ctx, h.svc, time.Now())
	if err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("failed to build dashboard: %w", err)
	}

	out := DashboardOutput{Text: viz.RenderDashboard(stats), Statuses: stats.ByStatus}
	for _, item := range stats.AwaitingInvoice {
		out.AwaitingInvoice = append(out.AwaitingInvoice, item.Label)
	}
	for _, item := range stats.StaleDrafts {
		out.StaleDrafts = append(out.StaleDrafts, item.Label)
	}
	return nil, out, nil
}
