// ABOUTME: MCP prompt handlers for reusable contract book workflows
// ABOUTME: Provides contract review and party overview prompt templates
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	svc *contracts.Service
}

func NewPromptHandlers(svc *contracts.Service) *PromptHandlers {
	return &PromptHandlers{svc: svc}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "contract-review":
		return h.getContractReviewPrompt(ctx, request.Params.Arguments)
	case "party-overview":
		return h.getPartyOverviewPrompt(ctx, request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getContractReviewPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	ref, ok := args["contract"]
	if !ok || ref == "" {
		return nil, fmt.Errorf("contract is required")
	}
	contract, err := h.svc.Lookup(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contract: %w", err)
	}

	var promptText strings.Builder
	label := contract.Number()
	if label == "" {
		label = contract.ID.String()
	}
	promptText.WriteString(fmt.Sprintf("Review grain contract %s (status %s)\n\n", label, contract.Status))
	promptText.WriteString(fmt.Sprintf("Buyer: %s\n", h.svc.PartyName(ctx, models.PartyBuyer, contract.BuyerID)))
	promptText.WriteString(fmt.Sprintf("Seller: %s\n", h.svc.PartyName(ctx, models.PartySeller, contract.SellerID)))
	if contract.Commodity != "" || contract.Grade != "" {
		promptText.WriteString(fmt.Sprintf("Commodity: %s %s\n", contract.Commodity, contract.Grade))
	}
	if contract.Tonnes != nil {
		promptText.WriteString(fmt.Sprintf("Tonnes: %.2f %s\n", *contract.Tonnes, contract.Tolerance))
	}
	if contract.PriceExGST != "" {
		promptText.WriteString(fmt.Sprintf("Price ex GST: %s\n", contract.PriceExGST))
	}
	if contract.Season != "" {
		promptText.WriteString(fmt.Sprintf("Season: %s\n", contract.Season))
	}
	if contract.BrokeragePayableBy != "" {
		promptText.WriteString(fmt.Sprintf("Brokerage payable by: %s\n", contract.BrokeragePayableBy))
	}

	candidate := *contract
	candidate.Status = models.StatusIncomplete
	if missing := models.MissingRequiredFields(&candidate); contract.Status == models.StatusDraft && len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = string(f)
		}
		promptText.WriteString(fmt.Sprintf("\nMissing before it can leave Draft: %s\n", strings.Join(names, ", ")))
	}
	if contract.Status == models.StatusComplete && contract.XeroInvoiceID == nil {
		promptText.WriteString("\nNo invoice has been recorded yet.\n")
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. Any terms that look inconsistent or unusual")
	promptText.WriteString("\n2. What is still needed to move this contract forward")
	promptText.WriteString("\n3. Suggested next status")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review of contract %s", label),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}

func (h *PromptHandlers) getPartyOverviewPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	kind, err := parseKind(args["kind"])
	if err != nil {
		return nil, err
	}
	idStr, ok := args["id"]
	if !ok {
		return nil, fmt.Errorf("id is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid id: %w", err)
	}

	party, err := h.svc.GetParty(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
	}
	found, err := h.svc.Find(ctx, partyFilter(kind, id))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contracts: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Overview of %s: %s\n\n", kind, party.Name))
	if party.ABN != "" {
		promptText.WriteString(fmt.Sprintf("ABN: %s\n", party.ABN))
	}
	if primary := party.PrimaryContact(); primary != nil {
		promptText.WriteString(fmt.Sprintf("Primary contact: %s <%s> %s\n", primary.Name, primary.Email, primary.PhoneNumber))
	}

	promptText.WriteString(fmt.Sprintf("\nContracts: %d\n", len(found)))
	total := 0.0
	for _, c := range found {
		tonnes := 0.0
		if c.Tonnes != nil {
			tonnes = *c.Tonnes
		}
		total += tonnes
		promptText.WriteString(fmt.Sprintf("  - %s: %.0ft %s (%s, %s)\n", c.Number(), tonnes, c.Commodity, c.Season, c.Status))
	}
	if len(found) > 0 {
		promptText.WriteString(fmt.Sprintf("\nTotal tonnes: %.0f\n", total))
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. A summary of our trading relationship")
	promptText.WriteString("\n2. Contracts that need attention")
	promptText.WriteString("\n3. Recommended next actions")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Overview of %s", party.Name),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}
