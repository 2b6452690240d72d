// ABOUTME: Buyer and seller MCP tool handlers
// ABOUTME: Implements add_buyer, add_seller, find_parties, update_party and delete_party tools
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

type PartyHandlers struct {
	svc *contracts.Service
}

func NewPartyHandlers(svc *contracts.Service) *PartyHandlers {
	return &PartyHandlers{svc: svc}
}

type ContactInput struct {
	Name        string `json:"name" jsonschema:"Contact name (required)"`
	Email       string `json:"email" jsonschema:"Contact email (required)"`
	PhoneNumber string `json:"phone_number" jsonschema:"Contact phone number (required)"`
	IsPrimary   bool   `json:"is_primary,omitempty" jsonschema:"Whether this is the primary contact"`
}

type AddPartyInput struct {
	Name          string         `json:"name" jsonschema:"Business name (required)"`
	ABN           string         `json:"abn,omitempty" jsonschema:"Australian Business Number"`
	Email         string         `json:"email,omitempty" jsonschema:"Accounts email"`
	AccountNumber string         `json:"account_number,omitempty" jsonschema:"Account number"`
	OfficeAddress string         `json:"office_address,omitempty" jsonschema:"Office address"`
	PhoneNumber   string         `json:"phone_number,omitempty" jsonschema:"Office phone number"`
	Contacts      []ContactInput `json:"contacts,omitempty" jsonschema:"People at this business"`
}

type PartyOutput struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Name          string          `json:"name"`
	ABN           string          `json:"abn,omitempty"`
	Email         string          `json:"email,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	OfficeAddress string          `json:"office_address,omitempty"`
	PhoneNumber   string          `json:"phone_number,omitempty"`
	Contacts      []ContactOutput `json:"contacts,omitempty"`
	IsDeleted     bool            `json:"is_deleted,omitempty"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type ContactOutput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	IsPrimary   bool   `json:"is_primary,omitempty"`
}

func (h *PartyHandlers) AddBuyer(ctx context.Context, request *mcp.CallToolRequest, input AddPartyInput) (*mcp.CallToolResult, PartyOutput, error) {
	return h.addParty(ctx, models.PartyBuyer, input)
}

func (h *PartyHandlers) AddSeller(ctx context.Context, request *mcp.CallToolRequest, input AddPartyInput) (*mcp.CallToolResult, PartyOutput, error) {
	return h.addParty(ctx, models.PartySeller, input)
}

func (h *PartyHandlers) addParty(ctx context.Context, kind models.PartyKind, input AddPartyInput) (*mcp.CallToolResult, PartyOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, PartyOutput{}, fmt.Errorf("name is required")
	}

	party := &models.Party{Kind: kind}
	applyPartyInput(party, input)

	if err := h.svc.AddParty(ctx, party); err != nil {
		return nil, PartyOutput{}, fmt.Errorf("failed to add %s: %w", kind, err)
	}
	return nil, partyToOutput(party), nil
}

type FindPartiesInput struct {
	Kind  string `json:"kind" jsonschema:"Party kind: buyer or seller (required)"`
	Query string `json:"query,omitempty" jsonschema:"Search query (searches name, ABN and email)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindPartiesOutput struct {
	Parties []PartyOutput `json:"parties"`
}

func (h *PartyHandlers) FindParties(ctx context.Context, request *mcp.CallToolRequest, input FindPartiesInput) (*mcp.CallToolResult, FindPartiesOutput, error) {
	kind, err := parseKind(input.Kind)
	if err != nil {
		return nil, FindPartiesOutput{}, err
	}
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	parties, err := h.svc.FindParties(ctx, kind, input.Query, limit)
	if err != nil {
		return nil, FindPartiesOutput{}, fmt.Errorf("failed to find parties: %w", err)
	}

	result := make([]PartyOutput, len(parties))
	for i := range parties {
		result[i] = partyToOutput(&parties[i])
	}
	return nil, FindPartiesOutput{Parties: result}, nil
}

type UpdatePartyInput struct {
	Kind   string        `json:"kind" jsonschema:"Party kind: buyer or seller (required)"`
	ID     string        `json:"id" jsonschema:"Party ID or exact name (required)"`
	Fields AddPartyInput `json:"fields" jsonschema:"Fields to change; empty fields are left untouched"`
}

func (h *PartyHandlers) UpdateParty(ctx context.Context, request *mcp.CallToolRequest, input UpdatePartyInput) (*mcp.CallToolResult, PartyOutput, error) {
	kind, err := parseKind(input.Kind)
	if err != nil {
		return nil, PartyOutput{}, err
	}
	party, err := h.svc.ResolveParty(ctx, kind, input.ID)
	if err != nil {
		return nil, PartyOutput{}, fmt.Errorf("failed to get %s: %w", kind, err)
	}

	applyPartyInput(party, input.Fields)
	if err := h.svc.UpdateParty(ctx, party); err != nil {
		return nil, PartyOutput{}, fmt.Errorf("failed to update %s: %w", kind, err)
	}
	return nil, partyToOutput(party), nil
}

type DeletePartyInput struct {
	Kind string `json:"kind" jsonschema:"Party kind: buyer or seller (required)"`
	ID   string `json:"id" jsonschema:"Party ID or exact name (required)"`
}

type DeleteOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *PartyHandlers) DeleteParty(ctx context.Context, request *mcp.CallToolRequest, input DeletePartyInput) (*mcp.CallToolResult, DeleteOutput, error) {
	kind, err := parseKind(input.Kind)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	party, err := h.svc.ResolveParty(ctx, kind, input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	if err := h.svc.DeleteParty(ctx, kind, party.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	return nil, DeleteOutput{
		Success: true,
		Message: fmt.Sprintf("Deleted %s: %s (existing contracts keep their reference)", kind, party.Name),
	}, nil
}

func parseKind(s string) (models.PartyKind, error) {
	kind := models.PartyKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.Valid() {
		return "", fmt.Errorf("invalid kind: %q (valid: buyer, seller)", s)
	}
	return kind, nil
}

// applyPartyInput copies non-empty fields; contacts are replaced when given.
func applyPartyInput(p *models.Party, input AddPartyInput) {
	if input.Name != "" {
		p.Name = strings.TrimSpace(input.Name)
	}
	if input.ABN != "" {
		p.ABN = input.ABN
	}
	if input.Email != "" {
		p.Email = input.Email
	}
	if input.AccountNumber != "" {
		p.AccountNumber = input.AccountNumber
	}
	if input.OfficeAddress != "" {
		p.OfficeAddress = input.OfficeAddress
	}
	if input.PhoneNumber != "" {
		p.PhoneNumber = input.PhoneNumber
	}
	if input.Contacts != nil {
		p.Contacts = make([]models.Contact, len(input.Contacts))
		for i, c := range input.Contacts {
			p.Contacts[i] = models.Contact(c)
		}
	}
}

func partyToOutput(p *models.Party) PartyOutput {
	output := PartyOutput{
		ID:            p.ID.String(),
		Kind:          string(p.Kind),
		Name:          p.Name,
		ABN:           p.ABN,
		Email:         p.Email,
		AccountNumber: p.AccountNumber,
		OfficeAddress: p.OfficeAddress,
		PhoneNumber:   p.PhoneNumber,
		IsDeleted:     p.IsDeleted,
		CreatedAt:     p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, c := range p.Contacts {
		output.Contacts = append(output.Contacts, ContactOutput(c))
	}
	return output
}

func parseOptionalUUID(field, s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &id, nil
}
