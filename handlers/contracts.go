// ABOUTME: Contract MCP tool handlers
// ABOUTME: Implements create, update, status, invoice, delete, get, find and summary tools
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ContractHandlers struct {
	svc *contracts.Service
}

func NewContractHandlers(svc *contracts.Service) *ContractHandlers {
	return &ContractHandlers{svc: svc}
}

// ContractFieldsInput carries every editable contract field. Empty values
// are left untouched on update.
type ContractFieldsInput struct {
	ContractNumber          string        `json:"contract_number,omitempty" jsonschema:"Contract number; minted automatically when a non-Draft contract has none"`
	ContractDate            string        `json:"contract_date,omitempty" jsonschema:"Contract date (YYYY-MM-DD or RFC3339)"`
	DeliveryStart           string        `json:"delivery_start,omitempty" jsonschema:"Start of delivery period (YYYY-MM-DD or RFC3339)"`
	DeliveryEnd             string        `json:"delivery_end,omitempty" jsonschema:"End of delivery period (YYYY-MM-DD or RFC3339)"`
	Buyer                   string        `json:"buyer,omitempty" jsonschema:"Buyer ID or exact name"`
	Seller                  string        `json:"seller,omitempty" jsonschema:"Seller ID or exact name"`
	BuyerContractReference  string        `json:"buyer_contract_reference,omitempty" jsonschema:"Buyer's own contract reference"`
	SellerContractReference string        `json:"seller_contract_reference,omitempty" jsonschema:"Seller's own contract reference"`
	BuyerContact            *ContactInput `json:"buyer_contact,omitempty" jsonschema:"Contact at the buyer for this contract"`
	SellerContact           *ContactInput `json:"seller_contact,omitempty" jsonschema:"Contact at the seller for this contract"`
	AttachedBuyerContract   string        `json:"attached_buyer_contract,omitempty" jsonschema:"Reference to the buyer's signed contract document"`
	AttachedSellerContract  string        `json:"attached_seller_contract,omitempty" jsonschema:"Reference to the seller's signed contract document"`
	Grade                   string        `json:"grade,omitempty" jsonschema:"Grain grade"`
	Commodity               string        `json:"commodity,omitempty" jsonschema:"Commodity, e.g. Wheat"`
	ContractType            string        `json:"contract_type,omitempty" jsonschema:"Contract type"`
	NGRNumber               string        `json:"ngr_number,omitempty" jsonschema:"National Grower Register number"`
	DeliveryOption          string        `json:"delivery_option,omitempty" jsonschema:"Delivery option"`
	Freight                 string        `json:"freight,omitempty" jsonschema:"Freight terms"`
	Weights                 string        `json:"weights,omitempty" jsonschema:"Weights terms"`
	PriceExGST              string        `json:"price_ex_gst,omitempty" jsonschema:"Price excluding GST (free text)"`
	Conveyance              string        `json:"conveyance,omitempty" jsonschema:"Conveyance"`
	CertificationScheme     string        `json:"certification_scheme,omitempty" jsonschema:"Certification scheme"`
	PaymentTerms            string        `json:"payment_terms,omitempty" jsonschema:"Payment terms"`
	BrokerRate              string        `json:"broker_rate,omitempty" jsonschema:"Broker rate (free text)"`
	DeliveryDestination     string        `json:"delivery_destination,omitempty" jsonschema:"Delivery destination"`
	SpecialCondition        string        `json:"special_condition,omitempty" jsonschema:"Special conditions"`
	TermsAndConditions      string        `json:"terms_and_conditions,omitempty" jsonschema:"Terms and conditions"`
	Notes                   string        `json:"notes,omitempty" jsonschema:"Notes"`
	Tonnes                  *float64      `json:"tonnes,omitempty" jsonschema:"Contracted tonnes"`
	Tolerance               string        `json:"tolerance,omitempty" jsonschema:"Tonnage tolerance (free text)"`
	Season                  string        `json:"season,omitempty" jsonschema:"Season, e.g. 2024-25"`
	BrokeragePayableBy      string        `json:"brokerage_payable_by,omitempty" jsonschema:"Who pays brokerage: Buyer, Seller, Buyer & Seller, Seller & Buyer, No Brokerage Payable"`
	Status                  string        `json:"status,omitempty" jsonschema:"Status: Draft, Incomplete, Complete, Invoiced"`
}

type ContractOutput struct {
	ID                      string         `json:"id"`
	ContractNumber          *string        `json:"contract_number"`
	Status                  string         `json:"status"`
	ContractDate            *string        `json:"contract_date,omitempty"`
	DeliveryStart           *string        `json:"delivery_start,omitempty"`
	DeliveryEnd             *string        `json:"delivery_end,omitempty"`
	BuyerID                 *string        `json:"buyer_id,omitempty"`
	BuyerName               string         `json:"buyer_name,omitempty"`
	SellerID                *string        `json:"seller_id,omitempty"`
	SellerName              string         `json:"seller_name,omitempty"`
	BuyerContractReference  string         `json:"buyer_contract_reference,omitempty"`
	SellerContractReference string         `json:"seller_contract_reference,omitempty"`
	BuyerContact            *ContactOutput `json:"buyer_contact,omitempty"`
	SellerContact           *ContactOutput `json:"seller_contact,omitempty"`
	AttachedBuyerContract   string         `json:"attached_buyer_contract,omitempty"`
	AttachedSellerContract  string         `json:"attached_seller_contract,omitempty"`
	Grade                   string         `json:"grade,omitempty"`
	Commodity               string         `json:"commodity,omitempty"`
	ContractType            string         `json:"contract_type,omitempty"`
	NGRNumber               string         `json:"ngr_number,omitempty"`
	DeliveryOption          string         `json:"delivery_option,omitempty"`
	Freight                 string         `json:"freight,omitempty"`
	Weights                 string         `json:"weights,omitempty"`
	PriceExGST              string         `json:"price_ex_gst,omitempty"`
	Conveyance              string         `json:"conveyance,omitempty"`
	CertificationScheme     string         `json:"certification_scheme,omitempty"`
	PaymentTerms            string         `json:"payment_terms,omitempty"`
	BrokerRate              string         `json:"broker_rate,omitempty"`
	DeliveryDestination     string         `json:"delivery_destination,omitempty"`
	SpecialCondition        string         `json:"special_condition,omitempty"`
	TermsAndConditions      string         `json:"terms_and_conditions,omitempty"`
	Notes                   string         `json:"notes,omitempty"`
	Tonnes                  *float64       `json:"tonnes,omitempty"`
	Tolerance               string         `json:"tolerance,omitempty"`
	Season                  string         `json:"season,omitempty"`
	BrokeragePayableBy      string         `json:"brokerage_payable_by,omitempty"`
	XeroInvoiceID           *string        `json:"xero_invoice_id"`
	XeroInvoiceNumber       *string        `json:"xero_invoice_number"`
	IsDeleted               bool           `json:"is_deleted,omitempty"`
	DeletedAt               *string        `json:"deleted_at,omitempty"`
	CreatedAt               string         `json:"created_at"`
	UpdatedAt               string         `json:"updated_at"`
}

func (h *ContractHandlers) CreateContract(ctx context.Context, request *mcp.CallToolRequest, input ContractFieldsInput) (*mcp.CallToolResult, ContractOutput, error) {
	contract := models.NewContract(models.Status(input.Status))
	if err := h.applyFields(ctx, contract, input); err != nil {
		return nil, ContractOutput{}, err
	}

	if err := h.svc.Create(ctx, contract); err != nil {
		return nil, ContractOutput{}, fmt.Errorf("failed to create contract: %w", err)
	}
	return nil, h.toOutput(ctx, contract), nil
}

type UpdateContractInput struct {
	Contract string              `json:"contract" jsonschema:"Contract ID or contract number (required)"`
	Fields   ContractFieldsInput `json:"fields" jsonschema:"Fields to change; empty fields are left untouched"`
}

func (h *ContractHandlers) UpdateContract(ctx context.Context, request *mcp.CallToolRequest, input UpdateContractInput) (*mcp.CallToolResult, ContractOutput, error) {
	contract, err := h.lookup(ctx, input.Contract)
	if err != nil {
		return nil, ContractOutput{}, err
	}
	if err := h.applyFields(ctx, contract, input.Fields); err != nil {
		return nil, ContractOutput{}, err
	}

	if err := h.svc.Save(ctx, contract); err != nil {
		return nil, ContractOutput{}, fmt.Errorf("failed to update contract: %w", err)
	}
	return nil, h.toOutput(ctx, contract), nil
}

type SetContractStatusInput struct {
	Contract string `json:"contract" jsonschema:"Contract ID or contract number (required)"`
	Status   string `json:"status" jsonschema:"New status: Draft, Incomplete, Complete, Invoiced (required)"`
}

func (h *ContractHandlers) SetContractStatus(ctx context.Context, request *mcp.CallToolRequest, input SetContractStatusInput) (*mcp.CallToolResult, ContractOutput, error) {
	if input.Status == "" {
		return nil, ContractOutput{}, fmt.Errorf("status is required")
	}
	contract, err := h.lookup(ctx, input.Contract)
	if err != nil {
		return nil, ContractOutput{}, err
	}

	updated, err := h.svc.Transition(ctx, contract.ID, models.Status(input.Status))
	if err != nil {
		return nil, ContractOutput{}, fmt.Errorf("failed to set status: %w", err)
	}
	return nil, h.toOutput(ctx, updated), nil
}

type RecordInvoiceInput struct {
	Contract          string `json:"contract" jsonschema:"Contract ID or contract number (required)"`
	XeroInvoiceID     string `json:"xero_invoice_id" jsonschema:"Invoice ID from the accounting system (required)"`
	XeroInvoiceNumber string `json:"xero_invoice_number,omitempty" jsonschema:"Invoice number from the accounting system"`
}

func (h *ContractHandlers) RecordInvoice(ctx context.Context, request *mcp.CallToolRequest, input RecordInvoiceInput) (*mcp.CallToolResult, ContractOutput, error) {
	contract, err := h.lookup(ctx, input.Contract)
	if err != nil {
		return nil, ContractOutput{}, err
	}

	updated, err := h.svc.RecordInvoice(ctx, contract.ID, input.XeroInvoiceID, input.XeroInvoiceNumber)
	if err != nil {
		return nil, ContractOutput{}, fmt.Errorf("failed to record invoice: %w", err)
	}
	return nil, h.toOutput(ctx, updated), nil
}

type ContractRefInput struct {
	Contract string `json:"contract" jsonschema:"Contract ID or contract number (required)"`
}

func (h *ContractHandlers) DeleteContract(ctx context.Context, request *mcp.CallToolRequest, input ContractRefInput) (*mcp.CallToolResult, DeleteOutput, error) {
	contract, err := h.lookup(ctx, input.Contract)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	if err := h.svc.Delete(ctx, contract.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete contract: %w", err)
	}

	label := contract.Number()
	if label == "" {
		label = contract.ID.String()
	}
	return nil, DeleteOutput{Success: true, Message: fmt.Sprintf("Deleted contract: %s", label)}, nil
}

type GetContractInput struct {
	Contract       string `json:"contract" jsonschema:"Contract ID or contract number (required)"`
	IncludeDeleted bool   `json:"include_deleted,omitempty" jsonschema:"Return the contract even if deleted (ID lookups only)"`
}

func (h *ContractHandlers) GetContract(ctx context.Context, request *mcp.CallToolRequest, input GetContractInput) (*mcp.CallToolResult, ContractOutput, error) {
	if input.IncludeDeleted {
		id, err := parseOptionalUUID("contract", input.Contract)
		if err != nil {
			return nil, ContractOutput{}, err
		}
		if id == nil {
			return nil, ContractOutput{}, fmt.Errorf("contract is required")
		}
		contract, err := h.svc.GetForAudit(ctx, *id)
		if err != nil {
			return nil, ContractOutput{}, fmt.Errorf("failed to get contract: %w", err)
		}
		return nil, h.toOutput(ctx, contract), nil
	}

	contract, err := h.lookup(ctx, input.Contract)
	if err != nil {
		return nil, ContractOutput{}, err
	}
	return nil, h.toOutput(ctx, contract), nil
}

type FindContractsInput struct {
	Status         string `json:"status,omitempty" jsonschema:"Filter by status"`
	Buyer          string `json:"buyer,omitempty" jsonschema:"Filter by buyer ID or exact name"`
	Seller         string `json:"seller,omitempty" jsonschema:"Filter by seller ID or exact name"`
	Season         string `json:"season,omitempty" jsonschema:"Filter by season"`
	IncludeDeleted bool   `json:"include_deleted,omitempty" jsonschema:"Include deleted contracts"`
	Limit          int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 50)"`
}

type FindContractsOutput struct {
	Contracts []ContractOutput `json:"contracts"`
}

func (h *ContractHandlers) FindContracts(ctx context.Context, request *mcp.CallToolRequest, input FindContractsInput) (*mcp.CallToolResult, FindContractsOutput, error) {
	filter := models.ContractFilter{
		Status:         models.Status(input.Status),
		Season:         input.Season,
		IncludeDeleted: input.IncludeDeleted,
		Limit:          input.Limit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, FindContractsOutput{}, fmt.Errorf("invalid status: %s (valid: Draft, Incomplete, Complete, Invoiced)", input.Status)
	}
	if input.Buyer != "" {
		buyer, err := h.svc.ResolveParty(ctx, models.PartyBuyer, input.Buyer)
		if err != nil {
			return nil, FindContractsOutput{}, fmt.Errorf("failed to resolve buyer: %w", err)
		}
		filter.BuyerID = &buyer.ID
	}
	if input.Seller != "" {
		seller, err := h.svc.ResolveParty(ctx, models.PartySeller, input.Seller)
		if err != nil {
			return nil, FindContractsOutput{}, fmt.Errorf("failed to resolve seller: %w", err)
		}
		filter.SellerID = &seller.ID
	}

	found, err := h.svc.Find(ctx, filter)
	if err != nil {
		return nil, FindContractsOutput{}, fmt.Errorf("failed to find contracts: %w", err)
	}

	result := make([]ContractOutput, len(found))
	for i := range found {
		result[i] = h.toOutput(ctx, &found[i])
	}
	return nil, FindContractsOutput{Contracts: result}, nil
}

type ContractSummaryInput struct{}

type ContractSummaryOutput struct {
	Statuses []models.StatusSummary `json:"statuses"`
	Total    int                    `json:"total"`
	Tonnes   float64                `json:"tonnes"`
}

func (h *ContractHandlers) ContractSummary(ctx context.Context, request *mcp.CallToolRequest, input ContractSummaryInput) (*mcp.CallToolResult, ContractSummaryOutput, error) {
	summary, err := h.svc.Summary(ctx)
	if err != nil {
		return nil, ContractSummaryOutput{}, fmt.Errorf("failed to summarise contracts: %w", err)
	}
	out := ContractSummaryOutput{Statuses: summary}
	for _, s := range summary {
		out.Total += s.Count
		out.Tonnes += s.Tonnes
	}
	return nil, out, nil
}

func (h *ContractHandlers) lookup(ctx context.Context, ref string) (*models.Contract, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("contract is required")
	}
	contract, err := h.svc.Lookup(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract %s: %w", ref, err)
	}
	return contract, nil
}

func (h *ContractHandlers) applyFields(ctx context.Context, c *models.Contract, in ContractFieldsInput) error {
	if in.Status != "" {
		c.Status = models.Status(in.Status)
	}
	if number := strings.TrimSpace(in.ContractNumber); number != "" {
		c.ContractNumber = &number
	}

	dates := []struct {
		name  string
		value string
		dest  **time.Time
	}{
		{"contract_date", in.ContractDate, &c.ContractDate},
		{"delivery_start", in.DeliveryStart, &c.DeliveryPeriod.Start},
		{"delivery_end", in.DeliveryEnd, &c.DeliveryPeriod.End},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		t, err := parseDate(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dest = &t
	}

	if in.Buyer != "" {
		buyer, err := h.svc.ResolveParty(ctx, models.PartyBuyer, in.Buyer)
		if err != nil {
			return fmt.Errorf("failed to resolve buyer %q: %w", in.Buyer, err)
		}
		c.BuyerID = &buyer.ID
	}
	if in.Seller != "" {
		seller, err := h.svc.ResolveParty(ctx, models.PartySeller, in.Seller)
		if err != nil {
			return fmt.Errorf("failed to resolve seller %q: %w", in.Seller, err)
		}
		c.SellerID = &seller.ID
	}
	if in.BuyerContact != nil {
		contact := models.Contact(*in.BuyerContact)
		c.BuyerContact = &contact
	}
	if in.SellerContact != nil {
		contact := models.Contact(*in.SellerContact)
		c.SellerContact = &contact
	}
	if in.Tonnes != nil {
		tonnes := *in.Tonnes
		c.Tonnes = &tonnes
	}
	if in.BrokeragePayableBy != "" {
		c.BrokeragePayableBy = models.BrokeragePayableBy(in.BrokeragePayableBy)
	}

	text := []struct {
		value string
		dest  *string
	}{
		{in.BuyerContractReference, &c.BuyerContractReference},
		{in.SellerContractReference, &c.SellerContractReference},
		{in.AttachedBuyerContract, &c.AttachedBuyerContract},
		{in.AttachedSellerContract, &c.AttachedSellerContract},
		{in.Grade, &c.Grade},
		{in.Commodity, &c.Commodity},
		{in.ContractType, &c.ContractType},
		{in.NGRNumber, &c.NGRNumber},
		{in.DeliveryOption, &c.DeliveryOption},
		{in.Freight, &c.Freight},
		{in.Weights, &c.Weights},
		{in.PriceExGST, &c.PriceExGST},
		{in.Conveyance, &c.Conveyance},
		{in.CertificationScheme, &c.CertificationScheme},
		{in.PaymentTerms, &c.PaymentTerms},
		{in.BrokerRate, &c.BrokerRate},
		{in.DeliveryDestination, &c.DeliveryDestination},
		{in.SpecialCondition, &c.SpecialCondition},
		{in.TermsAndConditions, &c.TermsAndConditions},
		{in.Notes, &c.Notes},
		{in.Tolerance, &c.Tolerance},
		{in.Season, &c.Season},
	}
	for _, f := range text {
		if f.value != "" {
			*f.dest = f.value
		}
	}
	return nil
}

// parseDate accepts a calendar date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02T15:04:05Z07:00")
	return &s
}

func (h *ContractHandlers) toOutput(ctx context.Context, c *models.Contract) ContractOutput {
	output := ContractOutput{
		ID:                      c.ID.String(),
		ContractNumber:          c.ContractNumber,
		Status:                  string(c.Status),
		ContractDate:            formatTime(c.ContractDate),
		DeliveryStart:           formatTime(c.DeliveryPeriod.Start),
		DeliveryEnd:             formatTime(c.DeliveryPeriod.End),
		BuyerName:               h.svc.PartyName(ctx, models.PartyBuyer, c.BuyerID),
		SellerName:              h.svc.PartyName(ctx, models.PartySeller, c.SellerID),
		BuyerContractReference:  c.BuyerContractReference,
		SellerContractReference: c.SellerContractReference,
		AttachedBuyerContract:   c.AttachedBuyerContract,
		AttachedSellerContract:  c.AttachedSellerContract,
		Grade:                   c.Grade,
		Commodity:               c.Commodity,
		ContractType:            c.ContractType,
		NGRNumber:               c.NGRNumber,
		DeliveryOption:          c.DeliveryOption,
		Freight:                 c.Freight,
		Weights:                 c.Weights,
		PriceExGST:              c.PriceExGST,
		Conveyance:              c.Conveyance,
		CertificationScheme:     c.CertificationScheme,
		PaymentTerms:            c.PaymentTerms,
		BrokerRate:              c.BrokerRate,
		DeliveryDestination:     c.DeliveryDestination,
		SpecialCondition:        c.SpecialCondition,
		TermsAndConditions:      c.TermsAndConditions,
		Notes:                   c.Notes,
		Tonnes:                  c.Tonnes,
		Tolerance:               c.Tolerance,
		Season:                  c.Season,
		BrokeragePayableBy:      string(c.BrokeragePayableBy),
		XeroInvoiceID:           c.XeroInvoiceID,
		XeroInvoiceNumber:       c.XeroInvoiceNumber,
		IsDeleted:               c.IsDeleted,
		DeletedAt:               formatTime(c.DeletedAt),
		CreatedAt:               c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:               c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if c.BuyerID != nil {
		id := c.BuyerID.String()
		output.BuyerID = &id
	}
	if c.SellerID != nil {
		id := c.SellerID.String()
		output.SellerID = &id
	}
	if c.BuyerContact != nil {
		contact := ContactOutput(*c.BuyerContact)
		output.BuyerContact = &contact
	}
	if c.SellerContact != nil {
		contact := ContactOutput(*c.SellerContact)
		output.SellerContact = &contact
	}
	return output
}
