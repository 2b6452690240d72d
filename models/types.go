// ABOUTME: Data models for the grain contract book
// ABOUTME: Defines Contact, Party (buyer/seller), Contract and their enumerations
package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is an embedded value; it has no identity of its own.
type Contact struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	IsPrimary   bool   `json:"is_primary,omitempty"`
}

// PartyKind distinguishes buyers from sellers. Both share one record shape.
type PartyKind string

const (
	PartyBuyer  PartyKind = "buyer"
	PartySeller PartyKind = "seller"
)

// Valid reports whether k is a known party kind.
func (k PartyKind) Valid() bool {
	return k == PartyBuyer || k == PartySeller
}

// Party is a buyer or seller account record.
type Party struct {
	ID            uuid.UUID `json:"id"`
	Kind          PartyKind `json:"kind"`
	Name          string    `json:"name"`
	ABN           string    `json:"abn,omitempty"`
	Email         string    `json:"email,omitempty"`
	AccountNumber string    `json:"account_number,omitempty"`
	OfficeAddress string    `json:"office_address,omitempty"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	Contacts      []Contact `json:"contacts,omitempty"`
	Timestamps
	SoftDelete
}

// PrimaryContact returns the first contact flagged primary, falling back to
// the first contact in the list.
func (p *Party) PrimaryContact() *Contact {
	for i := range p.Contacts {
		if p.Contacts[i].IsPrimary {
			return &p.Contacts[i]
		}
	}
	if len(p.Contacts) > 0 {
		return &p.Contacts[0]
	}
	return nil
}

// Status is the lifecycle tag of a contract.
type Status string

const (
	StatusDraft      Status = "Draft"
	StatusIncomplete Status = "Incomplete"
	StatusComplete   Status = "Complete"
	StatusInvoiced   Status = "Invoiced"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusIncomplete, StatusComplete, StatusInvoiced}

// Valid reports whether s is one of the fixed statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// BrokeragePayableBy names who pays brokerage on a contract.
type BrokeragePayableBy string

const (
	BrokerageBuyer          BrokeragePayableBy = "Buyer"
	BrokerageSeller         BrokeragePayableBy = "Seller"
	BrokerageBuyerAndSeller BrokeragePayableBy = "Buyer & Seller"
	BrokerageSellerAndBuyer BrokeragePayableBy = "Seller & Buyer"
	BrokerageNone           BrokeragePayableBy = "No Brokerage Payable"
)

// BrokerageOptions lists the allowed brokerage values.
var BrokerageOptions = []BrokeragePayableBy{
	BrokerageBuyer,
	BrokerageSeller,
	BrokerageBuyerAndSeller,
	BrokerageSellerAndBuyer,
	BrokerageNone,
}

// Valid reports whether b is one of the allowed brokerage values.
func (b BrokeragePayableBy) Valid() bool {
	for _, known := range BrokerageOptions {
		if b == known {
			return true
		}
	}
	return false
}

// DeliveryPeriod is the window in which grain is delivered.
type DeliveryPeriod struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Contract is a commercial agreement between one buyer and one seller.
// Commercial terms are opaque text; nothing here computes prices or totals.
type Contract struct {
	ID             uuid.UUID      `json:"id"`
	ContractNumber *string        `json:"contract_number,omitempty"`
	ContractDate   *time.Time     `json:"contract_date,omitempty"`
	DeliveryPeriod DeliveryPeriod `json:"delivery_period"`

	XeroInvoiceID     *string `json:"xero_invoice_id"`
	XeroInvoiceNumber *string `json:"xero_invoice_number"`

	BuyerID                 *uuid.UUID `json:"buyer_id,omitempty"`
	SellerID                *uuid.UUID `json:"seller_id,omitempty"`
	BuyerContractReference  string     `json:"buyer_contract_reference,omitempty"`
	SellerContractReference string     `json:"seller_contract_reference,omitempty"`
	BuyerContact            *Contact   `json:"buyer_contact,omitempty"`
	SellerContact           *Contact   `json:"seller_contact,omitempty"`
	AttachedBuyerContract   string     `json:"attached_buyer_contract,omitempty"`
	AttachedSellerContract  string     `json:"attached_seller_contract,omitempty"`

	Grade               string `json:"grade,omitempty"`
	Commodity           string `json:"commodity,omitempty"`
	ContractType        string `json:"contract_type,omitempty"`
	NGRNumber           string `json:"ngr_number,omitempty"`
	DeliveryOption      string `json:"delivery_option,omitempty"`
	Freight             string `json:"freight,omitempty"`
	Weights             string `json:"weights,omitempty"`
	PriceExGST          string `json:"price_ex_gst,omitempty"`
	Conveyance          string `json:"conveyance,omitempty"`
	CertificationScheme string `json:"certification_scheme,omitempty"`
	PaymentTerms        string `json:"payment_terms,omitempty"`
	BrokerRate          string `json:"broker_rate,omitempty"`
	DeliveryDestination string `json:"delivery_destination,omitempty"`
	SpecialCondition    string `json:"special_condition,omitempty"`
	TermsAndConditions  string `json:"terms_and_conditions,omitempty"`
	Notes               string `json:"notes,omitempty"`

	Tonnes             *float64           `json:"tonnes,omitempty"`
	Tolerance          string             `json:"tolerance,omitempty"`
	Season             string             `json:"season,omitempty"`
	BrokeragePayableBy BrokeragePayableBy `json:"brokerage_payable_by,omitempty"`

	Status Status `json:"status"`
	Timestamps
	SoftDelete
}

// NewContract returns a contract with the given status, defaulting to
// Incomplete when none is supplied.
func NewContract(status Status) *Contract {
	if status == "" {
		status = StatusIncomplete
	}
	return &Contract{Status: status}
}

// Number returns the contract number or "" when unassigned.
func (c *Contract) Number() string {
	if c.ContractNumber == nil {
		return ""
	}
	return *c.ContractNumber
}

// ContractFilter selects contracts for read paths. Deleted contracts are
// excluded unless IncludeDeleted is set.
type ContractFilter struct {
	Status         Status
	BuyerID        *uuid.UUID
	SellerID       *uuid.UUID
	Season         string
	IncludeDeleted bool
	Limit          int
}

// CounterContractNumber is the allocator counter used to mint contract numbers.
const CounterContractNumber = "contractNumber"

// StatusSummary aggregates non-deleted contracts for one status.
type StatusSummary struct {
	Status Status  `json:"status"`
	Count  int     `json:"count"`
	Tonnes float64 `json:"tonnes"`
}
