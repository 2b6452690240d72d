// ABOUTME: Lifecycle validation for contracts
// ABOUTME: Decides which fields are mandatory for a status and rejects incomplete saves
package models

import (
	"strings"

	"github.com/google/uuid"
)

// Field names as reported in validation errors.
type Field string

const (
	FieldContractDate       Field = "contractDate"
	FieldBuyer              Field = "buyer"
	FieldSeller             Field = "seller"
	FieldTonnes             Field = "tonnes"
	FieldSeason             Field = "season"
	FieldBrokeragePayableBy Field = "brokeragePayableBy"
	FieldStatus             Field = "status"
	FieldContractNumber     Field = "contractNumber"
	FieldBuyerContact       Field = "buyerContact"
	FieldSellerContact      Field = "sellerContact"
	FieldName               Field = "name"
	FieldContacts           Field = "contacts"
)

// requirement is one conditionally required field: a presence check over the
// candidate contract, required whenever the status is not Draft.
type requirement struct {
	field   Field
	present func(c *Contract) bool
}

// RequiredFields is the ordered completeness list checked for non-Draft contracts.
var RequiredFields = []Field{
	FieldContractDate,
	FieldBuyer,
	FieldSeller,
	FieldTonnes,
	FieldSeason,
	FieldBrokeragePayableBy,
}

var requirements = []requirement{
	{FieldContractDate, func(c *Contract) bool { return c.ContractDate != nil && !c.ContractDate.IsZero() }},
	{FieldBuyer, func(c *Contract) bool { return c.BuyerID != nil && *c.BuyerID != uuid.Nil }},
	{FieldSeller, func(c *Contract) bool { return c.SellerID != nil && *c.SellerID != uuid.Nil }},
	{FieldTonnes, func(c *Contract) bool { return c.Tonnes != nil && *c.Tonnes != 0 }},
	{FieldSeason, func(c *Contract) bool { return strings.TrimSpace(c.Season) != "" }},
	{FieldBrokeragePayableBy, func(c *Contract) bool { return c.BrokeragePayableBy != "" }},
}

// RequiredUnlessDraft is the per-field requirement predicate: a conditionally
// required field must be present for every status except Draft.
func RequiredUnlessDraft(status Status) bool {
	return status != StatusDraft
}

// MissingRequiredFields returns the conditionally required fields that are
// empty for c's current status, in RequiredFields order.
func MissingRequiredFields(c *Contract) []Field {
	if !RequiredUnlessDraft(c.Status) {
		return nil
	}
	var missing []Field
	for _, req := range requirements {
		if !req.present(c) {
			missing = append(missing, req.field)
		}
	}
	return missing
}

// RequiredFieldsSatisfied is the commit guard. It holds trivially for Draft.
func RequiredFieldsSatisfied(c *Contract) bool {
	return len(MissingRequiredFields(c)) == 0
}

// CheckEnumerations rejects status or brokerage values outside their fixed
// sets. It applies regardless of status.
func CheckEnumerations(c *Contract) error {
	if !c.Status.Valid() {
		return &ValidationError{Kind: KindEnumeration, Field: FieldStatus, Value: string(c.Status)}
	}
	if c.BrokeragePayableBy != "" && !c.BrokeragePayableBy.Valid() {
		return &ValidationError{
			Kind:   KindEnumeration,
			Field:  FieldBrokeragePayableBy,
			Value:  string(c.BrokeragePayableBy),
			Status: c.Status,
		}
	}
	return nil
}

// CheckCompleteness enforces the non-Draft field gate. It runs on every
// commit, so clearing a required field on an already non-Draft contract fails
// the same way as moving a contract out of Draft.
func CheckCompleteness(c *Contract) error {
	missing := MissingRequiredFields(c)
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{
		Kind:    KindCompleteness,
		Field:   missing[0],
		Status:  c.Status,
		Missing: missing,
	}
}

// CheckContact validates an embedded contact. A nil contact is fine.
func CheckContact(field Field, contact *Contact) error {
	if contact == nil {
		return nil
	}
	for _, part := range []struct {
		name  string
		value string
	}{
		{"name", contact.Name},
		{"email", contact.Email},
		{"phoneNumber", contact.PhoneNumber},
	} {
		if strings.TrimSpace(part.value) == "" {
			return &ValidationError{Kind: KindRequired, Field: field + Field("."+part.name)}
		}
	}
	return nil
}

// NormalizeNumber trims the contract number and clears a blank one, so a
// blank number is absent rather than a duplicate-prone empty string.
func NormalizeNumber(c *Contract) {
	if c.ContractNumber == nil {
		return
	}
	number := strings.TrimSpace(*c.ContractNumber)
	if number == "" {
		c.ContractNumber = nil
		return
	}
	c.ContractNumber = &number
}

// ValidateContract runs the whole engine over the candidate post-save state.
// Enumeration errors win over completeness errors so a bad brokerage value is
// reported even on a Draft. The contract number is normalized in place.
func ValidateContract(c *Contract) error {
	if c == nil {
		return &ValidationError{Kind: KindRequired, Field: "contract"}
	}
	NormalizeNumber(c)
	if err := CheckEnumerations(c); err != nil {
		return err
	}
	if err := CheckContact(FieldBuyerContact, c.BuyerContact); err != nil {
		return err
	}
	if err := CheckContact(FieldSellerContact, c.SellerContact); err != nil {
		return err
	}
	return CheckCompleteness(c)
}

// ValidateParty checks a buyer or seller record before it is written.
func ValidateParty(p *Party) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Kind: KindRequired, Field: FieldName}
	}
	if !p.Kind.Valid() {
		return &ValidationError{Kind: KindEnumeration, Field: "kind", Value: string(p.Kind)}
	}
	for i := range p.Contacts {
		if err := CheckContact(FieldContacts, &p.Contacts[i]); err != nil {
			return err
		}
	}
	return nil
}
