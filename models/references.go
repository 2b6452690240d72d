// ABOUTME: Buyer and seller reference selection for contract saves
// ABOUTME: Only new or changed references are checked against live parties
package models

import "github.com/google/uuid"

// PartyRef is a party reference carried by a contract.
type PartyRef struct {
	Field Field
	Kind  PartyKind
	ID    uuid.UUID
}

// ReferencesToCheck returns the party references on c that must resolve to a
// non-deleted party before c is stored. A reference unchanged from prev is
// skipped, so a contract keeps saving after its party is deleted. prev is nil
// for new contracts.
func ReferencesToCheck(c, prev *Contract) []PartyRef {
	var prevBuyer, prevSeller *uuid.UUID
	if prev != nil {
		prevBuyer, prevSeller = prev.BuyerID, prev.SellerID
	}

	var refs []PartyRef
	if changedRef(c.BuyerID, prevBuyer) {
		refs = append(refs, PartyRef{Field: FieldBuyer, Kind: PartyBuyer, ID: *c.BuyerID})
	}
	if changedRef(c.SellerID, prevSeller) {
		refs = append(refs, PartyRef{Field: FieldSeller, Kind: PartySeller, ID: *c.SellerID})
	}
	return refs
}

func changedRef(id, prev *uuid.UUID) bool {
	if id == nil || *id == uuid.Nil {
		return false
	}
	return prev == nil || *prev != *id
}
