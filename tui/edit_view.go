// ABOUTME: Edit view for creating and updating contracts, buyers and sellers
// ABOUTME: Form input handling; saves go through the contract service
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/harperreed/grainbroker/models"
)

// Contract form field order.
const (
	contractStatus = iota
	contractDate
	contractBuyer
	contractSeller
	contractTonnes
	contractSeason
	contractBrokerage
	contractCommodity
	contractGrade
	contractPrice
	contractNotes
	contractFieldCount
)

// Party form field order.
const (
	partyName = iota
	partyABN
	partyEmail
	partyPhone
	partyAddress
	partyFieldCount
)

func (m Model) renderEditView() string {
	var s strings.Builder

	if m.selectedID == "" {
		s.WriteString(titleStyle.Render("NEW " + m.entityTypeName()))
	} else {
		s.WriteString(titleStyle.Render("EDIT " + m.entityTypeName()))
	}
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) entityTypeName() string {
	switch m.entityType {
	case EntityContracts:
		return "CONTRACT"
	case EntityBuyers:
		return "BUYER"
	case EntitySellers:
		return "SELLER"
	}
	return ""
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.err = nil
		if m.selectedID == "" {
			m.viewMode = ViewList
		} else {
			m.viewMode = ViewDetail
		}
		return m, nil
	case "tab", "down":
		m.focusIndex = (m.focusIndex + 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusIndex = (m.focusIndex + len(m.formInputs) - 1) % len(m.formInputs)
		m.updateFormFocus()
		return m, nil
	case "enter":
		id, err := m.saveEntity()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.selectedID = id
		m.viewMode = ViewDetail
		m.message = "Saved"
		return m, nil
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func newInput(placeholder string, limit int) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = limit
	return input
}

func (m *Model) initFormInputs() {
	switch m.entityType {
	case EntityContracts:
		m.initContractForm()
	case EntityBuyers, EntitySellers:
		m.initPartyForm()
	}

	m.focusIndex = 0
	m.updateFormFocus()
}

func (m *Model) initContractForm() {
	inputs := make([]textinput.Model, contractFieldCount)
	inputs[contractStatus] = newInput("Status (Draft/Incomplete/Complete/Invoiced)", 20)
	inputs[contractDate] = newInput("Contract date (YYYY-MM-DD)", 10)
	inputs[contractBuyer] = newInput("Buyer name or ID", 100)
	inputs[contractSeller] = newInput("Seller name or ID", 100)
	inputs[contractTonnes] = newInput("Tonnes", 20)
	inputs[contractSeason] = newInput("Season (e.g. 2024-25)", 20)
	inputs[contractBrokerage] = newInput("Brokerage payable by (Buyer/Seller/Buyer & Seller/Seller & Buyer/No Brokerage Payable)", 30)
	inputs[contractCommodity] = newInput("Commodity", 100)
	inputs[contractGrade] = newInput("Grade", 100)
	inputs[contractPrice] = newInput("Price ex GST", 100)
	inputs[contractNotes] = newInput("Notes", 500)

	if m.selectedID != "" {
		id, _ := uuid.Parse(m.selectedID)
		c, _ := m.svc.Get(m.ctx, id)
		if c != nil {
			inputs[contractStatus].SetValue(string(c.Status))
			inputs[contractDate].SetValue(formatDate(c.ContractDate))
			inputs[contractBuyer].SetValue(partyRef(c.BuyerID))
			inputs[contractSeller].SetValue(partyRef(c.SellerID))
			if c.Tonnes != nil {
				inputs[contractTonnes].SetValue(strconv.FormatFloat(*c.Tonnes, 'f', -1, 64))
			}
			inputs[contractSeason].SetValue(c.Season)
			inputs[contractBrokerage].SetValue(string(c.BrokeragePayableBy))
			inputs[contractCommodity].SetValue(c.Commodity)
			inputs[contractGrade].SetValue(c.Grade)
			inputs[contractPrice].SetValue(c.PriceExGST)
			inputs[contractNotes].SetValue(c.Notes)
		}
	} else {
		inputs[contractStatus].SetValue(string(models.StatusDraft))
	}

	m.formInputs = inputs
}

func (m *Model) initPartyForm() {
	inputs := make([]textinput.Model, partyFieldCount)
	inputs[partyName] = newInput("Name", 100)
	inputs[partyABN] = newInput("ABN", 20)
	inputs[partyEmail] = newInput("Email", 100)
	inputs[partyPhone] = newInput("Phone", 20)
	inputs[partyAddress] = newInput("Office address", 200)

	if m.selectedID != "" {
		id, _ := uuid.Parse(m.selectedID)
		p, _ := m.svc.GetParty(m.ctx, m.partyKind(), id)
		if p != nil {
			inputs[partyName].SetValue(p.Name)
			inputs[partyABN].SetValue(p.ABN)
			inputs[partyEmail].SetValue(p.Email)
			inputs[partyPhone].SetValue(p.PhoneNumber)
			inputs[partyAddress].SetValue(p.OfficeAddress)
		}
	}

	m.formInputs = inputs
}

func partyRef(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func (m *Model) updateFormFocus() {
	for i := range m.formInputs {
		if i == m.focusIndex {
			m.formInputs[i].Focus()
		} else {
			m.formInputs[i].Blur()
		}
	}
}

// saveEntity commits the form and returns the saved record's ID.
func (m Model) saveEntity() (string, error) {
	switch m.entityType {
	case EntityContracts:
		return m.saveContract()
	case EntityBuyers, EntitySellers:
		return m.saveParty()
	}
	return "", fmt.Errorf("unknown entity type")
}

func (m Model) value(i int) string {
	return strings.TrimSpace(m.formInputs[i].Value())
}

func (m Model) saveContract() (string, error) {
	c := models.NewContract(models.Status(m.value(contractStatus)))
	if m.selectedID != "" {
		id, err := uuid.Parse(m.selectedID)
		if err != nil {
			return "", fmt.Errorf("invalid ID: %w", err)
		}
		existing, err := m.svc.Get(m.ctx, id)
		if err != nil {
			return "", err
		}
		c = existing
		c.Status = models.Status(m.value(contractStatus))
	}

	c.ContractDate = nil
	if v := m.value(contractDate); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return "", fmt.Errorf("contract date must be YYYY-MM-DD")
		}
		c.ContractDate = &t
	}

	var err error
	if c.BuyerID, err = m.resolveRef(models.PartyBuyer, m.value(contractBuyer), c.BuyerID); err != nil {
		return "", err
	}
	if c.SellerID, err = m.resolveRef(models.PartySeller, m.value(contractSeller), c.SellerID); err != nil {
		return "", err
	}

	c.Tonnes = nil
	if v := m.value(contractTonnes); v != "" {
		tonnes, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", fmt.Errorf("tonnes must be a number")
		}
		c.Tonnes = &tonnes
	}

	c.Season = m.value(contractSeason)
	c.BrokeragePayableBy = models.BrokeragePayableBy(m.value(contractBrokerage))
	c.Commodity = m.value(contractCommodity)
	c.Grade = m.value(contractGrade)
	c.PriceExGST = m.value(contractPrice)
	c.Notes = m.value(contractNotes)

	if m.selectedID == "" {
		err = m.svc.Create(m.ctx, c)
	} else {
		err = m.svc.Save(m.ctx, c)
	}
	if err != nil {
		return "", err
	}
	return c.ID.String(), nil
}

// resolveRef keeps an unchanged reference as is, so contracts whose party
// was deleted later can still be edited.
func (m Model) resolveRef(kind models.PartyKind, v string, current *uuid.UUID) (*uuid.UUID, error) {
	if v == "" {
		return nil, nil
	}
	if current != nil && v == current.String() {
		return current, nil
	}
	p, err := m.svc.ResolveParty(m.ctx, kind, v)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, v, err)
	}
	return &p.ID, nil
}

func (m Model) saveParty() (string, error) {
	kind := m.partyKind()
	p := &models.Party{Kind: kind}
	if m.selectedID != "" {
		id, err := uuid.Parse(m.selectedID)
		if err != nil {
			return "", fmt.Errorf("invalid ID: %w", err)
		}
		existing, err := m.svc.GetParty(m.ctx, kind, id)
		if err != nil {
			return "", err
		}
		p = existing
	}

	p.Name = m.value(partyName)
	p.ABN = m.value(partyABN)
	p.Email = m.value(partyEmail)
	p.PhoneNumber = m.value(partyPhone)
	p.OfficeAddress = m.value(partyAddress)

	var err error
	if m.selectedID == "" {
		err = m.svc.AddParty(m.ctx, p)
	} else {
		err = m.svc.UpdateParty(m.ctx, p)
	}
	if err != nil {
		return "", err
	}
	return p.ID.String(), nil
}
