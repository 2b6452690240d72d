// ABOUTME: Detail view for contracts and parties
// ABOUTME: Shows every field and the fields still needed to leave Draft
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/grainbroker/models"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(24)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DETAIL VIEW"))
	s.WriteString("\n\n")

	switch m.entityType {
	case EntityContracts:
		s.WriteString(m.renderContractDetail())
	case EntityBuyers, EntitySellers:
		s.WriteString(m.renderPartyDetail())
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderContractDetail() string {
	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: invalid ID: %v", err)
	}

	c, err := m.svc.Get(m.ctx, id)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Contract Number", c.Number()))
	s.WriteString(m.renderField("Status", string(c.Status)))
	s.WriteString(m.renderField("Contract Date", formatDate(c.ContractDate)))
	s.WriteString(m.renderField("Buyer", m.svc.PartyName(m.ctx, models.PartyBuyer, c.BuyerID)))
	s.WriteString(m.renderField("Seller", m.svc.PartyName(m.ctx, models.PartySeller, c.SellerID)))
	s.WriteString(m.renderField("Commodity", c.Commodity))
	s.WriteString(m.renderField("Grade", c.Grade))
	if c.Tonnes != nil {
		s.WriteString(m.renderField("Tonnes", fmt.Sprintf("%.2f %s", *c.Tonnes, c.Tolerance)))
	}
	s.WriteString(m.renderField("Season", c.Season))
	s.WriteString(m.renderField("Price ex GST", c.PriceExGST))
	s.WriteString(m.renderField("Brokerage Payable By", string(c.BrokeragePayableBy)))
	s.WriteString(m.renderField("Delivery", deliveryWindow(c.DeliveryPeriod)))
	s.WriteString(m.renderField("Delivery Destination", c.DeliveryDestination))
	s.WriteString(m.renderField("Payment Terms", c.PaymentTerms))
	if c.XeroInvoiceNumber != nil {
		s.WriteString(m.renderField("Invoice", *c.XeroInvoiceNumber))
	}
	s.WriteString(m.renderField("Notes", c.Notes))
	s.WriteString(m.renderField("Updated", c.UpdatedAt.Format("2006-01-02 15:04")))

	if c.Status == models.StatusDraft {
		candidate := *c
		candidate.Status = models.StatusIncomplete
		if missing := models.MissingRequiredFields(&candidate); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, f := range missing {
				names[i] = string(f)
			}
			s.WriteString("\n")
			s.WriteString(errorStyle.Render("Needed before leaving Draft: " + strings.Join(names, ", ")))
		}
	}

	return s.String()
}

func (m Model) renderPartyDetail() string {
	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: invalid ID: %v", err)
	}

	kind := m.partyKind()
	p, err := m.svc.GetParty(m.ctx, kind, id)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	var s strings.Builder
	s.WriteString(m.renderField("Name", p.Name))
	s.WriteString(m.renderField("ABN", p.ABN))
	s.WriteString(m.renderField("Email", p.Email))
	s.WriteString(m.renderField("Phone", p.PhoneNumber))
	s.WriteString(m.renderField("Account Number", p.AccountNumber))
	s.WriteString(m.renderField("Office Address", p.OfficeAddress))

	if len(p.Contacts) > 0 {
		s.WriteString("\n")
		s.WriteString(titleStyle.Render("Contacts"))
		s.WriteString("\n")
		for _, c := range p.Contacts {
			primary := ""
			if c.IsPrimary {
				primary = " (primary)"
			}
			s.WriteString(fmt.Sprintf("  • %s <%s> %s%s\n", c.Name, c.Email, c.PhoneNumber, primary))
		}
	}

	filter := models.ContractFilter{Limit: listLimit}
	if kind == models.PartyBuyer {
		filter.BuyerID = &id
	} else {
		filter.SellerID = &id
	}
	found, err := m.svc.Find(m.ctx, filter)
	if err == nil && len(found) > 0 {
		s.WriteString("\n")
		s.WriteString(titleStyle.Render("Contracts"))
		s.WriteString("\n")
		for _, c := range found {
			s.WriteString(fmt.Sprintf("  • %s %s %s (%s)\n", c.Number(), c.Commodity, c.Season, c.Status))
		}
	}

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		return ""
	}
	return fieldLabelStyle.Render(label+":") + " " + fieldValueStyle.Render(value) + "\n"
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"e: Edit",
		"d: Delete",
		"g: Graph",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.selectedID = ""
	case "e":
		m.viewMode = ViewEdit
		m.err = nil
		m.initFormInputs()
	case "d":
		m.viewMode = ViewConfirmDelete
	case "g":
		m.viewMode = ViewGraph
		if err := m.generateGraph(); err != nil {
			m.graphDOT = "Error: " + err.Error()
		}
	}

	return m, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func deliveryWindow(p models.DeliveryPeriod) string {
	start, end := "", ""
	if p.Start != nil {
		start = p.Start.Format("2006-01-02")
	}
	if p.End != nil {
		end = p.End.Format("2006-01-02")
	}
	if start == "" && end == "" {
		return ""
	}
	return start + " to " + end
}
