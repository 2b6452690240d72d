// ABOUTME: List view with tabs for contracts, buyers and sellers
// ABOUTME: Handles table rendering, status filter and navigation
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/grainbroker/models"
)

const listLimit = 100

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("GRAINBROKER"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.entityType == EntityContracts {
		s.WriteString(m.renderStatusFilter())
		s.WriteString("\n")
	}

	s.WriteString(m.renderTable())
	s.WriteString("\n")

	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}

	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Contracts", "Buyers", "Sellers"}
	var rendered []string

	for i, tab := range tabs {
		if EntityType(i) == m.entityType {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderStatusFilter() string {
	var parts []string
	for i, status := range statusFilters {
		label := string(status)
		if label == "" {
			label = "All"
		}
		if i == m.statusFilter {
			parts = append(parts, "["+label+"]")
		} else {
			parts = append(parts, label)
		}
	}
	return helpStyle.Render("Status: " + strings.Join(parts, " "))
}

func (m Model) renderTable() string {
	switch m.entityType {
	case EntityContracts:
		return m.renderContractsTable()
	case EntityBuyers, EntitySellers:
		return m.renderPartiesTable()
	}
	return ""
}

func (m Model) listContracts() ([]models.Contract, error) {
	return m.svc.Find(m.ctx, models.ContractFilter{
		Status: statusFilters[m.statusFilter],
		Limit:  listLimit,
	})
}

func (m Model) listParties() ([]models.Party, error) {
	return m.svc.FindParties(m.ctx, m.partyKind(), m.searchQuery, listLimit)
}

func (m Model) renderContractsTable() string {
	found, err := m.listContracts()
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	columns := []table.Column{
		{Title: "Number", Width: 12},
		{Title: "Status", Width: 11},
		{Title: "Buyer", Width: 20},
		{Title: "Seller", Width: 20},
		{Title: "Commodity", Width: 12},
		{Title: "Tonnes", Width: 8},
		{Title: "Season", Width: 8},
	}

	var rows []table.Row
	for _, c := range found {
		tonnes := ""
		if c.Tonnes != nil {
			tonnes = fmt.Sprintf("%.0f", *c.Tonnes)
		}
		rows = append(rows, table.Row{
			c.Number(),
			string(c.Status),
			m.svc.PartyName(m.ctx, models.PartyBuyer, c.BuyerID),
			m.svc.PartyName(m.ctx, models.PartySeller, c.SellerID),
			c.Commodity,
			tonnes,
			c.Season,
		})
	}

	return m.newTable(columns, rows).View()
}

func (m Model) renderPartiesTable() string {
	parties, err := m.listParties()
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	columns := []table.Column{
		{Title: "Name", Width: 30},
		{Title: "ABN", Width: 16},
		{Title: "Email", Width: 28},
		{Title: "Phone", Width: 14},
	}

	var rows []table.Row
	for _, p := range parties {
		rows = append(rows, table.Row{p.Name, p.ABN, p.Email, p.PhoneNumber})
	}

	return m.newTable(columns, rows).View()
}

func (m Model) newTable(columns []table.Column, rows []table.Row) table.Model {
	height := m.height - 12
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch tabs",
		"s: Status filter",
		"Enter: View details",
		"n: New",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}
	case "tab":
		m.entityType = (m.entityType + 1) % entityCount
		m.selectedRow = 0
		m.message = ""
	case "s":
		if m.entityType == EntityContracts {
			m.statusFilter = (m.statusFilter + 1) % len(statusFilters)
			m.selectedRow = 0
		}
	case "enter":
		if id := m.getSelectedID(); id != "" {
			m.viewMode = ViewDetail
			m.selectedID = id
		}
	case "n":
		m.viewMode = ViewEdit
		m.selectedID = ""
		m.err = nil
		m.initFormInputs()
	}

	return m, nil
}

func (m Model) rowCount() int {
	if m.entityType == EntityContracts {
		found, _ := m.listContracts()
		return len(found)
	}
	parties, _ := m.listParties()
	return len(parties)
}

func (m Model) getSelectedID() string {
	switch m.entityType {
	case EntityContracts:
		found, _ := m.listContracts()
		if m.selectedRow < len(found) {
			return found[m.selectedRow].ID.String()
		}
	case EntityBuyers, EntitySellers:
		parties, _ := m.listParties()
		if m.selectedRow < len(parties) {
			return parties[m.selectedRow].ID.String()
		}
	}
	return ""
}
