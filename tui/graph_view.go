// ABOUTME: Graph view for the TUI
// ABOUTME: Shows the DOT source of the trade graph around the selection
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/grainbroker/models"
	"github.com/harperreed/grainbroker/viz"
)

func (m Model) renderGraphView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("GRAPH VIEW"))
	s.WriteString("\n\n")

	if m.graphDOT == "" {
		s.WriteString("Generating graph...\n")
	} else {
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(m.graphDOT))
	}

	s.WriteString("\n\n")
	s.WriteString(m.renderGraphHelp())

	return s.String()
}

func (m Model) renderGraphHelp() string {
	help := []string{
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.viewMode = ViewDetail
		m.graphDOT = ""
	}
	return m, nil
}

// generateGraph renders the trades around the selection: the contract's
// buyer for a contract, or the party itself.
func (m *Model) generateGraph() error {
	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return err
	}

	filter := models.ContractFilter{}
	switch m.entityType {
	case EntityContracts:
		c, err := m.svc.Get(m.ctx, id)
		if err != nil {
			return err
		}
		if c.BuyerID != nil {
			filter.BuyerID = c.BuyerID
		} else {
			filter.SellerID = c.SellerID
		}
	case EntityBuyers:
		filter.BuyerID = &id
	case EntitySellers:
		filter.SellerID = &id
	}

	dot, err := viz.NewGraphGenerator(m.svc).GenerateContractGraph(m.ctx, filter)
	if err != nil {
		return err
	}
	m.graphDOT = dot
	return nil
}
