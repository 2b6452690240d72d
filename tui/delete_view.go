// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Soft-deletes contracts, buyers and sellers after confirmation
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	var entityName string
	var entityType string
	var note string

	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: invalid ID: %v", err)
	}

	switch m.entityType {
	case EntityContracts:
		c, err := m.svc.Get(m.ctx, id)
		if err != nil {
			return fmt.Sprintf("Error loading contract: %v", err)
		}
		entityName = c.Number()
		if entityName == "" {
			entityName = "(unnumbered " + string(c.Status) + ")"
		}
		entityType = "contract"
		note = "\nThe contract stays available for audit."
	case EntityBuyers, EntitySellers:
		p, err := m.svc.GetParty(m.ctx, m.partyKind(), id)
		if err != nil {
			return fmt.Sprintf("Error loading %s: %v", m.partyKind(), err)
		}
		entityName = p.Name
		entityType = string(m.partyKind())
		note = "\nExisting contracts keep their reference."
	}

	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := fmt.Sprintf("Are you sure you want to delete this %s?", entityType)
	entityInfo := fmt.Sprintf("\n%s: %s\n", strings.ToUpper(entityType), entityName)

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		note,
		"",
		buttons,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		confirmBoxStyle.Render(content),
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if err := m.performDelete(); err != nil {
			m.err = err
			m.message = "Error: " + err.Error()
		} else {
			m.message = "Successfully deleted"
			m.selectedID = ""
			m.selectedRow = 0
		}
		m.viewMode = ViewList
	case "n", "N", "esc":
		m.viewMode = ViewDetail
	}

	return m, nil
}

func (m Model) performDelete() error {
	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return fmt.Errorf("invalid ID: %w", err)
	}

	switch m.entityType {
	case EntityContracts:
		return m.svc.Delete(m.ctx, id)
	case EntityBuyers, EntitySellers:
		return m.svc.DeleteParty(m.ctx, m.partyKind(), id)
	default:
		return fmt.Errorf("unknown entity type")
	}
}
