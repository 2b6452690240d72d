// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Provides an interactive full-screen browser for the contract book
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/models"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
)

// EntityType represents the type of entity being viewed
type EntityType int

const (
	EntityContracts EntityType = iota
	EntityBuyers
	EntitySellers
)

const entityCount = 3

// statusFilters cycles the contracts tab; "" shows every status.
var statusFilters = append([]models.Status{""}, models.Statuses...)

// Model is the main bubbletea model
type Model struct {
	ctx        context.Context
	svc        *contracts.Service
	viewMode   ViewMode
	entityType EntityType

	// List view state
	selectedRow  int
	searchQuery  string
	statusFilter int

	// Detail view state
	selectedID string

	// Edit view state
	formInputs []textinput.Model
	focusIndex int

	// Graph view state
	graphDOT string

	// Status line after a delete or save
	message string

	// UI state
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, svc *contracts.Service) Model {
	return Model{
		ctx:        ctx,
		svc:        svc,
		viewMode:   ViewList,
		entityType: EntityContracts,
		width:      80,
		height:     24,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// q types into form fields while editing
	if msg.String() == "q" && m.viewMode != ViewEdit {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

func (m Model) partyKind() models.PartyKind {
	if m.entityType == EntityBuyers {
		return models.PartyBuyer
	}
	return models.PartySeller
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)
