// ABOUTME: GraphViz generation for the contract book
// ABOUTME: Renders buyers, contracts and sellers as a directed trade graph
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/models"
)

// Book is the read side of the contract book used for rendering.
type Book interface {
	Find(ctx context.Context, filter models.ContractFilter) ([]models.Contract, error)
	FindParties(ctx context.Context, kind models.PartyKind, query string, limit int) ([]models.Party, error)
	PartyName(ctx context.Context, kind models.PartyKind, id *uuid.UUID) string
	Summary(ctx context.Context) ([]models.StatusSummary, error)
}

type GraphGenerator struct {
	book Book
}

func NewGraphGenerator(book Book) *GraphGenerator {
	return &GraphGenerator{book: book}
}

var statusColors = map[models.Status]string{
	models.StatusDraft:      "lightgrey",
	models.StatusIncomplete: "lightyellow",
	models.StatusComplete:   "palegreen",
	models.StatusInvoiced:   "lightblue",
}

// GenerateContractGraph renders every contract matching filter with edges
// buyer -> contract -> seller. Parties deleted since signing still appear.
func (g *GraphGenerator) GenerateContractGraph(ctx context.Context, filter models.ContractFilter) (string, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10000
	}
	contracts, err := g.book.Find(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("failed to fetch contracts: %w", err)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("Contract Book")
	graph.SetRankDir(cgraph.LRRank)

	partyNodes := make(map[string]*cgraph.Node)
	partyNode := func(kind models.PartyKind, id *uuid.UUID) (*cgraph.Node, error) {
		if id == nil || *id == uuid.Nil {
			return nil, nil
		}
		key := string(kind) + "_" + id.String()
		if node, ok := partyNodes[key]; ok {
			return node, nil
		}
		node, err := graph.CreateNodeByName(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s node: %w", kind, err)
		}
		node.SetLabel(fmt.Sprintf("%s\n(%s)", g.book.PartyName(ctx, kind, id), kind))
		node.SetShape("box")
		node.SetStyle("filled")
		if kind == models.PartyBuyer {
			node.SetFillColor("lightblue")
		} else {
			node.SetFillColor("lightgreen")
		}
		partyNodes[key] = node
		return node, nil
	}

	for _, c := range contracts {
		node, err := graph.CreateNodeByName("contract_" + c.ID.String())
		if err != nil {
			return "", fmt.Errorf("failed to create contract node: %w", err)
		}
		node.SetLabel(contractLabel(&c))
		node.SetShape("note")
		node.SetStyle("filled")
		node.SetFillColor(statusColors[c.Status])

		buyer, err := partyNode(models.PartyBuyer, c.BuyerID)
		if err != nil {
			return "", err
		}
		if buyer != nil {
			edge, err := graph.CreateEdgeByName("buys_"+c.ID.String(), buyer, node)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel("buys")
		}

		seller, err := partyNode(models.PartySeller, c.SellerID)
		if err != nil {
			return "", err
		}
		if seller != nil {
			edge, err := graph.CreateEdgeByName("sells_"+c.ID.String(), node, seller)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel("sells")
			edge.SetStyle("dashed")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func contractLabel(c *models.Contract) string {
	number := c.Number()
	if number == "" {
		number = "unnumbered"
	}
	label := fmt.Sprintf("%s\n%s", number, c.Status)
	if c.Tonnes != nil {
		label += fmt.Sprintf("\n%.0ft", *c.Tonnes)
	}
	if c.Commodity != "" {
		label += "\n" + c.Commodity
	}
	return label
}
