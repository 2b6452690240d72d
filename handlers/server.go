// ABOUTME: MCP server assembly
// ABOUTME: Registers every contract book tool, resource and prompt on one server
package handlers

import (
	"github.com/harperreed/grainbroker/contracts"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds the MCP server exposing svc.
func NewServer(svc *contracts.Service, version string) *mcp.Server {
	partyHandlers := NewPartyHandlers(svc)
	contractHandlers := NewContractHandlers(svc)
	vizHandlers := NewVizHandlers(svc)
	resourceHandlers := NewResourceHandlers(svc)
	promptHandlers := NewPromptHandlers(svc)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "grainbroker",
		Version: version,
	}, nil)

	// Parties
	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_buyer",
		Description: "Add a new buyer to the contract book",
	}, partyHandlers.AddBuyer)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_seller",
		Description: "Add a new seller to the contract book",
	}, partyHandlers.AddSeller)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_parties",
		Description: "Search buyers or sellers by name, ABN or email",
	}, partyHandlers.FindParties)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_party",
		Description: "Update a buyer's or seller's details",
	}, partyHandlers.UpdateParty)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_party",
		Description: "Soft-delete a buyer or seller; existing contracts keep their reference",
	}, partyHandlers.DeleteParty)

	// Contracts
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_contract",
		Description: "Create a contract. Draft contracts may be partial; any other status requires contract date, buyer, seller, tonnes, season and brokerage payer",
	}, contractHandlers.CreateContract)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_contract",
		Description: "Update fields on an existing contract; the whole contract is revalidated",
	}, contractHandlers.UpdateContract)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_contract_status",
		Description: "Move a contract to Draft, Incomplete, Complete or Invoiced",
	}, contractHandlers.SetContractStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_invoice",
		Description: "Record the accounting system's invoice ID and number on a contract",
	}, contractHandlers.RecordInvoice)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_contract",
		Description: "Soft-delete a contract; it stays available for audit",
	}, contractHandlers.DeleteContract)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_contract",
		Description: "Fetch one contract by ID or contract number",
	}, contractHandlers.GetContract)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contracts",
		Description: "List contracts filtered by status, buyer, seller or season",
	}, contractHandlers.FindContracts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "contract_summary",
		Description: "Count contracts and tonnes per status",
	}, contractHandlers.ContractSummary)

	// Visualization
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate a GraphViz graph of buyers, contracts and sellers",
	}, vizHandlers.GenerateGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Contract book dashboard with contracts needing attention",
	}, vizHandlers.Dashboard)

	// Resources
	server.AddResource(&mcp.Resource{
		URI:         "grain://contracts",
		Name:        "contracts",
		Description: "All non-deleted contracts",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "grain://contracts/{ref}",
		Name:        "contract",
		Description: "One contract by ID or contract number",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         "grain://buyers",
		Name:        "buyers",
		Description: "All non-deleted buyers",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "grain://buyers/{id}",
		Name:        "buyer",
		Description: "One buyer with its contracts",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         "grain://sellers",
		Name:        "sellers",
		Description: "All non-deleted sellers",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "grain://sellers/{id}",
		Name:        "seller",
		Description: "One seller with its contracts",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         "grain://summary",
		Name:        "summary",
		Description: "Contract counts and tonnes per status",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	// Prompts
	server.AddPrompt(&mcp.Prompt{
		Name:        "contract-review",
		Description: "Review a contract's terms and what it still needs",
		Arguments: []*mcp.PromptArgument{
			{Name: "contract", Description: "Contract ID or number", Required: true},
		},
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "party-overview",
		Description: "Summarise trading with a buyer or seller",
		Arguments: []*mcp.PromptArgument{
			{Name: "kind", Description: "buyer or seller", Required: true},
			{Name: "id", Description: "Party ID", Required: true},
		},
	}, promptHandlers.GetPrompt)

	return server
}
