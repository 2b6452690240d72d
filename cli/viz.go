// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and contract graph generation commands
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/models"
	"github.com/harperreed/grainbroker/viz"
)

// VizGraphCommand renders buyers, sellers and the contracts between them.
func VizGraphCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("viz graph", flag.ContinueOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	status := fs.String("status", "", "Only contracts with this status")
	buyer := fs.String("buyer", "", "Only contracts with this buyer (ID or name)")
	seller := fs.String("seller", "", "Only contracts with this seller (ID or name)")
	season := fs.String("season", "", "Only contracts for this season")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := models.ContractFilter{Status: models.Status(*status), Season: *season}
	if err := setParty(ctx, svc, models.PartyBuyer, &filter.BuyerID, *buyer); err != nil {
		return err
	}
	if err := setParty(ctx, svc, models.PartySeller, &filter.SellerID, *seller); err != nil {
		return err
	}

	dot, err := viz.NewGraphGenerator(svc).GenerateContractGraph(ctx, filter)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}
	fmt.Fprintln(out, dot)
	return nil
}

func VizDashboardCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	stats, err := viz.GenerateDashboardStats(ctx, svc, time.Now())
	if err != nil {
		return fmt.Errorf("failed to generate dashboard stats: %w", err)
	}

	fmt.Fprint(out, viz.RenderDashboard(stats))
	return nil
}
