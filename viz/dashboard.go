// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Summarises the contract book by status and flags contracts needing work
package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/grainbroker/models"
	"golang.org/x/sync/errgroup"
)

// StaleDraftAge is how long a draft may sit before the dashboard flags it.
const StaleDraftAge = 14 * 24 * time.Hour

type DashboardStats struct {
	ByStatus       []models.StatusSummary
	TotalContracts int
	TotalTonnes    float64
	TotalBuyers    int
	TotalSellers   int

	// Complete contracts with no invoice recorded yet.
	AwaitingInvoice []AttentionItem
	StaleDrafts     []AttentionItem
}

type AttentionItem struct {
	Label     string
	DaysSince int
}

// GenerateDashboardStats loads the summary, party counts and attention lists
// concurrently.
func GenerateDashboardStats(ctx context.Context, book Book, now time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := book.Summary(ctx)
		if err != nil {
			return fmt.Errorf("failed to summarise contracts: %w", err)
		}
		stats.ByStatus = summary
		for _, s := range summary {
			stats.TotalContracts += s.Count
			stats.TotalTonnes += s.Tonnes
		}
		return nil
	})

	g.Go(func() error {
		buyers, err := book.FindParties(ctx, models.PartyBuyer, "", 10000)
		if err != nil {
			return fmt.Errorf("failed to fetch buyers: %w", err)
		}
		stats.TotalBuyers = len(buyers)
		return nil
	})

	g.Go(func() error {
		sellers, err := book.FindParties(ctx, models.PartySeller, "", 10000)
		if err != nil {
			return fmt.Errorf("failed to fetch sellers: %w", err)
		}
		stats.TotalSellers = len(sellers)
		return nil
	})

	g.Go(func() error {
		complete, err := book.Find(ctx, models.ContractFilter{Status: models.StatusComplete, Limit: 10000})
		if err != nil {
			return fmt.Errorf("failed to fetch complete contracts: %w", err)
		}
		for _, c := range complete {
			if c.XeroInvoiceID == nil {
				stats.AwaitingInvoice = append(stats.AwaitingInvoice, AttentionItem{
					Label:     attentionLabel(&c),
					DaysSince: daysSince(now, c.UpdatedAt),
				})
			}
		}
		return nil
	})

	g.Go(func() error {
		drafts, err := book.Find(ctx, models.ContractFilter{Status: models.StatusDraft, Limit: 10000})
		if err != nil {
			return fmt.Errorf("failed to fetch drafts: %w", err)
		}
		for _, c := range drafts {
			if now.Sub(c.UpdatedAt) > StaleDraftAge {
				stats.StaleDrafts = append(stats.StaleDrafts, AttentionItem{
					Label:     attentionLabel(&c),
					DaysSince: daysSince(now, c.UpdatedAt),
				})
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func attentionLabel(c *models.Contract) string {
	if n := c.Number(); n != "" {
		return n
	}
	return c.ID.String()[:8]
}

func daysSince(now, t time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  GRAINBROKER CONTRACT BOOK\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("CONTRACTS BY STATUS\n")
	renderStatuses(&out, stats.ByStatus)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  %d contracts  %.0f tonnes  %d buyers  %d sellers\n\n",
		stats.TotalContracts, stats.TotalTonnes, stats.TotalBuyers, stats.TotalSellers))

	if len(stats.AwaitingInvoice) > 0 || len(stats.StaleDrafts) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.AwaitingInvoice) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d complete contracts awaiting invoice\n", len(stats.AwaitingInvoice)))
		}
		if len(stats.StaleDrafts) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d drafts untouched for 14+ days\n", len(stats.StaleDrafts)))
		}
	}

	return out.String()
}

func renderStatuses(out *strings.Builder, summary []models.StatusSummary) {
	maxCount := 0
	for _, s := range summary {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range summary {
		barLength := (s.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-11s %s  %3d (%.0ft)\n", s.Status, bar, s.Count, s.Tonnes))
	}
}
