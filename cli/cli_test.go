// ABOUTME: Tests for CLI commands
// ABOUTME: Runs commands against a temporary SQLite book
package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/db"
	"github.com/harperreed/grainbroker/metrics"
	"github.com/harperreed/grainbroker/models"
	"github.com/harperreed/grainbroker/sequence"
)

func setupTestCLI(t *testing.T, opts ...contracts.Option) *contracts.Service {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "contracts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	opts = append([]contracts.Option{contracts.WithNumberFormat(sequence.Format{Prefix: "GB-"})}, opts...)
	svc, err := contracts.New(
		db.NewContractRepository(database),
		db.NewPartyRepository(database),
		db.NewCounterRepository(database),
		opts...,
	)
	require.NoError(t, err)
	return svc
}

func run(t *testing.T, fn func(out io.Writer) error) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, fn(&out))
	return out.String()
}

func seedParties(t *testing.T, ctx context.Context, svc *contracts.Service) {
	t.Helper()
	run(t, func(out io.Writer) error {
		return AddPartyCommand(ctx, svc, models.PartyBuyer, out, []string{
			"--name", "Riverina Grain Co", "--abn", "51 824 753 556",
			"--contact", "Pat Jones,pat@riverina.example,0400 111 222,primary",
		})
	})
	run(t, func(out io.Writer) error {
		return AddPartyCommand(ctx, svc, models.PartySeller, out, []string{"--name", "Mallee Farms"})
	})
}

var completeArgs = []string{
	"--status", "Incomplete",
	"--date", "2024-11-04",
	"--buyer", "Riverina Grain Co",
	"--seller", "Mallee Farms",
	"--tonnes", "250",
	"--season", "2024-25",
	"--brokerage", "Seller",
	"--commodity", "Barley",
}

func TestAddAndListParties(t *testing.T) {
	ctx := context.Background()
	svc := setupTestCLI(t)
	seedParties(t, ctx, svc)

	out := run(t, func(out io.Writer) error {
		return ListPartiesCommand(ctx, svc, models.PartyBuyer, out, nil)
	})
	assert.Contains(t, out, "Riverina Grain Co")
	assert.Contains(t, out, "Pat Jones")
	assert.Contains(t, out, "Total: 1 buyer(s)")
}

func TestAddPartyRequiresName(t *testing.T) {
	svc := setupTestCLI(t)
	err := AddPartyCommand(context.Background(), svc, models.PartySeller, io.Discard, nil)
	assert.EqualError(t, err, "--name is required")
}

func TestContactFlagNeedsThreeParts(t *testing.T) {
	var l contactList
	assert.Error(t, l.Set("Pat Jones,pat@example.com"))
	require.NoError(t, l.Set("Pat Jones, pat@example.com , 0400"))
	assert.Equal(t, "pat@example.com", l[0].Email)
	assert.False(t, l[0].IsPrimary)
}

func TestAddContractMintsNumber(t *testing.T) {
	ctx := context.Background()
	svc := setupTestCLI(t)
	seedParties(t, ctx, svc)

	out := run(t, func(out io.Writer) error { return AddContractCommand(ctx, svc, out, completeArgs) })
	assert.Contains(t, out, "✓ Contract created: GB-1")
	assert.Contains(t, out, "Status: Incomplete")

	out = run(t, func(out io.Writer) error { return ListContractsCommand(ctx, svc, out, []string{"--buyer", "Riverina Grain Co"}) })
	assert.Contains(t, out, "GB-1")
	assert.Contains(t, out, "Mallee Farms")
	assert.Contains(t, out, "Total: 1 contract(s)")
}

func TestAddContractRejectsIncompleteNonDraft(t *testing.T) {
	ctx := context.Background()
	svc := setupTestCLI(t)
	seedParties(t, ctx, svc)

	err := AddContractCommand(ctx, svc, io.Discard, []string{"--status", "Complete", "--buyer", "Riverina Grain Co"})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindCompleteness))
	assert.Contains(t, err.Error(), "contractDate is required when status is Complete")
}

func TestAddContractUnknownParty(t *testing.T) {
	ctx := context.Background()
	svc := setupTestCLI(t)

	err := AddContractCommand(ctx, svc, io.Discard, []string{"--status", "Draft", "--buyer", "Nobody"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrPartyNotFound)
}

func TestDraftLifecycleThroughCommands(t *testing.T) {
	ctx := context.Background()
	svc := setupTestCLI(t)
	seedParties(t, ctx, svc)

	out := run(t, func(out io.Writer) error {
		return AddContractCommand(ctx, svc, out, []string{"--status", "Draft", "--commodity", "Wheat"})
	})
	assert.Contains(t, out, "(unnumbered Draft)")

	found, err := svc.Find(ctx, models.ContractFilter{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	id := found[0].ID.String()

	out = run(t, func(out io.Writer) error { return ShowContractCommand(ctx, svc, out, []string{id}) })
	assert.Contains(t, out, "Needed before leaving Draft: contractDate, buyer, seller, tonnes, season, brokeragePayableBy")

	err = SetStatusCommand(ctx, svc, io.Discard, []string{id, "Incomplete"})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindCompleteness))

	update := append([]string{}, completeArgs...)
	update = append(update, id)
	out = run(t, func(out io.Writer) error { return UpdateContractCommand(ctx, svc, out, update) })
	assert.Contains(t, out, "✓ Contract updated: GB-1 (Incomplete)")

	out = run(t, func(out io.Writer) error { return SetStatusCommand(ctx, svc, out, []string{"GB-1", "Complete"}) })
	assert.Contains(t, out, "GB-1 is now Complete")

	out = run(t, func(out io.Writer) error {
		return RecordInvoiceCommand(ctx, svc, out, []string{"--invoice-id", "INV-77", "--invoice-number", "0077", "GB-1"})
	})
	assert.Contains(t, out, "Invoice INV-77 recorded on GB-1")

	out = run(t, func(out io.Writer) error { return ShowContractCommand(ctx, svc, out, []string{"--json", "GB-1"}) })
	assert.Contains(t, out, `"xero_invoice_id": "INV-77"`)
	assert.Contains(t, out, `"status": "Complete"`)
}

func TestDeleteContractNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	svc := setupTestCLI(t)
	seedParties(t, ctx, svc)
	run(t, func(out io.Writer) error { return AddContractCommand(ctx, svc, out, completeArgs) })

	out := run(t, func(out io.Writer) error {
		return DeleteContractCommand(ctx, svc, strings.NewReader("n\n"), out, []string{"GB-1"})
	})
	assert.Contains(t, out, "Cancelled")

	out = run(t, func(out io.Writer) error {
		return DeleteContractCommand(ctx, svc, strings.NewReader("y\n"), out, []string{"GB-1"})
	})
	assert.Contains(t, out, "✓ Contract deleted: GB-1")

	_, err := svc.Lookup(ctx, "GB-1")
	assert.ErrorIs(t, err, models.ErrContractNotFound)

	out = run(t, func(out io.Writer) error {
		return ListContractsCommand(ctx, svc, out, []string{"--deleted"})
	})
	assert.Contains(t, out, "Incomplete (deleted)")
}

func TestDeletedPartyStillNamedOnContracts(t *testing.T) {
	ctx := context.Background()
	svc := setupTestCLI(t)
	seedParties(t, ctx, svc)
	run(t, func(out io.Writer) error { return AddContractCommand(ctx, svc, out, completeArgs) })

	run(t, func(out io.Writer) error {
		return DeletePartyCommand(ctx, svc, models.PartySeller, nil, out, []string{"--force", "Mallee Farms"})
	})

	out := run(t, func(out io.Writer) error { return ShowContractCommand(ctx, svc, out, []string{"GB-1"}) })
	assert.Contains(t, out, "Mallee Farms (deleted)")
}

func TestSummaryAndVizCommands(t *testing.T) {
	ctx := context.Background()
	svc := setupTestCLI(t)
	seedParties(t, ctx, svc)
	run(t, func(out io.Writer) error { return AddContractCommand(ctx, svc, out, completeArgs) })

	out := run(t, func(out io.Writer) error { return SummaryCommand(ctx, svc, out, nil) })
	assert.Contains(t, out, "Incomplete")
	assert.Contains(t, out, "250.00")

	out = run(t, func(out io.Writer) error { return VizDashboardCommand(ctx, svc, out, nil) })
	assert.Contains(t, out, "GRAINBROKER CONTRACT BOOK")

	path := filepath.Join(t.TempDir(), "graph.dot")
	run(t, func(out io.Writer) error { return VizGraphCommand(ctx, svc, out, []string{"--output", path}) })
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Riverina Grain Co")
}

func TestMetricsHandlerServesCounters(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	svc := setupTestCLI(t, contracts.WithMetrics(metrics.New(reg)))
	seedParties(t, ctx, svc)
	run(t, func(out io.Writer) error { return AddContractCommand(ctx, svc, out, completeArgs) })

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `grainbroker_contract_saves_total{op="create",status="Incomplete"} 1`)
	assert.Contains(t, rec.Body.String(), "grainbroker_contract_numbers_allocated_total 1")
}
