// ABOUTME: Contract CLI commands
// ABOUTME: Add, update, list, show, transition, invoice and delete grain contracts
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/models"
)

// contractFlags registers every editable contract field on a flag set and
// applies only the flags the user actually passed.
type contractFlags struct {
	fs *flag.FlagSet

	status, number, date, deliveryStart, deliveryEnd *string
	buyer, seller, buyerRef, sellerRef               *string
	tonnes                                           *float64
	tolerance, season, brokerage                     *string
	commodity, grade, contractType, ngr              *string
	deliveryOption, freight, weights, price          *string
	conveyance, certification, paymentTerms          *string
	brokerRate, destination, special, terms, notes   *string
}

func newContractFlags(fs *flag.FlagSet) *contractFlags {
	return &contractFlags{
		fs:             fs,
		status:         fs.String("status", "", "Status (Draft, Incomplete, Complete, Invoiced)"),
		number:         fs.String("number", "", "Contract number (minted automatically when omitted)"),
		date:           fs.String("date", "", "Contract date (YYYY-MM-DD)"),
		deliveryStart:  fs.String("delivery-start", "", "Delivery window start (YYYY-MM-DD)"),
		deliveryEnd:    fs.String("delivery-end", "", "Delivery window end (YYYY-MM-DD)"),
		buyer:          fs.String("buyer", "", "Buyer ID or exact name"),
		seller:         fs.String("seller", "", "Seller ID or exact name"),
		buyerRef:       fs.String("buyer-ref", "", "Buyer's contract reference"),
		sellerRef:      fs.String("seller-ref", "", "Seller's contract reference"),
		tonnes:         fs.Float64("tonnes", 0, "Tonnes"),
		tolerance:      fs.String("tolerance", "", "Tonnage tolerance"),
		season:         fs.String("season", "", "Season (e.g. 2024-25)"),
		brokerage:      fs.String("brokerage", "", "Brokerage payable by"),
		commodity:      fs.String("commodity", "", "Commodity"),
		grade:          fs.String("grade", "", "Grade"),
		contractType:   fs.String("type", "", "Contract type"),
		ngr:            fs.String("ngr", "", "NGR number"),
		deliveryOption: fs.String("delivery-option", "", "Delivery option"),
		freight:        fs.String("freight", "", "Freight"),
		weights:        fs.String("weights", "", "Weights"),
		price:          fs.String("price", "", "Price ex GST"),
		conveyance:     fs.String("conveyance", "", "Conveyance"),
		certification:  fs.String("certification", "", "Certification scheme"),
		paymentTerms:   fs.String("payment-terms", "", "Payment terms"),
		brokerRate:     fs.String("broker-rate", "", "Broker rate"),
		destination:    fs.String("destination", "", "Delivery destination"),
		special:        fs.String("special-condition", "", "Special condition"),
		terms:          fs.String("terms", "", "Terms and conditions"),
		notes:          fs.String("notes", "", "Notes"),
	}
}

func (f *contractFlags) apply(ctx context.Context, svc *contracts.Service, c *models.Contract) error {
	var err error
	f.fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		err = f.applyOne(ctx, svc, c, fl.Name)
	})
	return err
}

func (f *contractFlags) applyOne(ctx context.Context, svc *contracts.Service, c *models.Contract, name string) error {
	switch name {
	case "status":
		c.Status = models.Status(*f.status)
	case "number":
		c.ContractNumber = optionalString(*f.number)
	case "date":
		return setDate(&c.ContractDate, *f.date)
	case "delivery-start":
		return setDate(&c.DeliveryPeriod.Start, *f.deliveryStart)
	case "delivery-end":
		return setDate(&c.DeliveryPeriod.End, *f.deliveryEnd)
	case "buyer":
		return setParty(ctx, svc, models.PartyBuyer, &c.BuyerID, *f.buyer)
	case "seller":
		return setParty(ctx, svc, models.PartySeller, &c.SellerID, *f.seller)
	case "buyer-ref":
		c.BuyerContractReference = *f.buyerRef
	case "seller-ref":
		c.SellerContractReference = *f.sellerRef
	case "tonnes":
		t := *f.tonnes
		c.Tonnes = &t
	case "tolerance":
		c.Tolerance = *f.tolerance
	case "season":
		c.Season = *f.season
	case "brokerage":
		c.BrokeragePayableBy = models.BrokeragePayableBy(*f.brokerage)
	case "commodity":
		c.Commodity = *f.commodity
	case "grade":
		c.Grade = *f.grade
	case "type":
		c.ContractType = *f.contractType
	case "ngr":
		c.NGRNumber = *f.ngr
	case "delivery-option":
		c.DeliveryOption = *f.deliveryOption
	case "freight":
		c.Freight = *f.freight
	case "weights":
		c.Weights = *f.weights
	case "price":
		c.PriceExGST = *f.price
	case "conveyance":
		c.Conveyance = *f.conveyance
	case "certification":
		c.CertificationScheme = *f.certification
	case "payment-terms":
		c.PaymentTerms = *f.paymentTerms
	case "broker-rate":
		c.BrokerRate = *f.brokerRate
	case "destination":
		c.DeliveryDestination = *f.destination
	case "special-condition":
		c.SpecialCondition = *f.special
	case "terms":
		c.TermsAndConditions = *f.terms
	case "notes":
		c.Notes = *f.notes
	}
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// setDate parses YYYY-MM-DD; an empty value clears the field.
func setDate(dst **time.Time, value string) error {
	if value == "" {
		*dst = nil
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
	}
	*dst = &t
	return nil
}

// setParty resolves an ID or exact name; an empty value clears the reference.
func setParty(ctx context.Context, svc *contracts.Service, kind models.PartyKind, dst **uuid.UUID, ref string) error {
	if ref == "" {
		*dst = nil
		return nil
	}
	party, err := svc.ResolveParty(ctx, kind, ref)
	if err != nil {
		return fmt.Errorf("%s %q: %w", kind, ref, err)
	}
	id := party.ID
	*dst = &id
	return nil
}

// AddContractCommand creates a contract. Status defaults to Incomplete.
func AddContractCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("add-contract", flag.ContinueOnError)
	fields := newContractFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := models.NewContract("")
	if err := fields.apply(ctx, svc, c); err != nil {
		return err
	}
	if err := svc.Create(ctx, c); err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}

	fmt.Fprintf(out, "✓ Contract created: %s (ID: %s)\n", displayNumber(c), c.ID)
	fmt.Fprintf(out, "  Status: %s\n", c.Status)
	return nil
}

// UpdateContractCommand edits an existing contract by ID or number.
func UpdateContractCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("update-contract", flag.ContinueOnError)
	fields := newContractFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("contract ID or number is required")
	}

	c, err := svc.Lookup(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := fields.apply(ctx, svc, c); err != nil {
		return err
	}
	if err := svc.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}

	fmt.Fprintf(out, "✓ Contract updated: %s (%s)\n", displayNumber(c), c.Status)
	return nil
}

// ListContractsCommand prints contracts matching the filters.
func ListContractsCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("list-contracts", flag.ContinueOnError)
	status := fs.String("status", "", "Filter by status")
	buyer := fs.String("buyer", "", "Filter by buyer ID or name")
	seller := fs.String("seller", "", "Filter by seller ID or name")
	season := fs.String("season", "", "Filter by season")
	deleted := fs.Bool("deleted", false, "Include deleted contracts")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := models.ContractFilter{
		Status:         models.Status(*status),
		Season:         *season,
		IncludeDeleted: *deleted,
		Limit:          *limit,
	}
	if err := setParty(ctx, svc, models.PartyBuyer, &filter.BuyerID, *buyer); err != nil {
		return err
	}
	if err := setParty(ctx, svc, models.PartySeller, &filter.SellerID, *seller); err != nil {
		return err
	}

	found, err := svc.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to find contracts: %w", err)
	}
	if len(found) == 0 {
		fmt.Fprintln(out, "No contracts found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tSTATUS\tBUYER\tSELLER\tTONNES\tSEASON\tID")
	fmt.Fprintln(w, "------\t------\t-----\t------\t------\t------\t--")
	for i := range found {
		c := &found[i]
		status := string(c.Status)
		if c.IsDeleted {
			status += " (deleted)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			displayNumber(c),
			status,
			dash(svc.PartyName(ctx, models.PartyBuyer, c.BuyerID)),
			dash(svc.PartyName(ctx, models.PartySeller, c.SellerID)),
			formatTonnes(c.Tonnes),
			dash(c.Season),
			c.ID.String()[:8])
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nTotal: %d contract(s)\n", len(found))
	return nil
}

// ShowContractCommand prints one contract, as text or JSON.
func ShowContractCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("show-contract", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print the full record as JSON")
	audit := fs.Bool("deleted", false, "Resolve deleted contracts by ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("contract ID or number is required")
	}

	var (
		c   *models.Contract
		err error
	)
	if *audit {
		id, perr := uuid.Parse(fs.Arg(0))
		if perr != nil {
			return fmt.Errorf("--deleted needs a contract ID: %w", perr)
		}
		c, err = svc.GetForAudit(ctx, id)
	} else {
		c, err = svc.Lookup(ctx, fs.Arg(0))
	}
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	row := func(label, value string) { fmt.Fprintf(w, "%s:\t%s\n", label, dash(value)) }
	row("Number", c.Number())
	row("Status", string(c.Status))
	row("Contract date", dateString(c.ContractDate))
	row("Buyer", svc.PartyName(ctx, models.PartyBuyer, c.BuyerID))
	row("Seller", svc.PartyName(ctx, models.PartySeller, c.SellerID))
	row("Commodity", c.Commodity)
	row("Grade", c.Grade)
	row("Tonnes", formatTonnes(c.Tonnes))
	row("Season", c.Season)
	row("Price ex GST", c.PriceExGST)
	row("Brokerage payable by", string(c.BrokeragePayableBy))
	row("Delivery", dateString(c.DeliveryPeriod.Start)+" to "+dateString(c.DeliveryPeriod.End))
	if c.XeroInvoiceNumber != nil {
		row("Invoice", *c.XeroInvoiceNumber)
	}
	if c.IsDeleted {
		row("Deleted", dateString(c.DeletedAt))
	}
	row("ID", c.ID.String())
	_ = w.Flush()

	if c.Status == models.StatusDraft {
		candidate := *c
		candidate.Status = models.StatusIncomplete
		if missing := models.MissingRequiredFields(&candidate); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, f := range missing {
				names[i] = string(f)
			}
			fmt.Fprintf(out, "\nNeeded before leaving Draft: %s\n", strings.Join(names, ", "))
		}
	}
	return nil
}

// SetStatusCommand moves a contract to a new status: set-status <ref> <status>.
func SetStatusCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("set-status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: set-status <contract> <status>")
	}

	c, err := svc.Lookup(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	updated, err := svc.Transition(ctx, c.ID, models.Status(fs.Arg(1)))
	if err != nil {
		return fmt.Errorf("failed to change status: %w", err)
	}

	fmt.Fprintf(out, "✓ %s is now %s\n", displayNumber(updated), updated.Status)
	return nil
}

// RecordInvoiceCommand stores the accounting invoice against a contract.
func RecordInvoiceCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("record-invoice", flag.ContinueOnError)
	invoiceID := fs.String("invoice-id", "", "Accounting invoice ID (required)")
	invoiceNumber := fs.String("invoice-number", "", "Accounting invoice number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("contract ID or number is required")
	}

	c, err := svc.Lookup(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	updated, err := svc.RecordInvoice(ctx, c.ID, *invoiceID, *invoiceNumber)
	if err != nil {
		return fmt.Errorf("failed to record invoice: %w", err)
	}

	fmt.Fprintf(out, "✓ Invoice %s recorded on %s\n", *invoiceID, displayNumber(updated))
	return nil
}

// DeleteContractCommand soft-deletes a contract after confirmation.
func DeleteContractCommand(ctx context.Context, svc *contracts.Service, in io.Reader, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("delete-contract", flag.ContinueOnError)
	force := fs.Bool("force", false, "Skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("contract ID or number is required")
	}

	c, err := svc.Lookup(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if !*force && !confirm(in, out, fmt.Sprintf("Delete contract %s?", displayNumber(c))) {
		fmt.Fprintln(out, "Cancelled")
		return nil
	}
	if err := svc.Delete(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}

	fmt.Fprintf(out, "✓ Contract deleted: %s\n", displayNumber(c))
	return nil
}

// SummaryCommand prints contract counts and tonnage per status.
func SummaryCommand(ctx context.Context, svc *contracts.Service, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCONTRACTS\tTONNES")
	fmt.Fprintln(w, "------\t---------\t------")
	for _, s := range summary {
		fmt.Fprintf(w, "%s\t%d\t%.2f\n", s.Status, s.Count, s.Tonnes)
	}
	return w.Flush()
}

func displayNumber(c *models.Contract) string {
	if n := c.Number(); n != "" {
		return n
	}
	return "(unnumbered " + string(c.Status) + ")"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTonnes(t *float64) string {
	if t == nil {
		return "-"
	}
	return strconv.FormatFloat(*t, 'f', -1, 64)
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
