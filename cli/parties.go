// ABOUTME: Buyer and seller CLI commands
// ABOUTME: Add, update, list and delete the parties contracts refer to
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/models"
)

// contactList collects repeated --contact "Name,email,phone[,primary]" flags.
type contactList []models.Contact

func (l *contactList) String() string { return fmt.Sprintf("%d contact(s)", len(*l)) }

func (l *contactList) Set(v string) error {
	parts := strings.Split(v, ",")
	if len(parts) < 3 {
		return fmt.Errorf("contact must be \"name,email,phone\", got %q", v)
	}
	c := models.Contact{
		Name:        strings.TrimSpace(parts[0]),
		Email:       strings.TrimSpace(parts[1]),
		PhoneNumber: strings.TrimSpace(parts[2]),
	}
	if len(parts) > 3 && strings.EqualFold(strings.TrimSpace(parts[3]), "primary") {
		c.IsPrimary = true
	}
	*l = append(*l, c)
	return nil
}

type partyFlags struct {
	fs                                        *flag.FlagSet
	name, abn, email, account, address, phone *string
	contacts                                  contactList
}

func newPartyFlags(fs *flag.FlagSet) *partyFlags {
	f := &partyFlags{
		fs:      fs,
		name:    fs.String("name", "", "Name"),
		abn:     fs.String("abn", "", "ABN"),
		email:   fs.String("email", "", "Email address"),
		account: fs.String("account", "", "Account number"),
		address: fs.String("address", "", "Office address"),
		phone:   fs.String("phone", "", "Phone number"),
	}
	fs.Var(&f.contacts, "contact", "Contact as \"name,email,phone[,primary]\" (repeatable)")
	return f
}

func (f *partyFlags) apply(p *models.Party) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			p.Name = *f.name
		case "abn":
			p.ABN = *f.abn
		case "email":
			p.Email = *f.email
		case "account":
			p.AccountNumber = *f.account
		case "address":
			p.OfficeAddress = *f.address
		case "phone":
			p.PhoneNumber = *f.phone
		case "contact":
			p.Contacts = f.contacts
		}
	})
}

// AddPartyCommand adds a buyer or seller.
func AddPartyCommand(ctx context.Context, svc *contracts.Service, kind models.PartyKind, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("add-"+string(kind), flag.ContinueOnError)
	fields := newPartyFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fields.name == "" {
		return fmt.Errorf("--name is required")
	}

	party := &models.Party{Kind: kind}
	fields.apply(party)
	if err := svc.AddParty(ctx, party); err != nil {
		return fmt.Errorf("failed to create %s: %w", kind, err)
	}

	fmt.Fprintf(out, "✓ %s created: %s (ID: %s)\n", titleKind(kind), party.Name, party.ID)
	if party.ABN != "" {
		fmt.Fprintf(out, "  ABN: %s\n", party.ABN)
	}
	if len(party.Contacts) > 0 {
		fmt.Fprintf(out, "  Contacts: %d\n", len(party.Contacts))
	}
	return nil
}

// UpdatePartyCommand edits a buyer or seller by ID or exact name.
func UpdatePartyCommand(ctx context.Context, svc *contracts.Service, kind models.PartyKind, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("update-"+string(kind), flag.ContinueOnError)
	fields := newPartyFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%s ID or name is required", kind)
	}

	party, err := svc.ResolveParty(ctx, kind, fs.Arg(0))
	if err != nil {
		return err
	}
	fields.apply(party)
	if err := svc.UpdateParty(ctx, party); err != nil {
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}

	fmt.Fprintf(out, "✓ %s updated: %s\n", titleKind(kind), party.Name)
	return nil
}

// ListPartiesCommand lists buyers or sellers.
func ListPartiesCommand(ctx context.Context, svc *contracts.Service, kind models.PartyKind, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("list-"+string(kind)+"s", flag.ContinueOnError)
	query := fs.String("query", "", "Search by name, ABN or email")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parties, err := svc.FindParties(ctx, kind, *query, *limit)
	if err != nil {
		return fmt.Errorf("failed to find %ss: %w", kind, err)
	}
	if len(parties) == 0 {
		fmt.Fprintf(out, "No %ss found\n", kind)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tABN\tEMAIL\tPRIMARY CONTACT\tID")
	fmt.Fprintln(w, "----\t---\t-----\t---------------\t--")
	for i := range parties {
		p := &parties[i]
		contact := "-"
		if pc := p.PrimaryContact(); pc != nil {
			contact = pc.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, dash(p.ABN), dash(p.Email), contact, p.ID.String()[:8])
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nTotal: %d %s(s)\n", len(parties), kind)
	return nil
}

// DeletePartyCommand soft-deletes a buyer or seller. Contracts keep pointing
// at it and render the name with a deleted marker.
func DeletePartyCommand(ctx context.Context, svc *contracts.Service, kind models.PartyKind, in io.Reader, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("delete-"+string(kind), flag.ContinueOnError)
	force := fs.Bool("force", false, "Skip confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%s ID or name is required", kind)
	}

	party, err := svc.ResolveParty(ctx, kind, fs.Arg(0))
	if err != nil {
		return err
	}
	if !*force && !confirm(in, out, fmt.Sprintf("Delete %s %s?", kind, party.Name)) {
		fmt.Fprintln(out, "Cancelled")
		return nil
	}
	if err := svc.DeleteParty(ctx, kind, party.ID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	fmt.Fprintf(out, "✓ %s deleted: %s\n", titleKind(kind), party.Name)
	return nil
}

func titleKind(kind models.PartyKind) string {
	if kind == models.PartyBuyer {
		return "Buyer"
	}
	return "Seller"
}

// confirm asks a yes/no question. Non-interactive stdin never confirms, so
// scripts must pass --force.
func confirm(in io.Reader, out io.Writer, question string) bool {
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false
	}
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
