// ABOUTME: Bulk import of a whole contract book into PostgreSQL
// ABOUTME: Used by cmd/migrate to move a SQLite book across
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/harperreed/grainbroker/models"
)

var partyColumns = strings.Split(partySelect, ", ")

// Import bulk-copies a whole book in one transaction, keeping IDs, numbers,
// timestamps and deletion flags. Counters never move backwards.
func (db *DB) Import(ctx context.Context, parties []models.Party, contracts []models.Contract, counters map[string]int64) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		for _, kind := range []models.PartyKind{models.PartyBuyer, models.PartySeller} {
			table, err := partyTable(kind)
			if err != nil {
				return err
			}
			var rows [][]any
			for i := range parties {
				p := &parties[i]
				if p.Kind != kind {
					continue
				}
				contacts := p.Contacts
				if contacts == nil {
					contacts = []models.Contact{}
				}
				rows = append(rows, []any{
					p.ID, p.Name, p.ABN, p.Email, p.AccountNumber, p.OfficeAddress, p.PhoneNumber,
					contacts, p.IsDeleted, p.DeletedAt, p.CreatedAt, p.UpdatedAt,
				})
			}
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, partyColumns, pgx.CopyFromRows(rows)); err != nil {
				return fmt.Errorf("copy %s: %w", table, err)
			}
		}

		rows := make([][]any, len(contracts))
		for i := range contracts {
			rows[i] = contractArgs(&contracts[i])
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"contracts"}, contractColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy contracts: %w", err)
		}

		for name, seq := range counters {
			if _, err := tx.Exec(ctx, `
				INSERT INTO counters (name, seq) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET seq = GREATEST(counters.seq, EXCLUDED.seq)
			`, name, seq); err != nil {
				return fmt.Errorf("set counter %s: %w", name, err)
			}
		}
		return nil
	})
}

// IsEmpty reports whether the book holds no parties or contracts.
func (db *DB) IsEmpty(ctx context.Context) (bool, error) {
	var n int64
	err := db.Pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM buyers) + (SELECT COUNT(*) FROM sellers) + (SELECT COUNT(*) FROM contracts)
	`).Scan(&n)
	return n == 0, err
}
