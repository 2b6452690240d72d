// ABOUTME: Whole-book export used when moving a SQLite book to PostgreSQL
// ABOUTME: Reads every party, contract and counter, deleted rows included
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/grainbroker/models"
)

// Book is a full copy of a contract book.
type Book struct {
	Parties   []models.Party
	Contracts []models.Contract
	Counters  map[string]int64
}

// ExportBook reads the entire book in one read transaction.
func ExportBook(ctx context.Context, database *sql.DB) (*Book, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	book := &Book{Counters: make(map[string]int64)}

	for _, kind := range []models.PartyKind{models.PartyBuyer, models.PartySeller} {
		table, _ := partyTable(kind)
		rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at`, partySelect, table))
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			p, err := scanParty(rows)
			if err != nil {
				_ = rows.Close()
				return nil, err
			}
			p.Kind = kind
			book.Parties = append(book.Parties, *p)
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM contracts ORDER BY created_at`, contractSelect))
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		book.Contracts = append(book.Contracts, *c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	counters, err := tx.QueryContext(ctx, `SELECT name, seq FROM counters`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = counters.Close() }()
	for counters.Next() {
		var (
			name string
			seq  int64
		)
		if err := counters.Scan(&name, &seq); err != nil {
			return nil, err
		}
		book.Counters[name] = seq
	}
	return book, counters.Err()
}
