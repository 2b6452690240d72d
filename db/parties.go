// ABOUTME: Buyer and seller database operations
// ABOUTME: Party records are created, updated and soft-deleted, never removed
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/models"
)

// PartyRepository stores buyers and sellers. Both kinds share one row shape
// in separate tables.
type PartyRepository struct {
	db *sql.DB
}

// NewPartyRepository creates a new party repository.
func NewPartyRepository(db *sql.DB) *PartyRepository {
	return &PartyRepository{db: db}
}

func partyTable(kind models.PartyKind) (string, error) {
	switch kind {
	case models.PartyBuyer:
		return "buyers", nil
	case models.PartySeller:
		return "sellers", nil
	}
	return "", &models.ValidationError{Kind: models.KindEnumeration, Field: "kind", Value: string(kind)}
}

const partySelect = `id, name, abn, email, account_number, office_address, phone_number, contacts, is_deleted, deleted_at, created_at, updated_at`

// Create inserts a new party, assigning its ID and timestamps.
func (r *PartyRepository) Create(ctx context.Context, party *models.Party) error {
	if err := models.ValidateParty(party); err != nil {
		return err
	}
	table, err := partyTable(party.Kind)
	if err != nil {
		return err
	}

	row := *party
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Stamp(time.Now().UTC())

	contacts, err := marshalContacts(row.Contacts)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, name, abn, email, account_number, office_address, phone_number, contacts, is_deleted, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)
	`, table), row.ID.String(), row.Name, row.ABN, row.Email, row.AccountNumber, row.OfficeAddress, row.PhoneNumber, contacts, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return err
	}

	*party = row
	return nil
}

// Get returns a non-deleted party.
func (r *PartyRepository) Get(ctx context.Context, kind models.PartyKind, id uuid.UUID) (*models.Party, error) {
	return getParty(ctx, r.db, kind, id, false)
}

// GetIncludingDeleted resolves a party even after soft deletion, so that
// historical contracts keep resolving their references.
func (r *PartyRepository) GetIncludingDeleted(ctx context.Context, kind models.PartyKind, id uuid.UUID) (*models.Party, error) {
	return getParty(ctx, r.db, kind, id, true)
}

func getParty(ctx context.Context, q querier, kind models.PartyKind, id uuid.UUID, includeDeleted bool) (*models.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, partySelect, table)
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}

	party, err := scanParty(q.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPartyNotFound
	}
	if err != nil {
		return nil, err
	}
	party.Kind = kind
	return party, nil
}

// partyExists reports whether a non-deleted party with this id exists.
func partyExists(ctx context.Context, q querier, kind models.PartyKind, id uuid.UUID) (bool, error) {
	table, err := partyTable(kind)
	if err != nil {
		return false, err
	}
	var n int
	err = q.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ? AND is_deleted = 0`, table), id.String()).Scan(&n)
	return n > 0, err
}

// Find searches non-deleted parties by name, ABN or email.
func (r *PartyRepository) Find(ctx context.Context, kind models.PartyKind, query string, limit int) ([]models.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	searchPattern := "%" + strings.ToLower(query) + "%"
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE is_deleted = 0
		  AND (LOWER(name) LIKE ? OR LOWER(COALESCE(abn, '')) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)
		ORDER BY name ASC
		LIMIT ?
	`, partySelect, table), searchPattern, searchPattern, searchPattern, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var parties []models.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		p.Kind = kind
		parties = append(parties, *p)
	}

	return parties, rows.Err()
}

// FindByName returns the non-deleted party whose name matches exactly,
// ignoring case, or ErrPartyNotFound.
func (r *PartyRepository) FindByName(ctx context.Context, kind models.PartyKind, name string) (*models.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}
	party, err := scanParty(r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE LOWER(name) = LOWER(?) AND is_deleted = 0 ORDER BY created_at ASC LIMIT 1
	`, partySelect, table), name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrPartyNotFound
	}
	if err != nil {
		return nil, err
	}
	party.Kind = kind
	return party, nil
}

// Update rewrites a non-deleted party's attributes.
func (r *PartyRepository) Update(ctx context.Context, party *models.Party) error {
	if err := models.ValidateParty(party); err != nil {
		return err
	}
	table, err := partyTable(party.Kind)
	if err != nil {
		return err
	}

	current, err := getParty(ctx, r.db, party.Kind, party.ID, false)
	if err != nil {
		return err
	}

	row := *party
	row.Timestamps = current.Timestamps
	row.SoftDelete = current.SoftDelete
	row.Stamp(time.Now().UTC())

	contacts, err := marshalContacts(row.Contacts)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET name = ?, abn = ?, email = ?, account_number = ?, office_address = ?, phone_number = ?, contacts = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0
	`, table), row.Name, row.ABN, row.Email, row.AccountNumber, row.OfficeAddress, row.PhoneNumber, contacts, row.UpdatedAt, row.ID.String())
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return models.ErrPartyNotFound
	}

	*party = row
	return nil
}

// SoftDelete flags the party deleted. Contracts referencing it are untouched.
// Deleting an already deleted party is a no-op.
func (r *PartyRepository) SoftDelete(ctx context.Context, kind models.PartyKind, id uuid.UUID) error {
	table, err := partyTable(kind)
	if err != nil {
		return err
	}

	party, err := getParty(ctx, r.db, kind, id, true)
	if err != nil {
		return err
	}
	if party.IsDeleted {
		return nil
	}

	party.MarkDeleted(time.Now().UTC())
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET is_deleted = 1, deleted_at = ?, updated_at = ? WHERE id = ?
	`, table), party.DeletedAt, party.UpdatedAt, id.String())
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanParty(row rowScanner) (*models.Party, error) {
	var (
		p                                               models.Party
		abn, email, accountNumber, officeAddress, phone sql.NullString
		contactsJSON                                    string
		deletedAt                                       sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&abn,
		&email,
		&accountNumber,
		&officeAddress,
		&phone,
		&contactsJSON,
		&p.IsDeleted,
		&deletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ABN = abn.String
	p.Email = email.String
	p.AccountNumber = accountNumber.String
	p.OfficeAddress = officeAddress.String
	p.PhoneNumber = phone.String
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	if contactsJSON != "" && contactsJSON != "null" {
		if err := json.Unmarshal([]byte(contactsJSON), &p.Contacts); err != nil {
			return nil, fmt.Errorf("failed to decode contacts: %w", err)
		}
	}

	return &p, nil
}

func marshalContacts(contacts []models.Contact) (string, error) {
	if contacts == nil {
		contacts = []models.Contact{}
	}
	data, err := json.Marshal(contacts)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
