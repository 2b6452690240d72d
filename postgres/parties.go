// ABOUTME: Buyer and seller operations for PostgreSQL
// ABOUTME: Mirrors the SQLite party repository
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PartyRepository struct {
	pool *pgxpool.Pool
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
	if row.Contacts == nil {
		row.Contacts = []models.Contact{}
	}
	row.Stamp(time.Now().UTC())

	_, err = r.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, name, abn, email, account_number, office_address, phone_number, contacts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, table), row.ID, row.Name, row.ABN, row.Email, row.AccountNumber, row.OfficeAddress, row.PhoneNumber, row.Contacts, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return err
	}

	*party = row
	return nil
}

func (r *PartyRepository) Get(ctx context.Context, kind models.PartyKind, id uuid.UUID) (*models.Party, error) {
	return getParty(ctx, r.pool, kind, id, false)
}

func (r *PartyRepository) GetIncludingDeleted(ctx context.Context, kind models.PartyKind, id uuid.UUID) (*models.Party, error) {
	return getParty(ctx, r.pool, kind, id, true)
}

func getParty(ctx context.Context, q queryer, kind models.PartyKind, id uuid.UUID, includeDeleted bool) (*models.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, partySelect, table)
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}

	p, err := scanParty(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrPartyNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Kind = kind
	return p, nil
}

func partyExists(ctx context.Context, q queryer, kind models.PartyKind, id uuid.UUID) (bool, error) {
	table, err := partyTable(kind)
	if err != nil {
		return false, err
	}
	var ok bool
	err = q.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND NOT is_deleted)`, table), id).Scan(&ok)
	return ok, err
}

func (r *PartyRepository) Find(ctx context.Context, kind models.PartyKind, query string, limit int) ([]models.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE NOT is_deleted AND (LOWER(name) LIKE $1 OR LOWER(abn) LIKE $1 OR LOWER(email) LIKE $1)
		ORDER BY name ASC
		LIMIT $2
	`, partySelect, table), pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

func (r *PartyRepository) FindByName(ctx context.Context, kind models.PartyKind, name string) (*models.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}
	p, err := scanParty(r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM %s WHERE LOWER(name) = LOWER($1) AND NOT is_deleted ORDER BY created_at ASC LIMIT 1
	`, partySelect, table), name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrPartyNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Kind = kind
	return p, nil
}

func (r *PartyRepository) Update(ctx context.Context, party *models.Party) error {
	if err := models.ValidateParty(party); err != nil {
		return err
	}
	table, err := partyTable(party.Kind)
	if err != nil {
		return err
	}

	current, err := getParty(ctx, r.pool, party.Kind, party.ID, false)
	if err != nil {
		return err
	}

	row := *party
	row.Timestamps = current.Timestamps
	row.SoftDelete = current.SoftDelete
	if row.Contacts == nil {
		row.Contacts = []models.Contact{}
	}
	row.Stamp(time.Now().UTC())

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET name = $1, abn = $2, email = $3, account_number = $4, office_address = $5, phone_number = $6, contacts = $7, updated_at = $8
		WHERE id = $9 AND NOT is_deleted
	`, table), row.Name, row.ABN, row.Email, row.AccountNumber, row.OfficeAddress, row.PhoneNumber, row.Contacts, row.UpdatedAt, row.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPartyNotFound
	}

	*party = row
	return nil
}

func (r *PartyRepository) SoftDelete(ctx context.Context, kind models.PartyKind, id uuid.UUID) error {
	table, err := partyTable(kind)
	if err != nil {
		return err
	}
	p, err := getParty(ctx, r.pool, kind, id, true)
	if err != nil {
		return err
	}
	if p.IsDeleted {
		return nil
	}

	p.MarkDeleted(time.Now().UTC())
	_, err = r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET is_deleted = TRUE, deleted_at = $1, updated_at = $2 WHERE id = $3
	`, table), p.DeletedAt, p.UpdatedAt, id)
	return err
}

func scanParty(row pgx.Row) (*models.Party, error) {
	var p models.Party
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.ABN,
		&p.Email,
		&p.AccountNumber,
		&p.OfficeAddress,
		&p.PhoneNumber,
		&p.Contacts,
		&p.IsDeleted,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
