// ABOUTME: Contract operations for PostgreSQL
// ABOUTME: Lifecycle checks and reference checks run inside one transaction
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

const contractNumberIndex = "idx_contracts_contract_number"

var contractColumns = []string{
	"id", "contract_number", "contract_date", "delivery_start", "delivery_end",
	"xero_invoice_id", "xero_invoice_number", "buyer_id", "seller_id",
	"buyer_contract_reference", "seller_contract_reference", "buyer_contact", "seller_contact",
	"attached_buyer_contract", "attached_seller_contract", "grade", "commodity", "contract_type",
	"ngr_number", "delivery_option", "freight", "weights", "price_ex_gst", "conveyance",
	"certification_scheme", "payment_terms", "broker_rate", "delivery_destination",
	"special_condition", "terms_and_conditions", "notes", "tonnes", "tolerance", "season",
	"brokerage_payable_by", "status", "is_deleted", "deleted_at", "created_at", "updated_at",
}

var contractSelect = strings.Join(contractColumns, ", ")

type ContractRepository struct {
	pool *pgxpool.Pool
}

func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	row := *contract
	if row.Status == "" {
		row.Status = models.StatusIncomplete
	}
	if err := models.ValidateContract(&row); err != nil {
		return err
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := checkReferences(ctx, tx, &row, nil); err != nil {
			return err
		}

		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.Stamp(time.Now().UTC())

		placeholders := make([]string, len(contractColumns))
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf(`INSERT INTO contracts (%s) VALUES (%s)`,
			contractSelect, strings.Join(placeholders, ", ")), contractArgs(&row)...)
		if isUniqueViolation(err, contractNumberIndex) {
			return models.UniquenessError(row.Number())
		}
		if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	*contract = row
	return nil
}

func (r *ContractRepository) Save(ctx context.Context, contract *models.Contract) error {
	row := *contract
	if err := models.ValidateContract(&row); err != nil {
		return err
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		prev, err := getContract(ctx, tx, row.ID, false, true)
		if err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, &row, prev); err != nil {
			return err
		}

		row.Timestamps = prev.Timestamps
		row.SoftDelete = prev.SoftDelete
		row.Stamp(time.Now().UTC())

		args := contractArgs(&row)
		assignments := make([]string, 0, len(contractColumns)-1)
		for i, col := range contractColumns[1:] {
			assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+2))
		}
		tag, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE contracts SET %s WHERE id = $1 AND NOT is_deleted`,
			strings.Join(assignments, ", ")), args...)
		if isUniqueViolation(err, contractNumberIndex) {
			return models.UniquenessError(row.Number())
		}
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return models.ErrContractNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	*contract = row
	return nil
}

func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return getContract(ctx, r.pool, id, false, false)
}

func (r *ContractRepository) GetIncludingDeleted(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return getContract(ctx, r.pool, id, true, false)
}

func (r *ContractRepository) GetByNumber(ctx context.Context, number string) (*models.Contract, error) {
	c, err := scanContract(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM contracts WHERE contract_number = $1 AND NOT is_deleted`, contractSelect), number))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrContractNotFound
	}
	return c, err
}

// getContract loads one row; forUpdate locks it for the rest of the transaction.
func getContract(ctx context.Context, q queryer, id uuid.UUID, includeDeleted, forUpdate bool) (*models.Contract, error) {
	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE id = $1`, contractSelect)
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanContract(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrContractNotFound
	}
	return c, err
}

func (r *ContractRepository) Find(ctx context.Context, filter models.ContractFilter) ([]models.Contract, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeDeleted {
		where = append(where, "NOT is_deleted")
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.BuyerID != nil {
		where = append(where, "buyer_id = "+arg(*filter.BuyerID))
	}
	if filter.SellerID != nil {
		where = append(where, "seller_id = "+arg(*filter.SellerID))
	}
	if filter.Season != "" {
		where = append(where, "season = "+arg(filter.Season))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM contracts`, contractSelect)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC LIMIT " + arg(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

func (r *ContractRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	c, err := getContract(ctx, r.pool, id, true, false)
	if err != nil {
		return err
	}
	if c.IsDeleted {
		return nil
	}

	c.MarkDeleted(time.Now().UTC())
	_, err = r.pool.Exec(ctx, `
		UPDATE contracts SET is_deleted = TRUE, deleted_at = $1, updated_at = $2 WHERE id = $3 AND NOT is_deleted
	`, c.DeletedAt, c.UpdatedAt, id)
	return err
}

func (r *ContractRepository) Summarize(ctx context.Context) ([]models.StatusSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(tonnes), 0)
		FROM contracts
		WHERE NOT is_deleted
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byStatus := make(map[models.Status]models.StatusSummary)
	for rows.Next() {
		var (
			status string
			count  int64
			s      models.StatusSummary
		)
		if err := rows.Scan(&status, &count, &s.Tonnes); err != nil {
			return nil, err
		}
		s.Status = models.Status(status)
		s.Count = int(count)
		byStatus[s.Status] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summaries := make([]models.StatusSummary, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		s := byStatus[status]
		s.Status = status
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func checkReferences(ctx context.Context, q queryer, c, prev *models.Contract) error {
	for _, ref := range models.ReferencesToCheck(c, prev) {
		ok, err := partyExists(ctx, q, ref.Kind, ref.ID)
		if err != nil {
			return err
		}
		if !ok {
			return models.ReferenceError(ref.Field, ref.ID.String())
		}
	}
	return nil
}

func contractArgs(c *models.Contract) []any {
	var brokerage *string
	if c.BrokeragePayableBy != "" {
		b := string(c.BrokeragePayableBy)
		brokerage = &b
	}

	return []any{
		c.ID,
		c.ContractNumber,
		optTime(c.ContractDate),
		optTime(c.DeliveryPeriod.Start),
		optTime(c.DeliveryPeriod.End),
		c.XeroInvoiceID,
		c.XeroInvoiceNumber,
		optUUID(c.BuyerID),
		optUUID(c.SellerID),
		c.BuyerContractReference,
		c.SellerContractReference,
		c.BuyerContact,
		c.SellerContact,
		c.AttachedBuyerContract,
		c.AttachedSellerContract,
		c.Grade,
		c.Commodity,
		c.ContractType,
		c.NGRNumber,
		c.DeliveryOption,
		c.Freight,
		c.Weights,
		c.PriceExGST,
		c.Conveyance,
		c.CertificationScheme,
		c.PaymentTerms,
		c.BrokerRate,
		c.DeliveryDestination,
		c.SpecialCondition,
		c.TermsAndConditions,
		c.Notes,
		c.Tonnes,
		c.Tolerance,
		c.Season,
		brokerage,
		string(c.Status),
		c.IsDeleted,
		c.DeletedAt,
		c.CreatedAt,
		c.UpdatedAt,
	}
}

func scanContract(row pgx.Row) (*models.Contract, error) {
	var (
		c         models.Contract
		brokerage *string
		status    string
	)
	err := row.Scan(
		&c.ID,
		&c.ContractNumber,
		&c.ContractDate,
		&c.DeliveryPeriod.Start,
		&c.DeliveryPeriod.End,
		&c.XeroInvoiceID,
		&c.XeroInvoiceNumber,
		&c.BuyerID,
		&c.SellerID,
		&c.BuyerContractReference,
		&c.SellerContractReference,
		&c.BuyerContact,
		&c.SellerContact,
		&c.AttachedBuyerContract,
		&c.AttachedSellerContract,
		&c.Grade,
		&c.Commodity,
		&c.ContractType,
		&c.NGRNumber,
		&c.DeliveryOption,
		&c.Freight,
		&c.Weights,
		&c.PriceExGST,
		&c.Conveyance,
		&c.CertificationScheme,
		&c.PaymentTerms,
		&c.BrokerRate,
		&c.DeliveryDestination,
		&c.SpecialCondition,
		&c.TermsAndConditions,
		&c.Notes,
		&c.Tonnes,
		&c.Tolerance,
		&c.Season,
		&brokerage,
		&status,
		&c.IsDeleted,
		&c.DeletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if brokerage != nil {
		c.BrokeragePayableBy = models.BrokeragePayableBy(*brokerage)
	}
	c.Status = models.Status(status)
	return &c, nil
}

func optTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

func optUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
