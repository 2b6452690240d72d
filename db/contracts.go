// ABOUTME: Contract database operations
// ABOUTME: Every write runs the lifecycle engine and reference checks inside one transaction
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

// DefaultContractLimit caps Find when the filter sets no limit.
const DefaultContractLimit = 50

var contractColumns = []string{
	"id",
	"contract_number",
	"contract_date",
	"delivery_start",
	"delivery_end",
	"xero_invoice_id",
	"xero_invoice_number",
	"buyer_id",
	"seller_id",
	"buyer_contract_reference",
	"seller_contract_reference",
	"buyer_contact",
	"seller_contact",
	"attached_buyer_contract",
	"attached_seller_contract",
	"grade",
	"commodity",
	"contract_type",
	"ngr_number",
	"delivery_option",
	"freight",
	"weights",
	"price_ex_gst",
	"conveyance",
	"certification_scheme",
	"payment_terms",
	"broker_rate",
	"delivery_destination",
	"special_condition",
	"terms_and_conditions",
	"notes",
	"tonnes",
	"tolerance",
	"season",
	"brokerage_payable_by",
	"status",
	"is_deleted",
	"deleted_at",
	"created_at",
	"updated_at",
}

var contractSelect = strings.Join(contractColumns, ", ")

// ContractRepository persists contracts in SQLite.
type ContractRepository struct {
	db *sql.DB
}

// NewContractRepository creates a new contract repository.
func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create validates and inserts a new contract. On success the caller's
// struct receives the assigned ID and timestamps; on failure it is untouched.
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	row := *contract
	if row.Status == "" {
		row.Status = models.StatusIncomplete
	}
	if err := models.ValidateContract(&row); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkReferences(ctx, tx, &row, nil); err != nil {
		return err
	}

	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Stamp(time.Now().UTC())

	args, err := contractArgs(&row)
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(contractColumns)), ", ")
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO contracts (%s) VALUES (%s)`, contractSelect, placeholders), args...)
	if err != nil {
		if isUniqueViolation(err, "contract_number") {
			return models.UniquenessError(row.Number())
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	*contract = row
	return nil
}

// Save validates and rewrites an existing, non-deleted contract. CreatedAt
// and deletion state are taken from the stored row.
func (r *ContractRepository) Save(ctx context.Context, contract *models.Contract) error {
	row := *contract
	if err := models.ValidateContract(&row); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := getContract(ctx, tx, row.ID, false)
	if err != nil {
		return err
	}
	if err := checkReferences(ctx, tx, &row, prev); err != nil {
		return err
	}

	row.Timestamps = prev.Timestamps
	row.SoftDelete = prev.SoftDelete
	row.Stamp(time.Now().UTC())

	args, err := contractArgs(&row)
	if err != nil {
		return err
	}
	assignments := make([]string, 0, len(contractColumns)-1)
	for _, col := range contractColumns[1:] {
		assignments = append(assignments, col+" = ?")
	}
	args = append(args[1:], row.ID.String())

	result, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE contracts SET %s WHERE id = ? AND is_deleted = 0
	`, strings.Join(assignments, ", ")), args...)
	if err != nil {
		if isUniqueViolation(err, "contract_number") {
			return models.UniquenessError(row.Number())
		}
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return models.ErrContractNotFound
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	*contract = row
	return nil
}

// Get returns a non-deleted contract.
func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return getContract(ctx, r.db, id, false)
}

// GetIncludingDeleted returns the contract regardless of deletion state.
func (r *ContractRepository) GetIncludingDeleted(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return getContract(ctx, r.db, id, true)
}

// GetByNumber returns the non-deleted contract carrying the given number.
func (r *ContractRepository) GetByNumber(ctx context.Context, number string) (*models.Contract, error) {
	c, err := scanContract(r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM contracts WHERE contract_number = ? AND is_deleted = 0
	`, contractSelect), number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrContractNotFound
	}
	return c, err
}

func getContract(ctx context.Context, q querier, id uuid.UUID, includeDeleted bool) (*models.Contract, error) {
	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE id = ?`, contractSelect)
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	c, err := scanContract(q.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrContractNotFound
	}
	return c, err
}

// Find lists contracts matching the filter, most recently updated first.
func (r *ContractRepository) Find(ctx context.Context, filter models.ContractFilter) ([]models.Contract, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filter.IncludeDeleted {
		where = append(where, "is_deleted = 0")
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.BuyerID != nil {
		where = append(where, "buyer_id = ?")
		args = append(args, filter.BuyerID.String())
	}
	if filter.SellerID != nil {
		where = append(where, "seller_id = ?")
		args = append(args, filter.SellerID.String())
	}
	if filter.Season != "" {
		where = append(where, "season = ?")
		args = append(args, filter.Season)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultContractLimit
	}

	query := fmt.Sprintf(`SELECT %s FROM contracts`, contractSelect)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

// SoftDelete flags the contract deleted without running the lifecycle
// engine. Repeated deletes are no-ops.
func (r *ContractRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	c, err := getContract(ctx, r.db, id, true)
	if err != nil {
		return err
	}
	if c.IsDeleted {
		return nil
	}

	c.MarkDeleted(time.Now().UTC())
	_, err = r.db.ExecContext(ctx, `
		UPDATE contracts SET is_deleted = 1, deleted_at = ?, updated_at = ? WHERE id = ?
	`, c.DeletedAt, c.UpdatedAt, id.String())
	return err
}

// Summarize counts non-deleted contracts and their tonnes per status, in
// lifecycle order. Statuses with no contracts are reported with zeroes.
func (r *ContractRepository) Summarize(ctx context.Context) ([]models.StatusSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(tonnes), 0)
		FROM contracts
		WHERE is_deleted = 0
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	byStatus := make(map[models.Status]models.StatusSummary)
	for rows.Next() {
		var s models.StatusSummary
		if err := rows.Scan(&s.Status, &s.Count, &s.Tonnes); err != nil {
			return nil, err
		}
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

// checkReferences verifies that new or changed buyer and seller ids resolve
// to non-deleted parties.
func checkReferences(ctx context.Context, q querier, c, prev *models.Contract) error {
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

func contractArgs(c *models.Contract) ([]interface{}, error) {
	buyerContact, err := marshalContact(c.BuyerContact)
	if err != nil {
		return nil, err
	}
	sellerContact, err := marshalContact(c.SellerContact)
	if err != nil {
		return nil, err
	}

	var tonnes sql.NullFloat64
	if c.Tonnes != nil {
		tonnes = sql.NullFloat64{Float64: *c.Tonnes, Valid: true}
	}

	return []interface{}{
		c.ID.String(),
		nullStringPtr(c.ContractNumber),
		nullTime(c.ContractDate),
		nullTime(c.DeliveryPeriod.Start),
		nullTime(c.DeliveryPeriod.End),
		nullStringPtr(c.XeroInvoiceID),
		nullStringPtr(c.XeroInvoiceNumber),
		nullUUID(c.BuyerID),
		nullUUID(c.SellerID),
		nullString(c.BuyerContractReference),
		nullString(c.SellerContractReference),
		buyerContact,
		sellerContact,
		nullString(c.AttachedBuyerContract),
		nullString(c.AttachedSellerContract),
		nullString(c.Grade),
		nullString(c.Commodity),
		nullString(c.ContractType),
		nullString(c.NGRNumber),
		nullString(c.DeliveryOption),
		nullString(c.Freight),
		nullString(c.Weights),
		nullString(c.PriceExGST),
		nullString(c.Conveyance),
		nullString(c.CertificationScheme),
		nullString(c.PaymentTerms),
		nullString(c.BrokerRate),
		nullString(c.DeliveryDestination),
		nullString(c.SpecialCondition),
		nullString(c.TermsAndConditions),
		nullString(c.Notes),
		tonnes,
		nullString(c.Tolerance),
		nullString(c.Season),
		nullString(string(c.BrokeragePayableBy)),
		string(c.Status),
		c.IsDeleted,
		nullTime(c.DeletedAt),
		c.CreatedAt,
		c.UpdatedAt,
	}, nil
}

func scanContract(row rowScanner) (*models.Contract, error) {
	var (
		c                                        models.Contract
		number, invoiceID, invoiceNumber         sql.NullString
		contractDate, deliveryStart, deliveryEnd sql.NullTime
		buyerID, sellerID                        sql.NullString
		buyerContact, sellerContact              sql.NullString
		tonnes                                   sql.NullFloat64
		brokerage                                sql.NullString
		deletedAt                                sql.NullTime
		text                                     [22]sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&number,
		&contractDate,
		&deliveryStart,
		&deliveryEnd,
		&invoiceID,
		&invoiceNumber,
		&buyerID,
		&sellerID,
		&text[0],
		&text[1],
		&buyerContact,
		&sellerContact,
		&text[2],
		&text[3],
		&text[4],
		&text[5],
		&text[6],
		&text[7],
		&text[8],
		&text[9],
		&text[10],
		&text[11],
		&text[12],
		&text[13],
		&text[14],
		&text[15],
		&text[16],
		&text[17],
		&text[18],
		&text[19],
		&tonnes,
		&text[20],
		&text[21],
		&brokerage,
		&c.Status,
		&c.IsDeleted,
		&deletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ContractNumber = stringPtr(number)
	c.XeroInvoiceID = stringPtr(invoiceID)
	c.XeroInvoiceNumber = stringPtr(invoiceNumber)
	c.ContractDate = timePtr(contractDate)
	c.DeliveryPeriod.Start = timePtr(deliveryStart)
	c.DeliveryPeriod.End = timePtr(deliveryEnd)
	c.DeletedAt = timePtr(deletedAt)
	c.BrokeragePayableBy = models.BrokeragePayableBy(brokerage.String)
	if tonnes.Valid {
		v := tonnes.Float64
		c.Tonnes = &v
	}

	if c.BuyerID, err = parseUUID(buyerID); err != nil {
		return nil, err
	}
	if c.SellerID, err = parseUUID(sellerID); err != nil {
		return nil, err
	}
	if c.BuyerContact, err = unmarshalContact(buyerContact); err != nil {
		return nil, err
	}
	if c.SellerContact, err = unmarshalContact(sellerContact); err != nil {
		return nil, err
	}

	c.BuyerContractReference = text[0].String
	c.SellerContractReference = text[1].String
	c.AttachedBuyerContract = text[2].String
	c.AttachedSellerContract = text[3].String
	c.Grade = text[4].String
	c.Commodity = text[5].String
	c.ContractType = text[6].String
	c.NGRNumber = text[7].String
	c.DeliveryOption = text[8].String
	c.Freight = text[9].String
	c.Weights = text[10].String
	c.PriceExGST = text[11].String
	c.Conveyance = text[12].String
	c.CertificationScheme = text[13].String
	c.PaymentTerms = text[14].String
	c.BrokerRate = text[15].String
	c.DeliveryDestination = text[16].String
	c.SpecialCondition = text[17].String
	c.TermsAndConditions = text[18].String
	c.Notes = text[19].String
	c.Tolerance = text[20].String
	c.Season = text[21].String

	return &c, nil
}

func marshalContact(contact *models.Contact) (sql.NullString, error) {
	if contact == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(contact)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalContact(ns sql.NullString) (*models.Contact, error) {
	if !ns.Valid || ns.String == "" || ns.String == "null" {
		return nil, nil
	}
	var contact models.Contact
	if err := json.Unmarshal([]byte(ns.String), &contact); err != nil {
		return nil, fmt.Errorf("failed to decode contact: %w", err)
	}
	return &contact, nil
}
