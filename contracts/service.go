// ABOUTME: Contract book service: the single write path for contracts and parties
// ABOUTME: Validates, mints contract numbers, commits, mirrors and records metrics
package contracts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/grainbroker/logger"
	"github.com/harperreed/grainbroker/metrics"
	"github.com/harperreed/grainbroker/models"
	"github.com/harperreed/grainbroker/sequence"
)

// Store persists contracts. Create and Save run the lifecycle engine and
// reference checks inside one transaction and assign timestamps.
type Store interface {
	Create(ctx context.Context, c *models.Contract) error
	Save(ctx context.Context, c *models.Contract) error
	Get(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetIncludingDeleted(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetByNumber(ctx context.Context, number string) (*models.Contract, error)
	Find(ctx context.Context, filter models.ContractFilter) ([]models.Contract, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Summarize(ctx context.Context) ([]models.StatusSummary, error)
}

// PartyStore persists buyers and sellers.
type PartyStore interface {
	Create(ctx context.Context, p *models.Party) error
	Update(ctx context.Context, p *models.Party) error
	Get(ctx context.Context, kind models.PartyKind, id uuid.UUID) (*models.Party, error)
	GetIncludingDeleted(ctx context.Context, kind models.PartyKind, id uuid.UUID) (*models.Party, error)
	Find(ctx context.Context, kind models.PartyKind, query string, limit int) ([]models.Party, error)
	FindByName(ctx context.Context, kind models.PartyKind, name string) (*models.Party, error)
	SoftDelete(ctx context.Context, kind models.PartyKind, id uuid.UUID) error
}

// Mirror receives a snapshot after every successful contract write.
type Mirror interface {
	Record(ctx context.Context, c *models.Contract) (string, error)
}

type Service struct {
	store   Store
	parties PartyStore
	alloc   sequence.Allocator
	format  sequence.Format
	mirror  Mirror
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

// WithNumberFormat sets the prefix and padding of minted contract numbers.
func WithNumberFormat(f sequence.Format) Option {
	return func(s *Service) { s.format = f }
}

func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New builds a service. The store, party store and allocator are required.
func New(store Store, parties PartyStore, alloc sequence.Allocator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("contract store is required")
	}
	if parties == nil {
		return nil, errors.New("party store is required")
	}
	if alloc == nil {
		return nil, errors.New("sequence allocator is required")
	}

	s := &Service{
		store:   store,
		parties: parties,
		alloc:   alloc,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create stores a new contract. A non-Draft contract without a number gets
// one minted after the lifecycle engine accepts it.
func (s *Service) Create(ctx context.Context, c *models.Contract) error {
	return s.write(ctx, "create", c, s.store.Create)
}

// Save commits changes to an existing contract.
func (s *Service) Save(ctx context.Context, c *models.Contract) error {
	return s.write(ctx, "save", c, s.store.Save)
}

func (s *Service) write(ctx context.Context, op string, c *models.Contract, commit func(context.Context, *models.Contract) error) error {
	start := s.now()

	candidate := *c
	if candidate.Status == "" {
		candidate.Status = models.StatusIncomplete
	}
	if err := models.ValidateContract(&candidate); err != nil {
		return s.reject(op, &candidate, err)
	}
	if err := s.assignNumber(ctx, &candidate); err != nil {
		return s.reject(op, &candidate, err)
	}
	if err := commit(ctx, &candidate); err != nil {
		return s.reject(op, &candidate, err)
	}

	*c = candidate
	s.metrics.ObserveSave(op, string(c.Status), s.now().Sub(start))
	s.log.Info("contract saved", "op", op, "contract_id", c.ID, "contract_number", c.Number(), "status", c.Status)
	s.snapshot(ctx, c)
	return nil
}

func (s *Service) assignNumber(ctx context.Context, c *models.Contract) error {
	if c.Status == models.StatusDraft || c.ContractNumber != nil {
		return nil
	}
	number, err := sequence.NextNumber(ctx, s.alloc, models.CounterContractNumber, s.format)
	if err != nil {
		return err
	}
	c.ContractNumber = &number
	s.metrics.IncrementAllocation()
	s.log.Debug("contract number allocated", "contract_number", number)
	return nil
}

func (s *Service) reject(op string, c *models.Contract, err error) error {
	kind := "error"
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		kind = string(ve.Kind)
	case errors.Is(err, models.ErrContractNotFound):
		kind = "not_found"
	}
	s.metrics.IncrementRejection(op, kind)
	s.log.Warn("contract write rejected", "op", op, "contract_id", c.ID, "status", c.Status, "kind", kind, "error", err)
	return err
}

func (s *Service) snapshot(ctx context.Context, c *models.Contract) {
	if s.mirror == nil {
		return
	}
	if _, err := s.mirror.Record(ctx, c); err != nil {
		s.log.Warn("contract mirror failed", "contract_id", c.ID, "error", err)
	}
}

// Transition moves a contract to status. The whole contract is revalidated.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, status models.Status) (*models.Contract, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	c.Status = status
	if err := s.Save(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("contract status changed", "contract_id", id, "from", from, "to", status)
	return c, nil
}

// RecordInvoice stores the invoice identifiers returned by the accounting
// system. No other field changes.
func (s *Service) RecordInvoice(ctx context.Context, id uuid.UUID, invoiceID, invoiceNumber string) (*models.Contract, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, &models.ValidationError{Kind: models.KindRequired, Field: "xeroInvoiceId"}
	}

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.XeroInvoiceID = &invoiceID
	if invoiceNumber = strings.TrimSpace(invoiceNumber); invoiceNumber != "" {
		c.XeroInvoiceNumber = &invoiceNumber
	} else {
		c.XeroInvoiceNumber = nil
	}
	if err := s.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete soft-deletes a contract. The lifecycle engine does not run.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info("contract deleted", "contract_id", id)

	if s.mirror != nil {
		if c, err := s.store.GetIncludingDeleted(ctx, id); err == nil {
			s.snapshot(ctx, c)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return s.store.Get(ctx, id)
}

// Lookup resolves ref as a contract id, falling back to a contract number.
func (s *Service) Lookup(ctx context.Context, ref string) (*models.Contract, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.store.Get(ctx, id)
	}
	return s.store.GetByNumber(ctx, ref)
}

// GetForAudit returns a contract even if it has been soft-deleted.
func (s *Service) GetForAudit(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return s.store.GetIncludingDeleted(ctx, id)
}

func (s *Service) Find(ctx context.Context, filter models.ContractFilter) ([]models.Contract, error) {
	return s.store.Find(ctx, filter)
}

func (s *Service) Summary(ctx context.Context) ([]models.StatusSummary, error) {
	return s.store.Summarize(ctx)
}

// AddParty stores a new buyer or seller.
func (s *Service) AddParty(ctx context.Context, p *models.Party) error {
	if err := s.parties.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info("party added", "kind", p.Kind, "party_id", p.ID, "name", p.Name)
	return nil
}

func (s *Service) UpdateParty(ctx context.Context, p *models.Party) error {
	return s.parties.Update(ctx, p)
}

func (s *Service) GetParty(ctx context.Context, kind models.PartyKind, id uuid.UUID) (*models.Party, error) {
	return s.parties.Get(ctx, kind, id)
}

// PartyName resolves a party's display name, including deleted parties so
// historical contracts still render.
func (s *Service) PartyName(ctx context.Context, kind models.PartyKind, id *uuid.UUID) string {
	if id == nil || *id == uuid.Nil {
		return ""
	}
	p, err := s.parties.GetIncludingDeleted(ctx, kind, *id)
	if err != nil {
		return id.String()
	}
	if p.IsDeleted {
		return p.Name + " (deleted)"
	}
	return p.Name
}

// ResolveParty accepts a party id or an exact name, ignoring case.
func (s *Service) ResolveParty(ctx context.Context, kind models.PartyKind, ref string) (*models.Party, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%s reference is empty: %w", kind, models.ErrPartyNotFound)
	}
	if id, err := uuid.Parse(ref); err == nil {
		return s.parties.Get(ctx, kind, id)
	}
	return s.parties.FindByName(ctx, kind, ref)
}

func (s *Service) FindParties(ctx context.Context, kind models.PartyKind, query string, limit int) ([]models.Party, error) {
	return s.parties.Find(ctx, kind, query, limit)
}

// DeleteParty soft-deletes a buyer or seller. Contracts referencing it keep
// the reference.
func (s *Service) DeleteParty(ctx context.Context, kind models.PartyKind, id uuid.UUID) error {
	if err := s.parties.SoftDelete(ctx, kind, id); err != nil {
		return err
	}
	s.log.Info("party deleted", "kind", kind, "party_id", id)
	return nil
}
