// ABOUTME: Tests for the contract service
// ABOUTME: Uses gomock stores to check ordering of validation, minting and commit
package contracts

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,PartyStore,Mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/harperreed/grainbroker/contracts/mocks"
	"github.com/harperreed/grainbroker/metrics"
	"github.com/harperreed/grainbroker/models"
	"github.com/harperreed/grainbroker/sequence"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	parties *mocks.MockPartyStore
	mirror  *mocks.MockMirror
	metrics *metrics.Metrics
	next    int64
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.parties = mocks.NewMockPartyStore(s.ctrl)
	s.mirror = mocks.NewMockMirror(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.next = 1000
	s.ctx = context.Background()

	alloc := sequence.AllocatorFunc(func(ctx context.Context, counter string) (int64, error) {
		s.Equal(models.CounterContractNumber, counter)
		s.next++
		return s.next, nil
	})

	var err error
	s.service, err = New(s.store, s.parties, alloc,
		WithMirror(s.mirror),
		WithMetrics(s.metrics),
		WithNumberFormat(sequence.Format{Prefix: "GB-"}),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func completeContract(status models.Status) *models.Contract {
	date := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	buyer, seller := uuid.New(), uuid.New()
	tonnes := 100.0
	c := models.NewContract(status)
	c.ContractDate = &date
	c.BuyerID = &buyer
	c.SellerID = &seller
	c.Tonnes = &tonnes
	c.Season = "2024-25"
	c.BrokeragePayableBy = models.BrokerageBuyer
	return c
}

func (s *ServiceSuite) TestNew() {
	alloc := sequence.AllocatorFunc(func(context.Context, string) (int64, error) { return 1, nil })

	s.Run("nil store returns error", func() {
		_, err := New(nil, s.parties, alloc)
		s.ErrorContains(err, "contract store is required")
	})
	s.Run("nil party store returns error", func() {
		_, err := New(s.store, nil, alloc)
		s.ErrorContains(err, "party store is required")
	})
	s.Run("nil allocator returns error", func() {
		_, err := New(s.store, s.parties, nil)
		s.ErrorContains(err, "sequence allocator is required")
	})
}

func (s *ServiceSuite) TestCreateMintsNumberForNonDraft() {
	c := completeContract(models.StatusIncomplete)

	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, stored *models.Contract) error {
			s.Equal("GB-1001", stored.Number())
			stored.ID = uuid.New()
			return nil
		})
	s.mirror.EXPECT().Record(gomock.Any(), gomock.Any()).Return("rev", nil)

	s.Require().NoError(s.service.Create(s.ctx, c))
	s.Equal("GB-1001", c.Number())
	s.NotEqual(uuid.Nil, c.ID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Allocations))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Saves.WithLabelValues("create", "Incomplete")))
}

func (s *ServiceSuite) TestCreateDraftLeavesNumberEmpty() {
	c := models.NewContract(models.StatusDraft)

	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.mirror.EXPECT().Record(gomock.Any(), gomock.Any()).Return("rev", nil)

	s.Require().NoError(s.service.Create(s.ctx, c))
	s.Nil(c.ContractNumber)
	s.Equal(0.0, testutil.ToFloat64(s.metrics.Allocations))
}

func (s *ServiceSuite) TestBlankNumberIsMintedOver() {
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, stored *models.Contract) error {
			stored.ID = uuid.New()
			return nil
		}).Times(2)
	s.mirror.EXPECT().Record(gomock.Any(), gomock.Any()).Return("rev", nil).Times(2)

	first := completeContract(models.StatusIncomplete)
	blank := ""
	first.ContractNumber = &blank
	s.Require().NoError(s.service.Create(s.ctx, first))
	s.Equal("GB-1001", first.Number())

	second := completeContract(models.StatusComplete)
	spaces := "   "
	second.ContractNumber = &spaces
	s.Require().NoError(s.service.Create(s.ctx, second))
	s.Equal("GB-1002", second.Number())
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Allocations))
}

func (s *ServiceSuite) TestCreateKeepsCallerSuppliedNumber() {
	c := completeContract(models.StatusComplete)
	number := "LEGACY-7"
	c.ContractNumber = &number

	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.mirror.EXPECT().Record(gomock.Any(), gomock.Any()).Return("rev", nil)

	s.Require().NoError(s.service.Create(s.ctx, c))
	s.Equal("LEGACY-7", c.Number())
	s.Equal(int64(1000), s.next, "allocator not consulted")
}

func (s *ServiceSuite) TestRejectedCandidateNeverReachesStoreOrAllocator() {
	c := completeContract(models.StatusComplete)
	c.Season = ""

	err := s.service.Create(s.ctx, c)
	s.Require().Error(err)
	s.Equal("season is required when status is Complete", err.Error())
	s.Nil(c.ContractNumber)
	s.Equal(int64(1000), s.next)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Rejections.WithLabelValues("create", "completeness")))
}

func (s *ServiceSuite) TestStoreUniquenessSurfaces() {
	c := completeContract(models.StatusIncomplete)

	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(models.UniquenessError("GB-1001"))

	err := s.service.Create(s.ctx, c)
	s.True(models.IsKind(err, models.KindUniqueness))
	s.Nil(c.ContractNumber, "caller's contract untouched on failure")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Rejections.WithLabelValues("create", "uniqueness")))
}

func (s *ServiceSuite) TestAllocatorFailureAbortsWrite() {
	boom := errors.New("redis down")
	svc, err := New(s.store, s.parties, sequence.AllocatorFunc(func(context.Context, string) (int64, error) {
		return 0, boom
	}))
	s.Require().NoError(err)

	err = svc.Create(s.ctx, completeContract(models.StatusIncomplete))
	s.ErrorIs(err, boom)
}

func (s *ServiceSuite) TestMirrorFailureDoesNotFailSave() {
	c := models.NewContract(models.StatusDraft)

	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.mirror.EXPECT().Record(gomock.Any(), gomock.Any()).Return("", errors.New("charm unreachable"))

	s.NoError(s.service.Create(s.ctx, c))
}

func (s *ServiceSuite) TestTransitionDraftToIncompleteMintsNumber() {
	c := completeContract(models.StatusDraft)
	c.ID = uuid.New()

	s.store.EXPECT().Get(gomock.Any(), c.ID).Return(c, nil)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.mirror.EXPECT().Record(gomock.Any(), gomock.Any()).Return("rev", nil)

	got, err := s.service.Transition(s.ctx, c.ID, models.StatusIncomplete)
	s.Require().NoError(err)
	s.Equal(models.StatusIncomplete, got.Status)
	s.Equal("GB-1001", got.Number())
}

func (s *ServiceSuite) TestTransitionRejectsIncompleteContract() {
	c := models.NewContract(models.StatusDraft)
	c.ID = uuid.New()

	s.store.EXPECT().Get(gomock.Any(), c.ID).Return(c, nil)

	_, err := s.service.Transition(s.ctx, c.ID, models.StatusComplete)
	s.True(models.IsKind(err, models.KindCompleteness))
}

func (s *ServiceSuite) TestTransitionUnknownContract() {
	id := uuid.New()
	s.store.EXPECT().Get(gomock.Any(), id).Return(nil, models.ErrContractNotFound)

	_, err := s.service.Transition(s.ctx, id, models.StatusComplete)
	s.ErrorIs(err, models.ErrContractNotFound)
}

func (s *ServiceSuite) TestRecordInvoice() {
	c := completeContract(models.StatusComplete)
	c.ID = uuid.New()
	number := "GB-1"
	c.ContractNumber = &number

	s.store.EXPECT().Get(gomock.Any(), c.ID).Return(c, nil)
	s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, stored *models.Contract) error {
			s.Equal(models.StatusComplete, stored.Status)
			s.Equal("INV-0042", *stored.XeroInvoiceNumber)
			return nil
		})
	s.mirror.EXPECT().Record(gomock.Any(), gomock.Any()).Return("rev", nil)

	got, err := s.service.RecordInvoice(s.ctx, c.ID, "5f3c-xero", "INV-0042")
	s.Require().NoError(err)
	s.Equal("5f3c-xero", *got.XeroInvoiceID)

	_, err = s.service.RecordInvoice(s.ctx, c.ID, "  ", "")
	s.True(models.IsKind(err, models.KindRequired))
}

func (s *ServiceSuite) TestDeleteSnapshotsDeletedContract() {
	id := uuid.New()
	deleted := models.NewContract(models.StatusComplete)
	deleted.ID = id
	deleted.IsDeleted = true

	s.store.EXPECT().SoftDelete(gomock.Any(), id).Return(nil)
	s.store.EXPECT().GetIncludingDeleted(gomock.Any(), id).Return(deleted, nil)
	s.mirror.EXPECT().Record(gomock.Any(), deleted).Return("rev", nil)

	s.NoError(s.service.Delete(s.ctx, id))
}

func (s *ServiceSuite) TestLookupByIDOrNumber() {
	c := models.NewContract(models.StatusDraft)
	c.ID = uuid.New()

	s.store.EXPECT().Get(gomock.Any(), c.ID).Return(c, nil)
	got, err := s.service.Lookup(s.ctx, c.ID.String())
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)

	s.store.EXPECT().GetByNumber(gomock.Any(), "GB-1001").Return(c, nil)
	_, err = s.service.Lookup(s.ctx, "GB-1001")
	s.NoError(err)
}

func (s *ServiceSuite) TestResolveParty() {
	p := &models.Party{ID: uuid.New(), Kind: models.PartyBuyer, Name: "Riverina Grain Co"}

	s.parties.EXPECT().Get(gomock.Any(), models.PartyBuyer, p.ID).Return(p, nil)
	got, err := s.service.ResolveParty(s.ctx, models.PartyBuyer, p.ID.String())
	s.Require().NoError(err)
	s.Equal(p.Name, got.Name)

	s.parties.EXPECT().FindByName(gomock.Any(), models.PartyBuyer, "riverina grain co").Return(p, nil)
	_, err = s.service.ResolveParty(s.ctx, models.PartyBuyer, "riverina grain co")
	s.NoError(err)

	_, err = s.service.ResolveParty(s.ctx, models.PartyBuyer, " ")
	s.ErrorIs(err, models.ErrPartyNotFound)
}

func (s *ServiceSuite) TestPartyName() {
	id := uuid.New()
	s.parties.EXPECT().GetIncludingDeleted(gomock.Any(), models.PartySeller, id).
		Return(&models.Party{Name: "Mallee Farms", SoftDelete: models.SoftDelete{IsDeleted: true}}, nil)

	s.Equal("Mallee Farms (deleted)", s.service.PartyName(s.ctx, models.PartySeller, &id))
	s.Equal("", s.service.PartyName(s.ctx, models.PartySeller, nil))
}
