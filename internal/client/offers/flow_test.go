package offers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"arc_community_backend/internal/client/socket/sockettest"
	"arc_community_backend/internal/client/toast"
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/marketplace"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu        sync.Mutex
	listing   marketplace.ListingResponse
	offers    []marketplace.OfferResponse
	listCalls int
	created   []marketplace.OfferRequest
	countered []marketplace.OfferRequest
	createErr error
	listErr   error
}

func (a *fakeAPI) GetListing(_ context.Context, id uuid.UUID) (*marketplace.ListingResponse, error) {
	l := a.listing
	return &l, nil
}

func (a *fakeAPI) ListOffers(_ context.Context, _ uuid.UUID) ([]marketplace.OfferResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listCalls++
	if a.listErr != nil {
		return nil, a.listErr
	}
	return append([]marketplace.OfferResponse(nil), a.offers...), nil
}

func (a *fakeAPI) CreateOffer(_ context.Context, listingID uuid.UUID, req marketplace.OfferRequest) (*marketplace.OfferResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return nil, a.createErr
	}
	a.created = append(a.created, req)
	o := marketplace.OfferResponse{ID: uuid.New(), ListingID: listingID, Items: req.Items, Status: marketplace.OfferStatus(events.OfferPending)}
	a.offers = append(a.offers, o)
	return &o, nil
}

func (a *fakeAPI) AcceptOffer(_ context.Context, id uuid.UUID) (*marketplace.OfferResponse, error) {
	return &marketplace.OfferResponse{ID: id, Status: marketplace.OfferStatus(events.OfferAccepted)}, nil
}

func (a *fakeAPI) RejectOffer(_ context.Context, id uuid.UUID) (*marketplace.OfferResponse, error) {
	return &marketplace.OfferResponse{ID: id, Status: marketplace.OfferStatus(events.OfferRejected)}, nil
}

func (a *fakeAPI) CounterOffer(_ context.Context, id uuid.UUID, req marketplace.OfferRequest) (*marketplace.OfferResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.countered = append(a.countered, req)
	return &marketplace.OfferResponse{ID: id, Status: marketplace.OfferStatus(events.OfferCountered)}, nil
}

func (a *fakeAPI) ListCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listCalls
}

func TestParseItems(t *testing.T) {
	items, err := ParseItems("a,  , b,")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)

	items, err = ParseItems("Rifle AK-47, 50 Balas")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rifle AK-47", "50 Balas"}, items)

	_, err = ParseItems("  ,  ,")
	assert.ErrorIs(t, err, ErrNoItems)
	_, err = ParseItems("")
	assert.ErrorIs(t, err, ErrNoItems)
}

type FlowTestSuite struct {
	suite.Suite
	api       *fakeAPI
	bus       *sockettest.Bus
	toasts    *toast.Recorder
	listingID uuid.UUID
	ownerID   uuid.UUID
	buyerID   uuid.UUID
}

func (s *FlowTestSuite) SetupTest() {
	s.listingID, s.ownerID, s.buyerID = uuid.New(), uuid.New(), uuid.New()
	s.api = &fakeAPI{listing: marketplace.ListingResponse{ID: s.listingID, UserID: s.ownerID, Title: "Trading Ferro"}}
	s.bus = sockettest.New()
	s.toasts = toast.NewRecorder()
}

func (s *FlowTestSuite) newFlow(viewer uuid.UUID) *Flow {
	f := NewFlow(s.api, s.bus, s.toasts, s.listingID, viewer, zap.NewNop())
	s.Require().NoError(f.Load(context.Background()))
	return f
}

func (s *FlowTestSuite) TestLoad_DeterminesRole() {
	s.True(s.newFlow(s.ownerID).IsOwner())
	s.False(s.newFlow(s.buyerID).IsOwner())
}

func (s *FlowTestSuite) TestCreate_SuccessRefetches() {
	f := s.newFlow(s.buyerID)
	calls := s.api.ListCalls()

	s.Require().NoError(f.Create(context.Background(), "Rifle AK-47, 50 Balas", "deal?"))

	s.Equal(calls+1, s.api.ListCalls())
	s.Require().Len(s.api.created, 1)
	s.Equal([]string{"Rifle AK-47", "50 Balas"}, s.api.created[0].Items)
	offers := f.Offers()
	s.Require().Len(offers, 1)
	s.Equal(marketplace.OfferStatus(events.OfferPending), offers[0].Status)
	s.Equal(1, s.toasts.Count(toast.KindSuccess))
}

func (s *FlowTestSuite) TestCreate_ServerErrorLeavesListAlone() {
	f := s.newFlow(s.buyerID)
	calls := s.api.ListCalls()
	s.api.createErr = common.ErrConflict.WithDetails("Listing is no longer active.")

	err := f.Create(context.Background(), "Rifle AK-47", "")
	s.True(errors.Is(err, common.ErrConflict))
	s.Equal(calls, s.api.ListCalls())
	s.Empty(f.Offers())
	s.Equal(1, s.toasts.Count(toast.KindError))
}

func (s *FlowTestSuite) TestCreate_EmptyItemsNeverReachServer() {
	f := s.newFlow(s.buyerID)
	err := f.Create(context.Background(), " , ,", "")
	s.ErrorIs(err, ErrNoItems)
	s.Empty(s.api.created)
	s.Equal(1, s.toasts.Count(toast.KindError))
}

func (s *FlowTestSuite) TestAccept_SignalsParent() {
	f := s.newFlow(s.ownerID)
	var accepted []uuid.UUID
	f.OnAccepted(func(o marketplace.OfferResponse) { accepted = append(accepted, o.ID) })
	offerID := uuid.New()

	s.Require().NoError(f.Accept(context.Background(), offerID))
	s.Equal([]uuid.UUID{offerID}, accepted)
}

func (s *FlowTestSuite) TestCounter_ClearsDraftAndRefetches() {
	f := s.newFlow(s.ownerID)
	offerID := uuid.New()
	calls := s.api.ListCalls()

	f.SetCounterDraft(offerID, " ")
	s.ErrorIs(f.Counter(context.Background(), offerID, ""), ErrNoItems)
	s.Empty(s.api.countered)

	f.SetCounterDraft(offerID, "Anvil, , Rattler")
	s.Require().NoError(f.Counter(context.Background(), offerID, "more?"))
	s.Equal([]string{"Anvil", "Rattler"}, s.api.countered[0].Items)
	s.Empty(f.CounterDraft(offerID))
	s.Equal(calls+1, s.api.ListCalls())
}

func (s *FlowTestSuite) TestOfferUpdated_OneToastOneRefetch() {
	cases := map[string]toast.Kind{
		events.OfferAccepted:  toast.KindSuccess,
		events.OfferRejected:  toast.KindError,
		events.OfferCountered: toast.KindInfo,
	}
	for status, kind := range cases {
		s.Run(status, func() {
			s.SetupTest()
			f := s.newFlow(s.buyerID)
			f.Subscribe()
			unsubscribe := f.Subscribe()
			defer unsubscribe()
			s.Equal(1, s.bus.Listeners(events.TypeTradeOfferUpdated))
			calls := s.api.ListCalls()

			s.bus.Publish(events.TradeOfferUpdated{TradeOfferPayload: events.TradeOfferPayload{
				OfferID: uuid.NewString(), ListingID: s.listingID.String(), Status: status,
			}})

			s.Equal(calls+1, s.api.ListCalls())
			s.Len(s.toasts.Toasts(), 1)
			s.Equal(1, s.toasts.Count(kind))
		})
	}
}

func (s *FlowTestSuite) TestOfferUpdated_OwnActionRefetchesWithoutSecondToast() {
	f := s.newFlow(s.ownerID)
	defer f.Subscribe()()
	offerID := uuid.New()

	s.Require().NoError(f.Reject(context.Background(), offerID))
	s.Equal(1, s.toasts.Count(toast.KindSuccess))
	calls := s.api.ListCalls()

	s.bus.Publish(events.TradeOfferUpdated{TradeOfferPayload: events.TradeOfferPayload{
		OfferID: offerID.String(), ListingID: s.listingID.String(), Status: events.OfferRejected,
		ActorID: s.ownerID.String(),
	}})

	s.Equal(calls+1, s.api.ListCalls())
	s.Len(s.toasts.Toasts(), 1)
	s.Zero(s.toasts.Count(toast.KindError))
}

func (s *FlowTestSuite) TestEventsForOtherListingsAreIgnored() {
	f := s.newFlow(s.ownerID)
	defer f.Subscribe()()
	calls := s.api.ListCalls()

	other := events.TradeOfferPayload{OfferID: uuid.NewString(), ListingID: uuid.NewString(), Status: events.OfferPending}
	s.bus.Publish(events.NewTradeOffer{TradeOfferPayload: other})
	other.Status = events.OfferAccepted
	s.bus.Publish(events.TradeOfferUpdated{TradeOfferPayload: other})

	s.Equal(calls, s.api.ListCalls())
	s.Empty(s.toasts.Toasts())
}

func (s *FlowTestSuite) TestNewOffer_OnlyForOwner() {
	payload := events.NewTradeOffer{TradeOfferPayload: events.TradeOfferPayload{
		OfferID: uuid.NewString(), ListingID: s.listingID.String(), Status: events.OfferPending,
	}}

	buyerFlow := s.newFlow(s.buyerID)
	unsubscribe := buyerFlow.Subscribe()
	calls := s.api.ListCalls()
	s.bus.Publish(payload)
	s.Equal(calls, s.api.ListCalls())
	unsubscribe()
	s.Equal(0, s.bus.Listeners(events.TypeNewTradeOffer))

	ownerFlow := s.newFlow(s.ownerID)
	defer ownerFlow.Subscribe()()
	calls = s.api.ListCalls()
	s.bus.Publish(payload)
	s.Equal(calls+1, s.api.ListCalls())
	s.Equal(1, s.toasts.Count(toast.KindInfo))
}

func (s *FlowTestSuite) TestRefetchFailureKeepsList() {
	f := s.newFlow(s.buyerID)
	s.Require().NoError(f.Create(context.Background(), "Anvil", ""))
	s.Require().Len(f.Offers(), 1)

	s.api.listErr = errors.New("connection reset")
	defer f.Subscribe()()
	s.bus.Publish(events.TradeOfferUpdated{TradeOfferPayload: events.TradeOfferPayload{
		OfferID: uuid.NewString(), ListingID: s.listingID.String(), Status: events.OfferExpired,
	}})
	s.Len(f.Offers(), 1)
}

func TestFlowTestSuite(t *testing.T) {
	suite.Run(t, new(FlowTestSuite))
}
