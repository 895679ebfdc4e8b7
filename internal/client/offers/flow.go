// Package offers drives the offer negotiation view of one listing. State is
// always rebuilt from a full re-fetch after a mutation or a socket event.
package offers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"arc_community_backend/internal/client/api"
	"arc_community_backend/internal/client/socket"
	"arc_community_backend/internal/client/toast"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/marketplace"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoItems is returned when an item list parses to nothing.
var ErrNoItems = errors.New("no items provided")

const eventFetchTimeout = 10 * time.Second

// ParseItems splits a comma-separated list, trimming entries and dropping
// empty ones while keeping their order.
func ParseItems(text string) ([]string, error) {
	var items []string
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

// API is the part of the backend client the flow needs.
type API interface {
	GetListing(ctx context.Context, id uuid.UUID) (*marketplace.ListingResponse, error)
	ListOffers(ctx context.Context, listingID uuid.UUID) ([]marketplace.OfferResponse, error)
	CreateOffer(ctx context.Context, listingID uuid.UUID, req marketplace.OfferRequest) (*marketplace.OfferResponse, error)
	AcceptOffer(ctx context.Context, offerID uuid.UUID) (*marketplace.OfferResponse, error)
	RejectOffer(ctx context.Context, offerID uuid.UUID) (*marketplace.OfferResponse, error)
	CounterOffer(ctx context.Context, offerID uuid.UUID, req marketplace.OfferRequest) (*marketplace.OfferResponse, error)
}

// Flow holds the offers of one listing as seen by the current user.
type Flow struct {
	api           API
	bus           socket.Bus
	toaster       toast.Toaster
	listingID     uuid.UUID
	currentUserID uuid.UUID
	logger        *zap.Logger

	mu         sync.Mutex
	listing    *marketplace.ListingResponse
	offers     []marketplace.OfferResponse
	drafts     map[uuid.UUID]string
	onAccepted func(marketplace.OfferResponse)
	listeners  []socket.ListenerID
}

func NewFlow(a API, bus socket.Bus, toaster toast.Toaster, listingID, currentUserID uuid.UUID, logger *zap.Logger) *Flow {
	return &Flow{
		api:           a,
		bus:           bus,
		toaster:       toaster,
		listingID:     listingID,
		currentUserID: currentUserID,
		logger:        logger.Named("OfferFlow").With(zap.String("listingID", listingID.String())),
		drafts:        make(map[uuid.UUID]string),
	}
}

// OnAccepted sets the callback run after the owner accepts an offer.
func (f *Flow) OnAccepted(fn func(marketplace.OfferResponse)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onAccepted = fn
}

// Load fetches the listing and its offers concurrently.
func (f *Flow) Load(ctx context.Context) error {
	var (
		listing *marketplace.ListingResponse
		offers  []marketplace.OfferResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		listing, err = f.api.GetListing(gctx, f.listingID)
		return err
	})
	g.Go(func() error {
		var err error
		offers, err = f.api.ListOffers(gctx, f.listingID)
		return err
	})
	if err := g.Wait(); err != nil {
		f.toaster.Error("Could not load offers: " + api.Message(err))
		return err
	}

	f.mu.Lock()
	f.listing = listing
	f.offers = offers
	f.mu.Unlock()
	return nil
}

// IsOwner reports whether the current user owns the listing. It is false
// until Load succeeds.
func (f *Flow) IsOwner() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listing != nil && f.listing.UserID == f.currentUserID
}

func (f *Flow) Listing() *marketplace.ListingResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listing
}

// Offers returns a copy of the current list.
func (f *Flow) Offers() []marketplace.OfferResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]marketplace.OfferResponse(nil), f.offers...)
}

// refresh replaces the offer list. On failure the list is left untouched.
func (f *Flow) refresh(ctx context.Context) error {
	offers, err := f.api.ListOffers(ctx, f.listingID)
	if err != nil {
		f.logger.Warn("Offer refresh failed", zap.Error(err))
		f.toaster.Error("Could not refresh offers: " + api.Message(err))
		return err
	}
	f.mu.Lock()
	f.offers = offers
	f.mu.Unlock()
	return nil
}

// Create submits a new offer from a comma-separated item list.
func (f *Flow) Create(ctx context.Context, itemsText, message string) error {
	items, err := ParseItems(itemsText)
	if err != nil {
		f.toaster.Error("Add at least one item to your offer.")
		return err
	}
	if _, err := f.api.CreateOffer(ctx, f.listingID, marketplace.OfferRequest{Items: items, Message: message}); err != nil {
		f.toaster.Error("Could not send offer: " + api.Message(err))
		return err
	}
	f.toaster.Success("Offer sent.")
	return f.refresh(ctx)
}

// Accept accepts an offer and hands it to the OnAccepted callback.
func (f *Flow) Accept(ctx context.Context, offerID uuid.UUID) error {
	offer, err := f.api.AcceptOffer(ctx, offerID)
	if err != nil {
		f.toaster.Error("Could not accept offer: " + api.Message(err))
		return err
	}
	f.toaster.Success("Offer accepted.")
	f.mu.Lock()
	cb := f.onAccepted
	f.mu.Unlock()
	if cb != nil {
		cb(*offer)
	}
	return nil
}

func (f *Flow) Reject(ctx context.Context, offerID uuid.UUID) error {
	if _, err := f.api.RejectOffer(ctx, offerID); err != nil {
		f.toaster.Error("Could not reject offer: " + api.Message(err))
		return err
	}
	f.toaster.Success("Offer rejected.")
	return f.refresh(ctx)
}

// SetCounterDraft stores the item text of a counter-offer being written.
func (f *Flow) SetCounterDraft(offerID uuid.UUID, itemsText string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[offerID] = itemsText
}

func (f *Flow) CounterDraft(offerID uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drafts[offerID]
}

// Counter sends the stored draft for offerID as a counter-offer.
func (f *Flow) Counter(ctx context.Context, offerID uuid.UUID, message string) error {
	items, err := ParseItems(f.CounterDraft(offerID))
	if err != nil {
		f.toaster.Error("Add at least one item to your counter-offer.")
		return err
	}
	if _, err := f.api.CounterOffer(ctx, offerID, marketplace.OfferRequest{Items: items, Message: message}); err != nil {
		f.toaster.Error("Could not send counter-offer: " + api.Message(err))
		return err
	}
	f.mu.Lock()
	delete(f.drafts, offerID)
	f.mu.Unlock()
	f.toaster.Success("Counter-offer sent.")
	return f.refresh(ctx)
}

// Subscribe registers the socket handlers once per Flow. The returned
// function removes them; calling Subscribe again after that re-registers.
func (f *Flow) Subscribe() (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listeners == nil {
		f.listeners = []socket.ListenerID{
			f.bus.On(events.TypeNewTradeOffer, f.onNewOffer),
			f.bus.On(events.TypeTradeOfferUpdated, f.onOfferUpdated),
		}
	}
	return f.unsubscribe
}

func (f *Flow) unsubscribe() {
	f.mu.Lock()
	ids := f.listeners
	f.listeners = nil
	f.mu.Unlock()
	for _, id := range ids {
		f.bus.Off(id)
	}
}

func (f *Flow) onNewOffer(ev events.Event) {
	p, ok := ev.(events.NewTradeOffer)
	if !ok || p.ListingID != f.listingID.String() || !f.IsOwner() {
		return
	}
	f.toaster.Info("New offer received.")
	f.refreshFromEvent()
}

func (f *Flow) onOfferUpdated(ev events.Event) {
	p, ok := ev.(events.TradeOfferUpdated)
	if !ok || p.ListingID != f.listingID.String() {
		return
	}
	// The actor already saw the result of their own call.
	if p.ActorID == f.currentUserID.String() {
		f.refreshFromEvent()
		return
	}
	switch p.Status {
	case events.OfferAccepted:
		f.toaster.Success("Offer accepted.")
	case events.OfferRejected:
		f.toaster.Error("Offer rejected.")
	case events.OfferCountered:
		f.toaster.Info("Counter-offer received.")
	case events.OfferExpired:
		f.toaster.Info("Offer expired.")
	}
	f.refreshFromEvent()
}

func (f *Flow) refreshFromEvent() {
	ctx, cancel := context.WithTimeout(context.Background(), eventFetchTimeout)
	defer cancel()
	_ = f.refresh(ctx)
}
