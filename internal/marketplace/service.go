// File: internal/marketplace/service.go
package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the interface for marketplace business logic.
type Service interface {
	CreateListing(ctx context.Context, userID uuid.UUID, req CreateListingRequest) (*ListingResponse, error)
	GetListing(ctx context.Context, id uuid.UUID) (*ListingResponse, error)
	ListListings(ctx context.Context, q ListingQuery, page, pageSize int) ([]ListingResponse, *common.Pagination, error)
	CloseListing(ctx context.Context, userID, listingID uuid.UUID) (*ListingResponse, error)

	ListOffers(ctx context.Context, viewerID, listingID uuid.UUID) ([]OfferResponse, error)
	CreateOffer(ctx context.Context, buyerID, listingID uuid.UUID, req OfferRequest) (*OfferResponse, error)
	AcceptOffer(ctx context.Context, actorID, offerID uuid.UUID) (*OfferResponse, error)
	RejectOffer(ctx context.Context, actorID, offerID uuid.UUID) (*OfferResponse, error)
	CounterOffer(ctx context.Context, actorID, offerID uuid.UUID, req OfferRequest) (*OfferResponse, error)

	// ExpireDue moves open offers past their expiry to expired and returns
	// how many were changed.
	ExpireDue(ctx context.Context) (int, error)
}

// ServiceImplementation implements the Service interface.
type ServiceImplementation struct {
	repo      Repository
	users     shared.UserDirectory
	publisher events.Publisher
	notifier  shared.Notifier
	activity  shared.ActivityRecorder
	lifespan  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new marketplace service.
func NewService(
	repo Repository,
	users shared.UserDirectory,
	publisher events.Publisher,
	notifier shared.Notifier,
	recorder shared.ActivityRecorder,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	lifespan := cfg.OfferLifespan
	if lifespan <= 0 {
		lifespan = 72 * time.Hour
	}
	return &ServiceImplementation{
		repo:      repo,
		users:     users,
		publisher: publisher,
		notifier:  notifier,
		activity:  recorder,
		lifespan:  lifespan,
		logger:    logger.Named("MarketplaceService"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// --- Listings ---

func (s *ServiceImplementation) CreateListing(ctx context.Context, userID uuid.UUID, req CreateListingRequest) (*ListingResponse, error) {
	l := &Listing{
		UserID:       userID,
		Title:        strings.TrimSpace(req.Title),
		OfferingItem: strings.TrimSpace(req.OfferingItem),
		SeekingItems: NormalizeItems(req.SeekingItems),
		Description:  strings.TrimSpace(req.Description),
		Status:       ListingActive,
	}
	if l.Title == "" || l.OfferingItem == "" {
		return nil, common.ErrUnprocessableEntity.WithDetails("Title and offering item must not be blank.")
	}
	if err := s.repo.CreateListing(ctx, l); err != nil {
		s.logger.Error("Failed to create listing", zap.Error(err), zap.String("userID", userID.String()))
		return nil, common.ErrInternalServer
	}

	ref := l.ID
	s.activity.Record(ctx, shared.ActivityEntry{
		UserID:  userID,
		Kind:    activity.KindListingCreated,
		Summary: fmt.Sprintf("listed %s", l.OfferingItem),
		RefType: "listing",
		RefID:   &ref,
	})
	s.logger.Info("Listing created", zap.String("listingID", l.ID.String()), zap.String("userID", userID.String()))

	users, _ := s.users.GetSummaries(ctx, []uuid.UUID{userID})
	resp := ToListingResponse(l, users)
	return &resp, nil
}

func (s *ServiceImplementation) GetListing(ctx context.Context, id uuid.UUID) (*ListingResponse, error) {
	l, err := s.repo.FindListingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	users, _ := s.users.GetSummaries(ctx, []uuid.UUID{l.UserID})
	resp := ToListingResponse(l, users)
	return &resp, nil
}

func (s *ServiceImplementation) ListListings(ctx context.Context, q ListingQuery, page, pageSize int) ([]ListingResponse, *common.Pagination, error) {
	if q.Status != "" && q.Status != ListingActive && q.Status != ListingTraded && q.Status != ListingClosed {
		return nil, nil, common.ErrBadRequest.WithDetails("status must be one of active, traded, closed.")
	}
	listings, total, err := s.repo.ListListings(ctx, q, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list listings", zap.Error(err))
		return nil, nil, common.ErrInternalServer
	}

	ids := make([]uuid.UUID, len(listings))
	for i := range listings {
		ids[i] = listings[i].UserID
	}
	users, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve listing owners", zap.Error(err))
	}

	out := make([]ListingResponse, len(listings))
	for i := range listings {
		out[i] = ToListingResponse(&listings[i], users)
	}
	return out, common.NewPagination(total, page, pageSize), nil
}

// CloseListing withdraws an active listing. Only the owner may close it.
func (s *ServiceImplementation) CloseListing(ctx context.Context, userID, listingID uuid.UUID) (*ListingResponse, error) {
	l, err := s.repo.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.UserID != userID {
		return nil, common.ErrForbidden.WithDetails("Only the owner can close this listing.")
	}
	if l.Status != ListingActive {
		return nil, common.ErrConflict.WithDetails("Listing is no longer active.")
	}
	if err := s.repo.SetListingStatus(ctx, l.ID, ListingActive, ListingClosed); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to close listing", zap.Error(err), zap.String("listingID", listingID.String()))
		return nil, common.ErrInternalServer
	}
	l.Status = ListingClosed
	users, _ := s.users.GetSummaries(ctx, []uuid.UUID{l.UserID})
	resp := ToListingResponse(l, users)
	return &resp, nil
}

// --- Offers ---

// ListOffers shows the owner every offer and anyone else only their own.
func (s *ServiceImplementation) ListOffers(ctx context.Context, viewerID, listingID uuid.UUID) ([]OfferResponse, error) {
	l, err := s.repo.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	var buyer *uuid.UUID
	if l.UserID != viewerID {
		buyer = &viewerID
	}
	offers, err := s.repo.ListOffers(ctx, listingID, buyer)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(offers)*2)
	for _, o := range offers {
		ids = append(ids, o.BuyerID, o.SellerID)
	}
	users, _ := s.users.GetSummaries(ctx, ids)

	out := make([]OfferResponse, len(offers))
	for i := range offers {
		out[i] = ToOfferResponse(&offers[i], users)
	}
	return out, nil
}

func (s *ServiceImplementation) CreateOffer(ctx context.Context, buyerID, listingID uuid.UUID, req OfferRequest) (*OfferResponse, error) {
	items := NormalizeItems(req.Items)
	if len(items) == 0 {
		return nil, common.ErrUnprocessableEntity.WithDetails("An offer needs at least one item.")
	}
	l, err := s.repo.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.UserID == buyerID {
		return nil, common.ErrBadRequest.WithDetails("You cannot make an offer on your own listing.")
	}
	if l.Status != ListingActive {
		return nil, common.ErrConflict.WithDetails("Listing is no longer active.")
	}

	o := &Offer{
		ListingID: l.ID,
		BuyerID:   buyerID,
		SellerID:  l.UserID,
		Items:     items,
		Message:   strings.TrimSpace(req.Message),
		Status:    OfferPending,
		ExpiresAt: s.now().Add(s.lifespan),
	}
	if err := s.repo.CreateOffer(ctx, o); err != nil {
		s.logger.Error("Failed to create offer", zap.Error(err), zap.String("listingID", listingID.String()))
		return nil, common.ErrInternalServer
	}

	s.publisher.SendToUser(o.SellerID, events.NewTradeOffer{TradeOfferPayload: tradePayload(o, buyerID)})
	s.notifyTrade(ctx, o, buyerID, o.SellerID, "New trade offer",
		fmt.Sprintf("%s offered %s for %s.", s.username(ctx, buyerID), strings.Join(items, ", "), l.OfferingItem))

	ref := o.ID
	s.activity.Record(ctx, shared.ActivityEntry{
		UserID:  buyerID,
		Kind:    activity.KindOfferMade,
		Summary: fmt.Sprintf("made an offer for %s", l.OfferingItem),
		RefType: "offer",
		RefID:   &ref,
	})
	return s.respond(ctx, o), nil
}

// loadOpen loads an offer and checks that it can move to next. An open offer
// past its expiry is treated as expired even if the job has not run yet.
func (s *ServiceImplementation) loadOpen(ctx context.Context, offerID uuid.UUID, next OfferStatus) (*Offer, error) {
	o, err := s.repo.FindOfferByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o.Status.Open() && !o.ExpiresAt.After(s.now()) {
		return nil, common.ErrConflict.WithDetails("This offer has expired.")
	}
	if !CanTransition(o.Status, next) {
		return nil, common.ErrConflict.WithDetails(fmt.Sprintf("Offer is %s and cannot become %s.", o.Status, next))
	}
	return o, nil
}

// AcceptOffer completes the trade. Seller only.
func (s *ServiceImplementation) AcceptOffer(ctx context.Context, actorID, offerID uuid.UUID) (*OfferResponse, error) {
	o, err := s.loadOpen(ctx, offerID, OfferAccepted)
	if err != nil {
		return nil, err
	}
	if o.SellerID != actorID {
		return nil, common.ErrForbidden.WithDetails("Only the seller can accept an offer.")
	}

	var listing *Listing
	now := s.now()
	err = s.repo.WithTx(ctx, func(tx Repository) error {
		o.Status = OfferAccepted
		if err := tx.TransitionOffer(ctx, o, now); err != nil {
			return err
		}
		l, err := tx.FindListingByID(ctx, o.ListingID)
		if err != nil {
			return err
		}
		if err := tx.SetListingStatus(ctx, l.ID, ListingActive, ListingTraded); err != nil {
			return err
		}
		l.Status = ListingTraded
		listing = l
		return nil
	})
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to accept offer", zap.Error(err), zap.String("offerID", offerID.String()))
		return nil, common.ErrInternalServer
	}

	s.publishUpdate(o, actorID)
	s.notifyTrade(ctx, o, actorID, o.BuyerID, "Offer accepted",
		fmt.Sprintf("%s accepted your offer for %s.", s.username(ctx, actorID), listing.OfferingItem))

	users, _ := s.users.GetSummaries(ctx, []uuid.UUID{o.BuyerID, o.SellerID})
	ref := o.ID
	for _, pair := range [][2]uuid.UUID{{o.SellerID, o.BuyerID}, {o.BuyerID, o.SellerID}} {
		s.activity.Record(ctx, shared.ActivityEntry{
			UserID:  pair[0],
			Kind:    activity.KindTradeCompleted,
			Summary: fmt.Sprintf("traded with %s", users[pair[1]].Username),
			RefType: "offer",
			RefID:   &ref,
		})
	}
	s.logger.Info("Offer accepted", zap.String("offerID", o.ID.String()), zap.String("listingID", o.ListingID.String()))
	return s.respond(ctx, o), nil
}

// RejectOffer declines an offer. Seller only.
func (s *ServiceImplementation) RejectOffer(ctx context.Context, actorID, offerID uuid.UUID) (*OfferResponse, error) {
	o, err := s.loadOpen(ctx, offerID, OfferRejected)
	if err != nil {
		return nil, err
	}
	if o.SellerID != actorID {
		return nil, common.ErrForbidden.WithDetails("Only the seller can reject an offer.")
	}
	o.Status = OfferRejected
	if err := s.repo.TransitionOffer(ctx, o, s.now()); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to reject offer", zap.Error(err), zap.String("offerID", offerID.String()))
		return nil, common.ErrInternalServer
	}

	s.publishUpdate(o, actorID)
	s.notifyTrade(ctx, o, actorID, o.BuyerID, "Offer rejected", s.username(ctx, actorID)+" rejected your offer.")
	return s.respond(ctx, o), nil
}

// CounterOffer renegotiates an open offer. Either participant may counter.
func (s *ServiceImplementation) CounterOffer(ctx context.Context, actorID, offerID uuid.UUID, req OfferRequest) (*OfferResponse, error) {
	items := NormalizeItems(req.Items)
	if len(items) == 0 {
		return nil, common.ErrUnprocessableEntity.WithDetails("A counter offer needs at least one item.")
	}
	o, err := s.loadOpen(ctx, offerID, OfferCountered)
	if err != nil {
		return nil, err
	}
	if actorID != o.BuyerID && actorID != o.SellerID {
		return nil, common.ErrForbidden.WithDetails("Only the buyer or seller can counter this offer.")
	}

	counter := CounterOffer{OfferID: o.ID, AuthorID: actorID, Items: items, Message: strings.TrimSpace(req.Message)}
	now := s.now()
	err = s.repo.WithTx(ctx, func(tx Repository) error {
		o.Status = OfferCountered
		o.LastCounterItems = items
		o.ExpiresAt = now.Add(s.lifespan)
		if err := tx.TransitionOffer(ctx, o, now); err != nil {
			return err
		}
		return tx.AddCounterOffer(ctx, &counter)
	})
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return nil, err
		}
		s.logger.Error("Failed to counter offer", zap.Error(err), zap.String("offerID", offerID.String()))
		return nil, common.ErrInternalServer
	}
	o.CounterOffers = append(o.CounterOffers, counter)

	other := o.SellerID
	if actorID == o.SellerID {
		other = o.BuyerID
	}
	s.publishUpdate(o, actorID)
	s.notifyTrade(ctx, o, actorID, other, "Counter offer",
		fmt.Sprintf("%s countered with %s.", s.username(ctx, actorID), strings.Join(items, ", ")))
	return s.respond(ctx, o), nil
}

func (s *ServiceImplementation) ExpireDue(ctx context.Context) (int, error) {
	now := s.now()
	offers, err := s.repo.FindExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range offers {
		o := &offers[i]
		if !CanTransition(o.Status, OfferExpired) {
			continue
		}
		// A counter or answer may have landed since FindExpired.
		ok, err := s.repo.ExpireOffer(ctx, o.ID, now)
		if err != nil {
			s.logger.Error("Failed to expire offer", zap.Error(err), zap.String("offerID", o.ID.String()))
			continue
		}
		if !ok {
			continue
		}
		o.Status = OfferExpired
		expired++
		s.publishUpdate(o, uuid.Nil)
	}
	return expired, nil
}

func tradePayload(o *Offer, actorID uuid.UUID) events.TradeOfferPayload {
	p := events.TradeOfferPayload{
		OfferID:   o.ID.String(),
		ListingID: o.ListingID.String(),
		Status:    string(o.Status),
		BuyerID:   o.BuyerID.String(),
		SellerID:  o.SellerID.String(),
	}
	if actorID != uuid.Nil {
		p.ActorID = actorID.String()
	}
	return p
}

func (s *ServiceImplementation) publishUpdate(o *Offer, actorID uuid.UUID) {
	ev := events.TradeOfferUpdated{TradeOfferPayload: tradePayload(o, actorID)}
	s.publisher.SendToUser(o.BuyerID, ev)
	s.publisher.SendToUser(o.SellerID, ev)
}

func (s *ServiceImplementation) username(ctx context.Context, id uuid.UUID) string {
	if u, err := s.users.GetUserByID(ctx, id); err == nil {
		return u.Username
	}
	return "Someone"
}

// notifyTrade sends a trade notification to recipient and only logs failures.
func (s *ServiceImplementation) notifyTrade(ctx context.Context, o *Offer, actorID, recipient uuid.UUID, title, message string) {
	link := "/marketplace/listings/" + o.ListingID.String()
	err := s.notifier.Notify(ctx, shared.NotificationInput{
		UserID:   recipient,
		SenderID: &actorID,
		Type:     "trade",
		Title:    title,
		Message:  message,
		Link:     &link,
		View:     "marketplace",
		Tab:      "offers",
	})
	if err != nil {
		s.logger.Warn("Failed to send trade notification", zap.Error(err), zap.String("offerID", o.ID.String()))
	}
}

func (s *ServiceImplementation) respond(ctx context.Context, o *Offer) *OfferResponse {
	users, _ := s.users.GetSummaries(ctx, []uuid.UUID{o.BuyerID, o.SellerID})
	resp := ToOfferResponse(o, users)
	return &resp
}
