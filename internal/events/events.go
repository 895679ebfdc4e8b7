// Package events defines the socket event schema shared by the server hub and
// the client. Every frame is an Envelope whose Data is decoded into the typed
// payload named by Type.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the discriminator carried in every envelope.
type Type string

const (
	TypeNewNotification   Type = "new-notification"
	TypeNewMessage        Type = "new-message"
	TypeNewTradeOffer     Type = "new-trade-offer"
	TypeTradeOfferUpdated Type = "trade-offer-updated"
	TypePresenceUpdate    Type = "presence-update"
	TypePresenceSnapshot  Type = "presence-snapshot"
	TypeStatusChange      Type = "status-change"
	TypeError             Type = "error"
)

var (
	ErrUnknownType    = errors.New("unknown event type")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Envelope is the wire frame.
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event is implemented by every payload type below.
type Event interface {
	EventType() Type
	Validate() error
}

// Presence statuses. Offline only appears in presence-update.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusDND     = "dnd"
	StatusOffline = "offline"
)

// ValidStatus reports whether s is a status a user can select.
func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusDND:
		return true
	}
	return false
}

// Offer statuses as carried by trade offer events.
const (
	OfferPending   = "pending"
	OfferAccepted  = "accepted"
	OfferRejected  = "rejected"
	OfferCountered = "countered"
	OfferExpired   = "expired"
)

// ValidOfferStatus reports whether s is a known offer status.
func ValidOfferStatus(s string) bool {
	switch s {
	case OfferPending, OfferAccepted, OfferRejected, OfferCountered, OfferExpired:
		return true
	}
	return false
}

// SenderPayload is the optional sender summary on a notification.
type SenderPayload struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// NotificationPayload is pushed as new-notification. ID may be empty when the
// sender did not persist the notification; receivers synthesize one.
type NotificationPayload struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Link      *string         `json:"link,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
	Sender    *SenderPayload  `json:"sender,omitempty"`
}

func (NotificationPayload) EventType() Type { return TypeNewNotification }

func (p NotificationPayload) Validate() error {
	if p.Title == "" && p.Message == "" {
		return fmt.Errorf("%w: notification without title or message", ErrInvalidPayload)
	}
	return nil
}

// MessagePayload is pushed as new-message when a group chat message is posted.
type MessagePayload struct {
	ID             string    `json:"id"`
	GroupID        string    `json:"group_id"`
	ChannelID      string    `json:"channel_id"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func (MessagePayload) EventType() Type { return TypeNewMessage }

func (p MessagePayload) Validate() error {
	if p.ID == "" || p.ChannelID == "" {
		return fmt.Errorf("%w: message requires id and channel_id", ErrInvalidPayload)
	}
	return nil
}

// TradeOfferPayload describes an offer state change.
type TradeOfferPayload struct {
	OfferID   string `json:"offer_id"`
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
	ActorID   string `json:"actor_id,omitempty"`
	BuyerID   string `json:"buyer_id,omitempty"`
	SellerID  string `json:"seller_id,omitempty"`
}

func (p TradeOfferPayload) Validate() error {
	if p.OfferID == "" || p.ListingID == "" {
		return fmt.Errorf("%w: trade offer requires offer_id and listing_id", ErrInvalidPayload)
	}
	if !ValidOfferStatus(p.Status) {
		return fmt.Errorf("%w: unknown offer status %q", ErrInvalidPayload, p.Status)
	}
	return nil
}

// NewTradeOffer is sent to the seller when an offer lands on their listing.
type NewTradeOffer struct {
	TradeOfferPayload
}

func (NewTradeOffer) EventType() Type { return TypeNewTradeOffer }

// TradeOfferUpdated is sent to both parties on every status change.
type TradeOfferUpdated struct {
	TradeOfferPayload
}

func (TradeOfferUpdated) EventType() Type { return TypeTradeOfferUpdated }

// PresencePayload is one user's live status.
type PresencePayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

func (PresencePayload) EventType() Type { return TypePresenceUpdate }

func (p PresencePayload) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: presence requires user_id", ErrInvalidPayload)
	}
	if p.Status != StatusOffline && !ValidStatus(p.Status) {
		return fmt.Errorf("%w: unknown presence status %q", ErrInvalidPayload, p.Status)
	}
	return nil
}

// PresenceSnapshotPayload lists everyone online, sent to a newly connected client.
type PresenceSnapshotPayload struct {
	Users []PresencePayload `json:"users"`
}

func (PresenceSnapshotPayload) EventType() Type { return TypePresenceSnapshot }

func (p PresenceSnapshotPayload) Validate() error {
	for _, u := range p.Users {
		if err := u.Validate(); err != nil {
			return err
		}
		if u.Status == StatusOffline {
			return fmt.Errorf("%w: snapshot entry for %s is offline", ErrInvalidPayload, u.UserID)
		}
	}
	return nil
}

// StatusChangePayload is the only client to server event.
type StatusChangePayload struct {
	Status string `json:"status"`
}

func (StatusChangePayload) EventType() Type { return TypeStatusChange }

func (p StatusChangePayload) Validate() error {
	if !ValidStatus(p.Status) {
		return fmt.Errorf("%w: unknown presence status %q", ErrInvalidPayload, p.Status)
	}
	return nil
}

// ErrorPayload reports a rejected inbound frame back to the sender.
type ErrorPayload struct {
	Message string `json:"message"`
}

func (ErrorPayload) EventType() Type { return TypeError }

func (ErrorPayload) Validate() error { return nil }

// Encode wraps ev in an envelope.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", ev.EventType(), err)
	}
	return json.Marshal(Envelope{Type: ev.EventType(), Data: data})
}

// Decode parses and validates a frame. The returned value is one of the
// payload types in this package (never a pointer).
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var (
		ev  Event
		err error
	)
	switch env.Type {
	case TypeNewNotification:
		ev, err = decodeAs[NotificationPayload](env.Data)
	case TypeNewMessage:
		ev, err = decodeAs[MessagePayload](env.Data)
	case TypeNewTradeOffer:
		var p TradeOfferPayload
		p, err = decodeAs[TradeOfferPayload](env.Data)
		ev = NewTradeOffer{p}
	case TypeTradeOfferUpdated:
		var p TradeOfferPayload
		p, err = decodeAs[TradeOfferPayload](env.Data)
		ev = TradeOfferUpdated{p}
	case TypePresenceUpdate:
		ev, err = decodeAs[PresencePayload](env.Data)
	case TypePresenceSnapshot:
		ev, err = decodeAs[PresenceSnapshotPayload](env.Data)
	case TypeStatusChange:
		ev, err = decodeAs[StatusChangePayload](env.Data)
	case TypeError:
		ev, err = decodeAs[ErrorPayload](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeAs[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}

// Publisher delivers events to connected sockets. Delivery is best effort.
type Publisher interface {
	SendToUser(userID uuid.UUID, ev Event)
	Broadcast(ev Event)
	IsOnline(userID uuid.UUID) bool
}
