package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/catalog"
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/friend"
	"arc_community_backend/internal/group"
	"arc_community_backend/internal/marketplace"
	"arc_community_backend/internal/shared"
	"arc_community_backend/internal/user"

	"github.com/google/uuid"
)

// --- Auth ---

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  shared.UserResponse  `json:"user"`
	Token shared.TokenResponse `json:"token"`
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Register creates an account and stores the issued token in the session.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var out AuthResult
	if _, err := c.do(ctx, http.MethodPost, "/auth/register", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, c.session.Login(out.Token.AccessToken, out.User.ID.String(), out.User.Username)
}

// Login authenticates and stores the issued token in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, c.session.Login(out.Token.AccessToken, out.User.ID.String(), out.User.Username)
}

// Logout revokes the token server-side and always clears the session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	if clearErr := c.session.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

func (c *Client) Me(ctx context.Context) (*shared.UserResponse, error) {
	var out shared.UserResponse
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Users and activity ---

func (c *Client) GetUser(ctx context.Context, id uuid.UUID) (*shared.UserResponse, error) {
	var out shared.UserResponse
	if _, err := c.do(ctx, http.MethodGet, "/users/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUserStats(ctx context.Context, id uuid.UUID) (*user.Stats, error) {
	var out user.Stats
	if _, err := c.do(ctx, http.MethodGet, "/users/"+id.String()+"/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetActivity(ctx context.Context, page int) ([]activity.Response, *common.Pagination, error) {
	return c.activity(ctx, "/activity", page)
}

func (c *Client) GetUserActivity(ctx context.Context, id uuid.UUID, page int) ([]activity.Response, *common.Pagination, error) {
	return c.activity(ctx, "/users/"+id.String()+"/activity", page)
}

func (c *Client) activity(ctx context.Context, path string, page int) ([]activity.Response, *common.Pagination, error) {
	var out []activity.Response
	p, err := c.do(ctx, http.MethodGet, path, pageQuery(page), nil, &out)
	return out, p, err
}

// --- Friends ---

func (c *Client) Friends(ctx context.Context) (*friend.Overview, error) {
	var out friend.Overview
	if _, err := c.do(ctx, http.MethodGet, "/friends", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, username string) error {
	_, err := c.do(ctx, http.MethodPost, "/friends/requests", nil, friend.SendRequest{Username: username}, nil)
	return err
}

// --- Catalog ---

// CatalogQuery holds the catalog list filters.
type CatalogQuery struct {
	Search   string
	Category string
	Rarity   string
	Sort     string
	Page     int
}

// ListCatalog lists one catalog view. path is the public segment, e.g. "weapons".
func (c *Client) ListCatalog(ctx context.Context, path string, q CatalogQuery) ([]catalog.EntryResponse, *common.Pagination, error) {
	query := pageQuery(q.Page)
	setIf(query, "search", q.Search)
	setIf(query, "category", q.Category)
	setIf(query, "rarity", q.Rarity)
	setIf(query, "sort", q.Sort)
	var out []catalog.EntryResponse
	p, err := c.do(ctx, http.MethodGet, "/"+path, query, nil, &out)
	return out, p, err
}

// --- Marketplace ---

func (c *Client) ListListings(ctx context.Context, search string, mine bool, page int) ([]marketplace.ListingResponse, *common.Pagination, error) {
	query := pageQuery(page)
	setIf(query, "search", search)
	if mine {
		query.Set("mine", "true")
	}
	var out []marketplace.ListingResponse
	p, err := c.do(ctx, http.MethodGet, "/marketplace/listings", query, nil, &out)
	return out, p, err
}

func (c *Client) CreateListing(ctx context.Context, req marketplace.CreateListingRequest) (*marketplace.ListingResponse, error) {
	var out marketplace.ListingResponse
	if _, err := c.do(ctx, http.MethodPost, "/marketplace/listings", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetListing(ctx context.Context, id uuid.UUID) (*marketplace.ListingResponse, error) {
	var out marketplace.ListingResponse
	if _, err := c.do(ctx, http.MethodGet, "/marketplace/listings/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOffers(ctx context.Context, listingID uuid.UUID) ([]marketplace.OfferResponse, error) {
	var out []marketplace.OfferResponse
	_, err := c.do(ctx, http.MethodGet, "/marketplace/listings/"+listingID.String()+"/offers", nil, nil, &out)
	return out, err
}

func (c *Client) CreateOffer(ctx context.Context, listingID uuid.UUID, req marketplace.OfferRequest) (*marketplace.OfferResponse, error) {
	return c.offerCall(ctx, "/marketplace/listings/"+listingID.String()+"/offers", req)
}

func (c *Client) AcceptOffer(ctx context.Context, offerID uuid.UUID) (*marketplace.OfferResponse, error) {
	return c.offerCall(ctx, "/marketplace/offers/"+offerID.String()+"/accept", nil)
}

func (c *Client) RejectOffer(ctx context.Context, offerID uuid.UUID) (*marketplace.OfferResponse, error) {
	return c.offerCall(ctx, "/marketplace/offers/"+offerID.String()+"/reject", nil)
}

func (c *Client) CounterOffer(ctx context.Context, offerID uuid.UUID, req marketplace.OfferRequest) (*marketplace.OfferResponse, error) {
	return c.offerCall(ctx, "/marketplace/offers/"+offerID.String()+"/counter", req)
}

func (c *Client) offerCall(ctx context.Context, path string, body interface{}) (*marketplace.OfferResponse, error) {
	var out marketplace.OfferResponse
	if _, err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Notifications ---

// Notification is the client view of a notification, shared by REST results
// and new-notification events.
type Notification struct {
	ID        string                `json:"id"`
	Type      string                `json:"type"`
	Title     string                `json:"title"`
	Message   string                `json:"message"`
	Link      *string               `json:"link,omitempty"`
	Data      json.RawMessage       `json:"data,omitempty"`
	IsRead    bool                  `json:"is_read"`
	CreatedAt time.Time             `json:"created_at"`
	Sender    *events.SenderPayload `json:"sender,omitempty"`
}

func (c *Client) ListNotifications(ctx context.Context, filter string) ([]Notification, error) {
	query := url.Values{}
	setIf(query, "filter", filter)
	query.Set("page_size", "100")
	var out []Notification
	_, err := c.do(ctx, http.MethodGet, "/notifications", query, nil, &out)
	return out, err
}

func (c *Client) UnreadNotificationCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	_, err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, nil, &out)
	return out.Count, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, nil)
	return err
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPatch, "/notifications/read-all", nil, nil, nil)
	return err
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil, nil)
	return err
}

func (c *Client) DeleteReadNotifications(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/notifications/read", nil, nil, nil)
	return err
}

// --- Groups and chat ---

func (c *Client) MyGroups(ctx context.Context) ([]group.GroupResponse, error) {
	var out []group.GroupResponse
	_, err := c.do(ctx, http.MethodGet, "/groups", nil, nil, &out)
	return out, err
}

func (c *Client) CreateGroup(ctx context.Context, req group.CreateGroupRequest) (*group.GroupResponse, error) {
	var out group.GroupResponse
	if _, err := c.do(ctx, http.MethodPost, "/groups", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) JoinGroup(ctx context.Context, inviteCode string) (*group.GroupResponse, error) {
	var out group.GroupResponse
	if _, err := c.do(ctx, http.MethodPost, "/groups/join", nil, group.JoinRequest{InviteCode: inviteCode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListChannels(ctx context.Context, groupID uuid.UUID) ([]group.ChannelResponse, error) {
	var out []group.ChannelResponse
	_, err := c.do(ctx, http.MethodGet, groupPath(groupID, "/channels"), nil, nil, &out)
	return out, err
}

func (c *Client) CreateChannel(ctx context.Context, groupID uuid.UUID, name string) (*group.ChannelResponse, error) {
	var out group.ChannelResponse
	if _, err := c.do(ctx, http.MethodPost, groupPath(groupID, "/channels"), nil, group.CreateChannelRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteChannel(ctx context.Context, groupID, channelID uuid.UUID) error {
	_, err := c.do(ctx, http.MethodDelete, groupPath(groupID, "/channels/"+channelID.String()), nil, nil, nil)
	return err
}

func (c *Client) ListMessages(ctx context.Context, groupID, channelID uuid.UUID, limit int) ([]group.MessageResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out []group.MessageResponse
	_, err := c.do(ctx, http.MethodGet, groupPath(groupID, "/channels/"+channelID.String()+"/messages"), query, nil, &out)
	return out, err
}

func (c *Client) PostMessage(ctx context.Context, groupID, channelID uuid.UUID, content string) (*group.MessageResponse, error) {
	var out group.MessageResponse
	path := groupPath(groupID, "/channels/"+channelID.String()+"/messages")
	if _, err := c.do(ctx, http.MethodPost, path, nil, group.PostMessageRequest{Content: content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleReaction(ctx context.Context, groupID, messageID uuid.UUID, emoji string) (*group.MessageResponse, error) {
	var out group.MessageResponse
	path := groupPath(groupID, "/messages/"+messageID.String()+"/reactions")
	if _, err := c.do(ctx, http.MethodPost, path, nil, group.ReactionRequest{Emoji: emoji}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnreadMessageCount counts group messages posted by others after since.
// A zero since counts everything.
func (c *Client) UnreadMessageCount(ctx context.Context, since time.Time) (int64, error) {
	query := url.Values{}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}
	var out group.UnreadCount
	_, err := c.do(ctx, http.MethodGet, "/messages/unread-count", query, nil, &out)
	return out.Count, err
}

func groupPath(groupID uuid.UUID, rest string) string {
	return "/groups/" + groupID.String() + rest
}

func pageQuery(page int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
