package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arc_community_backend/internal/client/session"
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/marketplace"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	sess := session.New()
	return New(srv.URL, sess, srv.Client(), zap.NewNop()), sess
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_StoresTokenInSession(t *testing.T) {
	userID := uuid.New()
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"user":  map[string]interface{}{"id": userID, "username": "raider", "role": "user"},
				"token": map[string]interface{}{"access_token": "jwt-token", "token_type": "Bearer", "expires_at": time.Now()},
			},
		})
	})

	res, err := c.Login(context.Background(), "r@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "raider", res.User.Username)
	assert.Equal(t, "jwt-token", sess.Token())
	assert.Equal(t, userID.String(), sess.UserID())
}

func TestDo_SendsBearerAndDecodesData(t *testing.T) {
	listingID := uuid.New()
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/marketplace/listings/"+listingID.String()+"/offers", r.URL.Path)
		var body marketplace.OfferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"Rifle AK-47", "50 Balas"}, body.Items)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"id": uuid.New(), "listing_id": listingID, "items": body.Items, "status": "pending"},
		})
	})
	require.NoError(t, sess.Login("tok", uuid.NewString(), "raider"))

	offer, err := c.CreateOffer(context.Background(), listingID, marketplace.OfferRequest{Items: []string{"Rifle AK-47", "50 Balas"}})
	require.NoError(t, err)
	assert.Equal(t, marketplace.OfferStatus("pending"), offer.Status)
	assert.Equal(t, listingID, offer.ListingID)
}

func TestDo_MapsErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"code": common.ErrConflict.Code, "message": "Resource conflict.", "details": "This offer has expired.",
		})
	})

	_, err := c.AcceptOffer(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConflict))
	var apiErr *common.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "Resource conflict.: This offer has expired.", Message(err))
}

func TestDo_NonJSONErrorFallsBackToStatusText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := c.Me(context.Background())
	var apiErr *common.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "BAD_GATEWAY", apiErr.Code)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestUnreadMessageCount_SendsSince(t *testing.T) {
	since := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/unread-count", r.URL.Path)
		assert.Equal(t, "2026-03-01T12:00:00Z", r.URL.Query().Get("since"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": map[string]interface{}{"count": 7}})
	})
	n, err := c.UnreadMessageCount(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestLogout_ClearsSessionEvenOnError(t *testing.T) {
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"code": "UNAUTHORIZED", "message": "Authentication required."})
	})
	require.NoError(t, sess.Login("stale", "u", "raider"))
	err := c.Logout(context.Background())
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	assert.False(t, sess.LoggedIn())
}
