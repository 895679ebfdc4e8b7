package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_TradeOfferUpdated(t *testing.T) {
	raw := []byte(`{"type":"trade-offer-updated","data":{"offer_id":"o1","listing_id":"l1","status":"countered"}}`)

	ev, err := Decode(raw)
	require.NoError(t, err)

	upd, ok := ev.(TradeOfferUpdated)
	require.True(t, ok, "expected TradeOfferUpdated, got %T", ev)
	assert.Equal(t, "o1", upd.OfferID)
	assert.Equal(t, "l1", upd.ListingID)
	assert.Equal(t, OfferCountered, upd.Status)
}

func TestDecode_RejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"typing","data":{}}`))
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestDecode_RejectsInvalidEnums(t *testing.T) {
	cases := map[string]string{
		"offer status":    `{"type":"new-trade-offer","data":{"offer_id":"o","listing_id":"l","status":"maybe"}}`,
		"presence status": `{"type":"presence-update","data":{"user_id":"u","status":"sleepy"}}`,
		"status change":   `{"type":"status-change","data":{"status":"offline"}}`,
		"snapshot entry":  `{"type":"presence-snapshot","data":{"users":[{"user_id":"u","status":"offline"}]}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			assert.True(t, errors.Is(err, ErrInvalidPayload), "got %v", err)
		})
	}
}

func TestDecode_RejectsMalformed(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrInvalidPayload))

	_, err = Decode([]byte(`{"type":"new-message"}`))
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestEncode_RoundTripsThroughDecode(t *testing.T) {
	in := NewTradeOffer{TradeOfferPayload{OfferID: "o1", ListingID: "l1", Status: OfferPending, BuyerID: "b"}}

	raw, err := Encode(in)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, TypeNewTradeOffer, env.Type)
	assert.JSONEq(t, `{"offer_id":"o1","listing_id":"l1","status":"pending","buyer_id":"b"}`, string(env.Data))

	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecode_NotificationKeepsStringData(t *testing.T) {
	raw := []byte(`{"type":"new-notification","data":{"type":"trade","title":"New offer","message":"m","data":"{\"view\":\"marketplace\"}"}}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	n := ev.(NotificationPayload)
	assert.Empty(t, n.ID)
	assert.Equal(t, `"{\"view\":\"marketplace\"}"`, string(n.Data))
}
