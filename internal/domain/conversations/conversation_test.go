package conversations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversation(t *testing.T) *Conversation {
	t.Helper()
	c, err := NewConversation(CreateParams{ID: "c-1", Initiator: "buyer", Receiver: "seller", Listing: "l-1"})
	require.NoError(t, err)
	return c
}

func TestNewConversation(t *testing.T) {
	c := newConversation(t)
	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, SaleNone, c.SaleStatus)
	assert.EqualValues(t, "buyer", c.InitiatedBy)
	assert.EqualValues(t, "seller", c.Counterpart("buyer"))

	_, err := NewConversation(CreateParams{ID: "c", Initiator: "a"})
	assert.ErrorIs(t, err, ErrReceiverRequired)
	_, err = NewConversation(CreateParams{ID: "c", Initiator: "a", Receiver: "a"})
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestAcceptByAnyParticipant(t *testing.T) {
	c := newConversation(t)
	assert.ErrorIs(t, c.Accept("stranger", time.Now()), ErrNotParticipant)
	require.NoError(t, c.Accept("buyer", time.Now()))
	assert.Equal(t, StatusAccepted, c.Status)
	require.NoError(t, c.Accept("seller", time.Now()))
	assert.Len(t, c.PendingEvents(), 2)
}

func TestMessagingGatedOnAcceptance(t *testing.T) {
	c := newConversation(t)
	assert.ErrorIs(t, c.EnsureCanMessage("buyer"), ErrNotAccepted)
	assert.ErrorIs(t, c.EnsureCanMessage("stranger"), ErrNotParticipant)
	require.NoError(t, c.Accept("seller", time.Now()))
	assert.NoError(t, c.EnsureCanMessage("buyer"))
}

func TestPostUpdatesLastMessageAt(t *testing.T) {
	c := newConversation(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg, err := NewMessage(MessageParams{ID: "m", Sender: "buyer", Receiver: "seller", Content: " hey ", Now: at})
	require.NoError(t, err)
	c.Post(msg)
	assert.Equal(t, at, c.LastMessageAt)
	assert.Equal(t, c.ID, msg.ConversationID)
	assert.Equal(t, "hey", msg.Content)
}

func TestNewMessageRequiresContent(t *testing.T) {
	_, err := NewMessage(MessageParams{ID: "m", Sender: "a", Receiver: "b", Content: "   "})
	assert.ErrorIs(t, err, ErrContentRequired)
}

func TestSaleLifecycle(t *testing.T) {
	c := newConversation(t)
	assert.ErrorIs(t, c.ConfirmSale("buyer", "seller", time.Now()), ErrNoSalePending)

	require.NoError(t, c.RequestSale("seller", time.Now()))
	assert.Equal(t, SalePendingConfirmation, c.SaleStatus)
	require.NotNil(t, c.SaleRequestedAt)
	assert.ErrorIs(t, c.EnsureRateable(), ErrSaleNotConfirmed)

	require.NoError(t, c.ConfirmSale("buyer", "seller", time.Now()))
	assert.Equal(t, SaleConfirmed, c.SaleStatus)
	require.NotNil(t, c.SaleConfirmedAt)
	assert.NoError(t, c.EnsureRateable())
	assert.ErrorIs(t, c.RequestSale("seller", time.Now()), ErrSaleAlreadyClosed)
}

func TestRejectOnlyOpenConversations(t *testing.T) {
	c := newConversation(t)
	require.NoError(t, c.RequestSale("seller", time.Now()))
	buyer := c.Reject("seller", time.Now())
	assert.EqualValues(t, "buyer", buyer)
	assert.Equal(t, StatusRejected, c.Status)
	assert.Equal(t, SaleNone, c.SaleStatus)

	assert.Empty(t, c.Reject("seller", time.Now()))
	assert.ErrorIs(t, c.Accept("buyer", time.Now()), ErrConversationClosed)
}

func TestNoticeTexts(t *testing.T) {
	assert.Equal(t, "Bea wants to complete the sale. Please confirm to finalize the purchase.", SaleRequestText("Bea"))
	assert.Equal(t, "Buyer confirmed the purchase. Sale completed!", SaleConfirmedText(""))
	assert.Equal(t, `Sorry, this item "Lamp" has been sold to another buyer. Your request has been rejected.`, RejectionText("Lamp"))
}
