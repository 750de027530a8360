package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

const (
	claimPurchaseQuery  = `UPDATE credit_purchases SET status = ? WHERE stripe_session_id = ? AND status = ?`
	selectPurchaseQuery = `SELECT user_id, credits FROM credit_purchases WHERE stripe_session_id = ?`
	grantCreditsQuery   = `UPDATE user_credits SET credits = credits + ?, total_credits_purchased = total_credits_purchased + ? WHERE user_id = ?`
)

func webhookRoute(h *Handlers) func(*gin.Engine) {
	return func(r *gin.Engine) {
		r.POST("/webhooks/stripe", h.StripeWebhook)
	}
}

func checkoutCompletedEvent(t *testing.T, sessionID string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"id": sessionID})
	require.NoError(t, err)
	return stripe.Event{
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	h, mock := newTestHandlers(t)
	h.Payments = &fakePayments{verifyErr: errors.New("bad signature")}

	w := performRequest(h, http.MethodPost, "/webhooks/stripe", `{}`, webhookRoute(h))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet(), "an unsigned payload must never touch the ledger")
}

func TestStripeWebhook_CompletedGrantsCreditsOnce(t *testing.T) {
	h, mock := newTestHandlers(t)
	h.Payments = &fakePayments{event: checkoutCompletedEvent(t, "cs_test_123")}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(claimPurchaseQuery)).
		WithArgs("completed", "cs_test_123", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectPurchaseQuery)).
		WithArgs("cs_test_123").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "credits"}).AddRow(testUserID, 10))
	mock.ExpectExec(regexp.QuoteMeta(insertCreditsQuery)).
		WithArgs(testUserID, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(grantCreditsQuery)).
		WithArgs(10, 10, testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := performRequest(h, http.MethodPost, "/webhooks/stripe", `{}`, webhookRoute(h))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStripeWebhook_DuplicateDeliveryIsANoOp(t *testing.T) {
	h, mock := newTestHandlers(t)
	h.Payments = &fakePayments{event: checkoutCompletedEvent(t, "cs_test_123")}

	// The purchase is already 'completed', so the claim matches nothing
	// and no grant statements run.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(claimPurchaseQuery)).
		WithArgs("completed", "cs_test_123", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	w := performRequest(h, http.MethodPost, "/webhooks/stripe", `{}`, webhookRoute(h))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet(), "a duplicate delivery must not grant credits twice")
}

func TestStripeWebhook_ExpiredMarksPurchase(t *testing.T) {
	h, mock := newTestHandlers(t)
	raw, _ := json.Marshal(map[string]string{"id": "cs_test_456"})
	h.Payments = &fakePayments{event: stripe.Event{
		Type: "checkout.session.expired",
		Data: &stripe.EventData{Raw: raw},
	}}

	mock.ExpectExec(regexp.QuoteMeta(claimPurchaseQuery)).
		WithArgs("expired", "cs_test_456", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := performRequest(h, http.MethodPost, "/webhooks/stripe", `{}`, webhookRoute(h))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStripeWebhook_IgnoresUnhandledEventTypes(t *testing.T) {
	h, mock := newTestHandlers(t)
	h.Payments = &fakePayments{event: stripe.Event{Type: "payment_intent.created"}}

	w := performRequest(h, http.MethodPost, "/webhooks/stripe", `{}`, webhookRoute(h))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
