package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"

	"github.com/jmarlow/fluxgen-golang/internal/fal"
	"github.com/jmarlow/fluxgen-golang/internal/models"
	"github.com/jmarlow/fluxgen-golang/internal/payments"
)

const testUserID int64 = 7

// fakeGenerator stands in for the fal client and records every call, so
// tests can assert the provider was (or was NOT) invoked.
type fakeGenerator struct {
	result *fal.GenerationResult
	err    error

	calls         int
	lastPrompt    string
	lastImageSize string
	lastSeed      *int64
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt, imageSize string, seed *int64) (*fal.GenerationResult, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastImageSize = imageSize
	f.lastSeed = seed
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakePayments stands in for the Stripe service.
type fakePayments struct {
	session     *payments.CheckoutSession
	createErr   error
	event       stripe.Event
	verifyErr   error
	createCalls int
}

func (f *fakePayments) CreateCheckoutSession(ctx context.Context, userID int64, pkg models.CreditPackage) (*payments.CheckoutSession, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func (f *fakePayments) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	if f.verifyErr != nil {
		return stripe.Event{}, f.verifyErr
	}
	return f.event, nil
}

// newTestHandlers wires a Handlers struct around sqlmock.
func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &Handlers{DB: db}, mock
}

// performRequest runs one request through a fresh router with the fake
// auth middleware installed, mirroring what AuthMiddleware sets.
func performRequest(h *Handlers, method, path, body string, register func(r *gin.Engine)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", testUserID)
		c.Next()
	})
	register(r)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
