package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendExpiryWarning(t *testing.T) {
	var got EmailData
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	svc, err := newEmailService(srv.URL, "re_test", "Shop <noreply@example.app>", nil)
	require.NoError(t, err)

	err = svc.SendSubscriptionExpiryWarning("owner@demo.test", SubscriptionExpiryWarningData{
		StoreName:  "Demo Store",
		PlanName:   "Pro",
		DaysLeft:   3,
		ExpiryDate: time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC),
		IsTrial:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, "owner@demo.test", got.To)
	assert.Equal(t, "Your trial ends in 3 days", got.Subject)
	assert.True(t, strings.Contains(got.Html, "March 18, 2026"))
}

func TestSendReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"name":"validation_error","message":"invalid from"}`))
	}))
	defer srv.Close()

	svc, err := newEmailService(srv.URL, "re_test", "bad", nil)
	require.NoError(t, err)

	err = svc.SendDowngradeNotice("owner@demo.test", DowngradeNoticeData{StoreName: "Demo", FromPlan: "PRO", MaxProducts: 10, MaxOrders: 50})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from")
}

func TestNewEmailServiceRequiresKey(t *testing.T) {
	_, err := NewEmailService("", "x", nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
