package clients_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"civic-portal/clients"

	"github.com/stretchr/testify/assert"
)

func TestRecordPayment_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody clients.ReconcileRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(clients.ReconcileResponse{ReceiptNumber: "BK-2026-17", Status: "updated"})
	}))
	defer srv.Close()

	client := clients.NewBackendClient(srv.URL, 5*time.Second)
	resp, err := client.RecordPayment(context.Background(), "token123", clients.ReconcileRequest{
		RecordID:      "GRV-7",
		PaymentID:     "pay_1",
		OrderID:       "order_1",
		PaymentStatus: "paid",
		Amount:        7100,
		ServiceType:   "grievance_upgrade",
	})

	assert.NoError(t, err)
	assert.Equal(t, "/payments/reconcile", gotPath)
	assert.Equal(t, "Bearer token123", gotAuth)
	assert.Equal(t, "GRV-7", gotBody.RecordID)
	assert.Equal(t, "BK-2026-17", resp.ReceiptNumber)
}

func TestRecordPayment_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "record not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := clients.NewBackendClient(srv.URL, 5*time.Second)
	resp, err := client.RecordPayment(context.Background(), "", clients.ReconcileRequest{OrderID: "order_1"})

	assert.Nil(t, resp)
	assert.Error(t, err)
	var be *clients.BackendError
	assert.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusNotFound, be.StatusCode)
	assert.False(t, be.Temporary())
}

func TestRecordPayment_ServerErrorIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := clients.NewBackendClient(srv.URL, 5*time.Second)
	resp, err := client.RecordPayment(context.Background(), "", clients.ReconcileRequest{OrderID: "order_1"})

	assert.Nil(t, resp)
	var be *clients.BackendError
	assert.ErrorAs(t, err, &be)
	assert.True(t, be.Temporary())
}

func TestRecordPayment_BackendUnreachable(t *testing.T) {
	client := clients.NewBackendClient("http://127.0.0.1:1", 500*time.Millisecond)

	resp, err := client.RecordPayment(context.Background(), "", clients.ReconcileRequest{OrderID: "order_1"})

	assert.Nil(t, resp)
	assert.Error(t, err)
}

func TestDo_ForwardsQueryAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grievances/list", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := clients.NewBackendClient(srv.URL, 5*time.Second)
	headers := http.Header{"Authorization": []string{"Bearer abc"}}
	query := url.Values{"status": []string{"open"}}

	resp, err := client.Do(context.Background(), http.MethodGet, "/grievances/list", query, headers, nil)

	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
