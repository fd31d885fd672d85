package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BackendClient talks to the municipal backend that owns the authoritative
// application, grievance and bill records.
type BackendClient struct {
	baseURL string
	client  *http.Client
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Do forwards an arbitrary request to the backend, preserving query and
// headers. Used by the pass-through proxy routes.
func (b *BackendClient) Do(ctx context.Context, method, path string, query url.Values, headers http.Header, body io.Reader) (*http.Response, error) {
	u := b.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}
	return b.client.Do(req)
}

// ReconcileRequest marks a backend record paid after a verified payment.
type ReconcileRequest struct {
	RecordID      string            `json:"record_id"`
	PaymentID     string            `json:"payment_id"`
	OrderID       string            `json:"order_id"`
	PaymentStatus string            `json:"payment_status"`
	Amount        int               `json:"amount"`
	ServiceType   string            `json:"service_type"`
	RazorpayData  map[string]string `json:"razorpay_data,omitempty"`
}

// ReconcileResponse carries the backend's canonical receipt number.
type ReconcileResponse struct {
	ReceiptNumber string `json:"receipt_number"`
	Status        string `json:"status"`
}

// BackendError is a non-2xx reconcile response.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend reconcile failed: status=%d body=%s", e.StatusCode, e.Body)
}

// Temporary reports whether a retry can succeed. Server-side failures are
// retryable; a 4xx means the request itself is wrong and will never succeed.
func (e *BackendError) Temporary() bool { return e.StatusCode >= 500 }

// RecordPayment posts the reconciliation request. Any non-2xx status is an
// error; the caller decides whether to fall back to a local receipt.
func (b *BackendClient) RecordPayment(ctx context.Context, bearerToken string, req ReconcileRequest) (*ReconcileResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/payments/reconcile", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if bearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out ReconcileResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadJSONBody drains and returns a request body so it can be re-sent
// upstream.
func ReadJSONBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

// CopyResponse streams an upstream response back to the client, headers and
// status included.
func CopyResponse(w http.ResponseWriter, resp *http.Response) error {
	defer resp.Body.Close()

	for k, v := range resp.Header {
		for _, vv := range v {
			w.Header().Add(k, vv)
		}
	}
	w.WriteHeader(resp.StatusCode)

	_, err := io.Copy(w, resp.Body)
	return err
}

// BodyFromBytes returns a reader for a forwarded body, or nil when empty.
func BodyFromBytes(b []byte) io.Reader {
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}
