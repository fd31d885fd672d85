package services

import (
	razorpay "github.com/razorpay/razorpay-go"
)

// Gateway order creation gets a bounded timeout: a hung request would block
// the review-to-payment transition indefinitely otherwise.
const gatewayTimeoutSeconds = 15

// PaymentGateway is the outbound interface to the payment processor's order
// API. Tests substitute a fake; production uses the Razorpay SDK.
type PaymentGateway interface {
	CreateOrder(data map[string]interface{}) (map[string]interface{}, error)
}

// RazorpayService implements PaymentGateway using the official Razorpay SDK.
type RazorpayService struct {
	client *razorpay.Client
	keyID  string
}

// NewRazorpayService creates the SDK client with server-held credentials.
func NewRazorpayService(keyID, keySecret string) *RazorpayService {
	client := razorpay.NewClient(keyID, keySecret)
	client.SetTimeout(gatewayTimeoutSeconds)
	return &RazorpayService{client: client, keyID: keyID}
}

// CreateOrder creates a new order in Razorpay. data carries amount (paise),
// currency, receipt and free-form notes used for later reconciliation.
func (r *RazorpayService) CreateOrder(data map[string]interface{}) (map[string]interface{}, error) {
	return r.client.Order.Create(data, nil)
}

// KeyID returns the browser-safe key id, sent to clients so the checkout UI
// can be opened against the created order.
func (r *RazorpayService) KeyID() string { return r.keyID }
