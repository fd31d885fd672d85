package checkout

import (
	"context"
	"sync"
)

// HostedProvider bridges the browser-hosted gateway checkout into the
// Provider interface. Open parks until the browser posts the checkout
// outcome back through Deliver (the success handler, the payment.failed
// event, or the modal dismiss callback). A context expiry is treated as an
// abandoned checkout: the gateway gives no explicit cancel signal, absence
// of a completion callback is the only one.
type HostedProvider struct {
	mu      sync.Mutex
	waiters map[string]chan Result
}

func NewHostedProvider() *HostedProvider {
	return &HostedProvider{waiters: make(map[string]chan Result)}
}

// Open waits for the browser-side outcome of the given order's checkout.
func (h *HostedProvider) Open(ctx context.Context, order CheckoutOrder) (Result, error) {
	ch := make(chan Result, 1)

	h.mu.Lock()
	if _, exists := h.waiters[order.OrderID]; exists {
		h.mu.Unlock()
		return Result{}, errCheckoutOpen
	}
	h.waiters[order.OrderID] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.waiters, order.OrderID)
		h.mu.Unlock()
	}()

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return Result{Outcome: OutcomeDismissed, OrderID: order.OrderID}, nil
	}
}

// Deliver hands a browser-reported outcome to the waiting session. Returns
// false when no session is waiting for the order (late or duplicate
// callback).
func (h *HostedProvider) Deliver(orderID string, res Result) bool {
	h.mu.Lock()
	ch, ok := h.waiters[orderID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- res:
		return true
	default:
		return false
	}
}
