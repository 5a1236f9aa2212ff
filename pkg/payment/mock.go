package payment

import (
	"context"
	"sync"
)

// MockGateway is an in-memory Gateway for tests and local development.
// Charge outcomes can be scripted per order ID or card token.
type MockGateway struct {
	mu          sync.Mutex
	ServerKey   string
	FailTokens  map[string]bool // card tokens whose charges decline
	ChargeCalls []ChargeParams
	LinkCalls   []CreateLinkParams
}

// NewMockGateway creates a mock gateway with the given server key.
func NewMockGateway(serverKey string) *MockGateway {
	return &MockGateway{
		ServerKey:  serverKey,
		FailTokens: make(map[string]bool),
	}
}

func (g *MockGateway) CreatePaymentLink(_ context.Context, p CreateLinkParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.LinkCalls = append(g.LinkCalls, p)
	return "https://pay.example.test/checkout?order_id=" + p.OrderID, nil
}

func (g *MockGateway) ChargeToken(_ context.Context, p ChargeParams) (*ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ChargeCalls = append(g.ChargeCalls, p)

	if g.FailTokens[p.CardToken] {
		return &ChargeResult{
			TransactionID:     "mock-" + p.OrderID,
			TransactionStatus: StatusDeny,
		}, ErrChargeDeclined
	}
	return &ChargeResult{
		TransactionID:     "mock-" + p.OrderID,
		TransactionStatus: StatusCapture,
		FraudStatus:       FraudAccept,
	}, nil
}

func (g *MockGateway) VerifyNotification(n Notification) bool {
	return n.VerifySignature(g.ServerKey)
}
