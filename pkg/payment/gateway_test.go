package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureKnownVector(t *testing.T) {
	got := Signature("ORDER-101", "200", "100000.00", "test-server-key")
	assert.Equal(t,
		"07afe2b5b651664b1c4b3698dcfdea12682c95e3f049bf3274e64f3e8cac33316fdafd3b524c8251722c178772740521985083929469bf46247418aad2d7139e",
		got)
}

func TestVerifySignature(t *testing.T) {
	n := Notification{
		OrderID:     "ORDER-101",
		StatusCode:  "200",
		GrossAmount: "100000.00",
	}
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, "test-server-key")

	assert.True(t, n.VerifySignature("test-server-key"))
	assert.False(t, n.VerifySignature("other-key"))

	// Tampering with any signed field invalidates the signature.
	tampered := n
	tampered.GrossAmount = "1.00"
	assert.False(t, tampered.VerifySignature("test-server-key"))

	tampered = n
	tampered.SignatureKey = n.SignatureKey[:len(n.SignatureKey)-1] + "0"
	assert.False(t, tampered.VerifySignature("test-server-key"))
}

func TestInternalStatusMapping(t *testing.T) {
	cases := []struct {
		txStatus    string
		fraudStatus string
		want        string
	}{
		{StatusCapture, FraudAccept, "completed"},
		{StatusCapture, FraudChallenge, "review"},
		{StatusCapture, "deny", "failed"},
		{StatusCapture, "", "failed"},
		{StatusSettlement, "", "completed"},
		{StatusDeny, "", "failed"},
		{StatusCancel, "", "failed"},
		{StatusExpire, "", "failed"},
		{StatusFailure, "", "failed"},
		{StatusPending, "", "pending"},
		{"refund", "", "pending"}, // unknown statuses stay pending
	}

	for _, tc := range cases {
		n := Notification{TransactionStatus: tc.txStatus, FraudStatus: tc.fraudStatus}
		assert.Equal(t, tc.want, n.InternalStatus(), "%s/%s", tc.txStatus, tc.fraudStatus)
	}
}

func TestChargeResultSucceeded(t *testing.T) {
	assert.True(t, (&ChargeResult{TransactionStatus: StatusSettlement}).Succeeded())
	assert.True(t, (&ChargeResult{TransactionStatus: StatusCapture, FraudStatus: FraudAccept}).Succeeded())
	assert.False(t, (&ChargeResult{TransactionStatus: StatusCapture, FraudStatus: FraudChallenge}).Succeeded())
	assert.False(t, (&ChargeResult{TransactionStatus: StatusDeny}).Succeeded())
	assert.False(t, (*ChargeResult)(nil).Succeeded())
}

func TestMockGatewayScriptedDecline(t *testing.T) {
	g := NewMockGateway("key")
	g.FailTokens["bad-token"] = true

	_, err := g.ChargeToken(context.Background(), ChargeParams{OrderID: "o1", CardToken: "bad-token"})
	require.ErrorIs(t, err, ErrChargeDeclined)

	res, err := g.ChargeToken(context.Background(), ChargeParams{OrderID: "o2", CardToken: "good-token"})
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Len(t, g.ChargeCalls, 2)
}
