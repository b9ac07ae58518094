package ports

import "context"

// FulfillmentHandler is the callback entry point an oracle invokes, on its own
// behalf, to deliver randomness.
type FulfillmentHandler func(ctx context.Context, caller string, f Fulfillment) error

type RandomnessRequest struct {
	Seed []byte
	Fee  uint64
	// Callback is used by in-process oracles, CallbackURL by remote ones.
	Callback    FulfillmentHandler
	CallbackURL string
}

type Fulfillment struct {
	RequestId   string
	RandomValue []byte
	Proof       []byte
}

type RandomnessOracle interface {
	// Address is the identity the oracle uses when delivering randomness.
	Address() string
	Request(ctx context.Context, req RandomnessRequest) (string, error)
	Close()
}

// ProofVerifier is implemented by oracles whose fulfillments carry a proof
// that can be checked locally.
type ProofVerifier interface {
	Verify(f Fulfillment) error
}
