package application

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
)

// oracleAdapter isolates the randomness oracle from the round engine: it
// issues requests and authenticates deliveries, nothing else.
type oracleAdapter struct {
	oracle      ports.RandomnessOracle
	fee         uint64
	callbackURL string
	onFulfilled func(ctx context.Context, requestId string, randomValue []byte) error
}

func newOracleAdapter(
	oracle ports.RandomnessOracle, fee uint64, callbackURL string,
	onFulfilled func(ctx context.Context, requestId string, randomValue []byte) error,
) *oracleAdapter {
	return &oracleAdapter{oracle, fee, callbackURL, onFulfilled}
}

func (a *oracleAdapter) address() string {
	return a.oracle.Address()
}

func (a *oracleAdapter) request(ctx context.Context, round *domain.Round) (string, error) {
	requestId, err := a.oracle.Request(ctx, ports.RandomnessRequest{
		Seed:        requestSeed(round),
		Fee:         a.fee,
		Callback:    a.deliver,
		CallbackURL: a.callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to request randomness for round %d: %w", round.Id, err)
	}
	if len(requestId) <= 0 {
		return "", fmt.Errorf("oracle returned an empty request id for round %d", round.Id)
	}
	return requestId, nil
}

func (a *oracleAdapter) deliver(ctx context.Context, caller string, f ports.Fulfillment) error {
	if !sameAddress(caller, a.oracle.Address()) {
		return domain.ErrUnauthorized
	}
	if verifier, ok := a.oracle.(ports.ProofVerifier); ok {
		if err := verifier.Verify(f); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidProof, err)
		}
	}
	return a.onFulfilled(ctx, f.RequestId, f.RandomValue)
}

func requestSeed(round *domain.Round) []byte {
	buf := make([]byte, 0, 16+len(round.Description))
	buf = binary.BigEndian.AppendUint64(buf, round.Id)
	buf = binary.BigEndian.AppendUint64(buf, round.TreasurySize)
	buf = append(buf, round.Description...)
	seed := sha256.Sum256(buf)
	return seed[:]
}
