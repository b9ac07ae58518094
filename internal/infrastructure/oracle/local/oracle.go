package localoracle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/ark-network/giveaway/internal/core/ports"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"
)

// oracle is an in-process randomness provider. The random value of a request
// is the hash of a deterministic schnorr signature over the request seed, so
// anyone holding the oracle public key can check it was not picked at will.
type oracle struct {
	key     *secp256k1.PrivateKey
	address string
	delay   time.Duration

	lock    sync.Mutex
	pending map[string][]byte // request id -> seed

	done chan struct{}
	wg   sync.WaitGroup
}

// NewOracle returns a local oracle signing with the given hex encoded key, or
// with a random one if empty. Fulfillments are delivered after delay.
func NewOracle(hexKey string, delay time.Duration) (ports.RandomnessOracle, error) {
	var key *secp256k1.PrivateKey
	if len(hexKey) > 0 {
		buf, err := hex.DecodeString(hexKey)
		if err != nil || len(buf) != 32 {
			return nil, fmt.Errorf("invalid oracle key, must be 32 bytes in hex format")
		}
		key = secp256k1.PrivKeyFromBytes(buf)
	} else {
		var err error
		if key, err = secp256k1.GeneratePrivateKey(); err != nil {
			return nil, fmt.Errorf("failed to generate oracle key: %s", err)
		}
	}

	return &oracle{
		key:     key,
		address: AddressFromPubKey(key.PubKey()),
		delay:   delay,
		pending: make(map[string][]byte),
		done:    make(chan struct{}),
	}, nil
}

// AddressFromPubKey derives the 20-byte account address of the key.
func AddressFromPubKey(pubkey *secp256k1.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pubkey.SerializeUncompressed()[1:])
	return "0x" + hex.EncodeToString(h.Sum(nil)[12:])
}

func (o *oracle) Address() string {
	return o.address
}

func (o *oracle) PubKey() *secp256k1.PublicKey {
	return o.key.PubKey()
}

func (o *oracle) Request(ctx context.Context, req ports.RandomnessRequest) (string, error) {
	if len(req.Seed) <= 0 {
		return "", fmt.Errorf("missing seed")
	}
	if req.Callback == nil {
		return "", fmt.Errorf("missing callback")
	}

	select {
	case <-o.done:
		return "", fmt.Errorf("oracle is closed")
	default:
	}

	requestId := uuid.New().String()
	sig, err := schnorr.Sign(o.key, requestHash(requestId, req.Seed))
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %s", err)
	}

	o.lock.Lock()
	o.pending[requestId] = append([]byte{}, req.Seed...)
	o.lock.Unlock()

	proof := sig.Serialize()
	randomValue := sha256.Sum256(proof)
	fulfillment := ports.Fulfillment{
		RequestId:   requestId,
		RandomValue: randomValue[:],
		Proof:       proof,
	}

	o.wg.Add(1)
	go o.deliver(req.Callback, fulfillment)

	log.Debugf("oracle: accepted randomness request %s", requestId)
	return requestId, nil
}

func (o *oracle) Verify(f ports.Fulfillment) error {
	o.lock.Lock()
	seed, ok := o.pending[f.RequestId]
	o.lock.Unlock()
	if !ok {
		return fmt.Errorf("unknown request %s", f.RequestId)
	}

	sig, err := schnorr.ParseSignature(f.Proof)
	if err != nil {
		return fmt.Errorf("invalid proof: %s", err)
	}
	if !sig.Verify(requestHash(f.RequestId, seed), o.key.PubKey()) {
		return fmt.Errorf("proof does not match request %s", f.RequestId)
	}
	randomValue := sha256.Sum256(f.Proof)
	if !bytes.Equal(randomValue[:], f.RandomValue) {
		return fmt.Errorf("random value does not match proof")
	}
	return nil
}

func (o *oracle) Close() {
	select {
	case <-o.done:
		return
	default:
	}
	close(o.done)
	o.wg.Wait()
}

// deliver runs detached from the request, the callback must not inherit the
// caller context.
func (o *oracle) deliver(callback ports.FulfillmentHandler, f ports.Fulfillment) {
	defer o.wg.Done()

	select {
	case <-o.done:
		return
	case <-time.After(o.delay):
	}

	if err := callback(context.Background(), o.address, f); err != nil {
		log.WithError(err).Warnf("oracle: fulfillment of request %s rejected", f.RequestId)
		return
	}

	o.lock.Lock()
	delete(o.pending, f.RequestId)
	o.lock.Unlock()

	log.Debugf("oracle: fulfilled randomness request %s", f.RequestId)
}

func requestHash(requestId string, seed []byte) []byte {
	h := sha256.New()
	h.Write([]byte(requestId))
	h.Write(seed)
	return h.Sum(nil)
}
