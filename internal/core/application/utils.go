package application

import (
	"context"
	"sort"
	"sync"

	"github.com/ark-network/giveaway/internal/core/domain"
)

type inFlightKey struct{}

// operationGuard serializes state-changing operations. The context handed to
// collaborators during an operation is marked, so that a collaborator calling
// back into the engine with it is rejected instead of deadlocking. Callbacks
// made with a fresh context are not detected and block on the lock.
type operationGuard struct {
	lock sync.Mutex
}

func (g *operationGuard) enter(ctx context.Context) (context.Context, func(), error) {
	if ctx.Value(inFlightKey{}) != nil {
		return nil, nil, domain.ErrReentrantCall
	}
	g.lock.Lock()
	return context.WithValue(ctx, inFlightKey{}, struct{}{}), g.lock.Unlock, nil
}

func sortedTokens(amounts map[string]uint64) []string {
	tokens := make([]string, 0, len(amounts))
	for token := range amounts {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

func sameAddress(a, b string) bool {
	na, err := domain.NormalizeAddress(a)
	if err != nil {
		return false
	}
	nb, err := domain.NormalizeAddress(b)
	if err != nil {
		return false
	}
	return na == nb
}
