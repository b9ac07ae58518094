package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/ark-network/giveaway/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Vault is a collection of prize items for one tier. Only the controller may
// hand items out; control is transferred once at setup to the engine.
type Vault struct {
	lock       sync.Mutex
	tier       domain.Tier
	name       string
	symbol     string
	controller string
	owners     map[string]string // item id -> owner
	available  []string
	minted     int
}

func NewVault(tier domain.Tier, name, symbol, controller string) (*Vault, error) {
	if tier == domain.UndefinedTier {
		return nil, fmt.Errorf("undefined vault tier")
	}
	addr, err := domain.NormalizeAddress(controller)
	if err != nil {
		return nil, fmt.Errorf("invalid vault controller: %w", err)
	}
	return &Vault{
		tier:       tier,
		name:       name,
		symbol:     symbol,
		controller: addr,
		owners:     make(map[string]string),
		available:  make([]string, 0),
	}, nil
}

func (v *Vault) Tier() domain.Tier {
	return v.tier
}

func (v *Vault) Name() string {
	return v.name
}

func (v *Vault) Controller() string {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.controller
}

// Mint adds count new items to the vault inventory.
func (v *Vault) Mint(caller string, count int) ([]string, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if err := v.only(caller); err != nil {
		return nil, err
	}

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		v.minted++
		id := fmt.Sprintf("%s-%d", v.symbol, v.minted)
		v.available = append(v.available, id)
		ids = append(ids, id)
	}
	return ids, nil
}

func (v *Vault) TransferControl(caller, newController string) error {
	addr, err := domain.NormalizeAddress(newController)
	if err != nil {
		return fmt.Errorf("invalid vault controller: %w", err)
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	if err := v.only(caller); err != nil {
		return err
	}
	v.controller = addr
	log.Debugf("%s vault control transferred to %s", v.tier, addr)
	return nil
}

func (v *Vault) OwnerOf(itemId string) (string, bool) {
	v.lock.Lock()
	defer v.lock.Unlock()

	owner, ok := v.owners[itemId]
	return owner, ok
}

func (v *Vault) Remaining(_ context.Context) (int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	return len(v.available), nil
}

// As returns a handle to the vault that acts as the given caller.
func (v *Vault) As(caller string) ports.PrizeVault {
	return &vaultHandle{v, caller}
}

func (v *Vault) transferItem(caller, recipient string) (string, error) {
	addr, err := domain.NormalizeAddress(recipient)
	if err != nil {
		return "", err
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	if err := v.only(caller); err != nil {
		return "", err
	}
	if len(v.available) <= 0 {
		return "", fmt.Errorf("%w: %s", ErrVaultEmpty, v.name)
	}

	itemId := v.available[0]
	v.available = v.available[1:]
	v.owners[itemId] = addr
	return itemId, nil
}

func (v *Vault) only(caller string) error {
	addr, err := domain.NormalizeAddress(caller)
	if err != nil || addr != v.controller {
		return ErrNotController
	}
	return nil
}

type vaultHandle struct {
	vault  *Vault
	caller string
}

func (h *vaultHandle) Tier() domain.Tier {
	return h.vault.tier
}

func (h *vaultHandle) TransferPrizeItem(_ context.Context, recipient string) (string, error) {
	return h.vault.transferItem(h.caller, recipient)
}

func (h *vaultHandle) Remaining(ctx context.Context) (int, error) {
	return h.vault.Remaining(ctx)
}
