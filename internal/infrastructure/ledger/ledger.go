package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ark-network/giveaway/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUnknownToken          = errors.New("unknown token")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrBalanceOverflow       = errors.New("balance overflow")
	ErrNotController         = errors.New("caller is not the vault controller")
	ErrVaultEmpty            = errors.New("vault has no items left")
)

type tokenAccounts struct {
	balances   map[string]uint64
	allowances map[string]map[string]uint64 // owner -> spender -> amount
}

// Ledger is an in-process book of fungible token balances and allowances.
// It stands in for the external token contracts the engine pulls entry
// deposits and oracle fees from.
type Ledger struct {
	lock   sync.RWMutex
	tokens map[string]*tokenAccounts
}

func NewLedger(tokens ...string) (*Ledger, error) {
	l := &Ledger{tokens: make(map[string]*tokenAccounts)}
	for _, token := range tokens {
		if err := l.AddToken(token); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Ledger) AddToken(token string) error {
	addr, err := domain.NormalizeAddress(token)
	if err != nil {
		return fmt.Errorf("invalid token %s: %w", token, err)
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if _, ok := l.tokens[addr]; ok {
		return nil
	}
	l.tokens[addr] = &tokenAccounts{
		balances:   make(map[string]uint64),
		allowances: make(map[string]map[string]uint64),
	}
	log.Debugf("ledger: added token %s", addr)
	return nil
}

func (l *Ledger) Tokens() []string {
	l.lock.RLock()
	defer l.lock.RUnlock()

	tokens := make([]string, 0, len(l.tokens))
	for token := range l.tokens {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

func (l *Ledger) Mint(_ context.Context, token, to string, amount uint64) error {
	token, to, err := normalize2(token, to)
	if err != nil {
		return err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	accounts, err := l.accounts(token)
	if err != nil {
		return err
	}
	if accounts.balances[to] > accounts.balances[to]+amount {
		return ErrBalanceOverflow
	}
	accounts.balances[to] += amount
	return nil
}

func (l *Ledger) Approve(_ context.Context, token, owner, spender string, amount uint64) error {
	token, owner, err := normalize2(token, owner)
	if err != nil {
		return err
	}
	spender, err = domain.NormalizeAddress(spender)
	if err != nil {
		return err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	accounts, err := l.accounts(token)
	if err != nil {
		return err
	}
	if _, ok := accounts.allowances[owner]; !ok {
		accounts.allowances[owner] = make(map[string]uint64)
	}
	accounts.allowances[owner][spender] = amount
	return nil
}

func (l *Ledger) BalanceOf(_ context.Context, token, owner string) (uint64, error) {
	token, owner, err := normalize2(token, owner)
	if err != nil {
		return 0, err
	}

	l.lock.RLock()
	defer l.lock.RUnlock()

	accounts, err := l.accounts(token)
	if err != nil {
		return 0, err
	}
	return accounts.balances[owner], nil
}

func (l *Ledger) Allowance(_ context.Context, token, owner, spender string) (uint64, error) {
	token, owner, err := normalize2(token, owner)
	if err != nil {
		return 0, err
	}
	spender, err = domain.NormalizeAddress(spender)
	if err != nil {
		return 0, err
	}

	l.lock.RLock()
	defer l.lock.RUnlock()

	accounts, err := l.accounts(token)
	if err != nil {
		return 0, err
	}
	return accounts.allowances[owner][spender], nil
}

// transferFrom moves amount from owner to recipient on behalf of spender.
// A spender moving its own funds needs no allowance.
func (l *Ledger) transferFrom(token, spender, owner, recipient string, amount uint64) error {
	owner, recipient, err := normalize2(owner, recipient)
	if err != nil {
		return err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	accounts, err := l.accounts(token)
	if err != nil {
		return err
	}

	if owner != spender {
		allowance := accounts.allowances[owner][spender]
		if allowance < amount {
			return fmt.Errorf(
				"%w: %s allowed %d to %s, required %d",
				ErrInsufficientAllowance, owner, allowance, spender, amount,
			)
		}
		if err := move(accounts, owner, recipient, amount); err != nil {
			return err
		}
		accounts.allowances[owner][spender] = allowance - amount
		return nil
	}

	return move(accounts, owner, recipient, amount)
}

func (l *Ledger) transfer(token, from, recipient string, amount uint64) error {
	recipient, err := domain.NormalizeAddress(recipient)
	if err != nil {
		return err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	accounts, err := l.accounts(token)
	if err != nil {
		return err
	}
	return move(accounts, from, recipient, amount)
}

func (l *Ledger) accounts(token string) (*tokenAccounts, error) {
	accounts, ok := l.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownToken, token)
	}
	return accounts, nil
}

func move(accounts *tokenAccounts, from, to string, amount uint64) error {
	balance := accounts.balances[from]
	if balance < amount {
		return fmt.Errorf(
			"%w: %s has %d, required %d", ErrInsufficientBalance, from, balance, amount,
		)
	}
	if from == to {
		return nil
	}
	if accounts.balances[to]+amount < accounts.balances[to] {
		return ErrBalanceOverflow
	}
	accounts.balances[from] = balance - amount
	accounts.balances[to] += amount
	return nil
}

func normalize2(a, b string) (string, string, error) {
	na, err := domain.NormalizeAddress(a)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", err, a)
	}
	nb, err := domain.NormalizeAddress(b)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", err, b)
	}
	return na, nb, nil
}
