package domain

import (
	"context"
	"time"
)

const TokenTopic = "token"

type AllowedToken struct {
	Token     string
	Allowed   bool
	UpdatedAt int64
}

func NewAllowedToken(token string, allowed bool) (*AllowedToken, error) {
	addr, err := NormalizeAddress(token)
	if err != nil {
		return nil, err
	}
	return &AllowedToken{
		Token:     addr,
		Allowed:   allowed,
		UpdatedAt: time.Now().Unix(),
	}, nil
}

func (t AllowedToken) Event() TokenAllowanceChanged {
	return TokenAllowanceChanged{
		Token:     t.Token,
		Allowed:   t.Allowed,
		Timestamp: t.UpdatedAt,
	}
}

type AllowedTokenRepository interface {
	Upsert(ctx context.Context, token AllowedToken) error
	Get(ctx context.Context, token string) (*AllowedToken, error)
	List(ctx context.Context) ([]AllowedToken, error)
	Close()
}
