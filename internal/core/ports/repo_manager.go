package ports

import "github.com/ark-network/giveaway/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Rounds() domain.RoundRepository
	Tokens() domain.AllowedTokenRepository
	Close()
}
