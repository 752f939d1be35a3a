package ports

import (
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/storageutil/uow"
)

// RepoManager interface defines the methods to access the market and event
// repositories, both taking part in the unit of work of every operation.
type RepoManager interface {
	MarketRepository() domain.MarketRepository
	EventRepository() domain.EventRepository
	// Transactionals returns the participants to enlist in a unit of work so
	// that writes to both repositories are atomic.
	Transactionals() []uow.Transactional

	Close()
}
