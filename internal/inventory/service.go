package inventory

import (
	"context"
	"fmt"

	"github.com/treadstock/treadstock/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (TireUnit, error)
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]TireUnit, int, error)
	UpdateStatus(ctx context.Context, id int64, status UnitStatus) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates tire unit operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds the Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Get fetches one tire unit.
func (s *Service) Get(ctx context.Context, id int64) (TireUnit, error) {
	return s.repo.Get(ctx, id)
}

// List returns tire units matching filters.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]TireUnit, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// MoveStatus transitions a unit per the transition table.
func (s *Service) MoveStatus(ctx context.Context, id int64, target UnitStatus, actorID int64) (TireUnit, error) {
	if !target.IsValid() {
		return TireUnit{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	unit, err := s.repo.Get(ctx, id)
	if err != nil {
		return TireUnit{}, err
	}
	if !unit.Status.CanMoveTo(target) {
		return TireUnit{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, unit.Status, target)
	}
	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return TireUnit{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "TIRE_STATUS_MOVE",
			Entity:   "tire_unit",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"from": string(unit.Status), "to": string(target), "serial": unit.SerialNumber},
		})
	}
	unit.Status = target
	return unit, nil
}
