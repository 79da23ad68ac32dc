package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/treadstock/treadstock/internal/shared"
)

type memRepo struct {
	units map[int64]TireUnit
}

func newMemRepo(units ...TireUnit) *memRepo {
	repo := &memRepo{units: make(map[int64]TireUnit)}
	for _, u := range units {
		repo.units[u.ID] = u
	}
	return repo
}

func (m *memRepo) Get(ctx context.Context, id int64) (TireUnit, error) {
	unit, ok := m.units[id]
	if !ok {
		return TireUnit{}, ErrNotFound
	}
	return unit, nil
}

func (m *memRepo) List(ctx context.Context, limit, offset int, filters ListFilters) ([]TireUnit, int, error) {
	var out []TireUnit
	for _, u := range m.units {
		if filters.Status != "" && u.Status != UnitStatus(filters.Status) {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, id int64, status UnitStatus) error {
	unit, ok := m.units[id]
	if !ok {
		return ErrNotFound
	}
	unit.Status = status
	m.units[id] = unit
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func storedUnit() TireUnit {
	return TireUnit{
		ID:           1,
		SerialNumber: "MIC-295-80R22.5-001234-001",
		POID:         41,
		Status:       UnitStatusInStore,
		Condition:    ConditionGood,
	}
}

func TestMoveStatusAllowed(t *testing.T) {
	repo := newMemRepo(storedUnit())
	audit := &recordingAudit{}
	svc := NewService(repo, audit)

	unit, err := svc.MoveStatus(context.Background(), 1, UnitStatusFitted, 7)
	require.NoError(t, err)
	require.Equal(t, UnitStatusFitted, unit.Status)
	require.Equal(t, UnitStatusFitted, repo.units[1].Status)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "TIRE_STATUS_MOVE", audit.logs[0].Action)
	require.Equal(t, "IN_STORE", audit.logs[0].Meta["from"])
	require.Equal(t, "FITTED", audit.logs[0].Meta["to"])
}

func TestMoveStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from    UnitStatus
		to      UnitStatus
		allowed bool
	}{
		{UnitStatusInStore, UnitStatusFitted, true},
		{UnitStatusInStore, UnitStatusSentForRetread, true},
		{UnitStatusInStore, UnitStatusScrapped, true},
		{UnitStatusFitted, UnitStatusInStore, true},
		{UnitStatusFitted, UnitStatusScrapped, true},
		{UnitStatusFitted, UnitStatusSentForRetread, false},
		{UnitStatusSentForRetread, UnitStatusInStore, true},
		{UnitStatusSentForRetread, UnitStatusFitted, false},
		{UnitStatusScrapped, UnitStatusInStore, false},
		{UnitStatusScrapped, UnitStatusFitted, false},
	}
	for _, tc := range cases {
		unit := storedUnit()
		unit.Status = tc.from
		svc := NewService(newMemRepo(unit), nil)

		_, err := svc.MoveStatus(context.Background(), 1, tc.to, 7)
		if tc.allowed {
			require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestMoveStatusUnknownTarget(t *testing.T) {
	svc := NewService(newMemRepo(storedUnit()), nil)
	_, err := svc.MoveStatus(context.Background(), 1, UnitStatus("LOST"), 7)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMoveStatusUnknownUnit(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	_, err := svc.MoveStatus(context.Background(), 99, UnitStatusFitted, 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	fitted := storedUnit()
	fitted.ID = 2
	fitted.SerialNumber = "BRI-11R22.5-002000-001"
	fitted.Status = UnitStatusFitted
	svc := NewService(newMemRepo(storedUnit(), fitted), nil)

	units, total, err := svc.List(context.Background(), 0, 0, ListFilters{Status: "FITTED"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, int64(2), units[0].ID)
}
