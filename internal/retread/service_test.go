package retread

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/treadstock/treadstock/internal/inventory"
)

type memRepo struct {
	orders map[int64]Order
	units  map[int64]inventory.TireUnit
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[int64]Order), units: make(map[int64]inventory.TireUnit), nextID: 1}
}

func (m *memRepo) addUnit(id int64, serial string, status inventory.UnitStatus) {
	m.units[id] = inventory.TireUnit{ID: id, SerialNumber: serial, Status: status, Condition: inventory.ConditionGood}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := &memRepo{orders: make(map[int64]Order), units: make(map[int64]inventory.TireUnit), nextID: m.nextID}
	for k, v := range m.orders {
		staged.orders[k] = v
	}
	for k, v := range m.units {
		staged.units[k] = v
	}
	if err := fn(ctx, &memTx{repo: staged}); err != nil {
		return err
	}
	*m = *staged
	return nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (m *memRepo) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Order, int, error) {
	var out []Order
	for _, order := range m.orders {
		if filters.Status != "" && string(order.Status) != filters.Status {
			continue
		}
		out = append(out, order)
	}
	return out, len(out), nil
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) CreateOrder(ctx context.Context, order Order) (int64, string, error) {
	t.repo.nextID++
	order.ID = t.repo.nextID
	order.Number = "RTO-TEST"
	t.repo.orders[order.ID] = order
	return order.ID, order.Number, nil
}

func (t *memTx) InsertItem(ctx context.Context, item Item) (int64, error) {
	order := t.repo.orders[item.OrderID]
	t.repo.nextID++
	item.ID = t.repo.nextID
	item.SerialNumber = t.repo.units[item.TireUnitID].SerialNumber
	order.Items = append(order.Items, item)
	t.repo.orders[item.OrderID] = order
	return item.ID, nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, id int64, status Status, sentAt, receivedAt *time.Time) error {
	order, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	if sentAt != nil {
		order.SentAt = sentAt
	}
	if receivedAt != nil {
		order.ReceivedAt = receivedAt
	}
	t.repo.orders[id] = order
	return nil
}

func (t *memTx) LockUnits(ctx context.Context, unitIDs []int64) ([]inventory.TireUnit, error) {
	var units []inventory.TireUnit
	for _, id := range unitIDs {
		if unit, ok := t.repo.units[id]; ok {
			units = append(units, unit)
		}
	}
	return units, nil
}

func (t *memTx) UpdateUnitStatus(ctx context.Context, unitID int64, status inventory.UnitStatus, condition inventory.Condition) error {
	unit, ok := t.repo.units[unitID]
	if !ok {
		return inventory.ErrNotFound
	}
	unit.Status = status
	if condition != "" {
		unit.Condition = condition
	}
	t.repo.units[unitID] = unit
	return nil
}

func (t *memTx) SetItemReturnCondition(ctx context.Context, orderID, unitID int64, condition inventory.Condition) error {
	order := t.repo.orders[orderID]
	for i := range order.Items {
		if order.Items[i].TireUnitID == unitID {
			order.Items[i].ReturnCondition = condition
		}
	}
	t.repo.orders[orderID] = order
	return nil
}

func testService() (*Service, *memRepo) {
	repo := newMemRepo()
	repo.addUnit(1, "MIC-1", inventory.UnitStatusInStore)
	repo.addUnit(2, "MIC-2", inventory.UnitStatusInStore)
	repo.addUnit(3, "MIC-3", inventory.UnitStatusFitted)
	return NewService(repo, nil), repo
}

func createOrder(t *testing.T, svc *Service, unitIDs ...int64) Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), CreateInput{
		SupplierID: 5,
		UnitIDs:    unitIDs,
		UnitCost:   decimal.NewFromInt(120),
		CreatedBy:  7,
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderPending(t *testing.T) {
	svc, repo := testService()

	order := createOrder(t, svc, 1, 2)
	require.Equal(t, StatusPending, order.Status)
	require.Len(t, order.Items, 2)
	require.True(t, order.TotalCost().Equal(decimal.NewFromInt(240)))

	// Creation alone does not move units.
	require.Equal(t, inventory.UnitStatusInStore, repo.units[1].Status)
}

func TestCreateOrderRejectsUnavailableUnit(t *testing.T) {
	svc, _ := testService()

	_, err := svc.CreateOrder(context.Background(), CreateInput{
		SupplierID: 5,
		UnitIDs:    []int64{1, 3}, // unit 3 is FITTED
		UnitCost:   decimal.NewFromInt(120),
	})
	require.ErrorIs(t, err, ErrUnitUnavailable)
}

func TestCreateOrderRejectsUnknownUnit(t *testing.T) {
	svc, _ := testService()

	_, err := svc.CreateOrder(context.Background(), CreateInput{
		SupplierID: 5,
		UnitIDs:    []int64{1, 999},
		UnitCost:   decimal.NewFromInt(120),
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSendMovesUnits(t *testing.T) {
	svc, repo := testService()
	order := createOrder(t, svc, 1, 2)

	require.NoError(t, svc.Send(context.Background(), order.ID, 7))

	got, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	require.Equal(t, inventory.UnitStatusSentForRetread, repo.units[1].Status)
	require.Equal(t, inventory.UnitStatusSentForRetread, repo.units[2].Status)

	// Sending twice violates the workflow.
	require.ErrorIs(t, svc.Send(context.Background(), order.ID, 7), ErrInvalidState)
}

func TestReceiveGradesUnits(t *testing.T) {
	svc, repo := testService()
	order := createOrder(t, svc, 1, 2)
	require.NoError(t, svc.Send(context.Background(), order.ID, 7))

	require.NoError(t, svc.Receive(context.Background(), order.ID, []ReturnInput{
		{TireUnitID: 1, Condition: inventory.ConditionGood},
		{TireUnitID: 2, Condition: inventory.ConditionDamaged},
	}, 7))

	got, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, got.Status)
	require.NotNil(t, got.ReceivedAt)
	require.Equal(t, inventory.UnitStatusInStore, repo.units[1].Status)
	require.Equal(t, inventory.ConditionDamaged, repo.units[2].Condition)
	require.Equal(t, inventory.ConditionDamaged, got.Items[1].ReturnCondition)
}

func TestReceiveRequiresSentStatus(t *testing.T) {
	svc, _ := testService()
	order := createOrder(t, svc, 1)

	err := svc.Receive(context.Background(), order.ID, nil, 7)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelSentOrderRestoresUnits(t *testing.T) {
	svc, repo := testService()
	order := createOrder(t, svc, 1, 2)
	require.NoError(t, svc.Send(context.Background(), order.ID, 7))

	require.NoError(t, svc.Cancel(context.Background(), order.ID, 7))

	got, _ := svc.Get(context.Background(), order.ID)
	require.Equal(t, StatusCancelled, got.Status)
	require.Equal(t, inventory.UnitStatusInStore, repo.units[1].Status)
}

func TestCancelReceivedOrderRejected(t *testing.T) {
	svc, _ := testService()
	order := createOrder(t, svc, 1)
	require.NoError(t, svc.Send(context.Background(), order.ID, 7))
	require.NoError(t, svc.Receive(context.Background(), order.ID, nil, 7))

	require.ErrorIs(t, svc.Cancel(context.Background(), order.ID, 7), ErrInvalidState)
}
