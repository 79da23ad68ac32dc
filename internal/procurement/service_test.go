package procurement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/treadstock/treadstock/internal/shared"
)

type memRepo struct {
	orders map[int64]PurchaseOrder
	nextPO int64
	nextLn int64
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[int64]PurchaseOrder), nextPO: 1, nextLn: 1}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := *m
	staged.orders = make(map[int64]PurchaseOrder, len(m.orders))
	for id, po := range m.orders {
		staged.orders[id] = po
	}
	tx := &memTx{repo: &staged}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	*m = staged
	return nil
}

func (m *memRepo) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := m.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

func (m *memRepo) ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for _, po := range m.orders {
		if filters.Status != "" && po.Status != POStatus(filters.Status) {
			continue
		}
		out = append(out, po)
	}
	return out, len(out), nil
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	po.ID = t.repo.nextPO
	t.repo.nextPO++
	t.repo.orders[po.ID] = po
	return po.ID, nil
}

func (t *memTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	po, ok := t.repo.orders[line.POID]
	if !ok {
		return 0, ErrNotFound
	}
	line.ID = t.repo.nextLn
	t.repo.nextLn++
	po.Lines = append(po.Lines, line)
	t.repo.orders[line.POID] = po
	return line.ID, nil
}

func (t *memTx) UpdateStatus(ctx context.Context, id int64, status POStatus) error {
	po, ok := t.repo.orders[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	t.repo.orders[id] = po
	return nil
}

type nopAudit struct{}

func (nopAudit) Record(ctx context.Context, log shared.AuditLog) error { return nil }

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, nopAudit{}), repo
}

func createInput() CreatePOInput {
	return CreatePOInput{
		SupplierID: 3,
		CreatedBy:  7,
		Lines: []LineInput{
			{Size: "295/80R22.5", Brand: "Michelin", Model: "X Multi Z", Type: "STEER", OrderedQty: 10, UnitPrice: decimal.NewFromInt(450)},
			{Size: "11R22.5", Brand: "Bridgestone", Model: "R150", Type: "DRIVE", OrderedQty: 6, UnitPrice: decimal.NewFromInt(380)},
		},
	}
}

func TestCreatePurchaseOrder(t *testing.T) {
	svc, repo := newTestService()

	po, err := svc.CreatePurchaseOrder(context.Background(), createInput())
	require.NoError(t, err)
	require.Equal(t, POStatusDraft, po.Status)
	require.NotEmpty(t, po.Number)
	require.Len(t, po.Lines, 2)
	require.Equal(t, 16, po.TotalOrdered())

	stored, err := repo.GetPO(context.Background(), po.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
}

func TestCreatePurchaseOrderValidation(t *testing.T) {
	svc, _ := newTestService()

	input := createInput()
	input.Lines = nil
	_, err := svc.CreatePurchaseOrder(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)

	input = createInput()
	input.SupplierID = 0
	_, err = svc.CreatePurchaseOrder(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)

	input = createInput()
	input.Lines[0].OrderedQty = 0
	_, err = svc.CreatePurchaseOrder(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreatePurchaseOrderBadLineRollsBack(t *testing.T) {
	svc, repo := newTestService()

	input := createInput()
	input.Lines[1].UnitPrice = decimal.NewFromInt(-1)
	_, err := svc.CreatePurchaseOrder(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, repo.orders)
}

func TestLifecycleTransitions(t *testing.T) {
	svc, repo := newTestService()
	po, err := svc.CreatePurchaseOrder(context.Background(), createInput())
	require.NoError(t, err)

	require.NoError(t, svc.ApprovePurchaseOrder(context.Background(), po.ID, 7))
	require.Equal(t, POStatusApproved, repo.orders[po.ID].Status)

	require.NoError(t, svc.MarkOrdered(context.Background(), po.ID, 7))
	require.Equal(t, POStatusOrdered, repo.orders[po.ID].Status)

	// Approving again must fail; the order already left DRAFT.
	require.ErrorIs(t, svc.ApprovePurchaseOrder(context.Background(), po.ID, 7), ErrInvalidState)
}

func TestMarkOrderedFromDraft(t *testing.T) {
	svc, repo := newTestService()
	po, err := svc.CreatePurchaseOrder(context.Background(), createInput())
	require.NoError(t, err)

	require.NoError(t, svc.MarkOrdered(context.Background(), po.ID, 7))
	require.Equal(t, POStatusOrdered, repo.orders[po.ID].Status)
}

func TestClosePurchaseOrder(t *testing.T) {
	svc, repo := newTestService()
	po, err := svc.CreatePurchaseOrder(context.Background(), createInput())
	require.NoError(t, err)

	require.ErrorIs(t, svc.ClosePurchaseOrder(context.Background(), po.ID, 7), ErrInvalidState)

	stored := repo.orders[po.ID]
	stored.Status = POStatusFullyReceived
	repo.orders[po.ID] = stored

	require.NoError(t, svc.ClosePurchaseOrder(context.Background(), po.ID, 7))
	require.Equal(t, POStatusClosed, repo.orders[po.ID].Status)
}

func TestCancelPurchaseOrder(t *testing.T) {
	svc, repo := newTestService()
	po, err := svc.CreatePurchaseOrder(context.Background(), createInput())
	require.NoError(t, err)

	require.NoError(t, svc.CancelPurchaseOrder(context.Background(), po.ID, 7))
	require.Equal(t, POStatusCancelled, repo.orders[po.ID].Status)

	require.ErrorIs(t, svc.CancelPurchaseOrder(context.Background(), po.ID, 7), ErrInvalidState)
}

func TestGetPurchaseOrderNotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.GetPurchaseOrder(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}
