package receiving

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/procurement"
	"github.com/treadstock/treadstock/internal/shared"
)

// memRepo is an in-memory RepositoryPort. Writes inside WithTx go to a
// staged copy that replaces the live state only when the callback succeeds.
type memRepo struct {
	po      procurement.PurchaseOrder
	grns    map[int64]GRN
	units   []inventory.TireUnit
	serials map[string]bool
	nextID  int64
}

func newMemRepo(po procurement.PurchaseOrder) *memRepo {
	return &memRepo{po: po, grns: make(map[int64]GRN), serials: make(map[string]bool), nextID: 1000}
}

func (m *memRepo) GetPO(ctx context.Context, id int64) (procurement.PurchaseOrder, error) {
	if id != m.po.ID {
		return procurement.PurchaseOrder{}, procurement.ErrNotFound
	}
	return m.po, nil
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := *m
	staged.po.Lines = append([]procurement.Line(nil), m.po.Lines...)
	staged.units = append([]inventory.TireUnit(nil), m.units...)
	staged.serials = make(map[string]bool, len(m.serials))
	for k := range m.serials {
		staged.serials[k] = true
	}
	staged.grns = make(map[int64]GRN, len(m.grns))
	for k, v := range m.grns {
		staged.grns[k] = v
	}
	if err := fn(ctx, &memTx{repo: &staged}); err != nil {
		return err
	}
	*m = staged
	return nil
}

func (m *memRepo) GetGRN(ctx context.Context, id int64) (GRN, error) {
	grn, ok := m.grns[id]
	if !ok {
		return GRN{}, ErrNotFound
	}
	return grn, nil
}

func (m *memRepo) ListGRNs(ctx context.Context, limit, offset int, filters ListFilters) ([]GRN, int, error) {
	var out []GRN
	for _, grn := range m.grns {
		if filters.POID > 0 && grn.POID != filters.POID {
			continue
		}
		out = append(out, grn)
	}
	return out, len(out), nil
}

func (m *memRepo) LinkInvoice(ctx context.Context, grnID int64, invoiceNumber, accountingTxID string) error {
	grn, ok := m.grns[grnID]
	if !ok {
		return ErrNotFound
	}
	if grn.SupplierInvoiceNumber != "" {
		return ErrInvoiceAlreadyLinked
	}
	now := time.Now()
	grn.SupplierInvoiceNumber = invoiceNumber
	grn.AccountingTransactionID = accountingTxID
	grn.InvoiceLinkedAt = &now
	m.grns[grnID] = grn
	return nil
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) LockPOLines(ctx context.Context, poID int64) ([]procurement.Line, error) {
	return append([]procurement.Line(nil), t.repo.po.Lines...), nil
}

func (t *memTx) CreateGRN(ctx context.Context, req GRNRequest) (int64, string, error) {
	t.repo.nextID++
	id := t.repo.nextID
	number := fmt.Sprintf("GRN-%s-%03d", req.ReceiptDate.Format("20060102"), len(t.repo.grns)+1)
	t.repo.grns[id] = GRN{
		ID:                    id,
		Number:                number,
		POID:                  req.POID,
		ReceiptDate:           req.ReceiptDate,
		SupplierInvoiceNumber: req.Header.SupplierInvoiceNumber,
		CreatedBy:             req.CreatedBy,
	}
	return id, number, nil
}

func (t *memTx) InsertItem(ctx context.Context, grnID int64, item GRNItemRequest) (int64, error) {
	t.repo.nextID++
	return t.repo.nextID, nil
}

func (t *memTx) InsertTireUnit(ctx context.Context, unit inventory.TireUnit) (int64, error) {
	key := fmt.Sprintf("%d/%s", unit.POID, unit.SerialNumber)
	if t.repo.serials[key] {
		return 0, fmt.Errorf("%w: %s", inventory.ErrDuplicateSerial, unit.SerialNumber)
	}
	t.repo.serials[key] = true
	t.repo.nextID++
	unit.ID = t.repo.nextID
	t.repo.units = append(t.repo.units, unit)
	return unit.ID, nil
}

func (t *memTx) AddLineReceived(ctx context.Context, poLineID int64, qty int) error {
	for i := range t.repo.po.Lines {
		if t.repo.po.Lines[i].ID == poLineID {
			t.repo.po.Lines[i].ReceivedQty += qty
			return nil
		}
	}
	return ErrUnknownLine
}

func (t *memTx) UpdatePOStatus(ctx context.Context, poID int64, status procurement.POStatus) error {
	t.repo.po.Status = status
	return nil
}

func newTestService(po procurement.PurchaseOrder) (*Service, *memRepo) {
	repo := newMemRepo(po)
	return NewService(repo, repo, nil, nil, nil), repo
}

func commitInput(items ...CommitLineInput) CommitInput {
	return CommitInput{
		POID:    41,
		Header:  HeaderDraft{ReceiptDate: receiptDate()},
		Lines:   items,
		ActorID: 7,
	}
}

func TestCommitReceiptPartial(t *testing.T) {
	svc, repo := newTestService(testPO())

	result, err := svc.CommitReceipt(context.Background(), commitInput(
		CommitLineInput{POLineID: 102, Quantity: 2, Serials: []string{"bri-a", "bri-b"}},
	))
	require.NoError(t, err)

	require.NotZero(t, result.GRNID)
	require.Contains(t, result.GRNNumber, "GRN-20260120")
	require.Len(t, result.Items, 1)
	require.Equal(t, []string{"BRI-A", "BRI-B"}, result.Items[0].SerialNumbers)
	require.Len(t, result.Tires, 2)

	require.Equal(t, procurement.POStatusPartiallyReceived, repo.po.Status)
	require.Equal(t, 2, repo.po.Lines[1].ReceivedQty)
	require.Len(t, repo.units, 2)
	require.Equal(t, inventory.UnitStatusInStore, repo.units[0].Status)
	require.Equal(t, int64(41), repo.units[0].POID)
}

func TestCommitReceiptCompletesOrder(t *testing.T) {
	svc, repo := newTestService(testPO())

	_, err := svc.CommitReceipt(context.Background(), commitInput(
		CommitLineInput{POLineID: 101, Quantity: 6, Serials: []string{"M-1", "M-2", "M-3", "M-4", "M-5", "M-6"}},
		CommitLineInput{POLineID: 102, Quantity: 6, Serials: []string{"B-1", "B-2", "B-3", "B-4", "B-5", "B-6"}},
	))
	require.NoError(t, err)
	require.Equal(t, procurement.POStatusFullyReceived, repo.po.Status)
	require.Len(t, repo.units, 12)
}

func TestCommitReceiptValidationLeavesOrderUntouched(t *testing.T) {
	svc, repo := newTestService(testPO())

	_, err := svc.CommitReceipt(context.Background(), commitInput(
		CommitLineInput{POLineID: 101, Quantity: 7, Serials: []string{"M-1", "M-2", "M-3", "M-4", "M-5", "M-6", "M-7"}},
	))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, KindQuantityExceedsRemaining, verr.Kind)

	require.Equal(t, procurement.POStatusOrdered, repo.po.Status)
	require.Empty(t, repo.units)
	require.Empty(t, repo.grns)
}

func TestCommitReceiptUnknownLine(t *testing.T) {
	svc, _ := newTestService(testPO())

	_, err := svc.CommitReceipt(context.Background(), commitInput(
		CommitLineInput{POLineID: 999, Quantity: 1, Serials: []string{"X-1"}},
	))
	require.ErrorIs(t, err, ErrUnknownLine)
}

func TestCommitReceiptDuplicateSerialRollsBack(t *testing.T) {
	svc, repo := newTestService(testPO())

	_, err := svc.CommitReceipt(context.Background(), commitInput(
		CommitLineInput{POLineID: 102, Quantity: 1, Serials: []string{"BRI-A"}},
	))
	require.NoError(t, err)

	// Same serial on the same order in a later session.
	_, err = svc.CommitReceipt(context.Background(), commitInput(
		CommitLineInput{POLineID: 101, Quantity: 1, Serials: []string{"bri-a"}},
	))
	require.ErrorIs(t, err, inventory.ErrDuplicateSerial)

	require.Len(t, repo.units, 1)
	require.Zero(t, repo.po.Lines[0].ReceivedQty)
}

func TestCommitReceiptConcurrentConsumption(t *testing.T) {
	po := testPO()
	svc, repo := newTestService(po)

	// Another receipt lands after the draft snapshot was taken.
	input := commitInput(CommitLineInput{POLineID: 101, Quantity: 6, Serials: []string{"M-1", "M-2", "M-3", "M-4", "M-5", "M-6"}})
	repo.po.Lines[0].ReceivedQty = 9 // only 1 remaining now

	// The stale service-side snapshot is refreshed per commit, so the
	// validator already catches this. Simulate the narrower race by
	// mutating between snapshot and lock.
	snapshotPO := po
	snapshotPO.Lines = append([]procurement.Line(nil), po.Lines...)
	stale := &stalePOPort{po: snapshotPO}
	svc = NewService(repo, stale, nil, nil, nil)

	_, err := svc.CommitReceipt(context.Background(), input)
	require.ErrorIs(t, err, ErrConcurrentReceipt)
	require.Empty(t, repo.units)
}

type stalePOPort struct {
	po procurement.PurchaseOrder
}

func (s *stalePOPort) GetPO(ctx context.Context, id int64) (procurement.PurchaseOrder, error) {
	return s.po, nil
}

func TestLinkInvoiceSetOnce(t *testing.T) {
	svc, repo := newTestService(testPO())

	result, err := svc.CommitReceipt(context.Background(), commitInput(
		CommitLineInput{POLineID: 102, Quantity: 1, Serials: []string{"BRI-A"}},
	))
	require.NoError(t, err)

	require.NoError(t, svc.LinkInvoice(context.Background(), result.GRNID, "INV-993", "TX-18", 7))

	grn, err := svc.GetGRN(context.Background(), result.GRNID)
	require.NoError(t, err)
	require.Equal(t, "INV-993", grn.SupplierInvoiceNumber)
	require.NotNil(t, grn.InvoiceLinkedAt)

	err = svc.LinkInvoice(context.Background(), result.GRNID, "INV-994", "", 7)
	require.ErrorIs(t, err, ErrInvoiceAlreadyLinked)

	grn, _ = repo.GetGRN(context.Background(), result.GRNID)
	require.Equal(t, "INV-993", grn.SupplierInvoiceNumber)
}

func TestSnapshotUnknownOrder(t *testing.T) {
	svc, _ := newTestService(testPO())
	_, err := svc.Snapshot(context.Background(), 404)
	require.ErrorIs(t, err, procurement.ErrNotFound)
}

var _ AuditPort = (*shared.AuditLogger)(nil)
