package reconciliation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

func newTestReconciliation() (*Reconciliation, id.ID, id.ID) {
	rec := New(types.MustDay("2026-08-31"))
	teaID := id.New()
	coffeeID := id.New()
	rec.AddItem(teaID, "SKU-001", "Green Tea 250g", 38, types.MustMoney("100"))
	rec.AddItem(coffeeID, "SKU-002", "Coffee 500g", 20, types.MustMoney("250"))
	return rec, teaID, coffeeID
}

func TestRecordCount_DerivesVariance(t *testing.T) {
	rec, teaID, _ := newTestReconciliation()
	at := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)

	item, err := rec.RecordCount(teaID, 35, "damaged in storage", "user-1", at)
	require.NoError(t, err)

	assert.EqualValues(t, 35, *item.PhysicalStock)
	assert.EqualValues(t, -3, *item.Variance)
	assert.Equal(t, "-300", item.VarianceValue.String())
	assert.Equal(t, "user-1", item.CountedBy)
	assert.Equal(t, StatusInProgress, rec.Status)
}

func TestRecordCount_LastCountWins(t *testing.T) {
	rec, teaID, _ := newTestReconciliation()
	at := time.Now().UTC()

	_, err := rec.RecordCount(teaID, 30, "first pass", "user-1", at)
	require.NoError(t, err)

	item, err := rec.RecordCount(teaID, 38, "", "user-2", at.Add(time.Hour))
	require.NoError(t, err)

	assert.EqualValues(t, 38, *item.PhysicalStock)
	assert.EqualValues(t, 0, *item.Variance)
	assert.Equal(t, "user-2", item.CountedBy)
}

func TestRecordCount_UnknownProduct(t *testing.T) {
	rec, _, _ := newTestReconciliation()

	_, err := rec.RecordCount(id.New(), 10, "", "user-1", time.Now().UTC())
	assert.True(t, apperror.IsNotFound(err))
}

func TestRecordCount_NegativeRejected(t *testing.T) {
	rec, teaID, _ := newTestReconciliation()

	_, err := rec.RecordCount(teaID, -1, "", "user-1", time.Now().UTC())
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity))
}

func TestComplete_RequiresEveryItemCounted(t *testing.T) {
	rec, teaID, coffeeID := newTestReconciliation()
	at := time.Now().UTC()

	_, err := rec.RecordCount(teaID, 38, "", "user-1", at)
	require.NoError(t, err)

	err = rec.Complete()
	assert.True(t, apperror.IsCode(err, apperror.CodeBusinessRule))

	_, err = rec.RecordCount(coffeeID, 19, "one unit missing", "user-1", at)
	require.NoError(t, err)

	require.NoError(t, rec.Complete())
	assert.Equal(t, StatusCompleted, rec.Status)
}

func TestRecount_ReopensCompleted(t *testing.T) {
	rec, teaID, coffeeID := newTestReconciliation()
	at := time.Now().UTC()

	_, err := rec.RecordCount(teaID, 38, "", "user-1", at)
	require.NoError(t, err)
	_, err = rec.RecordCount(coffeeID, 20, "", "user-1", at)
	require.NoError(t, err)
	require.NoError(t, rec.Complete())

	_, err = rec.RecordCount(teaID, 37, "recount found one missing", "user-1", at)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, rec.Status)
}

func TestApprove(t *testing.T) {
	rec, teaID, _ := newTestReconciliation()
	at := time.Now().UTC()

	// A partial count is approvable straight from in_progress; the
	// completed gate is optional.
	_, err := rec.RecordCount(teaID, 38, "", "user-1", at)
	require.NoError(t, err)

	require.NoError(t, rec.Approve("manager-1", "quarterly audit", at))
	assert.Equal(t, StatusApproved, rec.Status)
	assert.Equal(t, "manager-1", rec.ApprovedBy)
	assert.Equal(t, "quarterly audit", rec.ApprovalNote)
	require.NotNil(t, rec.ApprovedAt)
}

func TestApproved_IsTerminal(t *testing.T) {
	rec, teaID, coffeeID := newTestReconciliation()
	at := time.Now().UTC()

	_, err := rec.RecordCount(teaID, 38, "", "user-1", at)
	require.NoError(t, err)
	_, err = rec.RecordCount(coffeeID, 20, "", "user-1", at)
	require.NoError(t, err)
	require.NoError(t, rec.Complete())
	require.NoError(t, rec.Approve("manager-1", "", at))

	_, err = rec.RecordCount(teaID, 10, "", "user-1", at)
	assert.True(t, apperror.IsCode(err, apperror.CodeTerminalState))

	assert.True(t, apperror.IsCode(rec.Complete(), apperror.CodeTerminalState))
	assert.True(t, apperror.IsCode(rec.Approve("manager-2", "", at), apperror.CodeTerminalState))
}

func TestTotalVarianceValue(t *testing.T) {
	rec, teaID, coffeeID := newTestReconciliation()
	at := time.Now().UTC()

	_, err := rec.RecordCount(teaID, 35, "short", "user-1", at) // -3 * 100
	require.NoError(t, err)
	_, err = rec.RecordCount(coffeeID, 21, "extra", "user-1", at) // +1 * 250
	require.NoError(t, err)

	assert.Equal(t, "-50", rec.TotalVarianceValue().String())
	assert.Len(t, rec.CountedItems(), 2)
}
