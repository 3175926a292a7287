package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAmountValidation(t *testing.T) {
	_, err := Amount("amount", decimal.Zero)
	require.ErrorIs(t, err, ErrValidation)

	_, err = Amount("amount", decimal.RequireFromString("-5"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = Amount("amount", decimal.RequireFromString("0.009"))
	require.ErrorIs(t, err, ErrBelowMinimum)
	require.ErrorIs(t, err, ErrValidation)

	got, err := Amount("amount", decimal.RequireFromString("10.005"))
	require.NoError(t, err)
	require.Equal(t, "10.01", got.StringFixed(2))
}

func TestQuantityPrecision(t *testing.T) {
	_, err := Quantity("quantity_kg", decimal.RequireFromString("1.0001"))
	require.ErrorIs(t, err, ErrValidation)

	q, err := Quantity("quantity_kg", decimal.RequireFromString("0.001"))
	require.NoError(t, err)
	require.True(t, q.Equal(decimal.RequireFromString("0.001")))
}

func TestFloorCents(t *testing.T) {
	require.True(t, FloorCents(decimal.RequireFromString("0.004")).IsZero())
	require.True(t, FloorCents(decimal.RequireFromString("-3")).IsZero())
	require.Equal(t, "0.01", FloorCents(decimal.RequireFromString("0.01")).StringFixed(2))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page, meta := Paginate(items, 2, 2)
	require.Equal(t, []int{3, 4}, page)
	require.Equal(t, 3, meta.TotalPages)

	page, _ = Paginate(items, 9, 2)
	require.Empty(t, page)
}

func TestKind(t *testing.T) {
	require.Equal(t, ErrConflict, Kind(ErrDuplicateSubmission))
	require.Nil(t, Kind(nil))
}
