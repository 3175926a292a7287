package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Price is one entry of the append-only price history.
type Price struct {
	ID         string          `json:"id"`
	Price      decimal.Decimal `json:"price"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// ErrNoPrice indicates the history is empty.
var ErrNoPrice = fmt.Errorf("market: price %w", shared.ErrNotFound)

// Port abstracts the price history table.
type Port interface {
	AppendPrice(ctx context.Context, price Price) error
	LatestPrice(ctx context.Context) (Price, error)
}

// Board records and reads market prices.
type Board struct {
	now func() time.Time
}

// NewBoard builds Board.
func NewBoard() *Board {
	return &Board{now: func() time.Time { return time.Now().UTC() }}
}

// Record appends a new price, which becomes the current price.
func (b *Board) Record(ctx context.Context, port Port, price decimal.Decimal) (Price, error) {
	value, err := shared.Price("market: price", price)
	if err != nil {
		return Price{}, err
	}
	entry := Price{ID: uuid.NewString(), Price: value, RecordedAt: b.now()}
	if err := port.AppendPrice(ctx, entry); err != nil {
		return Price{}, err
	}
	return entry, nil
}

// Current returns the latest price, or ok=false when none was recorded.
func Current(ctx context.Context, port Port) (decimal.Decimal, bool, error) {
	latest, err := port.LatestPrice(ctx)
	if errors.Is(err, ErrNoPrice) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return latest.Price, true, nil
}

// Latest picks the most recent entry of an unordered history.
func Latest(history []Price) (Price, error) {
	if len(history) == 0 {
		return Price{}, ErrNoPrice
	}
	latest := history[0]
	for _, p := range history[1:] {
		if !p.RecordedAt.Before(latest.RecordedAt) {
			latest = p
		}
	}
	return latest, nil
}
