package events

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/tokenswap/internal/domain"
)

func TestBalanceBroadcaster_FanOut(t *testing.T) {
	b := NewBalanceBroadcaster(4)
	first := b.Subscribe()
	second := b.Subscribe()
	require.Equal(t, 2, b.Subscribers())

	u := domain.NewBalanceUpdate(time.Unix(100, 0), "ETH", decimal.RequireFromString("0.025"), "id-1")
	b.Publish(u)

	for _, ch := range []chan domain.BalanceUpdate{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "ETH", got.Symbol)
			assert.True(t, got.Balance.Equal(decimal.RequireFromString("0.025")))
			assert.Equal(t, "id-1", got.SettlementID)
		default:
			t.Fatal("update not delivered")
		}
	}
}

func TestBalanceBroadcaster_DropsForSlowReader(t *testing.T) {
	b := NewBalanceBroadcaster(1)
	ch := b.Subscribe()

	b.Publish(domain.BalanceUpdate{Symbol: "USD"})
	b.Publish(domain.BalanceUpdate{Symbol: "ETH"})

	got := <-ch
	assert.Equal(t, "USD", got.Symbol)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected update %v", extra)
	default:
	}
}

func TestBalanceBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBalanceBroadcaster(0)
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())

	// second call is a no-op
	b.Unsubscribe(ch)
	b.Publish(domain.BalanceUpdate{Symbol: "USD"})
}
