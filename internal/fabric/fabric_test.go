package fabric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lnbank/internal/messages"
)

func TestDispatchDeliversOnlyToMatchingWaiter(t *testing.T) {
	r := NewRouter()

	chA, cancelA := r.Register(func(m messages.Message) bool {
		resp, ok := m.(*messages.ApiPaymentResponse)
		return ok && resp.UID == 1
	})
	defer cancelA()

	chB, cancelB := r.Register(func(m messages.Message) bool {
		resp, ok := m.(*messages.ApiPaymentResponse)
		return ok && resp.UID == 2
	})
	defer cancelB()

	matched := r.Dispatch(&messages.ApiPaymentResponse{UID: 2, Success: true})
	require.True(t, matched)

	select {
	case msg := <-chB:
		resp := msg.(*messages.ApiPaymentResponse)
		require.Equal(t, uint64(2), resp.UID)
	case <-time.After(time.Second):
		t.Fatal("expected delivery to waiter B")
	}

	select {
	case <-chA:
		t.Fatal("waiter A should not have received anything")
	default:
	}
}

func TestDispatchFirstMatchWins(t *testing.T) {
	r := NewRouter()
	always := func(messages.Message) bool { return true }

	ch1, cancel1 := r.Register(always)
	defer cancel1()
	ch2, cancel2 := r.Register(always)
	defer cancel2()

	r.Dispatch(&messages.ApiGetBalances{UID: 9})

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("expected waiter 1 to receive the message")
	}
	select {
	case <-ch2:
		t.Fatal("waiter 2 should not have received the message")
	default:
	}
}

func TestCancelRemovesWaiter(t *testing.T) {
	r := NewRouter()
	_, cancel := r.Register(func(messages.Message) bool { return true })
	require.Equal(t, 1, r.Len())
	cancel()
	require.Equal(t, 0, r.Len())
}

func TestGCDropsStaleWaiters(t *testing.T) {
	r := &Router{capacity: DefaultCapacity, ttl: 10 * time.Millisecond}
	_, cancel := r.Register(func(messages.Message) bool { return true })
	defer cancel()

	time.Sleep(20 * time.Millisecond)
	matched := r.Dispatch(&messages.ApiGetBalances{UID: 1})
	require.False(t, matched)
	require.Equal(t, 0, r.Len())
}

func TestGCDropsOverflowBeyondCapacity(t *testing.T) {
	r := &Router{capacity: 2, ttl: time.Hour}
	never := func(messages.Message) bool { return false }

	_, c1 := r.Register(never)
	defer c1()
	_, c2 := r.Register(never)
	defer c2()
	_, c3 := r.Register(never)
	defer c3()

	require.Equal(t, 2, r.Len())
}
