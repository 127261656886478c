package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

func TestHousekeepingSweepsOnStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newTestClock()
	codes := newCodeService(t, clock, 0)
	issued, err := codes.CreateCode(context.Background(), domain.LoyaltyConfigurationID)
	require.NoError(t, err)
	clock.Advance(DefaultCodeTTL + time.Second)

	sweeps := make(chan SweepResult, 1)
	hk := NewHousekeepingService(codes, slogx.Discard(), time.Hour)
	hk.OnSweep = func(res SweepResult) {
		select {
		case sweeps <- res:
		default:
		}
	}

	hk.Start()
	select {
	case res := <-sweeps:
		require.Equal(t, int64(1), res.Expired)
	case <-time.After(5 * time.Second):
		t.Fatal("no sweep after start")
	}
	hk.Stop()

	require.Equal(t, domain.CodeStateExpired, codeState(t, codes, issued.Code).State)
}

func TestHousekeepingDefaultsInterval(t *testing.T) {
	hk := NewHousekeepingService(nil, slogx.Discard(), 0)
	require.Equal(t, time.Minute, hk.Interval)
}

func TestHousekeepingStopsPromptly(t *testing.T) {
	defer goleak.VerifyNone(t)

	hk := NewHousekeepingService(newCodeService(t, newTestClock(), 0), slogx.Discard(), 10*time.Millisecond)
	hk.Start()
	time.Sleep(35 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		hk.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}
