package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ftdocs/internal/config"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, config.RetryBackoffLinear, p.Mode)
	require.Equal(t, time.Second, p.Initial)
	require.Equal(t, 30*time.Second, p.Max)
	require.Equal(t, 2, p.MaxRetries)
}

func TestNewPolicy_ClampsAndFallsBack(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	require.Equal(t, 2*time.Second, p.Initial)
	require.Equal(t, config.RetryBackoffFixed, p.Mode)
	require.Equal(t, 5, p.MaxRetries)

	require.Equal(t, config.RetryBackoffLinear, NewPolicy("weird", 0, 0, 1).Mode)

	fromCfg := FromConfig(config.RetryConfig{Mode: config.RetryBackoffExponential, Initial: time.Millisecond, Max: time.Second, MaxRetries: 3})
	require.Equal(t, config.RetryBackoffExponential, fromCfg.Mode)
	require.Equal(t, 3, fromCfg.MaxRetries)
}

func TestDelayModes(t *testing.T) {
	fixed := NewPolicy(config.RetryBackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3)
	require.Equal(t, 100*time.Millisecond, fixed.Delay(3))

	linear := NewPolicy(config.RetryBackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5)
	require.Equal(t, 200*time.Millisecond, linear.Delay(2))
	require.Equal(t, 250*time.Millisecond, linear.Delay(4))

	exp := NewPolicy(config.RetryBackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5)
	require.Equal(t, 100*time.Millisecond, exp.Delay(2))
	require.Equal(t, 160*time.Millisecond, exp.Delay(3))

	require.Zero(t, linear.Delay(0))
	require.Zero(t, linear.Delay(-1))
}

func TestValidate(t *testing.T) {
	require.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	require.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
	require.NoError(t, Policy{Initial: time.Second, Max: time.Second}.Validate())
}

func TestDo(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2)
	transient := errors.New("connection reset")
	permanent := errors.New("authentication required")
	isTransient := func(err error) bool { return errors.Is(err, transient) }

	calls := 0
	err := p.Do(context.Background(), "push", func(int) error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	}, isTransient)
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	calls = 0
	err = p.Do(context.Background(), "push", func(int) error { calls++; return permanent }, isTransient)
	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)

	calls = 0
	err = p.Do(context.Background(), "push", func(int) error { calls++; return transient }, isTransient)
	require.ErrorIs(t, err, transient)
	require.Equal(t, 3, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 1)
	err = slow.Do(ctx, "push", func(int) error { return transient }, isTransient)
	require.ErrorIs(t, err, context.Canceled)
}
