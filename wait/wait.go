// Package wait retries a condition until it holds, with pluggable delay
// strategies.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrTimeout           = errors.New("wait: timeout exceeded")
	ErrMaxRetriesReached = errors.New("wait: maximum retries reached")
	ErrCanceled          = errors.New("wait: operation canceled")
)

// ConditionFunc reports whether the awaited condition holds. A non-nil error
// stops the wait immediately.
type ConditionFunc func() (bool, error)

// Strategy yields the delay before each retry. ok false ends the wait.
type Strategy interface {
	Next() (d time.Duration, ok bool)
	Reset()
}

// Options configures a wait
type Options struct {
	MaxRetries int // 0 retries until Timeout
	Timeout    time.Duration
	Strategy   Strategy
}

// DefaultOptions retries every second for up to 30 seconds
func DefaultOptions() *Options {
	return &Options{
		Timeout:  30 * time.Second,
		Strategy: NewFixedStrategy(time.Second),
	}
}

func (o *Options) WithMaxRetries(n int) *Options {
	o.MaxRetries = n
	return o
}

func (o *Options) WithTimeout(d time.Duration) *Options {
	o.Timeout = d
	return o
}

func (o *Options) WithStrategy(s Strategy) *Options {
	o.Strategy = s
	return o
}

// Until calls condition until it returns true, it fails, retries run out or
// ctx ends. A nil opts uses DefaultOptions.
func Until(ctx context.Context, condition ConditionFunc, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	strategy := opts.Strategy
	if strategy == nil {
		strategy = NewFixedStrategy(time.Second)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	strategy.Reset()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempts := 1; ; attempts++ {
		ok, err := condition()
		if err != nil {
			return fmt.Errorf("wait: condition error: %w", err)
		}
		if ok {
			return nil
		}
		if opts.MaxRetries > 0 && attempts >= opts.MaxRetries {
			return ErrMaxRetriesReached
		}
		delay, more := strategy.Next()
		if !more {
			return ErrMaxRetriesReached
		}

		timer.Reset(delay)
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ErrCanceled
		case <-timer.C:
		}
	}
}

// Poll retries fn until it returns nil. On failure the last error from fn
// is wrapped alongside the wait error.
func Poll(ctx context.Context, fn func() error, opts *Options) error {
	var last error
	err := Until(ctx, func() (bool, error) {
		last = fn()
		return last == nil, nil
	}, opts)
	if err != nil && last != nil {
		return fmt.Errorf("%w: %w", err, last)
	}
	return err
}
