package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/assetmigrate/failure"
)

func TestNewTimeout_Defaults(t *testing.T) {
	timeout := NewTimeout(TimeoutConfig{})

	if timeout.Config().Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", timeout.Config().Timeout)
	}
}

func TestTimeout_Execute(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		op      func(context.Context) error
		wantErr error
	}{
		{
			name:    "success",
			timeout: time.Second,
			op:      succeed,
		},
		{
			name:    "operation error",
			timeout: time.Second,
			op:      fail,
			wantErr: errDownstream,
		},
		{
			name:    "deadline",
			timeout: 10 * time.Millisecond,
			op: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			wantErr: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTimeout(TimeoutConfig{Timeout: tt.timeout}).Execute(context.Background(), tt.op)
			if !errors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimeout_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	err := ExecuteWithTimeout(ctx, time.Second, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestTimeout_OperationSeesCancellation(t *testing.T) {
	observed := make(chan bool, 1)
	err := ExecuteWithTimeout(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			observed <- true
		case <-time.After(time.Second):
			observed <- false
		}
		return ctx.Err()
	})

	if err != ErrTimeout {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if failure.KindOf(err) != failure.KindTimeout {
		t.Errorf("KindOf = %v, want timeout", failure.KindOf(err))
	}
	select {
	case ok := <-observed:
		if !ok {
			t.Error("operation context was not cancelled")
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("operation goroutine did not finish")
	}
}

func TestCallWithTimeout(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		got, err := CallWithTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
			return 42, nil
		})
		if err != nil || got != 42 {
			t.Errorf("CallWithTimeout() = %d, %v; want 42, nil", got, err)
		}
	})

	t.Run("inline without timeout", func(t *testing.T) {
		_, hasDeadline := context.Background().Deadline()
		got, err := CallWithTimeout(context.Background(), 0, func(ctx context.Context) (bool, error) {
			_, ok := ctx.Deadline()
			return ok, nil
		})
		if err != nil || got != hasDeadline {
			t.Errorf("zero timeout should not add a deadline")
		}
	})

	t.Run("timeout discards value", func(t *testing.T) {
		got, err := CallWithTimeout(context.Background(), 10*time.Millisecond, func(context.Context) (string, error) {
			time.Sleep(100 * time.Millisecond)
			return "late", nil
		})
		if err != ErrTimeout || got != "" {
			t.Errorf("CallWithTimeout() = %q, %v; want \"\", ErrTimeout", got, err)
		}
	})
}
