/*
Copyright 2021 Stefan Prodan

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cluster

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var errRefused = &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

func testRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: time.Millisecond, MaxRetries: 5}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("gives up after the retries", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, testRetryPolicy(), func() error {
			calls++
			return errRefused
		})
		if !errors.Is(err, syscall.ECONNREFUSED) {
			t.Errorf("expected connection refused, got %v", err)
		}
		if diff := cmp.Diff(6, calls); diff != "" {
			t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
		}
	})

	t.Run("returns other errors at once", func(t *testing.T) {
		calls := 0
		forbidden := errors.New("forbidden")
		err := Retry(ctx, testRetryPolicy(), func() error {
			calls++
			return forbidden
		})
		if !errors.Is(err, forbidden) {
			t.Errorf("expected forbidden, got %v", err)
		}
		if diff := cmp.Diff(1, calls); diff != "" {
			t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
		}
	})

	t.Run("recovers", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, testRetryPolicy(), func() error {
			calls++
			if calls < 3 {
				return fmt.Errorf("Unable to connect to the server: %w", errRefused)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(3, calls); diff != "" {
			t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
		}
	})
}

func TestIsUnableToConnect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dial", errRefused, true},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"message", errors.New("Unable to connect to the server: EOF"), true},
		{"forbidden", errors.New("configmaps is forbidden"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, IsUnableToConnect(tt.err)); diff != "" {
				t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
			}
		})
	}
}
