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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
)

// RetryPolicy holds the fixed delay and the number of retries for
// transient connectivity failures.
type RetryPolicy struct {
	Interval   time.Duration
	MaxRetries uint64
}

// DefaultRetryPolicy retries every 5 seconds, 5 times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Interval:   5 * time.Second,
		MaxRetries: 5,
	}
}

// Retry runs op until it succeeds, fails with an error other than 'unable to connect',
// or the retries are exhausted. The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, op func() error) error {
	log := logr.FromContextOrDiscard(ctx)

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), policy.MaxRetries),
		ctx,
	)

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !IsUnableToConnect(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, next time.Duration) {
		log.Info("unable to connect, retrying", "error", err.Error(), "after", next.String())
	})
}
