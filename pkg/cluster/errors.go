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
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// AuthenticationError is returned when the credentials exchange or the
// kubeconfig generation for a cluster fails.
type AuthenticationError struct {
	Cluster string
	Err     error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication to cluster %s failed, error: %v", e.Cluster, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ConnectivityError is returned when the cluster API can't be reached.
type ConnectivityError struct {
	Cluster string
	Err     error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("unable to connect to cluster %s, error: %v", e.Cluster, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IsUnableToConnect returns true for transient network failures, the only
// failures that are retried.
func IsUnableToConnect(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "unable to connect to the server")
}
