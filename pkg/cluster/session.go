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

// Package cluster resolves and authenticates the connection to one Kubernetes cluster.
//
// A Session is scoped to a single handler invocation: the kubeconfig it
// writes lives in a private temporary directory removed by Close.
package cluster

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// KubeconfigEnv is the environment variable referencing the session kubeconfig.
const KubeconfigEnv = "KUBECONFIG"

// Session is an authenticated connection to a named cluster.
type Session struct {
	name           string
	dir            string
	kubeconfigPath string
	client         client.Client
	retry          RetryPolicy
	verify         func(ctx context.Context) error
}

// NewSessionFromConfig returns a session for an already resolved REST config.
func NewSessionFromConfig(name string, cfg *rest.Config, retry RetryPolicy) (*Session, error) {
	cfg = tune(rest.CopyConfig(cfg))

	kubeClient, err := newKubeClient(cfg)
	if err != nil {
		return nil, &AuthenticationError{Cluster: name, Err: err}
	}

	return &Session{
		name:   name,
		client: newRetryClient(name, kubeClient, retry),
		retry:  retry,
		verify: func(ctx context.Context) error {
			dc, err := discovery.NewDiscoveryClientForConfig(cfg)
			if err != nil {
				return err
			}
			info, err := dc.ServerVersion()
			if err != nil {
				return err
			}
			logr.FromContextOrDiscard(ctx).V(1).Info("cluster reachable", "cluster", name, "version", info.GitVersion)
			return nil
		},
	}, nil
}

// NewSessionForClient returns a session backed by the given client,
// connectivity is verified by listing namespaces.
func NewSessionForClient(name string, kubeClient client.Client, retry RetryPolicy) *Session {
	return &Session{
		name:   name,
		client: newRetryClient(name, kubeClient, retry),
		retry:  retry,
		verify: func(ctx context.Context) error {
			return kubeClient.List(ctx, &corev1.NamespaceList{}, client.Limit(1))
		},
	}
}

// Name returns the cluster name.
func (s *Session) Name() string {
	return s.name
}

// Client returns the controller-runtime client of this session, its calls
// are retried while the cluster is unreachable.
func (s *Session) Client() client.Client {
	return s.client
}

// KubeconfigPath returns the path of the kubeconfig written for this session,
// empty if the session was not created from a credentials exchange.
func (s *Session) KubeconfigPath() string {
	return s.kubeconfigPath
}

// Environ returns the environment entries pointing external tools at this session.
func (s *Session) Environ() []string {
	if s.kubeconfigPath == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s=%s", KubeconfigEnv, s.kubeconfigPath)}
}

// Verify checks that the cluster API is reachable, retrying transient connectivity failures.
func (s *Session) Verify(ctx context.Context) error {
	if err := Retry(ctx, s.retry, func() error { return s.verify(ctx) }); err != nil {
		return &ConnectivityError{Cluster: s.name, Err: err}
	}
	return nil
}

// Close removes the credentials written for this session.
func (s *Session) Close() error {
	if s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	return err
}

// ConfigConnector connects every cluster name to the cluster of a
// preloaded REST config, skipping the AWS credentials exchange.
type ConfigConnector struct {
	Config *rest.Config
	Retry  RetryPolicy
}

// Connect returns a session for the preloaded REST config.
func (c *ConfigConnector) Connect(_ context.Context, clusterName string) (*Session, error) {
	return NewSessionFromConfig(clusterName, c.Config, c.Retry)
}
