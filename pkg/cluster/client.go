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
	"fmt"
	"runtime"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiruntime "k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
)

// NewScheme returns a scheme holding the kinds found in operator bundles.
func NewScheme() *apiruntime.Scheme {
	scheme := apiruntime.NewScheme()
	_ = apiextensionsv1.AddToScheme(scheme)
	_ = corev1.AddToScheme(scheme)
	_ = appsv1.AddToScheme(scheme)
	_ = batchv1.AddToScheme(scheme)
	_ = rbacv1.AddToScheme(scheme)
	return scheme
}

func newKubeClient(cfg *rest.Config) (client.Client, error) {
	restMapper, err := apiutil.NewDynamicRESTMapper(cfg, apiutil.WithLazyDiscovery)
	if err != nil {
		return nil, fmt.Errorf("kubernetes client initialization failed: %w", err)
	}

	kubeClient, err := client.New(cfg, client.Options{
		Scheme: NewScheme(),
		Mapper: restMapper,
	})
	if err != nil {
		return nil, fmt.Errorf("kubernetes client initialization failed: %w", err)
	}

	return kubeClient, nil
}

// LoadKubeConfig loads the REST config from the given kubeconfig path and context.
func LoadKubeConfig(kubeConfigPath string, kubeContext string) (*rest.Config, error) {
	configFiles := splitKubeConfigPath(kubeConfigPath)
	configOverrides := clientcmd.ConfigOverrides{}

	if len(kubeContext) > 0 {
		configOverrides.CurrentContext = kubeContext
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{Precedence: configFiles},
		&configOverrides,
	).ClientConfig()

	if err != nil {
		return nil, fmt.Errorf("kubeconfig load failed: %w", err)
	}

	return tune(cfg), nil
}

func tune(cfg *rest.Config) *rest.Config {
	cfg.QPS = 50
	cfg.Burst = 100
	return cfg
}

func splitKubeConfigPath(path string) []string {
	var sep string
	switch runtime.GOOS {
	case "windows":
		sep = ";"
	default:
		sep = ":"
	}
	return strings.Split(path, sep)
}

// retryClient retries the API calls failing with connectivity errors,
// exhausted retries are returned as ConnectivityError.
type retryClient struct {
	client.Client

	cluster string
	retry   RetryPolicy
}

func newRetryClient(cluster string, kubeClient client.Client, retry RetryPolicy) client.Client {
	return &retryClient{
		Client:  kubeClient,
		cluster: cluster,
		retry:   retry,
	}
}

func (c *retryClient) do(ctx context.Context, op func() error) error {
	err := Retry(ctx, c.retry, op)
	if err != nil && IsUnableToConnect(err) {
		return &ConnectivityError{Cluster: c.cluster, Err: err}
	}
	return err
}

func (c *retryClient) Get(ctx context.Context, key client.ObjectKey, obj client.Object) error {
	return c.do(ctx, func() error {
		return c.Client.Get(ctx, key, obj)
	})
}

func (c *retryClient) List(ctx context.Context, list client.ObjectList, opts ...client.ListOption) error {
	return c.do(ctx, func() error {
		return c.Client.List(ctx, list, opts...)
	})
}

func (c *retryClient) Create(ctx context.Context, obj client.Object, opts ...client.CreateOption) error {
	return c.do(ctx, func() error {
		return c.Client.Create(ctx, obj, opts...)
	})
}

func (c *retryClient) Delete(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error {
	return c.do(ctx, func() error {
		return c.Client.Delete(ctx, obj, opts...)
	})
}
