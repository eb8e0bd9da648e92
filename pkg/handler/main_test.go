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

package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/cluster"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/config"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

const (
	testCluster = "falcon-cluster"
	testToken   = "token-1"
)

// testClient wraps the fake client: it assigns UIDs on create and records
// the created and deleted object names.
type testClient struct {
	client.Client

	uid        int
	created    []string
	deleted    []string
	failDelete map[string]error
}

func (c *testClient) Create(ctx context.Context, obj client.Object, opts ...client.CreateOption) error {
	c.uid++
	obj.SetUID(types.UID(fmt.Sprintf("uid-%d", c.uid)))
	if err := c.Client.Create(ctx, obj, opts...); err != nil {
		return err
	}
	c.created = append(c.created, obj.GetName())
	return nil
}

func (c *testClient) Delete(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error {
	c.deleted = append(c.deleted, obj.GetName())
	if err, ok := c.failDelete[obj.GetName()]; ok {
		return err
	}
	return c.Client.Delete(ctx, obj, opts...)
}

type fakeConnector struct {
	client client.Client
	err    error
	calls  []string
}

func (f *fakeConnector) Connect(_ context.Context, clusterName string) (*cluster.Session, error) {
	f.calls = append(f.calls, clusterName)
	if f.err != nil {
		return nil, f.err
	}
	return cluster.NewSessionForClient(clusterName, f.client, cluster.RetryPolicy{
		Interval:   time.Millisecond,
		MaxRetries: 2,
	}), nil
}

type fakeSource struct {
	manifest string
	err      error
	urls     []string
}

func (f *fakeSource) Fetch(_ context.Context, url string) ([]*unstructured.Unstructured, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return objectutil.ReadObjects(strings.NewReader(f.manifest))
}

type testEnv struct {
	provider  *Provider
	client    *testClient
	connector *fakeConnector
	source    *fakeSource
}

func newTestEnv(manifest string, objects ...client.Object) *testEnv {
	c := &testClient{
		Client: fake.NewClientBuilder().
			WithScheme(cluster.NewScheme()).
			WithObjects(objects...).
			Build(),
		failDelete: map[string]error{},
	}
	connector := &fakeConnector{client: c}
	source := &fakeSource{manifest: manifest}

	return &testEnv{
		provider:  NewProvider(config.NewConfig(), connector, source),
		client:    c,
		connector: connector,
		source:    source,
	}
}

func newRequest(action Action, cc map[string]interface{}) *Request {
	return &Request{
		Action:                    action,
		ClientRequestToken:        testToken,
		LogicalResourceIdentifier: "FalconOperator",
		DesiredResourceState: &ResourceModel{
			ClusterName: testCluster,
			Namespace:   "falcon",
		},
		CallbackContext: cc,
	}
}

func initialized() map[string]interface{} {
	return map[string]interface{}{"init": "complete"}
}

const operatorManifest = `
apiVersion: v1
kind: Namespace
metadata:
  name: falcon-operator-system
---
apiVersion: v1
kind: ServiceAccount
metadata:
  name: falcon-operator
  namespace: falcon-operator-system
---
apiVersion: rbac.authorization.k8s.io/v1
kind: ClusterRole
metadata:
  name: falcon-operator-role
rules: []
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: falcon-operator-config
  namespace: falcon-operator-system
data:
  mode: node
`

const jobManifest = `
apiVersion: batch/v1
kind: Job
metadata:
  name: falcon-installer
spec:
  template:
    spec:
      restartPolicy: Never
      containers:
      - name: installer
        image: busybox
`
