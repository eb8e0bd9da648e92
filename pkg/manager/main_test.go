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

package manager

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fluxcd/pkg/ssa"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/cluster"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

var testOwner = ssa.Owner{
	Field: "cfn-operator-provider",
	Group: "cfn.crowdstrike.com",
}

// recordingClient wraps the fake client: it assigns UIDs on create, records
// the delete calls and fails the calls for the configured object names.
type recordingClient struct {
	client.Client

	failCreate map[string]error
	failDelete map[string]error

	deleted    []string
	deleteOpts []*client.DeleteOptions
}

func (c *recordingClient) Create(ctx context.Context, obj client.Object, opts ...client.CreateOption) error {
	if err, ok := c.failCreate[obj.GetName()]; ok {
		return err
	}
	obj.SetUID(types.UID(fmt.Sprintf("uid-%d", atomic.AddInt64(&nextUID, 1))))
	return c.Client.Create(ctx, obj, opts...)
}

func (c *recordingClient) Delete(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error {
	c.deleted = append(c.deleted, obj.GetName())
	c.deleteOpts = append(c.deleteOpts, (&client.DeleteOptions{}).ApplyOptions(opts))
	if err, ok := c.failDelete[obj.GetName()]; ok {
		return err
	}
	return c.Client.Delete(ctx, obj, opts...)
}

var nextUID int64

func newTestManager(objects ...client.Object) (*ResourceManager, *recordingClient) {
	kubeClient := &recordingClient{
		Client: fake.NewClientBuilder().
			WithScheme(cluster.NewScheme()).
			WithObjects(objects...).
			Build(),
		failCreate: map[string]error{},
		failDelete: map[string]error{},
	}
	return NewResourceManager(kubeClient, testOwner, DefaultDeletionPolicy()), kubeClient
}

func readObjects(t *testing.T, manifest string) []*unstructured.Unstructured {
	t.Helper()
	objects, err := objectutil.ReadObjects(strings.NewReader(manifest))
	if err != nil {
		t.Fatal(err)
	}
	return objects
}

func getObject(ctx context.Context, t *testing.T, c client.Client, apiVersion, kind, namespace, name string) (*unstructured.Unstructured, error) {
	t.Helper()
	u := &unstructured.Unstructured{}
	u.SetAPIVersion(apiVersion)
	u.SetKind(kind)
	err := c.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, u)
	return u, err
}

const configMapsManifest = `
apiVersion: v1
kind: ConfigMap
metadata:
  name: cm1
data:
  key: "1"
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: cm2
data:
  key: "2"
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: cm3
data:
  key: "3"
`
