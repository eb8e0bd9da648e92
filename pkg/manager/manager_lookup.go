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

	"github.com/fluxcd/pkg/ssa"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

// FindByToken lists the objects of the given kind and returns the first one
// annotated with the client request token, or nil if there is none.
// Namespaced kinds are listed in the given namespace, cluster-scoped kinds
// across the cluster.
func (m *ResourceManager) FindByToken(ctx context.Context, apiVersion, kind, namespace, token string) (*unstructured.Unstructured, error) {
	d, err := m.catalog.Resolve(apiVersion, kind)
	if err != nil {
		return nil, err
	}

	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(schema.GroupVersionKind{
		Group:   d.GVK.Group,
		Version: d.GVK.Version,
		Kind:    d.GVK.Kind + "List",
	})

	var opts []client.ListOption
	if d.Namespaced && namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}

	if err := m.client.List(ctx, list, opts...); err != nil {
		return nil, fmt.Errorf("%s list failed, error: %w", d.GVK.Kind, err)
	}

	for i := range list.Items {
		if objectutil.IdempotencyToken(&list.Items[i]) == token {
			found := list.Items[i].DeepCopy()
			found.SetGroupVersionKind(d.GVK)
			return found, nil
		}
	}

	return nil, nil
}

// IsOwned fetches the in-cluster version of the given object and returns it
// if it carries the client request token.
func (m *ResourceManager) IsOwned(ctx context.Context, object *unstructured.Unstructured, token string, opts ApplyOptions) (*unstructured.Unstructured, bool, error) {
	d, err := m.catalog.ResolveObject(object)
	if err != nil {
		return nil, false, err
	}

	existingObject := &unstructured.Unstructured{}
	existingObject.SetGroupVersionKind(object.GroupVersionKind())
	key := client.ObjectKey{Namespace: d.Scope(object, opts.DefaultNamespace), Name: object.GetName()}

	if err := m.client.Get(ctx, key, existingObject); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s query failed, error: %w", ssa.FmtUnstructured(object), err)
	}

	if objectutil.IdempotencyToken(existingObject) != token {
		return existingObject, false, nil
	}
	return existingObject, true, nil
}
