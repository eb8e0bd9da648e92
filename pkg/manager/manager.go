/*
Copyright 2021 Stefan Prodan
Copyright 2021 The Flux authors

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
	"github.com/fluxcd/pkg/ssa"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// DeletionPolicy holds the options passed on every delete call.
type DeletionPolicy struct {
	PropagationPolicy  metav1.DeletionPropagation
	GracePeriodSeconds int64
}

// DefaultDeletionPolicy cascades in background with a 5 seconds grace period.
func DefaultDeletionPolicy() DeletionPolicy {
	return DeletionPolicy{
		PropagationPolicy:  metav1.DeletePropagationBackground,
		GracePeriodSeconds: 5,
	}
}

// ResourceManager creates and deletes Kubernetes resources on the target cluster.
type ResourceManager struct {
	client   client.Client
	catalog  *Catalog
	owner    ssa.Owner
	deletion DeletionPolicy
}

// NewResourceManager creates a ResourceManager for the given Kubernetes client.
// Kinds missing from the built-in catalog are resolved with the client's REST mapper.
func NewResourceManager(client client.Client, owner ssa.Owner, deletion DeletionPolicy) *ResourceManager {
	return &ResourceManager{
		client:   client,
		catalog:  NewCatalog(client.RESTMapper()),
		owner:    owner,
		deletion: deletion,
	}
}

// Client returns the underlying controller-runtime client.
func (m *ResourceManager) Client() client.Client {
	return m.client
}

// Catalog returns the kind catalog used to resolve objects.
func (m *ResourceManager) Catalog() *Catalog {
	return m.catalog
}

// SetOwnerLabels adds the ownership labels to the given objects.
// The ownership labels are in the format:
// 	<owner.group>/name: <name>
// 	<owner.group>/cluster: <cluster>
func (m *ResourceManager) SetOwnerLabels(objects []*unstructured.Unstructured, name, cluster string) {
	for _, object := range objects {
		labels := object.GetLabels()
		if labels == nil {
			labels = make(map[string]string)
		}

		labels[m.owner.Group+"/name"] = name
		labels[m.owner.Group+"/cluster"] = cluster

		object.SetLabels(labels)
	}
}

func (m *ResourceManager) changeSetEntry(object *unstructured.Unstructured, action ssa.Action) *ssa.ChangeSetEntry {
	return &ssa.ChangeSetEntry{Subject: ssa.FmtUnstructured(object), Action: string(action)}
}
