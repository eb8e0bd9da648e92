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
	"context"
	"fmt"

	"github.com/fluxcd/pkg/ssa"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

// DeleteOptions contains options for the delete calls.
type DeleteOptions struct {
	// DefaultNamespace is used for namespaced objects that don't declare a namespace.
	DefaultNamespace string

	// Token is used to find the objects created from documents without a name.
	Token string
}

// DeletionFailed holds every failure of a DeleteAll call.
type DeletionFailed struct {
	Errors []error
}

func (e *DeletionFailed) Error() string {
	return fmt.Sprintf("deletion failed for %d object(s): %v", len(e.Errors), utilerrors.NewAggregate(e.Errors))
}

// Aggregate returns the failures as a Kubernetes error aggregate.
func (e *DeletionFailed) Aggregate() utilerrors.Aggregate {
	return utilerrors.NewAggregate(e.Errors)
}

// Is reports whether any of the failures matches target.
func (e *DeletionFailed) Is(target error) bool {
	agg := e.Aggregate()
	return agg != nil && agg.Is(target)
}

// Delete deletes the given object with the manager's deletion policy (not found errors are ignored).
func (m *ResourceManager) Delete(ctx context.Context, object *unstructured.Unstructured, opts DeleteOptions) (*ssa.ChangeSetEntry, error) {
	d, err := m.catalog.ResolveObject(object)
	if err != nil {
		return nil, fmt.Errorf("%s delete failed, error: %w", ssa.FmtUnstructured(object), err)
	}

	existingObject := object.DeepCopy()
	existingObject.SetNamespace(d.Scope(object, opts.DefaultNamespace))

	if existingObject.GetName() == "" {
		if opts.Token == "" {
			return m.changeSetEntry(existingObject, ssa.UnchangedAction), nil
		}
		found, err := m.FindByToken(ctx, object.GetAPIVersion(), object.GetKind(), existingObject.GetNamespace(), opts.Token)
		if err != nil {
			return nil, fmt.Errorf("%s query failed, error: %w", ssa.FmtUnstructured(existingObject), err)
		}
		if found == nil {
			return m.changeSetEntry(existingObject, ssa.UnchangedAction), nil
		}
		existingObject = found
	}

	err = m.client.Delete(ctx, existingObject,
		client.PropagationPolicy(m.deletion.PropagationPolicy),
		client.GracePeriodSeconds(m.deletion.GracePeriodSeconds))
	if err != nil {
		if apierrors.IsNotFound(err) {
			return m.changeSetEntry(existingObject, ssa.UnchangedAction), nil
		}
		return nil, fmt.Errorf("%s delete failed, error: %w", ssa.FmtUnstructured(existingObject), err)
	}

	return m.changeSetEntry(existingObject, ssa.DeletedAction), nil
}

// DeleteAll deletes the given objects in reverse order, list kinds are expanded
// and their items deleted in reverse order too. A failure doesn't stop the
// deletion of the remaining objects, all the failures are returned as DeletionFailed.
func (m *ResourceManager) DeleteAll(ctx context.Context, objects []*unstructured.Unstructured, opts DeleteOptions) (*ssa.ChangeSet, error) {
	changeSet := ssa.NewChangeSet()
	var errs []error

	for i := len(objects) - 1; i >= 0; i-- {
		items, err := objectutil.ExpandList(objects[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for j := len(items) - 1; j >= 0; j-- {
			cse, err := m.Delete(ctx, items[j], opts)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			changeSet.Add(*cse)
		}
	}

	if len(errs) > 0 {
		return changeSet, &DeletionFailed{Errors: errs}
	}

	return changeSet, nil
}
