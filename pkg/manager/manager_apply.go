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
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

// ApplyOptions contains options for the create calls.
type ApplyOptions struct {
	// DefaultNamespace is used for namespaced objects that don't declare a namespace.
	DefaultNamespace string

	// Token identifies the objects created from documents without a name,
	// an object found with this token is adopted instead of created again.
	Token string
}

// ApplyError is returned when an object can't be created for a reason
// other than an already existing object.
type ApplyError struct {
	Subject string
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s apply failed, error: %v", e.Subject, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Conflict holds the object rejected by the API server because it already exists.
type Conflict struct {
	// Object is the submitted object.
	Object *unstructured.Unstructured

	// Remaining are the objects that follow the conflicting one, not yet submitted.
	Remaining []*unstructured.Unstructured

	Err error
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("%s already exists, error: %v", ssa.FmtUnstructured(c.Object), c.Err)
}

// ApplyResult is the outcome of ApplyAll.
type ApplyResult struct {
	ChangeSet *ssa.ChangeSet

	// Objects are the created objects as returned by the API server, in submission order.
	Objects []*unstructured.Unstructured

	// Conflict is set when the submission stopped at an object that already exists.
	Conflict *Conflict
}

// Apply creates the given object and returns it as stored by the API server.
// An already existing object is reported with an error matching apierrors.IsAlreadyExists.
func (m *ResourceManager) Apply(ctx context.Context, object *unstructured.Unstructured, opts ApplyOptions) (*unstructured.Unstructured, error) {
	d, err := m.catalog.ResolveObject(object)
	if err != nil {
		return nil, &ApplyError{Subject: ssa.FmtUnstructured(object), Err: err}
	}

	appliedObject := object.DeepCopy()
	appliedObject.SetNamespace(d.Scope(object, opts.DefaultNamespace))

	if err := m.client.Create(ctx, appliedObject, client.FieldOwner(m.owner.Field)); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil, err
		}
		return nil, &ApplyError{Subject: ssa.FmtUnstructured(appliedObject), Err: err}
	}

	return appliedObject, nil
}

// ApplyAll creates the given objects in order, expanding list kinds into their items.
// It stops at the first failure: an already existing object is returned as
// ApplyResult.Conflict, any other failure as an ApplyError.
func (m *ResourceManager) ApplyAll(ctx context.Context, objects []*unstructured.Unstructured, opts ApplyOptions) (*ApplyResult, error) {
	expanded, err := objectutil.ExpandLists(objects)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{ChangeSet: ssa.NewChangeSet()}
	for i, object := range expanded {
		existingObject, err := m.findGenerated(ctx, object, opts)
		if err != nil {
			return result, err
		}
		if existingObject != nil {
			result.Objects = append(result.Objects, existingObject)
			result.ChangeSet.Add(*m.changeSetEntry(existingObject, ssa.UnchangedAction))
			continue
		}

		appliedObject, err := m.Apply(ctx, object, opts)
		if err != nil {
			if apierrors.IsAlreadyExists(err) {
				result.Conflict = &Conflict{
					Object:    object,
					Remaining: expanded[i+1:],
					Err:       err,
				}
				return result, nil
			}
			return result, err
		}

		result.Objects = append(result.Objects, appliedObject)
		result.ChangeSet.Add(*m.changeSetEntry(appliedObject, ssa.CreatedAction))
	}

	return result, nil
}

// findGenerated returns the object previously created from a document without
// a name, looked up by token. Named documents are never looked up, the API
// server rejects their second creation.
func (m *ResourceManager) findGenerated(ctx context.Context, object *unstructured.Unstructured, opts ApplyOptions) (*unstructured.Unstructured, error) {
	if object.GetName() != "" || opts.Token == "" {
		return nil, nil
	}

	d, err := m.catalog.ResolveObject(object)
	if err != nil {
		return nil, &ApplyError{Subject: ssa.FmtUnstructured(object), Err: err}
	}

	existingObject, err := m.FindByToken(ctx, object.GetAPIVersion(), object.GetKind(), d.Scope(object, opts.DefaultNamespace), opts.Token)
	if err != nil {
		return nil, &ApplyError{Subject: ssa.FmtUnstructured(object), Err: err}
	}
	return existingObject, nil
}
