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

	"github.com/fluxcd/pkg/ssa"
	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/cluster"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/manager"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

// Create installs the manifest bundle, resuming from the callback context.
func (p *Provider) Create(ctx context.Context, req *Request) (*ProgressEvent, error) {
	model := req.DesiredResourceState
	if model == nil {
		return nil, &InvalidRequestError{Message: "desiredResourceState is required."}
	}
	if model.ClusterName == "" {
		return nil, &InvalidRequestError{Message: "ClusterName is required."}
	}

	snapshot := SnapshotFromContext(req.CallbackContext)
	log := logr.FromContextOrDiscard(ctx).WithValues("cluster", model.ClusterName, "state", snapshot.State)
	ctx = logr.NewContext(ctx, log)

	s, err := p.connect(ctx, model.ClusterName)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if model.CfnId == "" {
		model.CfnId = EncodeID(req.ClientRequestToken, model.ClusterName)
	}

	progress := &ProgressEvent{
		Status:        InProgress,
		ResourceModel: model,
	}

	switch snapshot.State {
	case Uninitialized:
		log.V(1).Info("session verified, deferring apply")
		progress.CallbackContext = Snapshot{State: Initializing}.Context()
		progress.CallbackDelaySeconds = p.cfg.Delays.InitSeconds
		return progress, nil
	case Stabilizing:
		return p.stabilize(ctx, s, model, snapshot, progress)
	default:
		return p.apply(ctx, s, req, model, progress)
	}
}

func (p *Provider) apply(ctx context.Context, s *cluster.Session, req *Request, model *ResourceModel, progress *ProgressEvent) (*ProgressEvent, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("state", Applying)

	objects, err := p.manifests(ctx, req, req.ClientRequestToken)
	if err != nil {
		return nil, err
	}

	rm := p.newResourceManager(s)
	rm.SetOwnerLabels(objects, req.LogicalResourceIdentifier, model.ClusterName)

	applied, err := p.applyAll(ctx, rm, objects, req.ClientRequestToken, model)
	if err != nil {
		return nil, err
	}

	if len(applied) > 0 {
		model.populate(applied[0])
	}

	if len(applied) > 0 && objectutil.IsBatchJob(objects[0]) {
		snapshot := Snapshot{
			State:     Stabilizing,
			UID:       model.Uid,
			Name:      applied[0].GetName(),
			Namespace: applied[0].GetNamespace(),
		}
		log.Info("job created, waiting for completion", "job", ssa.FmtUnstructured(applied[0]))
		progress.CallbackContext = snapshot.Context()
		progress.CallbackDelaySeconds = p.cfg.Delays.StabilizeSeconds
		return progress, nil
	}

	progress.Status = Success
	return progress, nil
}

// applyAll creates the objects and resolves the conflicts. An existing object
// is adopted when it carries the client request token, the primary object is
// looked up by token among the objects of its kind.
func (p *Provider) applyAll(ctx context.Context, rm *manager.ResourceManager, objects []*unstructured.Unstructured, token string, model *ResourceModel) ([]*unstructured.Unstructured, error) {
	log := logr.FromContextOrDiscard(ctx)
	opts := manager.ApplyOptions{DefaultNamespace: model.Namespace, Token: token}

	var applied []*unstructured.Unstructured
	pending := objects
	for len(pending) > 0 {
		result, err := rm.ApplyAll(ctx, pending, opts)
		if err != nil {
			return nil, err
		}
		for _, entry := range result.ChangeSet.Entries {
			log.Info(entry.String())
		}
		applied = append(applied, result.Objects...)

		conflict := result.Conflict
		if conflict == nil {
			break
		}

		subject := ssa.FmtUnstructured(conflict.Object)
		log.Info("checking whether this is a duplicate request", "object", subject)

		existing, err := p.findDuplicate(ctx, rm, conflict, token, opts, len(applied) == 0)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, &AlreadyExistsError{TypeName: p.cfg.TypeName, Identifier: model.CfnId, Err: conflict}
		}

		log.Info("adopted", "object", subject)
		applied = append(applied, existing)
		pending = conflict.Remaining
	}

	return applied, nil
}

func (p *Provider) findDuplicate(ctx context.Context, rm *manager.ResourceManager, conflict *manager.Conflict, token string, opts manager.ApplyOptions, primary bool) (*unstructured.Unstructured, error) {
	if !primary {
		existing, owned, err := rm.IsOwned(ctx, conflict.Object, token, opts)
		if err != nil || !owned {
			return nil, err
		}
		return existing, nil
	}

	d, err := rm.Catalog().ResolveObject(conflict.Object)
	if err != nil {
		return nil, err
	}
	return rm.FindByToken(ctx,
		conflict.Object.GetAPIVersion(),
		conflict.Object.GetKind(),
		d.Scope(conflict.Object, opts.DefaultNamespace),
		token)
}

// stabilize polls the Job once, the operation succeeds when the Job has completed.
func (p *Provider) stabilize(ctx context.Context, s *cluster.Session, model *ResourceModel, snapshot Snapshot, progress *ProgressEvent) (*ProgressEvent, error) {
	log := logr.FromContextOrDiscard(ctx)

	namespace := snapshot.Namespace
	if namespace == "" {
		namespace = model.Namespace
	}
	if namespace == "" {
		namespace = "default"
	}

	js, err := p.newResourceManager(s).JobStatus(ctx, namespace, snapshot.Name)
	if err != nil {
		return nil, err
	}
	log.Info("job status", "job", snapshot.Name, "namespace", namespace, "status", js.String())

	model.Uid = snapshot.UID
	model.Name = snapshot.Name

	if js.Complete {
		progress.Status = Success
		return progress, nil
	}

	progress.CallbackContext = snapshot.Context()
	progress.CallbackDelaySeconds = p.cfg.Delays.StabilizeSeconds
	return progress, nil
}
