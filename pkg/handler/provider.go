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

// Package handler implements the CloudFormation handlers of the
// Kubernetes operator resource type.
//
// CloudFormation bounds the duration of every invocation, a create operation
// is therefore split in steps connected by the callback context: the first
// invocation only authenticates, the second one applies the bundle and, when
// the bundle is a batch Job, the following ones poll the Job until it completes.
package handler

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/cluster"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/config"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/logging"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/manager"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

// Connector opens an authenticated session to the named cluster.
type Connector interface {
	Connect(ctx context.Context, clusterName string) (*cluster.Session, error)
}

// Source fetches the manifest bundle.
type Source interface {
	Fetch(ctx context.Context, url string) ([]*unstructured.Unstructured, error)
}

// Provider runs the handlers of the resource type.
type Provider struct {
	cfg       *config.Config
	connector Connector
	source    Source
}

// NewProvider returns a Provider for the given config, cluster connector and manifest source.
func NewProvider(cfg *config.Config, connector Connector, source Source) *Provider {
	return &Provider{
		cfg:       cfg,
		connector: connector,
		source:    source,
	}
}

// Invoke dispatches the request to the handler of its action and converts
// any error into a FAILED progress event.
func (p *Provider) Invoke(ctx context.Context, req *Request) ProgressEvent {
	log := logr.FromContextOrDiscard(ctx).WithValues(
		"type", p.cfg.TypeName,
		"action", req.Action,
		"clientRequestToken", req.ClientRequestToken,
	)
	ctx = logr.NewContext(ctx, log)
	log.Info("invoke", "logicalResourceId", req.LogicalResourceIdentifier, "callbackContext", req.CallbackContext)

	var (
		event *ProgressEvent
		err   error
	)
	switch req.Action {
	case CreateAction:
		event, err = p.Create(ctx, req)
	case ReadAction:
		event, err = p.Read(ctx, req)
	case UpdateAction:
		event, err = p.Update(ctx, req)
	case DeleteAction:
		event, err = p.Delete(ctx, req)
	case ListAction:
		event, err = p.List(ctx, req)
	default:
		err = &InvalidRequestError{Message: fmt.Sprintf("unsupported action '%s'", req.Action)}
	}

	if err != nil {
		failed := NewFailedEvent(err)
		log.Error(err, "invocation failed", "errorCode", failed.ErrorCode)
		return failed
	}

	log.Info("invocation done",
		"status", event.Status,
		"callbackContext", event.CallbackContext,
		"callbackDelaySeconds", event.CallbackDelaySeconds)
	return *event
}

// Read returns the model as given.
func (p *Provider) Read(ctx context.Context, req *Request) (*ProgressEvent, error) {
	return &ProgressEvent{
		Status:        Success,
		ResourceModel: req.DesiredResourceState,
	}, nil
}

// Update has no cluster side effect, the model is returned as read.
func (p *Provider) Update(ctx context.Context, req *Request) (*ProgressEvent, error) {
	return p.Read(ctx, req)
}

// List returns no models.
func (p *Provider) List(ctx context.Context, req *Request) (*ProgressEvent, error) {
	return &ProgressEvent{
		Status:         Success,
		ResourceModels: []ResourceModel{},
	}, nil
}

// connect opens a session to the cluster and checks it is reachable.
func (p *Provider) connect(ctx context.Context, clusterName string) (*cluster.Session, error) {
	s, err := p.connector.Connect(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	if err := s.Verify(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (p *Provider) newResourceManager(s *cluster.Session) *manager.ResourceManager {
	return manager.NewResourceManager(s.Client(), p.cfg.Owner(), manager.DeletionPolicy{
		PropagationPolicy:  p.cfg.Deletion.PropagationPolicy,
		GracePeriodSeconds: p.cfg.Deletion.GracePeriodSeconds,
	})
}

// manifests fetches the bundle and prepares its objects for submission:
// lists are expanded, a lone nameless object gets a generated name and
// every object is tagged with the client request token.
func (p *Provider) manifests(ctx context.Context, req *Request, token string) ([]*unstructured.Unstructured, error) {
	log := logr.FromContextOrDiscard(ctx)

	objects, err := p.source.Fetch(ctx, p.cfg.ManifestURL)
	if err != nil {
		return nil, err
	}

	objects, err = objectutil.ExpandLists(objects)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, &InvalidRequestError{Message: fmt.Sprintf("manifest %s has no objects", p.cfg.ManifestURL)}
	}

	if len(objects) == 1 {
		logicalID := req.LogicalResourceIdentifier
		if logicalID == "" {
			logicalID = "operator"
		}
		objectutil.GenerateName(objects[0], logicalID)
	}

	objectutil.SetIdempotencyTokens(objects, token)

	if yml, err := objectutil.ObjectsToYAML(objects); err == nil {
		logging.Output(log, "manifest", yml)
	}

	return objects, nil
}
