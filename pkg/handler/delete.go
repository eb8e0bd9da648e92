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

	"github.com/go-logr/logr"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/manager"
)

// Delete removes the objects of the manifest bundle in reverse order.
func (p *Provider) Delete(ctx context.Context, req *Request) (*ProgressEvent, error) {
	progress := &ProgressEvent{Status: Success}

	model := req.DesiredResourceState
	if model == nil {
		return progress, nil
	}
	if model.ClusterName == "" {
		return nil, &InvalidRequestError{Message: "ClusterName is required."}
	}

	log := logr.FromContextOrDiscard(ctx).WithValues("cluster", model.ClusterName)
	ctx = logr.NewContext(ctx, log)

	// objects were tagged with the token of the create request
	token := req.ClientRequestToken
	if model.CfnId != "" {
		createToken, _, err := DecodeID(model.CfnId)
		if err != nil {
			return nil, &InvalidRequestError{Message: err.Error()}
		}
		token = createToken
	}

	s, err := p.connect(ctx, model.ClusterName)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	objects, err := p.manifests(ctx, req, token)
	if err != nil {
		return nil, err
	}

	changeSet, err := p.newResourceManager(s).DeleteAll(ctx, objects, manager.DeleteOptions{
		DefaultNamespace: model.Namespace,
		Token:            token,
	})
	if changeSet != nil {
		for _, entry := range changeSet.Entries {
			log.Info(entry.String())
		}
	}
	if err != nil {
		return nil, err
	}

	return progress, nil
}
