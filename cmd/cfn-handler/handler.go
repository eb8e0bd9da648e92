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

package main

import (
	"context"
	"fmt"

	cfnhandler "github.com/aws-cloudformation/cloudformation-cli-go-plugin/cfn/handler"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/cluster"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/config"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/handler"
)

// tokenKey holds the request token in the callback context, the plugin
// request doesn't expose the CloudFormation client request token.
const tokenKey = "clientRequestToken"

// resourceModel is the model as decoded by the plugin, CloudFormation
// sends every property as a string.
type resourceModel struct {
	ClusterName     *string `json:",omitempty"`
	Namespace       *string `json:",omitempty"`
	CfnId           *string `json:",omitempty"`
	Uid             *string `json:",omitempty"`
	Name            *string `json:",omitempty"`
	SelfLink        *string `json:",omitempty"`
	ResourceVersion *string `json:",omitempty"`
}

func (m *resourceModel) toModel() *handler.ResourceModel {
	return &handler.ResourceModel{
		ClusterName:     aws.StringValue(m.ClusterName),
		Namespace:       aws.StringValue(m.Namespace),
		CfnId:           aws.StringValue(m.CfnId),
		Uid:             aws.StringValue(m.Uid),
		Name:            aws.StringValue(m.Name),
		SelfLink:        aws.StringValue(m.SelfLink),
		ResourceVersion: aws.StringValue(m.ResourceVersion),
	}
}

func fromModel(m *handler.ResourceModel) *resourceModel {
	return &resourceModel{
		ClusterName:     optional(m.ClusterName),
		Namespace:       optional(m.Namespace),
		CfnId:           optional(m.CfnId),
		Uid:             optional(m.Uid),
		Name:            optional(m.Name),
		SelfLink:        optional(m.SelfLink),
		ResourceVersion: optional(m.ResourceVersion),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// resourceHandler implements cfn.Handler on top of the provider.
type resourceHandler struct {
	cfg          *config.Config
	log          logr.Logger
	source       handler.Source
	newConnector func(sess *session.Session) handler.Connector
	newToken     func() string
}

func newResourceHandler(cfg *config.Config, log logr.Logger, source handler.Source) *resourceHandler {
	retry := cluster.RetryPolicy{
		Interval:   cfg.Retry.Interval.Duration,
		MaxRetries: cfg.Retry.MaxRetries,
	}
	return &resourceHandler{
		cfg:    cfg,
		log:    log,
		source: source,
		newConnector: func(sess *session.Session) handler.Connector {
			return cluster.NewAuthenticator(sess, retry)
		},
		newToken: func() string {
			return uuid.New().String()
		},
	}
}

func (h *resourceHandler) Create(req cfnhandler.Request) cfnhandler.ProgressEvent {
	return h.handle(handler.CreateAction, req)
}

func (h *resourceHandler) Read(req cfnhandler.Request) cfnhandler.ProgressEvent {
	return h.handle(handler.ReadAction, req)
}

func (h *resourceHandler) Update(req cfnhandler.Request) cfnhandler.ProgressEvent {
	return h.handle(handler.UpdateAction, req)
}

func (h *resourceHandler) Delete(req cfnhandler.Request) cfnhandler.ProgressEvent {
	return h.handle(handler.DeleteAction, req)
}

func (h *resourceHandler) List(req cfnhandler.Request) cfnhandler.ProgressEvent {
	return h.handle(handler.ListAction, req)
}

func (h *resourceHandler) handle(action handler.Action, req cfnhandler.Request) cfnhandler.ProgressEvent {
	model := &resourceModel{}
	if err := req.Unmarshal(model); err != nil {
		// list requests carry no properties
		if action != handler.ListAction {
			return toProgressEvent(handler.NewFailedEvent(&handler.InvalidRequestError{
				Message: fmt.Sprintf("decoding the resource model failed, error: %v", err),
			}))
		}
		model = nil
	}
	return h.run(action, req.LogicalResourceID, req.CallbackContext, model, req.Session)
}

// run invokes the provider with the decoded request.
func (h *resourceHandler) run(action handler.Action, logicalID string, callbackContext map[string]interface{}, model *resourceModel, sess *session.Session) cfnhandler.ProgressEvent {
	token, cc := splitToken(callbackContext)
	if token == "" {
		token = h.newToken()
	}

	req := &handler.Request{
		Action:                    action,
		ClientRequestToken:        token,
		LogicalResourceIdentifier: logicalID,
		CallbackContext:           cc,
	}
	if model != nil {
		req.DesiredResourceState = model.toModel()
	}
	if sess != nil {
		req.Region = aws.StringValue(sess.Config.Region)
	}

	ctx := logr.NewContext(context.Background(), h.log.WithValues("logicalResourceId", logicalID))
	provider := handler.NewProvider(h.cfg, h.newConnector(sess), h.source)
	event := provider.Invoke(ctx, req)

	if event.CallbackContext != nil {
		event.CallbackContext[tokenKey] = token
	}
	return toProgressEvent(event)
}

// splitToken returns the request token stored in the callback context and
// a copy of the context without it.
func splitToken(cc map[string]interface{}) (string, map[string]interface{}) {
	token, _ := cc[tokenKey].(string)
	if len(cc) == 0 {
		return token, nil
	}

	rest := make(map[string]interface{}, len(cc))
	for k, v := range cc {
		if k != tokenKey {
			rest[k] = v
		}
	}
	if len(rest) == 0 {
		return token, nil
	}
	return token, rest
}

func toProgressEvent(event handler.ProgressEvent) cfnhandler.ProgressEvent {
	pe := cfnhandler.ProgressEvent{
		OperationStatus:      cfnhandler.Status(event.Status),
		HandlerErrorCode:     string(event.ErrorCode),
		Message:              event.Message,
		CallbackContext:      event.CallbackContext,
		CallbackDelaySeconds: event.CallbackDelaySeconds,
	}
	if event.ResourceModel != nil {
		pe.ResourceModel = fromModel(event.ResourceModel)
	}
	if event.ResourceModels != nil {
		pe.ResourceModels = make([]interface{}, 0, len(event.ResourceModels))
		for i := range event.ResourceModels {
			pe.ResourceModels = append(pe.ResourceModels, fromModel(&event.ResourceModels[i]))
		}
	}
	return pe
}
