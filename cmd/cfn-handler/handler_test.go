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
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	cfnhandler "github.com/aws-cloudformation/cloudformation-cli-go-plugin/cfn/handler"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/cluster"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/config"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/handler"
	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

const operatorManifest = `
apiVersion: v1
kind: ConfigMap
metadata:
  name: falcon-operator-config
  namespace: falcon
data:
  mode: node
`

type uidClient struct {
	client.Client
}

func (c *uidClient) Create(ctx context.Context, obj client.Object, opts ...client.CreateOption) error {
	obj.SetUID(types.UID("uid-" + obj.GetName()))
	return c.Client.Create(ctx, obj, opts...)
}

type fakeConnector struct {
	client client.Client
	err    error
}

func (f *fakeConnector) Connect(_ context.Context, clusterName string) (*cluster.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return cluster.NewSessionForClient(clusterName, f.client, cluster.RetryPolicy{Interval: time.Millisecond}), nil
}

type fakeSource string

func (f fakeSource) Fetch(context.Context, string) ([]*unstructured.Unstructured, error) {
	return objectutil.ReadObjects(strings.NewReader(string(f)))
}

func newTestHandler(connector *fakeConnector) *resourceHandler {
	tokens := 0
	return &resourceHandler{
		cfg:    config.NewConfig(),
		log:    logr.Discard(),
		source: fakeSource(operatorManifest),
		newConnector: func(*session.Session) handler.Connector {
			return connector
		},
		newToken: func() string {
			tokens++
			return "generated-" + strconv.Itoa(tokens)
		},
	}
}

func newTestConnector() *fakeConnector {
	return &fakeConnector{client: &uidClient{
		Client: fake.NewClientBuilder().WithScheme(cluster.NewScheme()).Build(),
	}}
}

func TestHandler_CreateDelete(t *testing.T) {
	g := NewWithT(t)
	connector := newTestConnector()
	h := newTestHandler(connector)
	model := &resourceModel{ClusterName: aws.String("falcon-cluster"), Namespace: aws.String("falcon")}

	first := h.run(handler.CreateAction, "FalconOperator", nil, model, nil)

	g.Expect(first.OperationStatus).To(Equal(cfnhandler.Status("IN_PROGRESS")))
	g.Expect(first.CallbackDelaySeconds).To(Equal(int64(1)))
	g.Expect(first.CallbackContext).To(Equal(map[string]interface{}{
		"init":               "complete",
		"clientRequestToken": "generated-1",
	}))

	second := h.run(handler.CreateAction, "FalconOperator", first.CallbackContext, model, nil)

	g.Expect(second.Message).To(BeEmpty())
	g.Expect(second.OperationStatus).To(Equal(cfnhandler.Status("SUCCESS")))
	g.Expect(second.CallbackContext).To(BeNil())

	created, ok := second.ResourceModel.(*resourceModel)
	g.Expect(ok).To(BeTrue())
	g.Expect(aws.StringValue(created.CfnId)).To(Equal(handler.EncodeID("generated-1", "falcon-cluster")))
	g.Expect(aws.StringValue(created.Name)).To(Equal("falcon-operator-config"))
	g.Expect(aws.StringValue(created.Uid)).To(Equal("uid-falcon-operator-config"))
	g.Expect(created.SelfLink).To(BeNil())

	deleted := h.run(handler.DeleteAction, "FalconOperator", nil, created, nil)

	g.Expect(deleted.Message).To(BeEmpty())
	g.Expect(deleted.OperationStatus).To(Equal(cfnhandler.Status("SUCCESS")))
	g.Expect(deleted.ResourceModel).To(BeNil())

	err := connector.client.Get(context.Background(),
		client.ObjectKey{Namespace: "falcon", Name: "falcon-operator-config"}, &corev1.ConfigMap{})
	g.Expect(err).To(HaveOccurred())
}

func TestHandler_Failure(t *testing.T) {
	g := NewWithT(t)
	connector := newTestConnector()
	connector.err = &cluster.AuthenticationError{Cluster: "falcon-cluster", Err: errors.New("AccessDeniedException")}
	h := newTestHandler(connector)
	model := &resourceModel{ClusterName: aws.String("falcon-cluster")}

	event := h.run(handler.CreateAction, "FalconOperator", map[string]interface{}{
		"init":               "complete",
		"clientRequestToken": "token-1",
	}, model, nil)

	g.Expect(event.OperationStatus).To(Equal(cfnhandler.Status("FAILED")))
	g.Expect(event.HandlerErrorCode).To(Equal("InvalidCredentials"))
	g.Expect(event.Message).To(ContainSubstring("falcon-cluster"))
	g.Expect(event.CallbackContext).To(BeNil())
}

func TestHandler_List(t *testing.T) {
	g := NewWithT(t)
	h := newTestHandler(newTestConnector())

	event := h.run(handler.ListAction, "", nil, nil, nil)

	g.Expect(event.OperationStatus).To(Equal(cfnhandler.Status("SUCCESS")))
	g.Expect(event.ResourceModels).NotTo(BeNil())
	g.Expect(event.ResourceModels).To(BeEmpty())
}

func TestSplitToken(t *testing.T) {
	g := NewWithT(t)

	token, cc := splitToken(nil)
	g.Expect(token).To(BeEmpty())
	g.Expect(cc).To(BeNil())

	token, cc = splitToken(map[string]interface{}{"clientRequestToken": "token-1"})
	g.Expect(token).To(Equal("token-1"))
	g.Expect(cc).To(BeNil())

	in := map[string]interface{}{"init": "complete", "clientRequestToken": "token-1"}
	token, cc = splitToken(in)
	g.Expect(token).To(Equal("token-1"))
	g.Expect(cc).To(Equal(map[string]interface{}{"init": "complete"}))
	g.Expect(in).To(HaveKey("clientRequestToken"))
}
