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
	"encoding/base64"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const idSeparator = "|"

// ResourceModel is the declared and computed state of one operator installation.
type ResourceModel struct {
	// ClusterName is the name of the EKS cluster the operator is installed on.
	ClusterName string `json:"ClusterName,omitempty"`

	// Namespace is used for namespaced objects that don't declare one.
	Namespace string `json:"Namespace,omitempty"`

	// CfnId correlates the CloudFormation request with the cluster objects.
	CfnId string `json:"CfnId,omitempty"`

	Uid             string `json:"Uid,omitempty"`
	Name            string `json:"Name,omitempty"`
	SelfLink        string `json:"SelfLink,omitempty"`
	ResourceVersion string `json:"ResourceVersion,omitempty"`
}

// populate copies the identity of the given cluster object into the model.
func (m *ResourceModel) populate(object *unstructured.Unstructured) {
	m.Uid = string(object.GetUID())
	m.Name = object.GetName()
	m.SelfLink = object.GetSelfLink()
	m.ResourceVersion = object.GetResourceVersion()
	if ns := object.GetNamespace(); ns != "" {
		m.Namespace = ns
	}
}

// EncodeID returns base64('<token>|<cluster name>').
func EncodeID(token, clusterName string) string {
	return base64.StdEncoding.EncodeToString([]byte(token + idSeparator + clusterName))
}

// DecodeID returns the client request token and the cluster name encoded in id.
func DecodeID(id string) (token string, clusterName string, err error) {
	data, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return "", "", fmt.Errorf("invalid id %q, error: %w", id, err)
	}

	// cluster names never contain the separator, tokens might
	i := strings.LastIndex(string(data), idSeparator)
	if i < 0 {
		return "", "", fmt.Errorf("invalid id %q, separator not found", id)
	}
	return string(data[:i]), string(data[i+1:]), nil
}
