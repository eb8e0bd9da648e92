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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestCatalog_Resolve(t *testing.T) {
	catalog := NewCatalog(nil)

	tests := []struct {
		apiVersion string
		kind       string
		namespace  string
		surface    string
		create     string
		delete     string
	}{
		{"batch/v1", "Job", "default", "BatchV1", "create_namespaced_job", "delete_namespaced_job"},
		{"v1", "Pod", "default", "CoreV1", "create_namespaced_pod", "delete_namespaced_pod"},
		{"v1", "Namespace", "", "CoreV1", "create_namespace", "delete_namespace"},
		{"rbac.authorization.k8s.io/v1", "ClusterRoleBinding", "", "RbacAuthorizationV1", "create_cluster_role_binding", "delete_cluster_role_binding"},
		{"rbac.authorization.k8s.io/v1", "RoleBinding", "falcon", "RbacAuthorizationV1", "create_namespaced_role_binding", "delete_namespaced_role_binding"},
		{"apiextensions.k8s.io/v1", "CustomResourceDefinition", "", "ApiextensionsV1", "create_custom_resource_definition", "delete_custom_resource_definition"},
		{"apps/v1", "Deployment", "falcon", "AppsV1", "create_namespaced_deployment", "delete_namespaced_deployment"},
		{"batch/v1beta1", "CronJob", "falcon", "BatchV1beta1", "create_namespaced_cron_job", "delete_namespaced_cron_job"},
		{"storage.k8s.io/v1", "CSIDriver", "", "StorageV1", "create_csi_driver", "delete_csi_driver"},
	}

	for _, tt := range tests {
		t.Run(tt.apiVersion+"/"+tt.kind, func(t *testing.T) {
			d, err := catalog.Resolve(tt.apiVersion, tt.kind)
			if err != nil {
				t.Fatal(err)
			}
			got := []string{d.Surface, d.CreateOperation(tt.namespace), d.DeleteOperation(tt.namespace)}
			want := []string{tt.surface, tt.create, tt.delete}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCatalog_NamespacedKindWithoutNamespace(t *testing.T) {
	d, err := NewCatalog(nil).Resolve("batch/v1", "Job")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("create_job", d.CreateOperation("")); diff != "" {
		t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
	}
}

func TestCatalog_UnknownKind(t *testing.T) {
	_, err := NewCatalog(nil).Resolve("falcon.crowdstrike.com/v1alpha1", "FalconNodeSensor")

	var unknown *UnknownKindError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownKindError, got %v", err)
	}
	if unknown.Kind != "FalconNodeSensor" {
		t.Errorf("unexpected kind %s", unknown.Kind)
	}
}

func TestCatalog_CustomKindFromMapper(t *testing.T) {
	nodeSensor := schema.GroupVersionKind{Group: "falcon.crowdstrike.com", Version: "v1alpha1", Kind: "FalconNodeSensor"}
	container := schema.GroupVersionKind{Group: "falcon.crowdstrike.com", Version: "v1alpha1", Kind: "FalconContainer"}

	mapper := meta.NewDefaultRESTMapper([]schema.GroupVersion{nodeSensor.GroupVersion()})
	mapper.Add(nodeSensor, meta.RESTScopeRoot)
	mapper.Add(container, meta.RESTScopeNamespace)

	catalog := NewCatalog(mapper)

	d, err := catalog.Resolve("falcon.crowdstrike.com/v1alpha1", "FalconNodeSensor")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Descriptor{
		GVK:        nodeSensor,
		Surface:    "FalconCrowdstrikeComV1alpha1",
		Operation:  "falcon_node_sensor",
		Namespaced: false,
	}, d); diff != "" {
		t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
	}

	d, err = catalog.Resolve("falcon.crowdstrike.com/v1alpha1", "FalconContainer")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Namespaced {
		t.Errorf("expected %s to be namespaced", d)
	}
}

func TestOperationName(t *testing.T) {
	tests := map[string]string{
		"Pod":                          "pod",
		"ConfigMap":                    "config_map",
		"ClusterRoleBinding":           "cluster_role_binding",
		"CSIDriver":                    "csi_driver",
		"APIService":                   "api_service",
		"PodSecurityPolicy":            "pod_security_policy",
		"MutatingWebhookConfiguration": "mutating_webhook_configuration",
		"Endpoints":                    "endpoints",
	}

	for kind, want := range tests {
		if diff := cmp.Diff(want, OperationName(kind)); diff != "" {
			t.Errorf("%s mismatch from expected value (-want +got):\n%s", kind, diff)
		}
	}
}

func TestSurfaceName(t *testing.T) {
	tests := map[string]string{
		"v1":                           "CoreV1",
		"batch/v1":                     "BatchV1",
		"networking.k8s.io/v1":         "NetworkingV1",
		"rbac.authorization.k8s.io/v1": "RbacAuthorizationV1",
		"policy/v1beta1":               "PolicyV1beta1",
	}

	for apiVersion, want := range tests {
		if diff := cmp.Diff(want, SurfaceName(apiVersion)); diff != "" {
			t.Errorf("%s mismatch from expected value (-want +got):\n%s", apiVersion, diff)
		}
	}
}

func TestDescriptor_Scope(t *testing.T) {
	catalog := NewCatalog(nil)
	job, _ := catalog.Resolve("batch/v1", "Job")
	role, _ := catalog.Resolve("rbac.authorization.k8s.io/v1", "ClusterRole")

	withNamespace := &unstructured.Unstructured{}
	withNamespace.SetNamespace("falcon-system")
	withoutNamespace := &unstructured.Unstructured{}

	tests := []struct {
		name             string
		descriptor       Descriptor
		object           *unstructured.Unstructured
		defaultNamespace string
		want             string
	}{
		{"declared namespace", job, withNamespace, "falcon", "falcon-system"},
		{"default namespace", job, withoutNamespace, "falcon", "falcon"},
		{"fallback namespace", job, withoutNamespace, "", "default"},
		{"cluster scoped", role, withNamespace, "falcon", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.descriptor.Scope(tt.object, tt.defaultNamespace)); diff != "" {
				t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
			}
		})
	}
}
