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
	"fmt"
	"regexp"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const coreGroup = "core"

var (
	upperFollowedByLower = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	lowerFollowedByUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Descriptor identifies the API surface and the operation used to create
// or delete objects of one group, version and kind.
type Descriptor struct {
	GVK schema.GroupVersionKind

	// Surface is the capitalized concatenation of the group and version, e.g. 'BatchV1'.
	Surface string

	// Operation is the snake case form of the kind, e.g. 'cluster_role_binding'.
	Operation string

	// Namespaced is true when the kind has a namespaced variant.
	Namespaced bool
}

// CreateOperation returns the create operation name for the given namespace.
func (d Descriptor) CreateOperation(namespace string) string {
	return d.operation("create", namespace)
}

// DeleteOperation returns the delete operation name for the given namespace.
func (d Descriptor) DeleteOperation(namespace string) string {
	return d.operation("delete", namespace)
}

func (d Descriptor) operation(verb, namespace string) string {
	if d.Namespaced && namespace != "" {
		return fmt.Sprintf("%s_namespaced_%s", verb, d.Operation)
	}
	return fmt.Sprintf("%s_%s", verb, d.Operation)
}

// Scope returns the namespace the object is submitted to. Namespaced kinds
// without a declared namespace fall back to defaultNamespace, cluster-scoped
// kinds never carry a namespace.
func (d Descriptor) Scope(object *unstructured.Unstructured, defaultNamespace string) string {
	if !d.Namespaced {
		return ""
	}
	if ns := object.GetNamespace(); ns != "" {
		return ns
	}
	if defaultNamespace != "" {
		return defaultNamespace
	}
	return "default"
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s.%s", d.Surface, d.Operation)
}

// UnknownKindError is returned when a kind is neither built-in nor served by the cluster.
type UnknownKindError struct {
	APIVersion string
	Kind       string
	Err        error
}

func (e *UnknownKindError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no API surface for %s %s, error: %v", e.APIVersion, e.Kind, e.Err)
	}
	return fmt.Sprintf("no API surface for %s %s", e.APIVersion, e.Kind)
}

func (e *UnknownKindError) Unwrap() error {
	return e.Err
}

// Catalog maps group, version and kind to a Descriptor. Built-in kinds are
// indexed on creation, custom kinds are looked up once in the REST mapper
// and cached.
type Catalog struct {
	mu          sync.RWMutex
	descriptors map[schema.GroupVersionKind]Descriptor
	mapper      meta.RESTMapper
}

// NewCatalog returns a Catalog holding the built-in kinds, mapper may be nil.
func NewCatalog(mapper meta.RESTMapper) *Catalog {
	c := &Catalog{
		descriptors: make(map[schema.GroupVersionKind]Descriptor, len(builtinKinds)),
		mapper:      mapper,
	}
	for _, k := range builtinKinds {
		gvk := schema.GroupVersionKind{Group: k.group, Version: k.version, Kind: k.kind}
		c.descriptors[gvk] = newDescriptor(gvk, k.namespaced)
	}
	return c
}

// Resolve returns the Descriptor for the given apiVersion and kind.
func (c *Catalog) Resolve(apiVersion, kind string) (Descriptor, error) {
	gv, err := schema.ParseGroupVersion(apiVersion)
	if err != nil {
		return Descriptor{}, &UnknownKindError{APIVersion: apiVersion, Kind: kind, Err: err}
	}
	gvk := gv.WithKind(kind)

	c.mu.RLock()
	d, ok := c.descriptors[gvk]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	if c.mapper == nil {
		return Descriptor{}, &UnknownKindError{APIVersion: apiVersion, Kind: kind}
	}

	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return Descriptor{}, &UnknownKindError{APIVersion: apiVersion, Kind: kind, Err: err}
	}

	d = newDescriptor(gvk, mapping.Scope.Name() == meta.RESTScopeNameNamespace)
	c.mu.Lock()
	c.descriptors[gvk] = d
	c.mu.Unlock()
	return d, nil
}

// ResolveObject returns the Descriptor for the given object.
func (c *Catalog) ResolveObject(object *unstructured.Unstructured) (Descriptor, error) {
	return c.Resolve(object.GetAPIVersion(), object.GetKind())
}

func newDescriptor(gvk schema.GroupVersionKind, namespaced bool) Descriptor {
	return Descriptor{
		GVK:        gvk,
		Surface:    SurfaceName(gvk.GroupVersion().String()),
		Operation:  OperationName(gvk.Kind),
		Namespaced: namespaced,
	}
}

// SurfaceName converts an apiVersion into the API surface name:
// 'batch/v1' is 'BatchV1', 'v1' is 'CoreV1' and
// 'rbac.authorization.k8s.io/v1' is 'RbacAuthorizationV1'.
func SurfaceName(apiVersion string) string {
	group, version := coreGroup, apiVersion
	if i := strings.Index(apiVersion, "/"); i >= 0 {
		group, version = apiVersion[:i], apiVersion[i+1:]
	}
	group = strings.TrimSuffix(group, ".k8s.io")

	var sb strings.Builder
	for _, segment := range strings.Split(group, ".") {
		sb.WriteString(capitalize(segment))
	}
	sb.WriteString(capitalize(version))
	return sb.String()
}

// OperationName converts a kind into its snake case form,
// 'ClusterRoleBinding' is 'cluster_role_binding' and 'CSIDriver' is 'csi_driver'.
func OperationName(kind string) string {
	s := upperFollowedByLower.ReplaceAllString(kind, "${1}_${2}")
	s = lowerFollowedByUpper.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

type builtinKind struct {
	group      string
	version    string
	kind       string
	namespaced bool
}

var builtinKinds = []builtinKind{
	{"", "v1", "ConfigMap", true},
	{"", "v1", "Endpoints", true},
	{"", "v1", "LimitRange", true},
	{"", "v1", "Namespace", false},
	{"", "v1", "PersistentVolume", false},
	{"", "v1", "PersistentVolumeClaim", true},
	{"", "v1", "Pod", true},
	{"", "v1", "ReplicationController", true},
	{"", "v1", "ResourceQuota", true},
	{"", "v1", "Secret", true},
	{"", "v1", "Service", true},
	{"", "v1", "ServiceAccount", true},
	{"admissionregistration.k8s.io", "v1", "MutatingWebhookConfiguration", false},
	{"admissionregistration.k8s.io", "v1", "ValidatingWebhookConfiguration", false},
	{"apiextensions.k8s.io", "v1", "CustomResourceDefinition", false},
	{"apps", "v1", "DaemonSet", true},
	{"apps", "v1", "Deployment", true},
	{"apps", "v1", "ReplicaSet", true},
	{"apps", "v1", "StatefulSet", true},
	{"batch", "v1", "CronJob", true},
	{"batch", "v1", "Job", true},
	{"batch", "v1beta1", "CronJob", true},
	{"coordination.k8s.io", "v1", "Lease", true},
	{"networking.k8s.io", "v1", "Ingress", true},
	{"networking.k8s.io", "v1", "IngressClass", false},
	{"networking.k8s.io", "v1", "NetworkPolicy", true},
	{"policy", "v1", "PodDisruptionBudget", true},
	{"policy", "v1beta1", "PodSecurityPolicy", false},
	{"rbac.authorization.k8s.io", "v1", "ClusterRole", false},
	{"rbac.authorization.k8s.io", "v1", "ClusterRoleBinding", false},
	{"rbac.authorization.k8s.io", "v1", "Role", true},
	{"rbac.authorization.k8s.io", "v1", "RoleBinding", true},
	{"scheduling.k8s.io", "v1", "PriorityClass", false},
	{"storage.k8s.io", "v1", "CSIDriver", false},
	{"storage.k8s.io", "v1", "StorageClass", false},
}
