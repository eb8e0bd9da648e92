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

package objectutil

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const listSuffix = "List"

// IsList returns true if the kind of the given object ends in 'List'.
func IsList(object *unstructured.Unstructured) bool {
	return strings.HasSuffix(object.GetKind(), listSuffix)
}

// ExpandList returns the items of a List object, each item inheriting the apiVersion
// of the list and the kind of the list without the 'List' suffix.
// The generic 'v1/List' kind carries heterogeneous items, those keep their own apiVersion and kind.
// Objects that are not lists are returned as they are.
func ExpandList(object *unstructured.Unstructured) ([]*unstructured.Unstructured, error) {
	if !IsList(object) {
		return []*unstructured.Unstructured{object}, nil
	}

	items, found, err := unstructured.NestedSlice(object.Object, "items")
	if err != nil {
		return nil, fmt.Errorf("%s items decode failed, error: %w", object.GetKind(), err)
	}
	if !found {
		return []*unstructured.Unstructured{}, nil
	}

	apiVersion := object.GetAPIVersion()
	kind := strings.TrimSuffix(object.GetKind(), listSuffix)

	objects := make([]*unstructured.Unstructured, 0, len(items))
	for i, item := range items {
		content, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s item %d is not an object", object.GetKind(), i)
		}

		u := &unstructured.Unstructured{Object: content}
		if kind != "" {
			u.SetAPIVersion(apiVersion)
			u.SetKind(kind)
		}
		objects = append(objects, u)
	}

	return objects, nil
}

// ExpandLists expands every List in the given objects, preserving the order.
func ExpandLists(objects []*unstructured.Unstructured) ([]*unstructured.Unstructured, error) {
	result := make([]*unstructured.Unstructured, 0, len(objects))
	for _, object := range objects {
		items, err := ExpandList(object)
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}
