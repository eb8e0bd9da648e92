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
	"io"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	yamlutil "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"
)

// ReadObjects decodes the YAML or JSON documents from the given reader into unstructured Kubernetes API objects.
// The source order is preserved and List documents are kept as they are, empty documents are skipped.
func ReadObjects(r io.Reader) ([]*unstructured.Unstructured, error) {
	reader := yamlutil.NewYAMLOrJSONDecoder(r, 2048)
	objects := make([]*unstructured.Unstructured, 0)

	for i := 0; ; i++ {
		obj := &unstructured.Unstructured{}
		err := reader.Decode(&obj.Object)
		if err != nil {
			if err == io.EOF {
				break
			}
			return objects, fmt.Errorf("document %d decode failed, error: %w", i, err)
		}

		if len(obj.Object) == 0 {
			continue
		}

		if obj.GetAPIVersion() == "" || obj.GetKind() == "" {
			return objects, fmt.Errorf("document %d is not a Kubernetes object, apiVersion and kind are required", i)
		}

		objects = append(objects, obj)
	}

	return objects, nil
}

// ObjectsToYAML encodes the given Kubernetes API objects to a YAML multi-doc.
func ObjectsToYAML(objects []*unstructured.Unstructured) (string, error) {
	var builder strings.Builder
	for _, obj := range objects {
		data, err := yaml.Marshal(obj)
		if err != nil {
			return "", err
		}
		builder.WriteString("---\n")
		builder.Write(data)
	}
	return builder.String(), nil
}
