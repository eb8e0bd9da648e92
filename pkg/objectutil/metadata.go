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

// IdempotencyTokenAnnotation holds the CloudFormation client request token
// of the request that created the object.
const IdempotencyTokenAnnotation = "cfn-client-token"

// SetIdempotencyToken sets the client request token annotation on the given object,
// creating the metadata and annotations maps if needed and overriding any previous value.
func SetIdempotencyToken(object *unstructured.Unstructured, token string) {
	annotations := object.GetAnnotations()
	if annotations == nil {
		annotations = make(map[string]string)
	}
	annotations[IdempotencyTokenAnnotation] = token
	object.SetAnnotations(annotations)
}

// SetIdempotencyTokens tags all the given objects with the client request token.
func SetIdempotencyTokens(objects []*unstructured.Unstructured, token string) {
	for _, object := range objects {
		SetIdempotencyToken(object, token)
	}
}

// IdempotencyToken returns the client request token annotation value, if any.
func IdempotencyToken(object *unstructured.Unstructured) string {
	return object.GetAnnotations()[IdempotencyTokenAnnotation]
}

// GenerateName sets 'metadata.generateName' to 'cfn-<logical id>-' when the
// object has metadata but neither a name nor a generateName.
func GenerateName(object *unstructured.Unstructured, logicalID string) {
	if _, ok := object.Object["metadata"]; !ok {
		return
	}
	if object.GetName() != "" || object.GetGenerateName() != "" {
		return
	}
	object.SetGenerateName(fmt.Sprintf("cfn-%s-", strings.ToLower(logicalID)))
}

// IsBatchJob returns true if the given object is a Job from the batch API group.
func IsBatchJob(object *unstructured.Unstructured) bool {
	return strings.HasPrefix(object.GetAPIVersion(), "batch/") && object.GetKind() == "Job"
}
