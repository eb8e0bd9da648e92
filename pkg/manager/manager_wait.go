/*
Copyright 2021 Stefan Prodan
Copyright 2021 The Flux authors

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
	"context"
	"fmt"

	"github.com/fluxcd/pkg/ssa"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/cli-utils/pkg/kstatus/status"
	"sigs.k8s.io/cli-utils/pkg/object"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// JobStatus is the readiness of a batch Job.
type JobStatus struct {
	// Status is the kstatus of the Job.
	Status status.Status

	// Message is the kstatus message.
	Message string

	// Complete is true once the Job has the Complete condition set.
	Complete bool
}

// String returns the status and the message.
func (s *JobStatus) String() string {
	return fmt.Sprintf("%s: %s", s.Status, s.Message)
}

// JobStatus fetches the given batch/v1 Job and computes its status.
// A Job is stabilized only when it has completed, a running Job is not.
func (m *ResourceManager) JobStatus(ctx context.Context, namespace, name string) (*JobStatus, error) {
	id := object.ObjMetadata{
		Namespace: namespace,
		Name:      name,
	}
	id.GroupKind.Group = batchv1.GroupName
	id.GroupKind.Kind = "Job"

	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(batchv1.SchemeGroupVersion.WithKind("Job"))
	if err := m.client.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, u); err != nil {
		return nil, fmt.Errorf("%s query failed, error: %w", ssa.FmtObjMetadata(id), err)
	}

	res, err := status.Compute(u)
	if err != nil {
		return nil, fmt.Errorf("%s status failed, error: %w", ssa.FmtObjMetadata(id), err)
	}

	job := &batchv1.Job{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, job); err != nil {
		return nil, fmt.Errorf("%s decode failed, error: %w", ssa.FmtObjMetadata(id), err)
	}

	return &JobStatus{
		Status:   res.Status,
		Message:  res.Message,
		Complete: isJobComplete(job),
	}, nil
}

func isJobComplete(job *batchv1.Job) bool {
	for _, c := range job.Status.Conditions {
		if c.Type == batchv1.JobComplete && c.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
