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

import "fmt"

// State is the position of a create operation in the reconciliation.
type State string

const (
	Uninitialized State = "Uninitialized"
	Initializing  State = "Initializing"
	Applying      State = "Applying"
	Stabilizing   State = "Stabilizing"
	Succeeded     State = "Succeeded"
	StateFailed   State = "Failed"
)

// Callback context keys.
const (
	initKey        = "init"
	initComplete   = "complete"
	stabilizingKey = "stabilizing"
	nameKey        = "name"
	namespaceKey   = "namespace"
)

// Snapshot is the state persisted by CloudFormation between two invocations
// of the same create operation.
type Snapshot struct {
	State State

	// UID, Name and Namespace identify the Job being stabilized.
	UID       string
	Name      string
	Namespace string
}

// SnapshotFromContext restores the snapshot written into a callback context.
func SnapshotFromContext(cc map[string]interface{}) Snapshot {
	if len(cc) == 0 {
		return Snapshot{State: Uninitialized}
	}

	if _, ok := cc[stabilizingKey]; ok {
		return Snapshot{
			State:     Stabilizing,
			UID:       stringValue(cc[stabilizingKey]),
			Name:      stringValue(cc[nameKey]),
			Namespace: stringValue(cc[namespaceKey]),
		}
	}

	return Snapshot{State: Initializing}
}

// Context returns the callback context resuming from this snapshot,
// nil for the states that end the operation.
func (s Snapshot) Context() map[string]interface{} {
	switch s.State {
	case Initializing, Applying:
		return map[string]interface{}{initKey: initComplete}
	case Stabilizing:
		cc := map[string]interface{}{
			initKey:        initComplete,
			stabilizingKey: s.UID,
			nameKey:        s.Name,
		}
		if s.Namespace != "" {
			cc[namespaceKey] = s.Namespace
		}
		return cc
	default:
		return nil
	}
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
