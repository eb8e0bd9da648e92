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

// Package manager contains utilities for managing Kubernetes resources.
//
// The ResourceManager creates the objects of a manifest bundle in order and
// deletes them in reverse order. Every object is resolved through the Catalog
// to the API surface and operation serving its kind. An object that already
// exists is reported as a Conflict so that callers can tell a retried request
// apart from a clash with a foreign object, by looking up the client request
// token annotation.
package manager
