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

// Package manifest fetches the operator manifest bundle.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/objectutil"
)

// FetchError is returned when the bundle can't be downloaded.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to fetch manifest url %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("failed to fetch manifest url %s: [%d] %s", e.URL, e.StatusCode, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPSource downloads multi-doc YAML bundles with a plain GET.
type HTTPSource struct {
	Client *http.Client
}

// NewHTTPSource returns a source with a bounded request timeout.
func NewHTTPSource() *HTTPSource {
	return &HTTPSource{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads the bundle at url and decodes it into objects, preserving the document order.
func (s *HTTPSource) Fetch(ctx context.Context, url string) ([]*unstructured.Unstructured, error) {
	log := logr.FromContextOrDiscard(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Status: reason(resp)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	log.V(1).Info("manifest fetched", "url", url, "bytes", len(data))

	objects, err := objectutil.ReadObjects(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	return objects, nil
}

// reason returns the reason phrase sent by the server, e.g. 'Not Found' for '404 Not Found'.
func reason(resp *http.Response) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if phrase == "" {
		return http.StatusText(resp.StatusCode)
	}
	return phrase
}

func (s *HTTPSource) httpClient() *http.Client {
	if s.Client == nil {
		return http.DefaultClient
	}
	return s.Client
}
