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

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  []string
	}{
		{name: "empty", input: "", limit: 4, want: []string{""}},
		{name: "fits", input: "abcd", limit: 4, want: []string{"abcd"}},
		{name: "splits", input: "abcdefghij", limit: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "no limit", input: "abcdefghij", limit: 0, want: []string{"abcdefghij"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Chunks(tt.input, tt.limit)); diff != "" {
				t.Errorf("Mismatch from expected value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, true)

	Output(log, "kubectl output", strings.Repeat("x", MaxChunkSize+10))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"chunk":2`) {
		t.Errorf("unexpected second entry %s", lines[1])
	}
}

func TestDebugDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, false)

	Output(log, "hidden", "body")
	log.Info("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug output should be filtered: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("info output missing: %s", buf.String())
	}
}
