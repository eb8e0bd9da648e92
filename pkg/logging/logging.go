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

// Package logging builds the structured loggers handed to every invocation.
//
// Loggers travel inside the request context; there is no package level logger.
package logging

import (
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	RFC3339Mills = "2006-01-02T15:04:05.000"

	// MaxChunkSize is the CloudWatch PutEvents limit (256Kb) minus
	// room for the timestamp, level and message fields.
	MaxChunkSize = 260000
)

// New returns a JSON logger writing to w. Debug output is enabled when debug is set.
func New(w io.Writer, debug bool) logr.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(RFC3339Mills))
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), level)
	return zapr.NewLogger(zap.New(core))
}

// Chunks splits s into pieces of at most limit bytes.
func Chunks(s string, limit int) []string {
	if limit <= 0 || len(s) <= limit {
		return []string{s}
	}

	chunks := make([]string, 0, len(s)/limit+1)
	for i := 0; i < len(s); i += limit {
		end := i + limit
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// Output logs a potentially large payload at debug level, one entry per chunk.
func Output(log logr.Logger, msg string, body string) {
	chunks := Chunks(body, MaxChunkSize)
	for i, c := range chunks {
		log.V(1).Info(msg, "chunk", i+1, "chunks", len(chunks), "output", c)
	}
}
