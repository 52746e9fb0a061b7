/*
 * Copyright 2025 Comcast Cable Communications Management, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func Test_Initialize_File(t *testing.T) {
	dir := t.TempDir()
	err := Initialize("msametrics", "test-host", LoggerConfig{
		LogLevel:  "debug",
		LogMethod: MethodFile,
		LogFile:   LogFile{Path: dir, MaxSize: 1, MaxBackups: 1, MaxAge: 1},
	})
	require.NoError(t, err)
	defer zap.ReplaceGlobals(zap.NewNop())
	defer SetLevel("info")

	zap.L().Debug("cycle finished", zap.String("array", "msa01"))
	Flush()

	data, err := os.ReadFile(filepath.Join(dir, "msametrics.log"))
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "cycle finished", entry["msg"])
	assert.Equal(t, "msametrics", entry["app"])
	assert.Equal(t, "test-host", entry["hostname"])
	assert.Equal(t, "msa01", entry["array"])
	assert.Equal(t, "debug", entry["level"])
}

func Test_Initialize_Vector(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	vector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		assert.Equal(t, vectorUserAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer vector.Close()

	err := Initialize("msametrics", "test-host", LoggerConfig{
		LogLevel:       "info",
		LogMethod:      MethodVector,
		VectorEndpoint: vector.URL,
	})
	require.NoError(t, err)
	defer zap.ReplaceGlobals(zap.NewNop())

	zap.L().Debug("filtered")
	zap.L().Info("published metric set")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], `"msg":"published metric set"`)
}

func Test_Initialize_Errors(t *testing.T) {
	assert.Error(t, Initialize("msametrics", "h", LoggerConfig{LogMethod: "syslog"}))
	assert.Error(t, Initialize("msametrics", "h", LoggerConfig{LogMethod: MethodVector, VectorEndpoint: "::not a url"}))
}

func Test_VectorSink_Non2xx(t *testing.T) {
	vector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer vector.Close()

	req, _ := http.NewRequest(http.MethodGet, vector.URL, nil)
	sink := newVectorSink(req.URL)
	sink.client.RetryMax = 0

	_, err := sink.Write([]byte(`{"msg":"x"}`))
	assert.Error(t, err)
}

func Test_Verbosity(t *testing.T) {
	assert := assert.New(t)
	SetLevel("info")

	rr := httptest.NewRecorder()
	Verbosity(rr, httptest.NewRequest(http.MethodGet, "/verbosity", nil))
	assert.Equal(http.StatusOK, rr.Code)
	assert.JSONEq(`{"verbosity": "info"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	SetVerbosity(rr, httptest.NewRequest(http.MethodPut, "/verbosity?v=debug", nil))
	assert.Equal(http.StatusNoContent, rr.Code)
	assert.Equal("debug", GetLevel())

	rr = httptest.NewRecorder()
	SetVerbosity(rr, httptest.NewRequest(http.MethodPut, "/verbosity", nil))
	assert.Equal(http.StatusBadRequest, rr.Code)

	SetLevel("bogus")
	assert.Equal("info", GetLevel())
}
