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

package muxprom

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	i := NewInstrumentation(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"state":"idle"}`))
	})
	h := i.Middleware(mux)

	for _, path := range []string{"/status", "/status", "/nope"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(i.reqTotal.WithLabelValues("200", "GET", "GET /status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(i.reqTotal.WithLabelValues("404", "GET", "unmatched")))

	n, err := testutil.GatherAndCount(reg, "msa_exporter_http_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func Test_EstimateRequestSize(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.Header.Set("Accept", "text/plain")
	// GET + /metrics + HTTP/1.1 + 4, Accept + text/plain + 2
	assert.Equal(t, int64(3+8+8+4+6+10+2), estimateRequestSize(r))
}
