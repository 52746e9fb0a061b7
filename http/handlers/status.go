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

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/comcast/msametrics/exporter"
	"github.com/comcast/msametrics/middleware/logging"
	"go.uber.org/zap"
)

// StatusSource reports the collector status, *exporter.Exporter is one.
type StatusSource interface {
	Status() exporter.Status
}

// StatusHandler handles GET /status requests with the collector's state and
// its last cycle as JSON.
func StatusHandler(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, src.Status())
	}
}

// ReadyHandler handles GET /ready requests. It answers 503 until a metric
// set has been published.
func ReadyHandler(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := src.Status()
		if st.Published == nil {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]interface{}{
				"ready": false,
				"state": st.State,
			})
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]interface{}{
			"ready":     true,
			"published": st.Published,
		})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("trace_id", logging.TraceID(r.Context())))
	}
}
