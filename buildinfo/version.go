/*
 * Copyright 2023 Comcast Cable Communications Management, LLC
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

// Package buildinfo carries the version stamped in at link time with
// -ldflags "-X github.com/comcast/msametrics/buildinfo.gitVersion=...".
package buildinfo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"go.uber.org/zap"
)

const Unknown = "unknown"

var (
	gitVersion  = Unknown
	gitRevision = Unknown
	date        = Unknown

	Info info
)

type info struct {
	Date        string `json:"build_date"`
	GitRevision string `json:"revision"`
	GitVersion  string `json:"version"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
}

func init() {
	Info.Date = date
	Info.GitRevision = gitRevision
	Info.GitVersion = gitVersion
	Info.GoVersion = runtime.Version()
	Info.Platform = runtime.GOOS + "/" + runtime.GOARCH
}

// String is the one line answer to --version.
func (i info) String() string {
	return fmt.Sprintf("%s (revision %s, built %s, %s %s)", i.GitVersion, i.GitRevision, i.Date, i.GoVersion, i.Platform)
}

// JSON writes Info as a single JSON document.
func JSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(Info)
}

// Handler serves Info on /info.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := JSON(w); err != nil {
		zap.L().Error("error encoding build info", zap.Error(err), zap.String("path", r.URL.Path))
	}
}
