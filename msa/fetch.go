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

package msa

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// Result is the parsed outcome of one fetch. Warnings hold objects that were
// skipped while parsing.
type Result struct {
	Resource Resource
	Records  []Record
	Warnings []error
}

// Fetcher issues show commands against one array.
type Fetcher struct {
	base   *url.URL
	client *retryablehttp.Client
}

func NewFetcher(base *url.URL, client *retryablehttp.Client) *Fetcher {
	return &Fetcher{base: base, client: client}
}

// Fetch requests one resource collection with session s.
func (f *Fetcher) Fetch(ctx context.Context, res Resource, s *Session) (Result, error) {
	result := Result{Resource: res}
	fetchErr := func(err error) error {
		return &FetchError{Resource: res, Cause: err}
	}

	if !res.Valid() {
		return result, fetchErr(ErrUnknownResource)
	}
	if s == nil {
		return result, fetchErr(fmt.Errorf("%w: no session", ErrSessionRejected))
	}

	req, err := buildRequest(ctx, f.base.String()+"/api/show/"+res.Command())
	if err != nil {
		return result, fetchErr(err)
	}
	s.apply(req)

	code, body, err := do(f.client, req)
	if err != nil {
		return result, fetchErr(err)
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return result, fetchErr(fmt.Errorf("%w: HTTP status %d", ErrSessionRejected, code))
	}
	if !statusOK(code) {
		return result, fetchErr(fmt.Errorf("HTTP status %d", code))
	}

	resp, err := ParseResponse(body)
	if err != nil {
		return result, fetchErr(&ParseError{Resource: res, Cause: err})
	}
	if status, ok := resp.Status(); ok && !status.Success() {
		if sessionProblem(status) {
			return result, fetchErr(fmt.Errorf("%w: %s", ErrSessionRejected, status.Response))
		}
		return result, fetchErr(fmt.Errorf("array returned %s - %s", status.ResponseType, status.Response))
	}

	result.Records, result.Warnings = resp.Records(res)
	return result, nil
}

func sessionProblem(s Status) bool {
	msg := strings.ToLower(s.Response)
	for _, hint := range []string{"session", "not logged in", "login", "unauthorized"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
