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
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/require"
)

const (
	testUser = "monitor"
	testPass = "!monitor"
)

func statusXML(responseType, numeric, response string) string {
	return `<OBJECT basetype="status" name="status" oid="1">` +
		`<PROPERTY name="response-type">` + responseType + `</PROPERTY>` +
		`<PROPERTY name="response-type-numeric">` + numeric + `</PROPERTY>` +
		`<PROPERTY name="response">` + response + `</PROPERTY>` +
		`<PROPERTY name="return-code">0</PROPERTY>` +
		`</OBJECT>`
}

func wrapResponse(objects ...string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<RESPONSE VERSION="L100" REQUEST="show">` + strings.Join(objects, "") + `</RESPONSE>`
}

// fakeArray is a minimal management interface serving canned show commands.
type fakeArray struct {
	mu       sync.Mutex
	tokens   []string
	valid    map[string]bool
	logins   atomic.Int32
	requests []string
	bodies   map[string]string
	handler  func(w http.ResponseWriter, r *http.Request) bool
}

func newFakeArray() *fakeArray {
	return &fakeArray{
		tokens: []string{"key-1", "key-2", "key-3", "key-4"},
		valid:  make(map[string]bool),
		bodies: make(map[string]string),
	}
}

func (f *fakeArray) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.valid, token)
}

func (f *fakeArray) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path)
	f.mu.Unlock()

	if f.handler != nil && f.handler(w, r) {
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/login/"):
		digest := strings.TrimPrefix(r.URL.Path, "/api/login/")
		if digest != Digest("sha256", testUser, testPass) {
			w.Write([]byte(wrapResponse(statusXML("Error", "1", "Authentication Unsuccessful"))))
			return
		}
		n := f.logins.Add(1)
		token := f.tokens[int(n-1)%len(f.tokens)]
		f.mu.Lock()
		f.valid[token] = true
		f.mu.Unlock()
		w.Write([]byte(wrapResponse(statusXML("Success", "0", token))))
	case strings.HasPrefix(r.URL.Path, "/api/show/"):
		token := r.Header.Get("sessionKey")
		cookie, err := r.Cookie("wbisessionkey")
		f.mu.Lock()
		ok := f.valid[token] && err == nil && cookie.Value == token
		f.mu.Unlock()
		if !ok {
			w.Write([]byte(wrapResponse(statusXML("Error", "1", "Invalid sessionkey"))))
			return
		}
		body, found := f.bodies[strings.TrimPrefix(r.URL.Path, "/api/show/")]
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	case r.URL.Path == "/api/exit":
		f.revoke(r.Header.Get("sessionKey"))
		w.Write([]byte(wrapResponse(statusXML("Success", "0", "Command completed successfully."))))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unknown path - please create test case(s) for it"))
	}
}

func newTestClient(ctx context.Context) *retryablehttp.Client {
	client := NewHTTPClient(ctx)
	client.RetryMax = 0
	return client
}

func newTestManager(t *testing.T, server *httptest.Server, creds CredentialProvider) (*SessionManager, *Fetcher) {
	t.Helper()
	base, err := url.Parse(server.URL)
	require.NoError(t, err)
	client := newTestClient(context.Background())
	return NewSessionManager(base, client, creds), NewFetcher(base, client)
}
