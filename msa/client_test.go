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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test that an array behind an explicit proxy is reached through it.
func Test_HTTPClient_ContextProxy(t *testing.T) {
	var proxyHits int32
	var lastURL atomic.Value

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&proxyHits, 1)
		lastURL.Store(r.URL.String())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(wrapResponse(statusXML("Success", "1", "0123456789abcdef"))))
	}))
	defer proxy.Close()

	t.Setenv("HTTP_PROXY", "")
	t.Setenv("HTTPS_PROXY", "")
	t.Setenv("NO_PROXY", "")

	ctx := WithProxyURL(context.Background(), proxy.URL)
	client := newTestClient(ctx)

	req, err := buildRequest(ctx, "http://msa.unreachable.example/api/login/abc")
	require.NoError(t, err)

	code, body, err := do(client, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "0123456789abcdef")
	assert.Equal(t, int32(1), atomic.LoadInt32(&proxyHits))
	assert.Equal(t, "http://msa.unreachable.example/api/login/abc", lastURL.Load())
}

func Test_ProxyURLFromContext(t *testing.T) {
	assert.Nil(t, proxyURLFromContext(context.Background()))
	assert.Nil(t, proxyURLFromContext(WithProxyURL(context.Background(), "")))
	assert.Nil(t, proxyURLFromContext(WithProxyURL(context.Background(), "://bad")))

	u := proxyURLFromContext(WithProxyURL(context.Background(), "http://proxy.example:3128"))
	require.NotNil(t, u)
	assert.Equal(t, "proxy.example:3128", u.Host)
}
