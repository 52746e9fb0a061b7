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
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/comcast/msametrics/config"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

type proxyCtxKey string

const proxyHostKey proxyCtxKey = "proxy-host"

// WithProxyURL returns a new context that carries an override proxy URL.
func WithProxyURL(ctx context.Context, proxy string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, proxyHostKey, proxy)
}

func proxyURLFromContext(ctx context.Context) *url.URL {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(proxyHostKey).(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil
	}
	return u
}

// NewHTTPClient builds the retryablehttp client used for every array call. A
// proxy carried by ctx overrides HTTP(S)_PROXY/NO_PROXY.
func NewHTTPClient(ctx context.Context) *retryablehttp.Client {
	cfg := config.GetConfig()

	tr := &http.Transport{
		Dial:                  (&net.Dialer{Timeout: 3 * time.Second}).Dial,
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          2,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if p := proxyURLFromContext(ctx); p != nil {
		proxy := *p
		tr.Proxy = func(r *http.Request) (*url.URL, error) { return &proxy, nil }
	}

	retryClient := retryablehttp.NewClient()
	retryClient.CheckRetry = retryablehttp.ErrorPropagatedRetryPolicy
	retryClient.HTTPClient.Transport = tr
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = nil
	retryClient.RetryWaitMin = 2 * time.Second
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.RetryMax = 2
	retryClient.RequestLogHook = func(l retryablehttp.Logger, r *http.Request, i int) {
		if i > 0 {
			zap.L().Warn("api call "+r.URL.Path+" failed, retry #"+strconv.Itoa(i), zap.String("host", r.URL.Host))
		}
	}

	return retryClient
}

// BaseURL turns a bare host or a full URL into the array's base URL.
func BaseURL(host string) (*url.URL, error) {
	if u, err := url.ParseRequestURI(host); err == nil && u.Host != "" {
		return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
	}
	if host == "" {
		return nil, fmt.Errorf("empty array host")
	}
	return &url.URL{Scheme: config.GetConfig().Scheme, Host: host}, nil
}

func buildRequest(ctx context.Context, uri string) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil || req == nil {
		return nil, fmt.Errorf("failed to build retryable request - %v", err)
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("dataType", "api")
	return req, nil
}

// do runs req and returns the status code and the drained body.
func do(client *retryablehttp.Client, req *retryablehttp.Request) (int, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, classify(err)
	}
	defer emptyAndCloseBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, classify(fmt.Errorf("error reading response body - %w", err))
	}
	return resp.StatusCode, body, nil
}

// This is required to have a proper cleanup of the response body
// to have correctly working keep-alive connections
func emptyAndCloseBody(resp *http.Response) {
	if resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}

func statusOK(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
