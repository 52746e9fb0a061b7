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

package logger

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const vectorUserAgent = "msametrics-vector-http"

// vectorSink posts every encoded log entry to a vector http source.
type vectorSink struct {
	client   *retryablehttp.Client
	endpoint *url.URL
}

func newVectorSink(u *url.URL) *vectorSink {
	tr := &http.Transport{
		Dial: (&net.Dialer{
			Timeout: 3 * time.Second,
		}).Dial,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
	}

	retryClient := retryablehttp.NewClient()
	retryClient.CheckRetry = retryablehttp.ErrorPropagatedRetryPolicy
	retryClient.HTTPClient.Transport = tr
	retryClient.HTTPClient.Timeout = 30 * time.Second
	retryClient.Logger = nil
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 1 * time.Second
	retryClient.RetryMax = 2
	retryClient.RequestLogHook = func(l retryablehttp.Logger, r *http.Request, i int) {
		if i > 0 {
			// the sink cannot log through zap without recursing
			fmt.Fprintf(os.Stderr, "vector call %s failed, retry #%d\n", r.URL.String(), i)
		}
	}
	return &vectorSink{
		client:   retryClient,
		endpoint: u,
	}
}

// Write implements zapcore.WriteSyncer.
func (v *vectorSink) Write(b []byte) (int, error) {
	// zap reuses b once Write returns
	payload := make([]byte, len(b))
	copy(payload, b)

	req, err := retryablehttp.NewRequest(http.MethodPost, v.endpoint.String(), payload)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", vectorUserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return 0, fmt.Errorf("vector endpoint returned HTTP status %d", resp.StatusCode)
	}
	return len(b), nil
}

// Sync implements zapcore.WriteSyncer.
func (v *vectorSink) Sync() error {
	return nil
}
