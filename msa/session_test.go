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
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCredentials struct {
	StaticCredentials
	invalidated int
}

func (c *countingCredentials) Invalidate() {
	c.invalidated++
}

func Test_Digest(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("0f71f5b3d3200ab9c7185c67ed25ee7716b91a3280a1666149aefcfbd4b04dc7", Digest("sha256", "manage", "!manage"))
	assert.Equal("539e12f63b693a9970a97b885e857f8b", Digest("md5", "manage", "!manage"))
	assert.Equal(Digest("sha256", "manage", "!manage"), Digest("", "manage", "!manage"))
}

func Test_SessionManager_Reuse(t *testing.T) {
	array := newFakeArray()
	server := httptest.NewServer(array)
	defer server.Close()

	assert := assert.New(t)
	ctx := context.Background()
	sm, _ := newTestManager(t, server, StaticCredentials{User: testUser, Pass: testPass})

	s1, err := sm.Ensure(ctx)
	require.NoError(t, err)
	s2, err := sm.Ensure(ctx)
	require.NoError(t, err)

	assert.Same(s1, s2)
	assert.Equal("key-1", s1.Token)
	assert.Equal(testUser, s1.User)
	assert.Equal(int64(1), sm.Logins())
	assert.Equal(int32(1), array.logins.Load())
}

func Test_SessionManager_SingleLoginUnderConcurrency(t *testing.T) {
	array := newFakeArray()
	server := httptest.NewServer(array)
	defer server.Close()

	ctx := context.Background()
	sm, _ := newTestManager(t, server, StaticCredentials{User: testUser, Pass: testPass})

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := sm.Ensure(ctx)
			if err == nil {
				tokens[i] = s.Token
			}
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens {
		assert.Equal(t, "key-1", tok)
	}
	assert.Equal(t, int32(1), array.logins.Load())
}

func Test_SessionManager_RenewKeepsNewerSession(t *testing.T) {
	array := newFakeArray()
	server := httptest.NewServer(array)
	defer server.Close()

	assert := assert.New(t)
	ctx := context.Background()
	sm, _ := newTestManager(t, server, StaticCredentials{User: testUser, Pass: testPass})

	stale, err := sm.Ensure(ctx)
	require.NoError(t, err)

	fresh, err := sm.Renew(ctx, stale)
	require.NoError(t, err)
	assert.Equal("key-2", fresh.Token)

	// a late rejection of the old session must not discard the new one
	again, err := sm.Renew(ctx, stale)
	require.NoError(t, err)
	assert.Same(fresh, again)
	assert.Equal(int32(2), array.logins.Load())
}

func Test_SessionManager_LoginFailures(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		name        string
		handler     func(w http.ResponseWriter, r *http.Request) bool
		creds       *countingCredentials
		invalidated int
		invalidCred bool
	}{
		{
			name:        "wrong password",
			creds:       &countingCredentials{StaticCredentials: StaticCredentials{User: testUser, Pass: "wrong"}},
			invalidated: 1,
			invalidCred: true,
		},
		{
			name: "http unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) bool {
				w.WriteHeader(http.StatusUnauthorized)
				return true
			},
			creds:       &countingCredentials{StaticCredentials: StaticCredentials{User: testUser, Pass: testPass}},
			invalidated: 1,
			invalidCred: true,
		},
		{
			name: "not xml",
			handler: func(w http.ResponseWriter, r *http.Request) bool {
				w.Write([]byte("<html><body>maintenance"))
				return true
			},
			creds: &countingCredentials{StaticCredentials: StaticCredentials{User: testUser, Pass: testPass}},
		},
		{
			name: "empty session key",
			handler: func(w http.ResponseWriter, r *http.Request) bool {
				w.Write([]byte(wrapResponse(statusXML("Success", "0", ""))))
				return true
			},
			creds: &countingCredentials{StaticCredentials: StaticCredentials{User: testUser, Pass: testPass}},
		},
		{
			name:  "no username",
			creds: &countingCredentials{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			array := newFakeArray()
			array.handler = test.handler
			server := httptest.NewServer(array)
			defer server.Close()

			sm, _ := newTestManager(t, server, test.creds)
			s, err := sm.Ensure(context.Background())
			assert.Nil(s)
			require.Error(t, err)

			var authErr *AuthenticationError
			assert.True(errors.As(err, &authErr))
			assert.Equal(test.invalidCred, errors.Is(err, ErrInvalidCredential))
			assert.Equal(test.invalidated, test.creds.invalidated)
			assert.Nil(sm.Current())
		})
	}
}

func Test_SessionManager_Unreachable(t *testing.T) {
	server := httptest.NewServer(newFakeArray())
	sm, _ := newTestManager(t, server, StaticCredentials{User: testUser, Pass: testPass})
	server.Close()

	_, err := sm.Ensure(context.Background())
	var authErr *AuthenticationError
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, int64(0), sm.Logins())
}

func Test_SessionManager_Logout(t *testing.T) {
	array := newFakeArray()
	server := httptest.NewServer(array)
	defer server.Close()

	ctx := context.Background()
	sm, fetcher := newTestManager(t, server, StaticCredentials{User: testUser, Pass: testPass})
	array.bodies["system"] = wrapResponse(`<OBJECT name="system-information" oid="1"><PROPERTY name="health">OK</PROPERTY></OBJECT>`, statusXML("Success", "0", "ok"))

	s, err := sm.Ensure(ctx)
	require.NoError(t, err)
	sm.Logout(ctx)
	assert.Nil(t, sm.Current())

	_, err = fetcher.Fetch(ctx, System, s)
	assert.True(t, IsSessionRejected(err))
}
