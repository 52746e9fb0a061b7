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
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comcast/msametrics/config"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Session is an issued session key. It is never mutated; re-authentication
// replaces it with a new value.
type Session struct {
	Token  string
	User   string
	Issued time.Time
}

func (s *Session) apply(req *retryablehttp.Request) {
	req.Header.Set("sessionKey", s.Token)
	req.AddCookie(&http.Cookie{Name: "wbisessionkey", Value: s.Token})
	req.AddCookie(&http.Cookie{Name: "wbiusername", Value: s.User})
}

// Credentials for the array's management interface.
type Credentials struct {
	User string
	Pass string
}

// CredentialProvider supplies login credentials. Invalidate is called when
// the array rejects them so the next Get can look them up again.
type CredentialProvider interface {
	Get(ctx context.Context) (Credentials, error)
	Invalidate()
}

// StaticCredentials never change.
type StaticCredentials Credentials

func (s StaticCredentials) Get(context.Context) (Credentials, error) {
	if s.User == "" {
		return Credentials{}, errors.New("no username configured")
	}
	return Credentials(s), nil
}

func (StaticCredentials) Invalidate() {}

// Digest computes the login digest "<user>_<password>" hashed with algo.
func Digest(algo, user, pass string) string {
	in := []byte(user + "_" + pass)
	if algo == config.DigestMD5 {
		sum := md5.Sum(in)
		return hex.EncodeToString(sum[:])
	}
	sum := sha256.Sum256(in)
	return hex.EncodeToString(sum[:])
}

// SessionManager owns the single live session against one array.
type SessionManager struct {
	base   *url.URL
	client *retryablehttp.Client
	creds  CredentialProvider
	digest string

	mu      sync.RWMutex
	current *Session
	group   singleflight.Group
	logins  atomic.Int64
}

// NewSessionManager returns a manager for the array at base.
func NewSessionManager(base *url.URL, client *retryablehttp.Client, creds CredentialProvider) *SessionManager {
	return &SessionManager{
		base:   base,
		client: client,
		creds:  creds,
		digest: config.GetConfig().AuthDigest,
	}
}

// Logins is the number of successful logins since start.
func (m *SessionManager) Logins() int64 {
	return m.logins.Load()
}

// Current returns the cached session without logging in.
func (m *SessionManager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Ensure returns the cached session or logs in. Concurrent callers share a
// single login.
func (m *SessionManager) Ensure(ctx context.Context) (*Session, error) {
	if s := m.Current(); s != nil {
		return s, nil
	}

	v, err, _ := m.group.Do("login", func() (interface{}, error) {
		if s := m.Current(); s != nil {
			return s, nil
		}
		s, err := m.login(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.current = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Invalidate drops the cached session if it is still stale. A nil stale
// drops whatever is cached.
func (m *SessionManager) Invalidate(stale *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stale == nil || m.current == stale {
		m.current = nil
	}
}

// Renew replaces a rejected session. If another caller already replaced it,
// the newer session is returned without logging in again.
func (m *SessionManager) Renew(ctx context.Context, stale *Session) (*Session, error) {
	m.Invalidate(stale)
	return m.Ensure(ctx)
}

// Logout ends the cached session on the array. Errors are only logged since
// the array expires abandoned sessions on its own.
func (m *SessionManager) Logout(ctx context.Context) {
	s := m.Current()
	if s == nil {
		return
	}
	m.Invalidate(s)

	req, err := buildRequest(ctx, m.base.String()+"/api/exit")
	if err != nil {
		return
	}
	s.apply(req)
	if _, _, err := do(m.client, req); err != nil {
		zap.L().Warn("failed to log out of array", zap.String("host", m.base.Host), zap.Error(err))
	}
}

func (m *SessionManager) login(ctx context.Context) (*Session, error) {
	authErr := func(err error) error {
		return &AuthenticationError{Host: m.base.Host, Cause: err}
	}

	creds, err := m.creds.Get(ctx)
	if err != nil {
		return nil, authErr(fmt.Errorf("retrieving credentials - %w", err))
	}

	req, err := buildRequest(ctx, m.base.String()+"/api/login/"+Digest(m.digest, creds.User, creds.Pass))
	if err != nil {
		return nil, authErr(err)
	}

	code, body, err := do(m.client, req)
	if err != nil {
		return nil, authErr(err)
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		m.creds.Invalidate()
		return nil, authErr(ErrInvalidCredential)
	}
	if !statusOK(code) {
		return nil, authErr(fmt.Errorf("HTTP status %d", code))
	}

	resp, err := ParseResponse(body)
	if err != nil {
		return nil, authErr(&ParseError{Resource: "login", Cause: err})
	}
	status, ok := resp.Status()
	if !ok {
		return nil, authErr(&ParseError{Resource: "login", Cause: errors.New("missing status object")})
	}
	if !status.Success() {
		m.creds.Invalidate()
		return nil, authErr(fmt.Errorf("%w: %s", ErrInvalidCredential, status.Response))
	}
	if status.Response == "" {
		return nil, authErr(&ParseError{Resource: "login", Field: "response", Cause: errors.New("empty session key")})
	}

	m.logins.Add(1)
	zap.L().Debug("logged in to array", zap.String("host", m.base.Host), zap.String("user", creds.User))

	return &Session{
		Token:  status.Response,
		User:   creds.User,
		Issued: time.Now(),
	}, nil
}
