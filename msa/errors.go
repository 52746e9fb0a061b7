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
	"fmt"
	"net"
)

var (
	// ErrSessionRejected is returned when the array no longer accepts the session key
	ErrSessionRejected = errors.New("session rejected")
	// ErrTimeout marks a request that did not complete within its deadline
	ErrTimeout = errors.New("request timed out")
	// ErrUnknownResource is returned for a resource category that is not in the catalogue
	ErrUnknownResource = errors.New("unknown resource")
	// ErrInvalidCredential is returned when the login endpoint refuses the credential digest
	ErrInvalidCredential = errors.New("invalid credential")
)

// AuthenticationError is fatal for the current cycle only.
type AuthenticationError struct {
	Host  string
	Cause error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication against %s failed - %v", e.Host, e.Cause)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// FetchError is scoped to a single resource category.
type FetchError struct {
	Resource Resource
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s failed - %v", e.Resource, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// ParseError describes a malformed object or field. Only the offending record is skipped.
type ParseError struct {
	Resource Resource
	Object   string
	Field    string
	Cause    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("parsing %s object %q field %q - %v", e.Resource, e.Object, e.Field, e.Cause)
	case e.Object != "":
		return fmt.Sprintf("parsing %s object %q - %v", e.Resource, e.Object, e.Cause)
	default:
		return fmt.Sprintf("parsing %s response - %v", e.Resource, e.Cause)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// IsSessionRejected reports whether err was caused by the array rejecting the session key.
func IsSessionRejected(err error) bool {
	return errors.Is(err, ErrSessionRejected)
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classify tags transport errors so callers can use errors.Is(err, ErrTimeout).
func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
