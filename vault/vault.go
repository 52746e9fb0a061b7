/*
 * Copyright 2024 Comcast Cable Communications Management, LLC
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

package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/approle"
	"go.uber.org/zap"
)

const (
	// DefaultUserField is the secret field holding the array username
	DefaultUserField = "user"
	// DefaultPasswordField is the secret field holding the array password
	DefaultPasswordField = "password"

	loginRetryInterval = 10 * time.Second
)

var (
	log *zap.Logger

	ErrMissingField  = errors.New("secret is missing a field")
	ErrSecretMissing = errors.New("secret not found")
)

type Parameters struct {
	// connection and credential parameters
	Address         string
	ApproleRoleID   string
	ApproleSecretID string
	CACertBytes     []byte
}

// SecretProperties locate the array credentials inside vault.
type SecretProperties struct {
	MountPath string
	// KVVersion is 1 or 2, anything else is treated as 2
	KVVersion     int
	Path          string
	SecretName    string
	UserField     string
	PasswordField string
}

// SecretPath joins the path and secret name. An empty SecretName falls back
// to key, usually the array host.
func (p *SecretProperties) SecretPath(key string) string {
	name := p.SecretName
	if name == "" {
		name = key
	}
	if p.Path == "" {
		return name
	}
	return p.Path + "/" + name
}

func (p *SecretProperties) userField() string {
	if p.UserField == "" {
		return DefaultUserField
	}
	return p.UserField
}

func (p *SecretProperties) passwordField() string {
	if p.PasswordField == "" {
		return DefaultPasswordField
	}
	return p.PasswordField
}

type Vault struct {
	mu         sync.RWMutex
	client     *vault.Client
	Parameters Parameters
	isLoggedIn bool
	// token from Login that Run has not taken over yet
	pending *vault.Secret
}

// NewVaultAppRoleClient returns a client for the vault at parameters.Address.
// It does not log in, see Login and Run.
func NewVaultAppRoleClient(ctx context.Context, parameters Parameters) (*Vault, error) {
	config := vault.DefaultConfig()
	if config.Error != nil {
		return nil, fmt.Errorf("unable to read vault environment: %w", config.Error)
	}
	config.Address = parameters.Address
	if len(parameters.CACertBytes) > 0 {
		if err := config.ConfigureTLS(&vault.TLSConfig{
			CACertBytes: parameters.CACertBytes,
		}); err != nil {
			return nil, fmt.Errorf("unable to configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize vault client: %w", err)
	}

	return &Vault{
		client:     client,
		Parameters: parameters,
	}, nil
}

// A combination of a RoleID and a SecretID is required to log into Vault
// with AppRole authentication method.
func (v *Vault) login(ctx context.Context) (*vault.Secret, error) {
	v.mu.RLock()
	roleID := v.Parameters.ApproleRoleID
	secretID := v.Parameters.ApproleSecretID
	v.mu.RUnlock()

	appRoleAuth, err := approle.NewAppRoleAuth(
		roleID,
		&approle.SecretID{FromString: secretID},
	)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize approle authentication method: %w", err)
	}

	authInfo, err := v.client.Auth().Login(ctx, appRoleAuth)
	if err != nil {
		return nil, fmt.Errorf("unable to login using approle auth method: %w", err)
	}
	if authInfo == nil {
		return nil, errors.New("no auth info was returned after login")
	}

	return authInfo, nil
}

// Login authenticates once so secrets can be read before Run is started.
// Run keeps renewing the token obtained here instead of logging in again.
func (v *Vault) Login(ctx context.Context) error {
	token, err := v.login(ctx)
	if err != nil {
		v.setLoggedIn(false)
		return err
	}

	v.mu.Lock()
	v.pending = token
	v.isLoggedIn = true
	v.mu.Unlock()
	return nil
}

func (v *Vault) takePending() *vault.Secret {
	v.mu.Lock()
	defer v.mu.Unlock()
	token := v.pending
	v.pending = nil
	return token
}

// ReadSecret fetches the latest version of the secret stored for key.
func (v *Vault) ReadSecret(ctx context.Context, props *SecretProperties, key string) (*vault.KVSecret, error) {
	var (
		kvSecret *vault.KVSecret
		err      error
	)

	path := props.SecretPath(key)
	if props.KVVersion == 1 {
		kvSecret, err = v.client.KVv1(props.MountPath).Get(ctx, path)
	} else {
		kvSecret, err = v.client.KVv2(props.MountPath).Get(ctx, path)
	}
	if errors.Is(err, vault.ErrSecretNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrSecretMissing, props.MountPath, path)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read secret: %w", err)
	}
	return kvSecret, nil
}

// ReadCredentials returns the username and password stored for key.
func (v *Vault) ReadCredentials(ctx context.Context, props *SecretProperties, key string) (string, string, error) {
	secret, err := v.ReadSecret(ctx, props, key)
	if err != nil {
		return "", "", err
	}

	user, ok := secret.Data[props.userField()].(string)
	if !ok {
		return "", "", fmt.Errorf("%w %q", ErrMissingField, props.userField())
	}
	pass, ok := secret.Data[props.passwordField()].(string)
	if !ok {
		return "", "", fmt.Errorf("%w %q", ErrMissingField, props.passwordField())
	}
	return user, pass, nil
}

func (v *Vault) IsLoggedIn() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.isLoggedIn
}

func (v *Vault) setLoggedIn(b bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.isLoggedIn = b
}

// Run logs in and keeps the token renewed until ctx is done, logging in
// again whenever the token can no longer be renewed.
func (v *Vault) Run(ctx context.Context, wg *sync.WaitGroup) {
	log = zap.L()
	defer wg.Done()

	for {
		var err error
		token := v.takePending()
		if token == nil {
			token, err = v.login(ctx)
		}
		if err != nil {
			log.Error("unable to authenticate to vault", zap.Error(err))
			v.setLoggedIn(false)
		} else {
			v.setLoggedIn(true)
			if err := v.manageTokenLifecycle(ctx, token); err != nil {
				log.Error("unable to start managing token lifecycle", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			log.Info("stopping vault token renewal")
			return
		case <-time.After(loginRetryInterval):
		}
	}
}

// Starts token lifecycle management. Returns only fatal errors as errors,
// otherwise returns nil so we can attempt login again.
func (v *Vault) manageTokenLifecycle(ctx context.Context, token *vault.Secret) error {
	if token.Auth != nil && !token.Auth.Renewable {
		log.Info("token is not configured to be renewable. re-attempting login")
		return nil
	}

	watcher, err := v.client.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
		Secret:    token,
		Increment: token.LeaseDuration / 2,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize new lifetime watcher for renewing auth token: %w", err)
	}

	go watcher.Start()
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			v.setLoggedIn(false)
			revokeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Info("revoking token before app shutdown")
			if err := v.client.Auth().Token().RevokeSelfWithContext(revokeCtx, v.client.Token()); err != nil {
				log.Error("unable to revoke token", zap.Error(err))
			}
			return nil
		// `DoneCh` will return if renewal fails, or if the remaining lease
		// duration is under a built-in threshold and either renewing is not
		// extending it or renewing is disabled.
		case err := <-watcher.DoneCh():
			if err != nil {
				log.Error("failed to renew token. re-attempting login", zap.Error(err))
				return nil
			}
			// This occurs once the token has reached max TTL.
			log.Info("token can no longer be renewed. re-attempting login")
			return nil
		case renewal := <-watcher.RenewCh():
			v.client.SetToken(renewal.Secret.Auth.ClientToken)
			log.Debug("successfully renewed vault token", zap.Time("renewed_at", renewal.RenewedAt))
		}
	}
}
