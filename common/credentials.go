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

package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/comcast/msametrics/msa"
	cm_vault "github.com/comcast/msametrics/vault"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	log *zap.Logger

	ErrUnknownProfile = errors.New("unknown credential profile")
)

// SecretReader reads a username and password pair, *vault.Vault is one.
type SecretReader interface {
	ReadCredentials(ctx context.Context, props *cm_vault.SecretProperties, key string) (string, string, error)
}

// VaultCredentials looks up the array credentials in vault and caches them
// until the array rejects them.
type VaultCredentials struct {
	mu     sync.Mutex
	cached *msa.Credentials

	reader SecretReader
	props  *cm_vault.SecretProperties
	target string
}

// NewVaultCredentials returns a provider for target's secret described by
// props.
func NewVaultCredentials(reader SecretReader, props *cm_vault.SecretProperties, target string) *VaultCredentials {
	return &VaultCredentials{
		reader: reader,
		props:  props,
		target: target,
	}
}

// Get implements msa.CredentialProvider.
func (c *VaultCredentials) Get(ctx context.Context) (msa.Credentials, error) {
	log = zap.L()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil {
		return *c.cached, nil
	}

	if c.reader == nil {
		return msa.Credentials{}, fmt.Errorf("vault client not configured for target %s", c.target)
	}

	user, pass, err := c.reader.ReadCredentials(ctx, c.props, c.target)
	if err != nil {
		log.Error("issue retrieving credentials from vault using target "+c.target, zap.Error(err))
		return msa.Credentials{}, fmt.Errorf("issue retrieving credentials from vault using target %s: %w", c.target, err)
	}

	c.cached = &msa.Credentials{User: user, Pass: pass}
	return *c.cached, nil
}

// Invalidate implements msa.CredentialProvider. Credentials may have
// rotated, the next Get goes back to vault.
func (c *VaultCredentials) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

// Profile is one named vault secret location.
type Profile struct {
	Name          string `yaml:"name"`
	MountPath     string `yaml:"mountPath"`
	KVVersion     int    `yaml:"kvVersion"`
	Path          string `yaml:"path"`
	SecretName    string `yaml:"secretName"`
	UserField     string `yaml:"userField"`
	PasswordField string `yaml:"passwordField"`
}

// Profiles is the credential profile file layout.
type Profiles struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads a YAML credential profile file.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read credential profiles: %w", err)
	}

	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unable to parse credential profiles %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(p.Profiles))
	for _, prof := range p.Profiles {
		if prof.Name == "" {
			return nil, fmt.Errorf("credential profile in %s has no name", path)
		}
		if prof.MountPath == "" {
			return nil, fmt.Errorf("credential profile %q has no mountPath", prof.Name)
		}
		if _, dup := seen[prof.Name]; dup {
			return nil, fmt.Errorf("credential profile %q is defined twice", prof.Name)
		}
		seen[prof.Name] = struct{}{}
	}
	return &p, nil
}

// SecretProperties returns the vault location of the named profile.
func (p *Profiles) SecretProperties(name string) (*cm_vault.SecretProperties, error) {
	for _, prof := range p.Profiles {
		if prof.Name == name {
			return &cm_vault.SecretProperties{
				MountPath:     prof.MountPath,
				KVVersion:     prof.KVVersion,
				Path:          prof.Path,
				SecretName:    prof.SecretName,
				UserField:     prof.UserField,
				PasswordField: prof.PasswordField,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownProfile, name)
}
