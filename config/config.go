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

package config

import (
	"sync"
	"time"
)

const (
	// DigestSHA256 is the login digest used by current MSA firmware
	DigestSHA256 = "sha256"
	// DigestMD5 is the login digest used by older MSA 2040 firmware
	DigestMD5 = "md5"
)

type Config struct {
	Scheme             string
	Timeout            time.Duration
	InsecureSkipVerify bool
	User               string
	Pass               string
	AuthDigest         string
}

var (
	config *Config
	once   sync.Once
)

func NewConfig(c *Config) {
	once.Do(func() {
		if c != nil {
			config = c
		} else {
			config = &Config{}
		}
		config.setDefaults()
	})
}

func GetConfig() *Config {
	if config != nil {
		return config
	}

	NewConfig(nil)
	return config
}

func (c *Config) setDefaults() {
	if c.Scheme == "" {
		c.Scheme = "https"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.AuthDigest == "" {
		c.AuthDigest = DigestSHA256
	}
}
