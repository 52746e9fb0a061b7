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

package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// Unit is the fixed conversion applied to every value of a metric.
type Unit int

const (
	// Number is a plain count or ratio
	Number Unit = iota
	// Bytes accepts raw bytes or a human readable size such as "599.5GB"
	Bytes
	// Blocks is a count of 512-byte blocks exported as bytes
	Blocks
	// Percent is 0 - 100, a trailing '%' is ignored
	Percent
	// Celsius accepts "35" or "35 C"
	Celsius
	Watts
	Microseconds
	// Health maps the health enum, see healthCodes
	Health
	// PSUStatus maps the power supply status enum, see psuStatusCodes
	PSUStatus
	// Info always exports 1, the information is carried by the labels
	Info
)

// BlockSize is the sector size the array reports capacities in.
const BlockSize = 512

var unitNames = map[Unit]string{
	Number:       "number",
	Bytes:        "bytes",
	Blocks:       "bytes",
	Percent:      "percent",
	Celsius:      "celsius",
	Watts:        "watts",
	Microseconds: "microseconds",
	Health:       "health",
	PSUStatus:    "status",
	Info:         "info",
}

func (u Unit) String() string {
	if n, ok := unitNames[u]; ok {
		return n
	}
	return "unknown"
}

// Convert normalizes a raw field value to the unit's base scale.
func (u Unit) Convert(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)

	switch u {
	case Info:
		return 1, nil
	case Health:
		return lookupEnum(raw, healthCodes)
	case PSUStatus:
		return lookupEnum(raw, psuStatusCodes)
	case Bytes:
		if v, err := parseFloat(raw); err == nil {
			return v, nil
		}
		return humanSize(raw)
	case Blocks:
		if v, err := parseFloat(raw); err == nil {
			return v * BlockSize, nil
		}
		return humanSize(raw)
	case Percent:
		return parseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "%")))
	case Celsius:
		return parseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "C")))
	case Watts:
		return parseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "W")))
	default:
		return parseFloat(raw)
	}
}

func parseFloat(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func humanSize(raw string) (float64, error) {
	size, err := units.FromHumanSize(strings.ReplaceAll(raw, " ", ""))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	return float64(size), nil
}

// Health codes as documented for the array's health-numeric fields.
var healthCodes = map[string]float64{
	"ok":       0,
	"degraded": 1,
	"fault":    2,
	"unknown":  3,
	"n/a":      4,
}

// Power supply status codes as documented for status-numeric.
var psuStatusCodes = map[string]float64{
	"up":           0,
	"warning":      1,
	"error":        2,
	"not present":  3,
	"unknown":      4,
	"disconnected": 6,
}

// lookupEnum accepts either the numeric code or its name. Anything outside
// the documented domain is an error rather than a guess.
func lookupEnum(raw string, codes map[string]float64) (float64, error) {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		for _, c := range codes {
			if c == v {
				return v, nil
			}
		}
		return 0, fmt.Errorf("unrecognized status code %q", raw)
	}
	if v, ok := codes[strings.ToLower(raw)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unrecognized status %q", raw)
}
