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
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Unit_Convert(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		name     string
		unit     Unit
		raw      string
		expected float64
		err      bool
	}{
		{name: "number", unit: Number, raw: "42", expected: 42},
		{name: "number with spaces", unit: Number, raw: " 7 ", expected: 7},
		{name: "number garbage", unit: Number, raw: "abc", err: true},
		{name: "number NaN", unit: Number, raw: "NaN", err: true},
		{name: "bytes numeric", unit: Bytes, raw: "1024", expected: 1024},
		{name: "bytes human", unit: Bytes, raw: "1.5KB", expected: 1500},
		{name: "bytes human with space", unit: Bytes, raw: "2 MB", expected: 2000000},
		{name: "bytes garbage", unit: Bytes, raw: "lots", err: true},
		{name: "blocks", unit: Blocks, raw: "10", expected: 5120},
		{name: "blocks human", unit: Blocks, raw: "1GB", expected: 1000000000},
		{name: "percent", unit: Percent, raw: "87%", expected: 87},
		{name: "celsius", unit: Celsius, raw: "35 C", expected: 35},
		{name: "watts", unit: Watts, raw: "164.50", expected: 164.5},
		{name: "microseconds", unit: Microseconds, raw: "2051", expected: 2051},
		{name: "health numeric", unit: Health, raw: "1", expected: 1},
		{name: "health name", unit: Health, raw: "Fault", expected: 2},
		{name: "health N/A", unit: Health, raw: "n/a", expected: 4},
		{name: "health out of domain", unit: Health, raw: "7", err: true},
		{name: "health unknown name", unit: Health, raw: "Smoking", err: true},
		{name: "psu not present", unit: PSUStatus, raw: "Not Present", expected: 3},
		{name: "psu disconnected code", unit: PSUStatus, raw: "6", expected: 6},
		{name: "psu code 5 is unused", unit: PSUStatus, raw: "5", err: true},
		{name: "info", unit: Info, raw: "anything", expected: 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := test.unit.Convert(test.raw)
			if test.err {
				assert.NotNil(err)
				return
			}
			assert.Nil(err)
			assert.Equal(test.expected, v)
		})
	}
}

func Test_Unit_String(t *testing.T) {
	assert.Equal(t, "bytes", Blocks.String())
	assert.Equal(t, "health", Health.String())
	assert.Equal(t, "unknown", Unit(99).String())
}
