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

package pool

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/comcast/msametrics/msa"
	"github.com/stretchr/testify/assert"
)

func Test_Pool_Run(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		name        string
		concurrency int
		maxInFlight int32
	}{
		{name: "sequential", concurrency: 1, maxInFlight: 1},
		{name: "zero means sequential", concurrency: 0, maxInFlight: 1},
		{name: "concurrent", concurrency: 3, maxInFlight: 3},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var inFlight, peak atomic.Int32
			var tasks []*Task
			for _, res := range msa.AllResources {
				res := res
				tasks = append(tasks, NewTask(res, func() (msa.Result, error) {
					n := inFlight.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					inFlight.Add(-1)
					if res == msa.Pools {
						return msa.Result{Resource: res}, errors.New("boom")
					}
					return msa.Result{Resource: res, Records: []msa.Record{{"name": string(res)}}}, nil
				}))
			}

			p := NewPool(tasks, test.concurrency)
			p.Run()

			assert.LessOrEqual(peak.Load(), test.maxInFlight)
			for _, task := range p.Tasks {
				if task.Resource == msa.Pools {
					assert.NotNil(task.Err)
					continue
				}
				assert.Nil(task.Err)
				assert.Equal(task.Resource, task.Result.Resource)
				assert.Len(task.Result.Records, 1)
			}
		})
	}
}

func Test_Pool_Empty(t *testing.T) {
	p := NewPool(nil, 4)
	p.Run()
	assert.Empty(t, p.Tasks)
}
