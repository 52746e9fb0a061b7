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

package pool

import (
	"sync"
	"time"

	"github.com/comcast/msametrics/msa"
)

// Task encapsulates the fetch of one resource category
type Task struct {
	Resource msa.Resource

	// Result and Err are only meaningful after Run has been called
	// for the pool that holds it.
	Result   msa.Result
	Err      error
	Duration time.Duration

	f func() (msa.Result, error)
}

// NewTask initializes a new task based on a given fetch function.
func NewTask(res msa.Resource, f func() (msa.Result, error)) *Task {
	return &Task{Resource: res, f: f}
}

// Run runs a Task and does appropriate accounting via a
// given sync.WorkGroup.
func (t *Task) Run(wg *sync.WaitGroup) {
	defer wg.Done()
	start := time.Now()
	t.Result, t.Err = t.f()
	t.Duration = time.Since(start)
}
