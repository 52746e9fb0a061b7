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

package exporter

import (
	"context"
	"time"

	"github.com/comcast/msametrics/mapper"
	"github.com/comcast/msametrics/msa"
	"github.com/comcast/msametrics/pool"
	"go.uber.org/zap"
)

// State of the collector within a cycle.
type State int

const (
	Idle State = iota
	Authenticating
	Fetching
	Mapping
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Fetching:
		return "fetching"
	case Mapping:
		return "mapping"
	default:
		return "idle"
	}
}

// ResourceOutcome summarizes one resource category of a cycle.
type ResourceOutcome struct {
	Resource msa.Resource `json:"resource"`
	Records  int          `json:"records"`
	Points   int          `json:"points"`
	Warnings int          `json:"warnings"`
	Retried  bool         `json:"retried"`
	Seconds  float64      `json:"duration_seconds"`
	Err      error        `json:"-"`
	Error    string       `json:"error,omitempty"`
}

// CycleResult summarizes one poll-fetch-map-publish pass.
type CycleResult struct {
	ID            string            `json:"id"`
	Started       time.Time         `json:"started"`
	Seconds       float64           `json:"duration_seconds"`
	Authenticated bool              `json:"authenticated"`
	Published     bool              `json:"published"`
	Points        int               `json:"points"`
	Duplicates    int               `json:"duplicates"`
	Resources     []ResourceOutcome `json:"resources"`
	Err           error             `json:"-"`
	Error         string            `json:"error,omitempty"`
}

// Succeeded counts the categories fetched without error.
func (r *CycleResult) Succeeded() int {
	n := 0
	for _, o := range r.Resources {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Status is the collector's current state and its last finished cycle.
type Status struct {
	Host      string         `json:"host"`
	State     string         `json:"state"`
	Resource  msa.Resource   `json:"resource,omitempty"`
	Logins    int64          `json:"logins"`
	LastCycle *CycleResult   `json:"last_cycle,omitempty"`
	Published *time.Time     `json:"published,omitempty"`
	Points    map[string]int `json:"points,omitempty"`
}

// Status reports what the collector is doing.
func (e *Exporter) Status() Status {
	e.stateMu.RLock()
	st := Status{
		Host:      e.host,
		State:     e.state.String(),
		Resource:  e.stateResource,
		Logins:    e.sessions.Logins(),
		LastCycle: e.last,
	}
	e.stateMu.RUnlock()

	if snap := e.snapshot.Load(); snap != nil {
		published := snap.Published
		st.Published = &published
		st.Points = make(map[string]int, len(snap.Resources))
		for res, n := range snap.Resources {
			st.Points[string(res)] = n
		}
	}
	return st
}

func (e *Exporter) setState(s State, res msa.Resource, cycleID string) {
	e.stateMu.Lock()
	e.state = s
	e.stateResource = res
	e.stateMu.Unlock()

	log.Debug("collector state changed",
		zap.String("state", s.String()),
		zap.String("resource", string(res)),
		zap.String("host", e.host),
		zap.String("cycle_id", cycleID),
	)
}

// Cycle runs one complete cycle and publishes its metric set if the array
// could be reached. Cycles never overlap.
func (e *Exporter) Cycle(ctx context.Context) *CycleResult {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	result := &CycleResult{ID: newCycleID(), Started: time.Now()}
	defer func() {
		result.Seconds = time.Since(result.Started).Seconds()
		if result.Err != nil {
			result.Error = result.Err.Error()
		}
		(*e.selfMetrics)["cycleDuration"].WithLabelValues().Set(result.Seconds)
		e.setState(Idle, "", result.ID)
		e.stateMu.Lock()
		e.last = result
		e.stateMu.Unlock()
	}()

	cycleCtx, cancel := context.WithTimeout(ctx, e.interval)
	defer cancel()

	e.setState(Authenticating, "", result.ID)
	if _, err := e.sessions.Ensure(cycleCtx); err != nil {
		result.Err = err
		(*e.selfMetrics)["up"].WithLabelValues().Set(BAD)
		log.Error("error logging in to array, keeping previous metric set", zap.Error(err), zap.String("host", e.host), zap.String("cycle_id", result.ID))
		return result
	}
	result.Authenticated = true

	outcomes := make([]ResourceOutcome, len(e.resources))
	tasks := make([]*pool.Task, len(e.resources))
	for i, res := range e.resources {
		outcomes[i].Resource = res
		tasks[i] = pool.NewTask(res, e.fetchTask(cycleCtx, res, &outcomes[i], result.ID))
	}
	pool.NewPool(tasks, e.concurrency).Run()

	snap := &Snapshot{Resources: make(map[msa.Resource]int, len(tasks))}
	seen := make(map[string]struct{})

	for i, task := range tasks {
		outcome := &outcomes[i]
		outcome.Seconds = task.Duration.Seconds()
		outcome.Warnings += len(task.Result.Warnings)
		for _, w := range task.Result.Warnings {
			log.Warn("skipped malformed object", zap.Error(w), zap.String("host", e.host), zap.String("cycle_id", result.ID))
		}

		if task.Err != nil {
			outcome.Err = task.Err
			outcome.Error = task.Err.Error()
			(*e.selfMetrics)["resourceUp"].WithLabelValues(string(task.Resource)).Set(BAD)
			log.Warn("skipping resource for this cycle", zap.Error(task.Err), zap.String("resource", string(task.Resource)), zap.String("host", e.host), zap.String("cycle_id", result.ID))
			continue
		}
		(*e.selfMetrics)["resourceUp"].WithLabelValues(string(task.Resource)).Set(OK)

		e.setState(Mapping, task.Resource, result.ID)
		outcome.Records = len(task.Result.Records)
		for _, rec := range task.Result.Records {
			points, errs := mapper.Map(task.Resource, rec)
			outcome.Warnings += len(errs)
			for _, err := range errs {
				log.Warn("skipped value", zap.Error(err), zap.String("host", e.host), zap.String("cycle_id", result.ID))
			}
			for _, p := range points {
				key := p.Key()
				if _, dup := seen[key]; dup {
					result.Duplicates++
					log.Warn("dropping duplicate point", zap.String("metric", p.Name), zap.Strings("labels", p.LabelValues()), zap.String("host", e.host), zap.String("cycle_id", result.ID))
					continue
				}
				seen[key] = struct{}{}
				snap.Points = append(snap.Points, p)
				outcome.Points++
			}
		}
		snap.Resources[task.Resource] = outcome.Points
	}
	result.Resources = outcomes
	result.Points = len(snap.Points)

	if ctx.Err() != nil {
		log.Info("cycle interrupted by shutdown, not publishing", zap.String("host", e.host), zap.String("cycle_id", result.ID))
		return result
	}

	if result.Succeeded() == 0 && len(e.resources) > 0 {
		(*e.selfMetrics)["up"].WithLabelValues().Set(BAD)
		log.Error("no resource could be fetched, keeping previous metric set", zap.String("host", e.host), zap.String("cycle_id", result.ID))
		return result
	}

	snap.Published = time.Now()
	e.snapshot.Store(snap)
	result.Published = true

	for _, o := range outcomes {
		(*e.selfMetrics)["points"].WithLabelValues(string(o.Resource)).Set(float64(snap.Resources[o.Resource]))
	}
	(*e.selfMetrics)["lastCycle"].WithLabelValues().Set(float64(snap.Published.Unix()))
	(*e.selfMetrics)["up"].WithLabelValues().Set(OK)

	log.Info("published metric set",
		zap.Int("points", result.Points),
		zap.Int("resources_ok", result.Succeeded()),
		zap.Int("resources", len(outcomes)),
		zap.String("host", e.host),
		zap.String("cycle_id", result.ID),
		zap.Float64("elapsed_time_sec", time.Since(result.Started).Seconds()),
	)
	return result
}

// fetchTask fetches res with the current session and, if the array rejects
// it, re-authenticates and retries exactly once.
func (e *Exporter) fetchTask(ctx context.Context, res msa.Resource, outcome *ResourceOutcome, cycleID string) func() (msa.Result, error) {
	return func() (msa.Result, error) {
		s, err := e.sessions.Ensure(ctx)
		if err != nil {
			return msa.Result{Resource: res}, &msa.FetchError{Resource: res, Cause: err}
		}

		e.setState(Fetching, res, cycleID)
		result, err := e.fetcher.Fetch(ctx, res, s)
		if err == nil || !msa.IsSessionRejected(err) {
			return result, err
		}

		log.Info("session rejected, logging in again", zap.String("resource", string(res)), zap.String("host", e.host), zap.String("cycle_id", cycleID))
		outcome.Retried = true

		e.setState(Authenticating, res, cycleID)
		fresh, authErr := e.sessions.Renew(ctx, s)
		if authErr != nil {
			return result, &msa.FetchError{Resource: res, Cause: authErr}
		}

		e.setState(Fetching, res, cycleID)
		return e.fetcher.Fetch(ctx, res, fresh)
	}
}
