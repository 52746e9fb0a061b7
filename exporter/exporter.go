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

package exporter

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comcast/msametrics/mapper"
	"github.com/comcast/msametrics/msa"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/nrednav/cuid2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	// OK is the float representation of a healthy exporter or resource
	OK = 1.0
	// BAD is the float representation of a failed exporter or resource
	BAD = 0.0
	// DefaultInterval is the time between two collection cycles
	DefaultInterval = 60 * time.Second
	// logoutTimeout bounds the logout request sent on shutdown
	logoutTimeout = 5 * time.Second
)

var (
	log *zap.Logger

	newCycleID, _ = cuid2.Init(
		cuid2.WithLength(16),
	)
)

// Options configure an Exporter for one array.
type Options struct {
	// Host is the array's management address, a bare host or a base URL
	Host        string
	Credentials msa.CredentialProvider
	// Interval between cycles, it also bounds a single cycle
	Interval time.Duration
	// Concurrency is the number of resource categories fetched at once
	Concurrency int
	// Excludes removes matching resource categories from every cycle
	Excludes *regexp.Regexp
	// Client overrides the HTTP client built from the global config
	Client *retryablehttp.Client
}

// Snapshot is the complete metric set of one published cycle. It is never
// mutated after it has been published.
type Snapshot struct {
	Points    []mapper.Point
	Resources map[msa.Resource]int
	Published time.Time
}

// Exporter polls one array and serves the last published metric set. It
// implements prometheus.Collector.
type Exporter struct {
	host        string
	interval    time.Duration
	concurrency int
	resources   []msa.Resource

	sessions *msa.SessionManager
	fetcher  *msa.Fetcher

	// serializes cycles
	cycleMu sync.Mutex

	stateMu       sync.RWMutex
	state         State
	stateResource msa.Resource
	last          *CycleResult

	snapshot atomic.Pointer[Snapshot]

	descs       map[string]*prometheus.Desc
	selfMetrics *metrics
}

// NewExporter returns an initialized Exporter for an MSA array. No request is
// made until the first cycle.
func NewExporter(ctx context.Context, opts Options) (*Exporter, error) {
	log = zap.L()

	if opts.Credentials == nil {
		return nil, errors.New("no credential provider configured")
	}

	base, err := msa.BaseURL(opts.Host)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client = msa.NewHTTPClient(ctx)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	var resources []msa.Resource
	for _, res := range msa.AllResources {
		if opts.Excludes != nil && opts.Excludes.MatchString(string(res)) {
			log.Info("excluding resource from collection", zap.String("resource", string(res)), zap.String("host", base.Host))
			continue
		}
		resources = append(resources, res)
	}

	exp := &Exporter{
		host:        base.Host,
		interval:    interval,
		concurrency: opts.Concurrency,
		resources:   resources,
		sessions:    msa.NewSessionManager(base, client, opts.Credentials),
		fetcher:     msa.NewFetcher(base, client),
		descs:       newArrayDescs(),
		selfMetrics: NewExporterMetrics(),
	}
	(*exp.selfMetrics)["up"].WithLabelValues().Set(BAD)

	return exp, nil
}

// Host is the array address the exporter polls.
func (e *Exporter) Host() string {
	return e.host
}

// Resources lists the categories fetched every cycle.
func (e *Exporter) Resources() []msa.Resource {
	return e.resources
}

// Snapshot returns the last published metric set, nil before the first one.
func (e *Exporter) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Run performs a cycle immediately and then one per interval until ctx is
// done. Ticks that fire during a cycle collapse into one deferred cycle.
func (e *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
			e.sessions.Logout(logoutCtx)
			cancel()
			log.Info("collector stopped", zap.String("host", e.host))
			return
		case <-ticker.C:
			e.Cycle(ctx)
		}
	}
}

// Describe describes all the metrics ever exported by the msa exporter. It
// implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range e.descs {
		ch <- d
	}
	for _, m := range *e.selfMetrics {
		m.Describe(ch)
	}
}

// Collect delivers the last published metric set. It never talks to the
// array. It implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if snap := e.snapshot.Load(); snap != nil {
		for _, p := range snap.Points {
			desc, ok := e.descs[p.Name]
			if !ok {
				continue
			}
			m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, p.Value, p.LabelValues()...)
			if err != nil {
				log.Error("error exporting metric", zap.String("metric", p.Name), zap.String("host", e.host), zap.Error(err))
				continue
			}
			ch <- m
		}
	}

	for _, m := range *e.selfMetrics {
		m.Collect(ch)
	}
}
