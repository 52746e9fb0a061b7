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
	"github.com/comcast/msametrics/mapper"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics map[string]*prometheus.GaugeVec

func newServerMetric(metricName string, docString string, constLabels prometheus.Labels, labelNames []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        metricName,
			Help:        docString,
			ConstLabels: constLabels,
		},
		labelNames,
	)
}

// NewExporterMetrics returns the gauges describing the exporter's own cycles.
func NewExporterMetrics() *metrics {
	return &metrics{
		"up":            newServerMetric("msa_exporter_up", "was the last collection cycle against the array successful.", nil, []string{}),
		"resourceUp":    newServerMetric("msa_exporter_resource_up", "was the resource category fetched in the last cycle 1 = OK, 0 = BAD", nil, []string{"resource"}),
		"cycleDuration": newServerMetric("msa_exporter_cycle_duration_seconds", "Duration of the last collection cycle in seconds", nil, []string{}),
		"lastCycle":     newServerMetric("msa_exporter_last_cycle_timestamp_seconds", "Unix time the current metric set was published", nil, []string{}),
		"points":        newServerMetric("msa_exporter_points", "Number of points published per resource category", nil, []string{"resource"}),
	}
}

// newArrayDescs builds one descriptor per row of the metric table.
func newArrayDescs() map[string]*prometheus.Desc {
	descs := make(map[string]*prometheus.Desc, len(mapper.Definitions))
	for _, d := range mapper.Definitions {
		descs[d.Name] = prometheus.NewDesc(d.Name, d.Help, d.LabelNames(), nil)
	}
	return descs
}
