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
	"strconv"
	"strings"

	"github.com/comcast/msametrics/msa"
)

var (
	portLabels       = []LabelSource{{"port", []string{"durable-id"}}}
	diskLabels       = []LabelSource{{"location", []string{"location"}}, {"serial", []string{"serial-number", "serial"}}}
	volumeLabels     = []LabelSource{{"volume", []string{"volume-name"}}}
	poolStatsLabels  = []LabelSource{{"pool", []string{"pool"}}, {"serial", []string{"serial-number"}}}
	poolLabels       = []LabelSource{{"pool", []string{"name"}}, {"serial", []string{"serial-number"}}}
	tierLabels       = []LabelSource{{"tier", []string{"tier"}}, {"pool", []string{"pool"}}, {"serial", []string{"serial-number"}}}
	enclosureLabels  = []LabelSource{{"id", []string{"enclosure-id"}}, {"wwn", []string{"enclosure-wwn"}}}
	controllerLabels = []LabelSource{{"controller", []string{"durable-id"}}}
	psuLabels        = []LabelSource{{"psu", []string{"durable-id"}}, {"serial", []string{"serial-number"}}}
	versionLabels    = []LabelSource{
		{"controller", []string{msa.ObjectNameField}},
		{"bundle_version", []string{"bundle-version"}},
		{"bundle_base_version", []string{"bundle-base-version"}},
		{"sc_fw", []string{"sc-fw"}},
		{"mc_fw", []string{"mc-fw"}},
		{"pld_rev", []string{"pld-rev"}},
	}
)

func gauge(name, help string, res msa.Resource, labels []LabelSource, unit Unit, fields ...string) Definition {
	return Definition{
		Name:     Prefix + name,
		Help:     help,
		Resource: res,
		Labels:   labels,
		Fields:   fields,
		Unit:     unit,
	}
}

func isSSD(rec msa.Record) bool {
	arch, _ := rec.Get("architecture")
	return strings.EqualFold(arch, "SSD")
}

func diskErrorVariants() []Variant {
	kinds := []struct{ kind, field string }{
		{"smart", "smart-count"},
		{"io-timeout", "io-timeout-count"},
		{"no-response", "no-response-count"},
		{"spinup-retry", "spinup-retry-count"},
		{"media-errors", "number-of-media-errors"},
		{"nonmedia-errors", "number-of-nonmedia-errors"},
		{"block-reassigns", "number-of-block-reassigns"},
		{"bad-blocks", "number-of-bad-blocks"},
	}
	var variants []Variant
	for _, k := range kinds {
		for port := 1; port <= 2; port++ {
			p := strconv.Itoa(port)
			variants = append(variants, Variant{Field: k.field + "-" + p, Values: []string{k.kind, p}})
		}
	}
	return variants
}

// Definitions is the full metric table. Order is significant: Map emits
// points in this order.
var Definitions = []Definition{
	gauge("hostport_data_read", "Data read through the host port in bytes", msa.HostPortStatistics, portLabels, Bytes, "data-read-numeric"),
	gauge("hostport_data_written", "Data written through the host port in bytes", msa.HostPortStatistics, portLabels, Bytes, "data-written-numeric"),
	gauge("hostport_avg_resp_time_read", "Read response time in microseconds", msa.HostPortStatistics, portLabels, Microseconds, "avg-read-rsp-time"),
	gauge("hostport_avg_resp_time_write", "Write response time in microseconds", msa.HostPortStatistics, portLabels, Microseconds, "avg-write-rsp-time"),
	gauge("hostport_avg_resp_time", "I/O response time in microseconds", msa.HostPortStatistics, portLabels, Microseconds, "avg-rsp-time"),
	gauge("hostport_queue_depth", "Queue depth", msa.HostPortStatistics, portLabels, Number, "queue-depth"),
	gauge("hostport_reads", "Reads", msa.HostPortStatistics, portLabels, Number, "number-of-reads"),
	gauge("hostport_writes", "Writes", msa.HostPortStatistics, portLabels, Number, "number-of-writes"),

	gauge("disk_temperature", "Disk temperature in Celsius", msa.Disks, diskLabels, Celsius, "temperature-numeric", "temperature"),
	gauge("disk_avg_resp_time", "Average I/O response time in microseconds", msa.Disks, diskLabels, Microseconds, "avg-rsp-time"),
	{
		Name:     Prefix + "disk_ssd_life_left",
		Help:     "SSD life remaining in percent",
		Resource: msa.Disks,
		Labels:   diskLabels,
		Fields:   []string{"ssd-life-left-numeric"},
		Unit:     Percent,
		When:     isSSD,
	},
	gauge("disk_health", "Disk health 0 = OK, 1 = Degraded, 2 = Fault, 3 = Unknown, 4 = N/A", msa.Disks, diskLabels, Health, "health-numeric", "health"),
	gauge("disk_iops", "Disk IOPS", msa.DiskStatistics, diskLabels, Number, "iops"),
	gauge("disk_bps", "Disk throughput in bytes per second", msa.DiskStatistics, diskLabels, Bytes, "bytes-per-second-numeric"),
	{
		Name:        Prefix + "disk_errors",
		Help:        "Disk error counters by type and disk port",
		Resource:    msa.DiskStatistics,
		Labels:      diskLabels,
		Unit:        Number,
		ExtraLabels: []string{"type", "port"},
		Variants:    diskErrorVariants(),
	},

	gauge("volume_health", "Volume health 0 = OK, 1 = Degraded, 2 = Fault, 3 = Unknown, 4 = N/A", msa.Volumes, volumeLabels, Health, "health-numeric", "health"),
	gauge("volume_size", "Volume size in bytes", msa.Volumes, volumeLabels, Blocks, "size-numeric"),
	gauge("volume_total_size", "Volume total size in bytes", msa.Volumes, volumeLabels, Blocks, "total-size-numeric"),
	gauge("volume_allocated_size", "Volume allocated size in bytes", msa.Volumes, volumeLabels, Blocks, "allocated-size-numeric"),
	gauge("volume_blocks", "Volume size in blocks", msa.Volumes, volumeLabels, Number, "blocks"),
	gauge("volume_iops", "Volume IOPS", msa.VolumeStatistics, volumeLabels, Number, "iops"),
	gauge("volume_bps", "Volume throughput in bytes per second", msa.VolumeStatistics, volumeLabels, Bytes, "bytes-per-second-numeric"),
	gauge("volume_reads", "Reads", msa.VolumeStatistics, volumeLabels, Number, "number-of-reads"),
	gauge("volume_writes", "Writes", msa.VolumeStatistics, volumeLabels, Number, "number-of-writes"),
	gauge("volume_data_read", "Data read in bytes", msa.VolumeStatistics, volumeLabels, Bytes, "data-read-numeric"),
	gauge("volume_data_written", "Data written in bytes", msa.VolumeStatistics, volumeLabels, Bytes, "data-written-numeric"),
	gauge("volume_shared_pages", "Shared pages", msa.VolumeStatistics, volumeLabels, Number, "shared-pages"),
	gauge("volume_read_hits", "Read-cache hits", msa.VolumeStatistics, volumeLabels, Number, "read-cache-hits"),
	gauge("volume_read_misses", "Read-cache misses", msa.VolumeStatistics, volumeLabels, Number, "read-cache-misses"),
	gauge("volume_write_hits", "Write-cache hits", msa.VolumeStatistics, volumeLabels, Number, "write-cache-hits"),
	gauge("volume_write_misses", "Write-cache misses", msa.VolumeStatistics, volumeLabels, Number, "write-cache-misses"),
	gauge("volume_small_destage", "Small destages", msa.VolumeStatistics, volumeLabels, Number, "small-destages"),
	gauge("volume_full_stripe_write_destages", "Full stripe write destages", msa.VolumeStatistics, volumeLabels, Number, "full-stripe-write-destages"),
	gauge("volume_read_ahead_ops", "Read-ahead operations", msa.VolumeStatistics, volumeLabels, Number, "read-ahead-operations"),
	gauge("volume_write_cache_space", "Write cache space", msa.VolumeStatistics, volumeLabels, Number, "write-cache-space"),
	gauge("volume_write_cache_percent", "Write cache usage in percent", msa.VolumeStatistics, volumeLabels, Percent, "write-cache-percent"),
	{
		Name:        Prefix + "volume_tier_distribution",
		Help:        "Percentage of the volume allocated in each tier",
		Resource:    msa.VolumeStatistics,
		Labels:      volumeLabels,
		Unit:        Percent,
		ExtraLabels: []string{"tier"},
		Variants: []Variant{
			{Field: "percent-tier-ssd", Values: []string{"Performance"}},
			{Field: "percent-tier-sas", Values: []string{"Standard"}},
			{Field: "percent-tier-sata", Values: []string{"Archive"}},
			{Field: "percent-allocated-rfc", Values: []string{"RFC"}},
		},
	},

	gauge("pool_data_read", "Data read in bytes", msa.PoolStatistics, poolStatsLabels, Bytes, "data-read-numeric"),
	gauge("pool_data_written", "Data written in bytes", msa.PoolStatistics, poolStatsLabels, Bytes, "data-written-numeric"),
	gauge("pool_avg_resp_time", "I/O response time in microseconds", msa.PoolStatistics, poolStatsLabels, Microseconds, "avg-rsp-time"),
	gauge("pool_avg_resp_time_read", "Read response time in microseconds", msa.PoolStatistics, poolStatsLabels, Microseconds, "avg-read-rsp-time"),
	gauge("pool_total_size", "Pool total size in bytes", msa.Pools, poolLabels, Blocks, "total-size-numeric"),
	gauge("pool_available_size", "Pool available size in bytes", msa.Pools, poolLabels, Blocks, "total-avail-numeric"),
	gauge("pool_snapshot_size", "Pool snapshot size in bytes", msa.Pools, poolLabels, Blocks, "snap-size-numeric"),
	gauge("pool_allocated_pages", "Allocated pages", msa.Pools, poolLabels, Number, "allocated-pages"),
	gauge("pool_available_pages", "Available pages", msa.Pools, poolLabels, Number, "available-pages"),
	gauge("pool_metadata_volume_size", "Metadata volume size in bytes", msa.Pools, poolLabels, Blocks, "metadata-vol-size-numeric"),
	gauge("pool_total_rfc_size", "Total read flash cache size in bytes", msa.Pools, poolLabels, Blocks, "total-rfc-size-numeric"),
	gauge("pool_available_rfc_size", "Available read flash cache size in bytes", msa.Pools, poolLabels, Blocks, "available-rfc-size-numeric"),
	gauge("pool_reserved_size", "Reserved size in bytes", msa.Pools, poolLabels, Blocks, "reserved-size-numeric"),
	gauge("pool_unallocated_reserved_size", "Unallocated reserved size in bytes", msa.Pools, poolLabels, Blocks, "reserved-unalloc-size-numeric"),

	gauge("tier_reads", "Reads", msa.TierStatistics, tierLabels, Number, "number-of-reads"),
	gauge("tier_writes", "Writes", msa.TierStatistics, tierLabels, Number, "number-of-writes"),
	gauge("tier_data_read", "Data read in bytes", msa.TierStatistics, tierLabels, Bytes, "data-read-numeric"),
	gauge("tier_data_written", "Data written in bytes", msa.TierStatistics, tierLabels, Bytes, "data-written-numeric"),
	gauge("tier_avg_resp_time", "I/O response time in microseconds", msa.TierStatistics, tierLabels, Microseconds, "avg-rsp-time"),
	gauge("tier_avg_resp_time_read", "Read response time in microseconds", msa.TierStatistics, tierLabels, Microseconds, "avg-read-rsp-time"),
	gauge("tier_avg_resp_time_write", "Write response time in microseconds", msa.TierStatistics, tierLabels, Microseconds, "avg-write-rsp-time"),

	gauge("enclosure_power", "Enclosure power consumption in watts", msa.Enclosures, enclosureLabels, Watts, "enclosure-power"),

	gauge("controller_cpu", "Controller CPU load in percent", msa.ControllerStatistics, controllerLabels, Percent, "cpu-load"),
	gauge("controller_iops", "Controller IOPS", msa.ControllerStatistics, controllerLabels, Number, "iops"),
	gauge("controller_bps", "Controller throughput in bytes per second", msa.ControllerStatistics, controllerLabels, Bytes, "bytes-per-second-numeric"),
	gauge("controller_read_hits", "Read-cache hits", msa.ControllerStatistics, controllerLabels, Number, "read-cache-hits"),
	gauge("controller_read_misses", "Read-cache misses", msa.ControllerStatistics, controllerLabels, Number, "read-cache-misses"),
	gauge("controller_write_hits", "Write-cache hits", msa.ControllerStatistics, controllerLabels, Number, "write-cache-hits"),
	gauge("controller_write_misses", "Write-cache misses", msa.ControllerStatistics, controllerLabels, Number, "write-cache-misses"),

	gauge("psu_health", "Power supply health 0 = OK, 1 = Degraded, 2 = Fault, 3 = Unknown, 4 = N/A", msa.PowerSupplies, psuLabels, Health, "health-numeric", "health"),
	gauge("psu_status", "Power supply status 0 = Up, 1 = Warning, 2 = Error, 3 = Not Present, 4 = Unknown, 6 = Disconnected", msa.PowerSupplies, psuLabels, PSUStatus, "status-numeric", "status"),

	gauge("system_health", "System health 0 = OK, 1 = Degraded, 2 = Fault, 3 = Unknown, 4 = N/A", msa.System, nil, Health, "health-numeric", "health"),

	gauge("version", "Controller firmware versions", msa.Versions, versionLabels, Info),
}

var (
	byResource = make(map[msa.Resource][]Definition)
	byName     = make(map[string]Definition)
)

func init() {
	for _, d := range Definitions {
		byResource[d.Resource] = append(byResource[d.Resource], d)
		byName[d.Name] = d
	}
}

// Lookup returns the definition of a metric by its full name.
func Lookup(name string) (Definition, bool) {
	d, ok := byName[name]
	return d, ok
}

// ForResource returns the definitions fed by res in table order.
func ForResource(res msa.Resource) []Definition {
	return byResource[res]
}
