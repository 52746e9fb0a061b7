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

package msa

// Resource is one named class of array object fetched through a dedicated show command.
type Resource string

const (
	HostPortStatistics   Resource = "host-port-statistics"
	DiskStatistics       Resource = "disk-statistics"
	Disks                Resource = "disks"
	Volumes              Resource = "volumes"
	VolumeStatistics     Resource = "volume-statistics"
	Pools                Resource = "pools"
	PoolStatistics       Resource = "pool-statistics"
	TierStatistics       Resource = "tier-statistics"
	Enclosures           Resource = "enclosures"
	ControllerStatistics Resource = "controller-statistics"
	PowerSupplies        Resource = "power-supplies"
	System               Resource = "system"
	Versions             Resource = "versions"
)

type endpoint struct {
	// show command, requested as /api/show/<command>
	command string
	// OBJECT name attribute of the leaf records
	objects []string
	// nested OBJECTs whose properties are folded into the leaf record
	inline []string
}

var catalogue = map[Resource]endpoint{
	HostPortStatistics:   {command: "host-port-statistics", objects: []string{"host-port-statistics"}},
	DiskStatistics:       {command: "disk-statistics", objects: []string{"disk-statistics"}},
	Disks:                {command: "disks", objects: []string{"drive"}},
	Volumes:              {command: "volumes", objects: []string{"volume"}},
	VolumeStatistics:     {command: "volume-statistics", objects: []string{"volume-statistics"}},
	Pools:                {command: "pools", objects: []string{"pools"}},
	PoolStatistics:       {command: "pool-statistics", objects: []string{"pool-statistics"}, inline: []string{"resettable-statistics"}},
	TierStatistics:       {command: "pool-statistics", objects: []string{"tier-statistics"}, inline: []string{"resettable-statistics"}},
	Enclosures:           {command: "enclosures", objects: []string{"enclosures"}},
	ControllerStatistics: {command: "controller-statistics", objects: []string{"controller-statistics"}},
	PowerSupplies:        {command: "power-supplies", objects: []string{"power-supplies"}},
	System:               {command: "system", objects: []string{"system-information"}},
	Versions:             {command: "version", objects: []string{"controller-a-versions", "controller-b-versions"}},
}

// AllResources lists every category in the order a cycle fetches them.
var AllResources = []Resource{
	HostPortStatistics,
	DiskStatistics,
	Disks,
	Volumes,
	VolumeStatistics,
	Pools,
	PoolStatistics,
	TierStatistics,
	Enclosures,
	ControllerStatistics,
	PowerSupplies,
	System,
	Versions,
}

// Valid reports whether r is a statically known category.
func (r Resource) Valid() bool {
	_, ok := catalogue[r]
	return ok
}

// Command is the show command used to fetch r.
func (r Resource) Command() string {
	return catalogue[r].command
}

func (r Resource) selects(objectName string) bool {
	for _, o := range catalogue[r].objects {
		if o == objectName {
			return true
		}
	}
	return false
}

func (r Resource) inlines(objectName string) bool {
	for _, o := range catalogue[r].inline {
		if o == objectName {
			return true
		}
	}
	return false
}
