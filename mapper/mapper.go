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
	"errors"
	"fmt"
	"strings"

	"github.com/comcast/msametrics/msa"
)

// Prefix is prepended to every array metric name.
const Prefix = "msa_"

type Label struct {
	Name  string
	Value string
}

// Point is one observation. Its identity is the name plus the label values.
type Point struct {
	Name   string
	Labels []Label
	Value  float64
}

// LabelValues returns the label values in definition order.
func (p Point) LabelValues() []string {
	vals := make([]string, len(p.Labels))
	for i, l := range p.Labels {
		vals[i] = l.Value
	}
	return vals
}

// Key identifies the time series the point belongs to.
func (p Point) Key() string {
	var b strings.Builder
	b.WriteString(p.Name)
	for _, l := range p.Labels {
		b.WriteByte(0xff)
		b.WriteString(l.Value)
	}
	return b.String()
}

// LabelSource derives one label from the first present record field.
type LabelSource struct {
	Label  string
	Fields []string
}

// Variant is one fan-out item of a definition: a source field and the values
// of the definition's ExtraLabels.
type Variant struct {
	Field  string
	Values []string
}

// Definition is one row of the metric table.
type Definition struct {
	Name     string
	Help     string
	Resource msa.Resource
	Labels   []LabelSource
	// Fields are candidate source fields, the first present one is used
	Fields []string
	Unit   Unit
	// ExtraLabels and Variants fan a record out into one point per variant
	ExtraLabels []string
	Variants    []Variant
	// When restricts the definition to matching records
	When func(msa.Record) bool
}

// LabelNames is the exact label key list of every point of this metric.
func (d Definition) LabelNames() []string {
	names := make([]string, 0, len(d.Labels)+len(d.ExtraLabels))
	for _, l := range d.Labels {
		names = append(names, l.Label)
	}
	return append(names, d.ExtraLabels...)
}

// ErrMissingLabel is reported for records lacking an identifying field.
var ErrMissingLabel = errors.New("missing identifying field")

func (d Definition) identity(rec msa.Record) ([]Label, error) {
	labels := make([]Label, 0, len(d.Labels)+len(d.ExtraLabels))
	for _, src := range d.Labels {
		_, v, ok := firstPresent(rec, src.Fields)
		if !ok {
			return nil, fmt.Errorf("%w for label %q (%s)", ErrMissingLabel, src.Label, strings.Join(src.Fields, "|"))
		}
		labels = append(labels, Label{Name: src.Label, Value: v})
	}
	return labels, nil
}

// Map converts one record of res into points. It is a pure function: the
// output order follows the definition table, then the variant order. A record
// missing an identifying field yields no points at all. Values that cannot be
// converted are skipped and reported.
func Map(res msa.Resource, rec msa.Record) ([]Point, []error) {
	return mapWith(byResource[res], res, rec)
}

func mapWith(defs []Definition, res msa.Resource, rec msa.Record) ([]Point, []error) {
	var (
		points []Point
		errs   []error
	)

	identities := make([][]Label, len(defs))
	for i, d := range defs {
		labels, err := d.identity(rec)
		if err != nil {
			return nil, []error{&msa.ParseError{Resource: res, Object: objectName(rec), Cause: err}}
		}
		identities[i] = labels
	}

	for i, d := range defs {
		if d.When != nil && !d.When(rec) {
			continue
		}

		if len(d.Variants) == 0 {
			if d.Unit == Info {
				points = append(points, Point{Name: d.Name, Labels: identities[i], Value: 1})
				continue
			}
			field, raw, ok := firstPresent(rec, d.Fields)
			if !ok {
				continue
			}
			v, err := d.Unit.Convert(raw)
			if err != nil {
				errs = append(errs, &msa.ParseError{Resource: res, Object: objectName(rec), Field: field, Cause: err})
				continue
			}
			points = append(points, Point{Name: d.Name, Labels: identities[i], Value: v})
			continue
		}

		for _, variant := range d.Variants {
			_, raw, ok := firstPresent(rec, []string{variant.Field})
			if !ok {
				continue
			}
			v, err := d.Unit.Convert(raw)
			if err != nil {
				errs = append(errs, &msa.ParseError{Resource: res, Object: objectName(rec), Field: variant.Field, Cause: err})
				continue
			}
			labels := make([]Label, len(identities[i]), len(identities[i])+len(d.ExtraLabels))
			copy(labels, identities[i])
			for j, name := range d.ExtraLabels {
				labels = append(labels, Label{Name: name, Value: variant.Values[j]})
			}
			points = append(points, Point{Name: d.Name, Labels: labels, Value: v})
		}
	}

	return points, errs
}

func firstPresent(rec msa.Record, fields []string) (string, string, bool) {
	for _, f := range fields {
		if v, ok := rec.Get(f); ok && v != "" && v != msa.NotApplicable {
			return f, v, true
		}
	}
	return "", "", false
}

func objectName(rec msa.Record) string {
	for _, f := range []string{"durable-id", "serial-number", "volume-name", "name"} {
		if v, ok := rec.Get(f); ok {
			return v
		}
	}
	v, _ := rec.Get(msa.ObjectNameField)
	return v
}
