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

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	// NotApplicable is the marker the array uses for fields without a value.
	NotApplicable = "N/A"
	// ObjectNameField holds the OBJECT name attribute. PROPERTY names never start with '@'.
	ObjectNameField = "@name"
)

// Record is one array object flattened to PROPERTY name -> text. Fields that
// were empty or N/A are absent.
type Record map[string]string

// Get returns the value of field and whether it is present.
func (r Record) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// Response is the RESPONSE document returned by every /api call.
type Response struct {
	XMLName xml.Name `xml:"RESPONSE"`
	Request string   `xml:"REQUEST,attr"`
	Objects []Object `xml:"OBJECT"`
}

type Object struct {
	Basetype   string     `xml:"basetype,attr"`
	Name       string     `xml:"name,attr"`
	OID        string     `xml:"oid,attr"`
	Properties []Property `xml:"PROPERTY"`
	Objects    []Object   `xml:"OBJECT"`
}

type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Status is the trailing status object every response carries.
type Status struct {
	ResponseType        string
	ResponseTypeNumeric string
	Response            string
	ReturnCode          string
}

// Success reports whether the array accepted the command.
func (s Status) Success() bool {
	if s.ResponseType != "" {
		return strings.EqualFold(s.ResponseType, "Success") || strings.EqualFold(s.ResponseType, "Info")
	}
	return s.ResponseTypeNumeric == "" || s.ResponseTypeNumeric == "0" || s.ResponseTypeNumeric == "2"
}

// ParseResponse decodes an XML body. Bodies declaring a non UTF-8 encoding,
// such as the ISO-8859-1 some firmware sends, are transcoded to UTF-8.
func ParseResponse(body []byte) (*Response, error) {
	var resp Response
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("error unmarshalling response - %w", err)
	}
	return &resp, nil
}

// Status returns the first top level status object, if any.
func (r *Response) Status() (Status, bool) {
	for _, obj := range r.Objects {
		if obj.Basetype != "status" && obj.Name != "status" {
			continue
		}
		var s Status
		for _, p := range obj.Properties {
			v := strings.TrimSpace(p.Value)
			switch p.Name {
			case "response-type":
				s.ResponseType = v
			case "response-type-numeric":
				s.ResponseTypeNumeric = v
			case "response":
				s.Response = v
			case "return-code":
				s.ReturnCode = v
			}
		}
		// some firmware omit property names on the login status object
		if s.Response == "" && len(obj.Properties) > 2 {
			s.Response = strings.TrimSpace(obj.Properties[2].Value)
		}
		return s, true
	}
	return Status{}, false
}

// Records walks the object tree and returns the leaf records selected by res
// in document order. Objects that cannot be flattened are skipped and reported.
func (r *Response) Records(res Resource) ([]Record, []error) {
	var (
		records []Record
		errs    []error
	)

	var walk func(objs []Object)
	walk = func(objs []Object) {
		for _, obj := range objs {
			if res.selects(obj.Name) {
				rec, err := flatten(res, obj)
				if err != nil {
					errs = append(errs, &ParseError{Resource: res, Object: obj.Name + "/" + obj.OID, Cause: err})
				} else {
					records = append(records, rec)
				}
			}
			walk(obj.Objects)
		}
	}
	walk(r.Objects)

	return records, errs
}

func flatten(res Resource, obj Object) (Record, error) {
	if len(obj.Properties) == 0 {
		return nil, errors.New("object has no properties")
	}

	rec := make(Record, len(obj.Properties)+1)
	rec[ObjectNameField] = obj.Name

	seen := make(map[string]struct{}, len(obj.Properties))
	for _, p := range obj.Properties {
		if p.Name == "" {
			return nil, errors.New("property without a name")
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate property %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		setField(rec, p)
	}

	// nested statistics only fill fields the object itself does not carry
	for _, child := range obj.Objects {
		if !res.inlines(child.Name) {
			continue
		}
		for _, p := range child.Properties {
			if _, own := seen[p.Name]; own || p.Name == "" {
				continue
			}
			if _, ok := rec[p.Name]; ok {
				continue
			}
			setField(rec, p)
		}
	}
	return rec, nil
}

func setField(rec Record, p Property) {
	v := strings.TrimSpace(p.Value)
	if v == "" || v == NotApplicable {
		return
	}
	rec[p.Name] = v
}
