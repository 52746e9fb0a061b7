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

package main

import "github.com/comcast/msametrics/exporter"

type indexAppData struct {
	Build  interface{}
	Status exporter.Status
}

const indexTmpl string = `<html>
  <head>
    <title>MSA Exporter</title>
    <style>
      .links, .build-info {
        display: flex;
      }
      h3, p {
        padding-right: 1em;
      }
      td, th {
        padding: 0.2em 1em;
        text-align: left;
      }
      .error-text {
        color: red;
        font-style: oblique;
      }
    </style>
  </head>
  <body>
    <h1>MSA Exporter</h1>
    <div class="build-info">
      <p><b>build date:</b> {{ .Build.Date }}</p>
      <p><b>revision:</b> {{ .Build.GitRevision }}</p>
      <p><b>version:</b> {{ .Build.GitVersion }}</p>
    </div>
    <div class="links">
      <h3><a href="metrics">Metrics</a></h3>
      <h3><a href="status">Status</a></h3>
      <h3><a href="info">Build Info</a></h3>
    </div>
    <h2>{{ .Status.Host }}</h2>
    <p><b>state:</b> {{ .Status.State }} {{ with .Status.Resource }}({{ . }}){{ end }}</p>
    <p><b>logins:</b> {{ .Status.Logins }}</p>
    {{ with .Status.Published }}<p><b>last published:</b> {{ . }}</p>{{ else }}<p>no metric set published yet</p>{{ end }}
    {{ with .Status.LastCycle }}
    <h3>Last cycle {{ .ID }}</h3>
    {{ with .Error }}<p class="error-text">{{ . }}</p>{{ end }}
    <table>
      <tr><th>resource</th><th>records</th><th>points</th><th>warnings</th><th>retried</th><th>seconds</th><th>error</th></tr>
      {{ range .Resources }}
      <tr>
        <td>{{ .Resource }}</td>
        <td>{{ .Records }}</td>
        <td>{{ .Points }}</td>
        <td>{{ .Warnings }}</td>
        <td>{{ .Retried }}</td>
        <td>{{ printf "%.3f" .Seconds }}</td>
        <td class="error-text">{{ .Error }}</td>
      </tr>
      {{ end }}
    </table>
    {{ end }}
  </body>
</html>
`
