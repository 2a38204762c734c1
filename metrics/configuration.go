// Copyright 2023 The MQProbe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import "github.com/gsalomao/mqprobe/config"

// Configuration represents the configuration used to export the metrics.
type Configuration struct {
	// TCP address (<IP>:<port>) where the Prometheus metrics are exported.
	Address string

	// The path where the metrics are exported.
	Path string

	// Indicates whether the profiling endpoints under /debug/pprof are also
	// exported.
	Profiling bool
}

// NewConfiguration creates the metrics configuration from the application
// configuration.
func NewConfiguration(c config.Config) Configuration {
	return Configuration{
		Address:   c.MetricsAddress,
		Path:      c.MetricsPath,
		Profiling: c.MetricsProfiling,
	}
}
