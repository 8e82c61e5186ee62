// Copyright 2025 The Mufassir Authors
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

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mufassir",
		Name:      "queries_total",
		Help:      "Total queries processed by the orchestrator.",
	})

	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mufassir",
		Name:      "query_failures_total",
		Help:      "Query failures by pipeline stage.",
	}, []string{"stage"})
)
