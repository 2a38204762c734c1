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

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gsalomao/mqprobe/bootstrap"
	"github.com/gsalomao/mqprobe/probe"
	"github.com/labstack/echo/v4"
)

// Prober is responsible for running probes.
type Prober interface {
	// Run performs one probe with the given options.
	Run(ctx context.Context, o probe.Options) (probe.Report, error)
}

type probeHandler struct {
	prober Prober
	opts   probe.Options
}

// AddProbeRoutes registers the probe route. Every request runs one probe
// using the given options. The query parameter mqtt overrides whether the
// MQTT handshake is performed.
func (s *HTTPServer) AddProbeRoutes(p Prober, o probe.Options) {
	h := probeHandler{prober: p, opts: o}
	s.RouteV1.GET("/probe", h.handle)
}

func (h probeHandler) handle(c echo.Context) error {
	o := h.opts

	if q := c.QueryParam("mqtt"); q != "" {
		enabled, err := strconv.ParseBool(q)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest,
				"invalid mqtt parameter")
		}
		o.MQTT = enabled
	}

	r, err := h.prober.Run(c.Request().Context(), o)
	return c.JSON(statusOf(err), r)
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var cfgErr *bootstrap.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusInternalServerError
	}

	return http.StatusBadGateway
}
