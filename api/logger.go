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
	"time"

	"github.com/gsalomao/mqprobe/logger"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func fromLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			ev := log.Debug()
			if c.Response().Status >= 500 {
				ev = log.Warn()
			}

			addRequestFields(ev, c, time.Since(start), err).
				Msg("HTTP Request received")
			return nil
		}
	}
}

func addRequestFields(ev *zerolog.Event, c echo.Context, d time.Duration,
	err error) *zerolog.Event {

	req := c.Request()
	res := c.Response()

	id := req.Header.Get(echo.HeaderXRequestID)
	if id == "" {
		id = res.Header().Get(echo.HeaderXRequestID)
	}

	path := req.URL.Path
	if path == "" {
		path = "/"
	}

	ev = ev.
		Str("RequestID", id).
		Str("RemoteIP", c.RealIP()).
		Str("Method", req.Method).
		Str("Path", path).
		Str("Query", req.URL.RawQuery).
		Int("Status", res.Status).
		Dur("Latency", d).
		Int64("BytesOut", res.Size)

	if err != nil {
		ev = ev.Str("Error", err.Error())
	}

	return ev
}
