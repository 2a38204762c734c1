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

package mqtt

import (
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gsalomao/mqprobe/logger"
	"github.com/rs/zerolog"
)

type clientLogger struct {
	log   *logger.Logger
	level zerolog.Level
}

func (l clientLogger) Println(v ...interface{}) {
	l.write(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l clientLogger) Printf(format string, v ...interface{}) {
	l.write(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l clientLogger) write(msg string) {
	l.log.WithLevel(l.level).Msg("MQTT Client " + msg)
}

// SetClientLogger routes the internal logs of the MQTT client into log. The
// client's debug logs are written with the trace level.
//
// The MQTT client logs through package-level loggers, so this affects every
// handshake in the process.
func SetClientLogger(log *logger.Logger) {
	paho.CRITICAL = clientLogger{log: log, level: zerolog.ErrorLevel}
	paho.ERROR = clientLogger{log: log, level: zerolog.ErrorLevel}
	paho.WARN = clientLogger{log: log, level: zerolog.WarnLevel}
	paho.DEBUG = clientLogger{log: log, level: zerolog.TraceLevel}
}
