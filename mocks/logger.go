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

package mocks

import (
	"bytes"
	"sync"

	"github.com/gsalomao/mqprobe/logger"
)

// LoggerStub is a logger which keeps every log entry in memory.
type LoggerStub struct {
	log logger.Logger
	out *syncBuffer
}

// NewLoggerStub creates a LoggerStub writing JSON entries.
func NewLoggerStub() *LoggerStub {
	out := &syncBuffer{}
	return &LoggerStub{log: logger.New(out, logger.FormatJSON), out: out}
}

// Logger returns the underlying logger in the stub.
func (l *LoggerStub) Logger() *logger.Logger {
	return &l.log
}

// String returns the string of all generated logs.
func (l *LoggerStub) String() string {
	return l.out.String()
}

type syncBuffer struct {
	buf bytes.Buffer
	mtx sync.Mutex
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.String()
}
