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

// Package safe provides values shared between goroutines.
package safe

import "sync"

// Value holds a value of type T which can be loaded and stored concurrently.
// The zero Value holds the zero value of T and is ready to use.
type Value[T any] struct {
	mtx sync.RWMutex
	val T
	set bool
}

// Load returns the value and whether it has been stored.
func (v *Value[T]) Load() (T, bool) {
	v.mtx.RLock()
	defer v.mtx.RUnlock()
	return v.val, v.set
}

// Store replaces the value.
func (v *Value[T]) Store(val T) {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	v.val = val
	v.set = true
}
