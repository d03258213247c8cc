// Copyright (c) 2016-2019 Uber Technologies, Inc.
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

// Package errutil provides helpers for aggregating errors from best-effort
// operations that keep going after a failure (e.g. cleaning up several
// files even if one removal fails).
package errutil

import "strings"

// MultiError is a list of errors which implements the error interface.
type MultiError []error

// Error joins all messages in m with ", ". An empty MultiError formats to
// the empty string.
func (m MultiError) Error() string {
	msgs := make([]string, len(m))
	for i, err := range m {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ", ")
}

// Join returns errs as a single error, or nil if errs is empty.
func Join(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return MultiError(errs)
}
