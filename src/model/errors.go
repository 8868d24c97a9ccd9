/*
 * DNSMigrate Copyright 2026 The DNSMigrate Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not
 * use this file except in compliance with the License. You may obtain a copy
 * of the License at http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
 * implied. See the License for the specific language governing
 * permissions and limitations under the License.
 */

package model

import "fmt"

// ValidationError is returned when caller-supplied options are out of range. It is always returned before any work
// starts.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// CheckUnitInterval returns a ValidationError if v is outside [0, 1].
func CheckUnitInterval(field string, v float64) error {
	if v < 0 || v > 1 || v != v {
		return &ValidationError{Field: field, Value: v, Reason: "must be within [0, 1]"}
	}
	return nil
}
