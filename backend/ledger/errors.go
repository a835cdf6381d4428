// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import "errors"

// Every engine error wraps exactly one of these. Callers test with errors.Is.
var (
	// ErrValidation reports malformed or out-of-range input.
	ErrValidation = errors.New("validation error")
	// ErrConflict reports a duplicate active number or position.
	ErrConflict = errors.New("conflict")
	// ErrNotFound reports a player or record id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence reports a durable store failure.
	ErrPersistence = errors.New("persistence error")
)
