/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package manager orchestrates batch create, update and delete operations.
//
// A CommandManager runs every batch through the same pipeline:
//
//	validate (static rules, then store checks, then custom hooks)
//	map payloads to entities
//	persist inside one transaction, running the post hooks on that transaction
//
// Validation failures are returned as indexed error records and nothing is
// written. Unexpected failures are returned in ManagerResponse.Err; managers
// never panic once constructed.
package manager
