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

// Package queue publishes job results for downstream consumers.
package queue

import (
	"context"
	"fmt"

	"github.com/tomoncle/terra/config"
)

// Queue publishes a value encoded as JSON and returns the message id.
type Queue interface {
	Publish(ctx context.Context, v interface{}) (string, error)
}

// New returns the driver named in cfg. An empty driver means memory.
func New(ctx context.Context, cfg config.QueueConfig) (Queue, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryQueue(), nil
	case "sqs":
		return NewSQSQueue(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported queue driver: %s", cfg.Driver)
	}
}
