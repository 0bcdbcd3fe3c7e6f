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

package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/terra/config"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSQueuePublish(t *testing.T) {
	client := &fakeSQS{}
	q := NewSQSQueueWithClient(client, "https://sqs.example/1/jobs")

	id, err := q.Publish(context.Background(), map[string]interface{}{"ids": []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "https://sqs.example/1/jobs", aws.ToString(client.inputs[0].QueueUrl))
	assert.JSONEq(t, `{"ids":[1,2]}`, aws.ToString(client.inputs[0].MessageBody))
}

func TestSQSQueueErrors(t *testing.T) {
	q := NewSQSQueueWithClient(&fakeSQS{err: errors.New("throttled")}, "u")
	_, err := q.Publish(context.Background(), 1)
	assert.ErrorContains(t, err, "throttled")

	_, err = q.Publish(context.Background(), make(chan int))
	assert.ErrorContains(t, err, "encode message")
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue()
	id1, err := q.Publish(context.Background(), "a")
	require.NoError(t, err)
	id2, err := q.Publish(context.Background(), "b")
	require.NoError(t, err)

	msgs := q.Messages()
	require.Len(t, msgs, 2)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, `"a"`, string(msgs[0].Body))
	assert.Equal(t, id2, msgs[1].ID)
}

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()

	q, err := New(ctx, config.QueueConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)

	q, err = New(ctx, config.QueueConfig{Driver: "sqs", Region: "us-east-1", QueueURL: "http://localhost:4566/000000000000/jobs", Endpoint: "http://localhost:4566"})
	require.NoError(t, err)
	assert.IsType(t, &SQSQueue{}, q)

	_, err = New(ctx, config.QueueConfig{Driver: "sqs"})
	assert.Error(t, err)

	_, err = New(ctx, config.QueueConfig{Driver: "kafka"})
	assert.Error(t, err)
}
