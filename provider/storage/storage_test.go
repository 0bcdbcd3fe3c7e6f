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

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/terra/config"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	failPut error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut != nil {
		return nil, f.failPut
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := NewS3StorageWithClient(client, "imports")

	require.NoError(t, store.PutObject(ctx, "", "countries.json", []byte(`[]`), "application/json"))
	assert.Equal(t, "application/json", client.types["imports/countries.json"])

	data, err := store.GetObject(ctx, "imports", "countries.json")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}

func TestS3StorageErrors(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	store := NewS3StorageWithClient(client, "imports")

	_, err := store.GetObject(ctx, "", "missing.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	client.failPut = errors.New("access denied")
	err = store.PutObject(ctx, "", "a.json", nil, "")
	assert.ErrorContains(t, err, "access denied")
	assert.NotErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	body := []byte("hello")
	require.NoError(t, store.PutObject(ctx, "b", "k", body, "text/plain"))
	body[0] = 'j'

	data, err := store.GetObject(ctx, "b", "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = store.GetObject(ctx, "other", "k")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, config.StorageConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	s, err = New(ctx, config.StorageConfig{
		Driver:       "s3",
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		AccessKey:    "key",
		SecretKey:    "secret",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)

	_, err = New(ctx, config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
