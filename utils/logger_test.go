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

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerIsRegistered(t *testing.T) {
	a := NewLogger("REGISTRY")
	b := NewLogger("REGISTRY")
	assert.Same(t, a, b)

	assert.True(t, SetLoggerLevel("REGISTRY", "warn"))
	assert.Equal(t, logrus.WarnLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("NOPE", "warn"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("bogus"))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	ConfigureOutput(&buf)
	t.Cleanup(func() { ConfigureOutput(os.Stdout) })

	l := NewLogger("JSONTEST")
	l.SetFormatter(&JSONLogFormatter{LoggerName: "JSONTEST"})
	l.SetLevel(logrus.InfoLevel)
	l.WithFields(logrus.Fields{"status_code": 201, "req_uri": "/x", "op": "create"}).
		WithError(errors.New("boom")).
		Info("done")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "done", rec["message"])
	assert.Equal(t, "JSONTEST", rec["model"])
	assert.Equal(t, "/x", rec["path"])
	assert.EqualValues(t, 201, rec["status_code"])
	fields := rec["fields"].(map[string]any)
	assert.Equal(t, "create", fields["op"])
	assert.Equal(t, "boom", fields["error"])
}

func TestTextFormatterIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	ConfigureOutput(&buf)
	t.Cleanup(func() { ConfigureOutput(os.Stdout) })

	l := NewLogger("TEXTTEST")
	l.SetFormatter(&Log4jColorFormatter{LoggerName: "TEXTTEST", NameWidth: 10, CallerWidth: 20})
	l.SetLevel(logrus.InfoLevel)
	l.WithField("op", "delete").Info("hello")

	out := buf.String()
	assert.Contains(t, out, "TEXTTEST")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "op")
	assert.Contains(t, out, "delete")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("TERRA_TEST_BOOL", "yes-ish")
	assert.True(t, EnvDefaultBool("TERRA_TEST_BOOL", true))
	t.Setenv("TERRA_TEST_BOOL", "false")
	assert.False(t, EnvDefaultBool("TERRA_TEST_BOOL", true))
	assert.Equal(t, "x", EnvDefaultString("TERRA_TEST_UNSET", "x"))
}
