package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixWriter(t *testing.T) {
	testCases := []struct {
		name   string
		writes []string
		want   string
	}{
		{"single line", []string{"hello\n"}, "🧱 hello\n"},
		{"two lines in one write", []string{"a\nb\n"}, "🧱 a\n🧱 b\n"},
		{"split line", []string{"hel", "lo\n"}, "🧱 hello\n"},
		{"trailing partial held back", []string{"a\npart"}, "🧱 a\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			pw := NewPrefixWriter(LinePrefix, &out)
			for _, w := range tc.writes {
				n, err := pw.Write([]byte(w))
				require.NoError(t, err)
				assert.Equal(t, len(w), n)
			}
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestPrefixWriterFlush(t *testing.T) {
	var out bytes.Buffer
	pw := NewPrefixWriter("> ", &out)
	_, err := pw.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, pw.Flush())
	assert.Equal(t, "> partial", out.String())
	require.NoError(t, pw.Flush())
	assert.Equal(t, "> partial", out.String())
}

func TestNewLoggerText(t *testing.T) {
	t.Setenv(EnvJSONLog, "")

	var out bytes.Buffer
	logger := NewLogger("dxm-test", "debug", &out)
	logger.Debug("🔍 probing", "key", "value")
	logger.Trace("hidden")

	line := out.String()
	assert.True(t, strings.HasPrefix(line, LinePrefix), line)
	assert.Contains(t, line, "probing")
	assert.Contains(t, line, "key=value")
	assert.NotContains(t, line, "hidden")
}

func TestNewLoggerJSON(t *testing.T) {
	testCases := []struct {
		name  string
		env   string
		level string
	}{
		{"json level prefix", "", "json:info"},
		{"json env", "1", "info"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvJSONLog, tc.env)

			var out bytes.Buffer
			NewLogger("dxm-test", tc.level, &out).Info("built", "size", 3)

			var rec map[string]any
			require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
			assert.Equal(t, "built", rec["@message"])
			assert.Equal(t, "dxm-test", rec["@module"])
		})
	}
}

func TestResolveLevel(t *testing.T) {
	testCases := []struct {
		name       string
		flag       string
		verbose    bool
		env        string
		config     string
		wantLevel  string
		wantSource string
	}{
		{"flag wins", "trace", true, "warn", "error", "trace", "flag"},
		{"verbose over env", "", true, "warn", "error", "debug", "verbose"},
		{"env over config", "", false, "warn", "error", "warn", "env"},
		{"config", "", false, "", "error", "error", "config"},
		{"default", "", false, "", "", DefaultLevel, "default"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvLogLevel, tc.env)
			level, source := ResolveLevel(tc.flag, tc.verbose, tc.config)
			assert.Equal(t, tc.wantLevel, level)
			assert.Equal(t, tc.wantSource, source)
		})
	}
}

func TestParseLevel(t *testing.T) {
	jsonFormat, level := ParseLevel("json:debug")
	assert.True(t, jsonFormat)
	assert.Equal(t, "debug", level)

	jsonFormat, level = ParseLevel("warn")
	assert.False(t, jsonFormat)
	assert.Equal(t, "warn", level)
}
