package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Release(t *testing.T) {
	t.Setenv("GIN_MODE", "release")

	var buf bytes.Buffer
	l := New(&buf, "")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())

	l.WithField("module", "checkout").Info("order confirmed")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "checkout", entry["module"])
	assert.Equal(t, "order confirmed", entry["msg"])
}

func TestNew_Level(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")

	assert.Equal(t, logrus.DebugLevel, New(&bytes.Buffer{}, "").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New(&bytes.Buffer{}, "warn").GetLevel())
	assert.Equal(t, logrus.DebugLevel, New(&bytes.Buffer{}, "loud").GetLevel())
}
