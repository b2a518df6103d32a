package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput("debug", false, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.Level)

	logger.WithField("project", "group/app").Info("listing issues")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "listing issues", entry["msg"])
	assert.Equal(t, "group/app", entry["project"])
}

func TestNewDeveloperText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput("info", true, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
}
