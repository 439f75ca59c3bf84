package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewWithWriter(&buf, "debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	Component(logger, "sim").WithField("trade_id", "t1").Debug("opened")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sim", line["component"])
	assert.Equal(t, "t1", line["trade_id"])
	assert.Equal(t, "opened", line["msg"])
}

func TestNewWithWriterErrors(t *testing.T) {
	t.Parallel()

	_, err := NewWithWriter(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)
	_, err = NewWithWriter(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestDefaultsAndDiscard(t *testing.T) {
	t.Parallel()

	logger, err := NewWithWriter(&bytes.Buffer{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	entry := Component(nil, "x")
	require.NotNil(t, entry)
	entry.Info("dropped")
}
