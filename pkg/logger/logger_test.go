package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"loud", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.in, "text", nil).GetLevel())
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "JSON", &buf)

	Component(log, "engine").WithField("rule_id", "jump").Warn("fault")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "jump", entry["rule_id"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "fault", entry["msg"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New("info", "text", &buf).Info("ready")
	assert.Contains(t, buf.String(), "msg=ready")
}

func TestDiscard(t *testing.T) {
	e := Discard()
	e.Error("dropped")
	assert.Equal(t, logrus.PanicLevel, e.Logger.GetLevel())
}
