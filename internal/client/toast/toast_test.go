package toast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogToaster_LevelsFollowKind(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tt := NewLogToaster(zap.New(core))

	tt.Success("Offer sent")
	tt.Error("Offer rejected")
	tt.Info("New offer received")

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "info", entries[2].ContextMap()["kind"])
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Info("a")
	r.Info("b")
	r.Error("c")
	assert.Equal(t, 2, r.Count(KindInfo))
	assert.Equal(t, 0, r.Count(KindSuccess))
	assert.Equal(t, Toast{Kind: KindError, Message: "c"}, r.Toasts()[2])
}
