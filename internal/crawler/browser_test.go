package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/peto/internal/common"
)

func TestApplyStealth_FailureIsNonFatal(t *testing.T) {
	s := NewSession(testConfig(), common.GetLogger())

	// A plain context was not created by chromedp, so the injection fails
	// without a browser. The session must shrug it off.
	assert.NotPanics(t, func() {
		s.applyStealth(context.Background())
	})
}

func TestInjectStealthScript_ErrorsOutsideBrowserContext(t *testing.T) {
	err := InjectStealthScript(context.Background())
	assert.Error(t, err)
}

func TestRandomMouseMove_SmallViewport(t *testing.T) {
	// Coordinate ranges must stay valid even when the window is tiny
	assert.NotPanics(t, func() {
		RandomMouseMove(context.Background(), 100, 100)
		RandomMouseMove(context.Background(), 0, 0)
	})
}

func TestRandomSleep_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	randomSleep(ctx, time.Minute, 2*time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}
