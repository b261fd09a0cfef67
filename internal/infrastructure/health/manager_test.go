package health

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthManager_Aggregation(t *testing.T) {
	hm := NewHealthManager(nil)

	assert.True(t, hm.IsHealthy(), "empty health manager should be healthy")

	hm.Register("comp1", func() error { return nil })
	assert.True(t, hm.IsHealthy())

	hm.Register("comp2", func() error { return fmt.Errorf("failed") })
	assert.False(t, hm.IsHealthy())

	status := hm.GetStatus()
	assert.Equal(t, "Healthy", status["comp1"])
	assert.Equal(t, "Unhealthy: failed", status["comp2"])
	assert.Equal(t, []string{"comp1", "comp2"}, hm.Components())
}

func TestHealthManager_Ready(t *testing.T) {
	hm := NewHealthManager(nil)
	assert.False(t, hm.Ready(), "not ready before startup completes")

	hm.SetReady(true)
	assert.True(t, hm.Ready())

	hm.Register("runner.ETHUSDT", func() error { return fmt.Errorf("stopped") })
	assert.False(t, hm.Ready())
}
