package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p-blackswan/audit-intake/internal/audit"
)

func TestPainScore(t *testing.T) {
	p := audit.PainPoints{
		ManualTasks: "Manual data entry is manual and repetitive",
		Bottlenecks: "waiting on approval, approval delays",
		DataSilos:   "disconnected and separate tools",
		Budget:      "asap",
		Timeline:    "1 month",
	}
	assert.Equal(t, 74, PainScore(p))
}

func TestPainScore_Caps(t *testing.T) {
	p := audit.PainPoints{
		ManualTasks: "manual manual manual manual manual manual manual",
		Bottlenecks: "stuck stuck stuck stuck stuck stuck",
		DataSilos:   "silo silo silo silo silo silo",
		Budget:      "urgent",
		Timeline:    "immediately",
	}
	assert.Equal(t, 100, PainScore(p))
	assert.Equal(t, 0, PainScore(audit.PainPoints{}))
}

func TestCategories(t *testing.T) {
	p := audit.PainPoints{
		ManualTasks: "copy data into reports",
		Bottlenecks: "customer tickets pile up",
		DataSilos:   "CRM does not sync",
	}
	assert.Equal(t, []string{"ops_automation", "support", "analytics", "integration"}, Categories(p))
	assert.Empty(t, Categories(audit.PainPoints{}))
}

func TestEstimatedValue(t *testing.T) {
	assert.Equal(t, 40800.0, EstimatedValue(twoOpps()))
	assert.Zero(t, EstimatedValue(nil))
}
