package cli

import (
	"time"

	"github.com/valter-silva-au/mustdo/internal/core"
	"github.com/valter-silva-au/mustdo/internal/observability"
)

// Service instances, set during app initialization in app.go.
var (
	Engine       *core.Engine
	ScanInterval = 60 * time.Second
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
