package router

import (
	"log"

	"github.com/Pranavsr23/PetalPost/internal/capsule"
	"github.com/Pranavsr23/PetalPost/internal/engagement"
	"github.com/Pranavsr23/PetalPost/internal/handlers"
	"github.com/Pranavsr23/PetalPost/internal/middleware"
	"github.com/Pranavsr23/PetalPost/internal/notify"
	"github.com/Pranavsr23/PetalPost/internal/reactor"
	"github.com/Pranavsr23/PetalPost/internal/store"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes wires the engagement pipeline onto the Echo instance and
// returns the sweeper so main can drive it on a schedule when no external
// invoker is configured.
func SetupRoutes(e *echo.Echo, st store.Store, sender notify.Sender, hookSecret string) *capsule.Sweeper {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Build the engagement pipeline ---
	ledger := engagement.NewLedger(st)
	fanout := notify.NewFanout(st, sender)
	noteReactor := reactor.New(st, ledger, fanout)
	sweeper := capsule.NewSweeper(st, fanout)

	// --- Webhook routes (shared-secret guarded) ---
	hooks := e.Group("/hooks")
	hooks.Use(middleware.HookAuthMiddleware(hookSecret))
	eventHandler := handlers.NewEventHandler(noteReactor, sweeper)
	eventHandler.RegisterEventRoutes(hooks)
	log.Println("Event hook routes configured.")

	return sweeper
}
