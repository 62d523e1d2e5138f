package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"observatorio-backend/cmd/observatorio/commands"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/lib/util/serviceutil"

	"github.com/joho/godotenv"
)

func main() {
	// a .env may carry the OTEL_* exporter settings
	_ = godotenv.Load()

	telemetry.InitSlog(false)
	ctx := serviceutil.SignalContext()

	otel, err := telemetry.SetupFromEnv(ctx, "observatorio")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if shutdownErr := otel.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Warn("telemetry shutdown", "err", shutdownErr)
	}
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
