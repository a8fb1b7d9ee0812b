package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tupakrantina/backoffice/pkg/config"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// testLoggerCmd represents the test-logger command
var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Prueba el logger estructurado",
	Long: `Muestra la salida del logger en sus dos formatos.

Este comando:
- Formato JSON (producción)
- Formato consola (desarrollo)
- Campos estructurados y de componente
- Errores con contexto

Example:
  go run ./cmd/tupak test-logger`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Tupak Rantina Logger Test ===")

	fmt.Println("1. JSON Format (Production)")
	fmt.Println("--------------------------------")
	jsonLog := logger.New(loggerConfig("production", "info", "json"))
	jsonLog.Info("Service started")
	jsonLog.Warn("Redis unavailable, caching and rate limits disabled")
	fmt.Println()

	fmt.Println("2. Console Format (Development)")
	fmt.Println("--------------------------------")
	consoleLog := logger.New(loggerConfig("development", "debug", "console"))
	consoleLog.Debug("Rasterizing page")
	consoleLog.Info("Report generation started")
	fmt.Println()

	fmt.Println("3. Structured Logging with Fields")
	fmt.Println("--------------------------------")
	jsonLog.WithComponent("cartera").
		WithFields(map[string]interface{}{
			"records": 128,
			"period":  "2024-03",
		}).
		Info("Report generation started")
	jsonLog.WithComponent("leads").WithField("whatsapp", "15551234567").Info("Lead link generated")
	fmt.Println()

	fmt.Println("4. Error Logging")
	fmt.Println("--------------------------------")
	err := errors.New("connection timeout")
	jsonLog.WithError(err).
		WithFields(map[string]interface{}{
			"retry_count": 2,
			"endpoint":    "/chat/whatsappNumbers",
		}).
		Error("WhatsApp verification failed")
	fmt.Println()

	fmt.Println("✅ All logger tests completed!")
	return nil
}

func loggerConfig(env, level, format string) *config.Config {
	cfg := &config.Config{
		Env:       env,
		LogLevel:  level,
		LogFormat: format,
	}
	cfg.Report.SystemName = "TupakRantina"
	return cfg
}
