package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tupakrantina/backoffice/internal/cartera"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Prueba la conexión a PostgreSQL",
	Long: `Prueba la conexión a la base de datos y muestra estadísticas.

Este comando:
- Carga DATABASE_URL desde la configuración
- Crea el pool de conexiones y hace ping
- Ejecuta el health check
- Cuenta los registros de la tabla creditos

Example:
  go run ./cmd/tupak test-db
  go run ./cmd/tupak test-db --env production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Tupak Rantina Database Connection Test ===")

	fmt.Println("Loading configuration...")
	a, err := newApp(cmd.Context())
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	defer a.close()
	fmt.Printf("✅ Config loaded (ENV: %s)\n", a.cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(a.cfg.Database.URL))

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	fmt.Println("Connecting to database...")
	db, err := a.database(ctx)
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	fmt.Println("✅ Database connection established")

	fmt.Println("Getting health status...")
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Timestamp: %v\n\n", status.Timestamp.Format(time.RFC3339))

	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Acquired Connections: %d\n", status.Stats.AcquiredConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)
	fmt.Printf("   Acquire Count: %d\n\n", status.Stats.AcquireCount)

	count, err := cartera.NewRepository(db.Pool, a.loc, a.log.Zerolog()).Count(ctx)
	if err != nil {
		return fmt.Errorf("❌ Failed to count creditos: %w", err)
	}
	fmt.Printf("📄 creditos: %s registros\n", humanize.Comma(int64(count)))

	fmt.Println("\n✅ All tests passed!")
	return nil
}
