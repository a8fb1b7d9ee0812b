package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tupakrantina/backoffice/internal/api"
	"github.com/tupakrantina/backoffice/internal/api/handlers"
	"github.com/tupakrantina/backoffice/internal/auth"
	"github.com/tupakrantina/backoffice/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Inicia el servidor API",
	Long: `Inicia el servidor REST del back-office.

Endpoints:
  GET  /health                      - Health check
  POST /api/leads                   - Registro de lead (público)
  POST /api/whatsapp/verify         - Verificación de WhatsApp (público)
  POST /api/reports/cartera         - Genera el PDF (token requerido)
  GET  /api/reports/cartera/score   - Puntajes y agregados (token requerido)
  GET  /api/reports/cartera/last    - Último reporte del mes (token requerido)
  GET  /api/reports/cartera/status  - Reporte en curso (token requerido)
  GET  /ws/reports/progress         - Progreso por websocket (token requerido)

Example:
  go run ./cmd/tupak api
  go run ./cmd/tupak api --port 9090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Tupak Rantina API Server ===")

	ctx := cmd.Context()

	// 1. Config, logger, Redis
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	// 2. Token verification
	verifier, err := auth.NewVerifier(a.cfg.Auth.JWTSecret)
	if err != nil {
		log.WithError(err).Warn("Report routes disabled until SUPABASE_JWT_SECRET is set")
	}

	// 3. Records from Postgres when configured
	repo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	var source handlers.RecordSource
	if repo != nil {
		source = repo
		log.Info("Connected to database")
	}

	// 4. Report pipeline with websocket progress
	hub := handlers.NewProgressHub(log.WithComponent("progress"))
	defer hub.Close()

	gen, err := a.newGenerator(ctx, generatorOptions{delivery: true, progress: hub})
	if err != nil {
		return err
	}

	// 5. Router and server
	router := api.NewRouter(api.Handlers{
		Report:   handlers.NewReportHandler(gen, source, redis.NewCache(a.redis, "tupak"), a.loc, log.WithComponent("reports")),
		Leads:    handlers.NewLeadHandler(a.newLeadService(), log.WithComponent("leads")),
		Progress: hub,
	}, verifier, log)

	server := api.New(":"+a.cfg.Port, router, log)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(runCtx)
}
