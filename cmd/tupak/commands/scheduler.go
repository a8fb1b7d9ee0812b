package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tupakrantina/backoffice/internal/scheduler"
	"github.com/tupakrantina/backoffice/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Gestión del programador de tareas",
	Long: `Inicia el programador o gestiona sus tareas.

Subcommands:
  start   - Inicia el programador
  list    - Tareas registradas
  run     - Ejecuta una tarea ahora y espera el resultado

Registered jobs:
  monthly_cartera_report  - $REPORT_SCHEDULE (por defecto 07:00 del día 1),
                            reporte del mes anterior archivado y enviado
  health_check            - cada 5 minutos (Postgres y Redis)

Example:
  go run ./cmd/tupak scheduler start
  go run ./cmd/tupak scheduler list
  go run ./cmd/tupak scheduler run monthly_cartera_report`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Inicia el programador (Ctrl+C para detener)",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "Tareas registradas",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Ejecuta una tarea inmediatamente",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Tupak Rantina Scheduler ===")

	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobStats(sched)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()
	defer sched.Stop()

	printJobStats(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, sched, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Printf("Running job: %s\n", jobName)

	res, err := sched.RunJobNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !res.Success {
		return fmt.Errorf("job %s failed after %d attempt(s): %s", jobName, res.Attempts, res.Error)
	}
	fmt.Printf("✅ Job %s completed in %s\n", jobName, res.Duration)
	return nil
}

func printJobStats(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		if stat.NextRun != nil {
			fmt.Printf("   Next Run: %s\n", stat.NextRun.Format("2006-01-02 15:04:05 MST"))
		}
	}
	fmt.Println()
}

func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	db, err := a.database(ctx)
	if err != nil {
		a.close()
		return nil, nil, err
	}

	gen, err := a.newGenerator(ctx, generatorOptions{delivery: true})
	if err != nil {
		a.close()
		return nil, nil, err
	}

	sched := scheduler.New(a.log.WithComponent("scheduler"), scheduler.WithLocation(a.loc))

	repo, err := a.repository(ctx)
	if err != nil {
		a.close()
		return nil, nil, err
	}

	reportJob := jobs.NewCarteraReportJob(repo, gen, a.cfg.Report.Schedule, a.loc, a.log.WithComponent("report_job"))
	healthJob := jobs.NewHealthCheckJob(map[string]jobs.Pinger{
		"postgres": db,
		"redis":    a.redis,
	}, a.log.WithComponent("health"))

	if err := errors.Join(sched.AddJob(reportJob), sched.AddJob(healthJob)); err != nil {
		a.close()
		return nil, nil, err
	}

	return a, sched, nil
}
