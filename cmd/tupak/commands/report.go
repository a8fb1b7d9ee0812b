package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tupakrantina/backoffice/internal/cartera"
	"github.com/tupakrantina/backoffice/internal/contracts"
	"github.com/tupakrantina/backoffice/internal/ingest"
	"github.com/tupakrantina/backoffice/internal/report"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Reporte de cartera (Tupak Score)",
	Long: `Genera el reporte PDF de cartera o calcula sus indicadores.

Los créditos se leen de un archivo (JSON, CSV o XLSX), de stdin ("-")
o de la tabla creditos en Postgres (--source db).

Subcommands:
  generate  - Genera el PDF
  score     - Calcula puntajes y agregados sin generar el PDF
  profile   - Valida un perfil de pesos YAML (REPORT_SCORING_FILE)

Example:
  go run ./cmd/tupak report generate --input creditos.xlsx
  go run ./cmd/tupak report generate --source db --date 2024-03-31 --archive --email
  go run ./cmd/tupak report score --input creditos.json --json
  go run ./cmd/tupak report profile config/scoring.yaml`,
}

var (
	reportGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Genera el PDF de cartera",
		RunE:  runReportGenerate,
	}

	reportScoreCmd = &cobra.Command{
		Use:   "score",
		Short: "Calcula el Tupak Score y los agregados",
		RunE:  runReportScore,
	}
)

var (
	reportInput   string
	reportSource  string
	reportDate    string
	reportOutput  string
	reportArchive bool
	reportEmail   bool
	reportJSON    bool
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportGenerateCmd)
	reportCmd.AddCommand(reportScoreCmd)

	for _, c := range []*cobra.Command{reportGenerateCmd, reportScoreCmd} {
		c.Flags().StringVarP(&reportInput, "input", "i", "", "archivo de créditos (.json, .csv, .xlsx) o - para stdin")
		c.Flags().StringVar(&reportSource, "source", "file", "origen de los créditos (file|db)")
		c.Flags().StringVar(&reportDate, "date", "", "fecha de referencia YYYY-MM-DD (por defecto hoy)")
	}

	reportGenerateCmd.Flags().StringVarP(&reportOutput, "output", "o", ".", "directorio o archivo de salida")
	reportGenerateCmd.Flags().BoolVar(&reportArchive, "archive", false, "subir el PDF al almacenamiento S3")
	reportGenerateCmd.Flags().BoolVar(&reportEmail, "email", false, "enviar el PDF por correo")

	reportScoreCmd.Flags().BoolVar(&reportJSON, "json", false, "imprimir el agregado completo en JSON")
}

func runReportGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	ref, err := parseReferenceDate(reportDate, a.loc)
	if err != nil {
		return err
	}

	records, err := loadRecords(ctx, a)
	if err != nil {
		return err
	}

	gen, err := a.newGenerator(ctx, generatorOptions{
		delivery: reportArchive || reportEmail,
		progress: cartera.ProgressFunc(printProgress),
	})
	if err != nil {
		return err
	}

	fmt.Printf("=== Reporte de Cartera - %s %d ===\n", report.MonthName(ref.Month()), ref.Year())
	fmt.Printf("Créditos cargados: %s\n\n", humanize.Comma(int64(len(records))))

	res, err := gen.Generate(ctx, records, cartera.RunOptions{
		ReferenceDate: ref,
		Archive:       reportArchive,
		Email:         reportEmail,
	})
	if res == nil {
		return errors.New(cartera.UserMessage(err))
	}

	path := outputPath(reportOutput, res.FileName)
	if werr := os.WriteFile(path, res.PDF, 0o644); werr != nil {
		return fmt.Errorf("write %s: %w", path, werr)
	}

	fmt.Println()
	fmt.Printf("✅ %s (%d páginas, %s) en %s\n", path, res.PageCount, humanize.Bytes(uint64(len(res.PDF))), res.Elapsed.Round(time.Millisecond))
	if res.ArchiveURL != "" {
		fmt.Printf("   Archivado: %s\n", res.ArchiveURL)
	}
	if res.Emailed {
		fmt.Printf("   Enviado a: %v\n", a.cfg.Mail.Recipients)
	}

	if err != nil {
		return errors.New(cartera.UserMessage(err))
	}
	return nil
}

func runReportScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	ref, err := parseReferenceDate(reportDate, a.loc)
	if err != nil {
		return err
	}

	records, err := loadRecords(ctx, a)
	if err != nil {
		return err
	}

	gen, err := a.newGenerator(ctx, generatorOptions{})
	if err != nil {
		return err
	}

	agg, err := gen.Score(records, ref)
	if err != nil {
		return errors.New(cartera.UserMessage(err))
	}

	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(agg)
	}

	printAggregate(agg)
	return nil
}

// loadRecords reads the records from --input or, with --source db, Postgres
func loadRecords(ctx context.Context, a *app) ([]contracts.LoanRecord, error) {
	switch reportSource {
	case "db":
		repo, err := a.repository(ctx)
		if err != nil {
			return nil, err
		}
		if repo == nil {
			return nil, errors.New("DATABASE_URL is not set")
		}
		return repo.ListRecords(ctx)
	case "file", "":
		if reportInput == "" {
			return nil, errors.New("--input is required unless --source db")
		}
		return ingest.LoadFile(reportInput, ingest.Options{Location: a.loc, Logger: a.log})
	default:
		return nil, fmt.Errorf("unknown source %q (valid: file, db)", reportSource)
	}
}

func parseReferenceDate(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", v)
	}
	return t, nil
}

// outputPath treats an existing directory as the place for fileName
func outputPath(output, fileName string) string {
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, fileName)
	}
	return output
}
