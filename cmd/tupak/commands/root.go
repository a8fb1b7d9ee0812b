package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tupak",
	Short: "Tupak Rantina - back-office de cartera y captación",
	Long: `Tupak Rantina back-office CLI

Reporte de cartera (Tupak Score), captación de leads con verificación
de WhatsApp y acceso a la sesión del backend de autenticación.

Usage:
  go run ./cmd/tupak [command]

Examples:
  go run ./cmd/tupak report generate --input creditos.xlsx
  go run ./cmd/tupak report score --source db
  go run ./cmd/tupak api
  go run ./cmd/tupak scheduler start
  go run ./cmd/tupak lead verify 5551234567
  go run ./cmd/tupak test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
