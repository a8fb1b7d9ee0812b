package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tupakrantina/backoffice/internal/scoreconfig"
)

var reportProfileCmd = &cobra.Command{
	Use:   "profile [file]",
	Short: "Valida un perfil de pesos y muestra su hash",
	Long: `Carga un perfil YAML de pesos del ICE y cortes de nivel, lo valida
y muestra el hash que se registra en cada generación.

Sin argumento muestra el perfil integrado.

Example:
  go run ./cmd/tupak report profile
  go run ./cmd/tupak report profile config/scoring.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReportProfile,
}

func init() {
	reportCmd.AddCommand(reportProfileCmd)
}

func runReportProfile(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	}

	profile, err := scoreconfig.LoadOrDefault(path)
	if err != nil {
		return err
	}
	hash, err := scoreconfig.Hash(profile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := profile.WeightsPct
	fmt.Fprintf(out, "Perfil:  %s (v%s)\n", profile.Meta.ProfileID, profile.Meta.Version)
	if profile.Meta.Description != "" {
		fmt.Fprintf(out, "         %s\n", profile.Meta.Description)
	}
	fmt.Fprintf(out, "Pesos:   monto %d%%, plazo %d%%, retorno %d%%, tasa %d%%\n", w.Amount, w.Term, w.Return, w.Rate)
	fmt.Fprintf(out, "Cortes:  %v\n", profile.TierCutoffs)
	fmt.Fprintf(out, "Hash:    %s\n", hash)

	for _, warn := range scoreconfig.Warn(profile) {
		fmt.Fprintf(out, "⚠️  %s: %s\n", warn.Code, warn.Message)
	}
	return nil
}
