package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tupakrantina/backoffice/internal/leads"
)

// leadCmd represents the lead command
var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Captación de leads",
	Long: `Verifica números de WhatsApp y registra leads desde la terminal,
con las mismas validaciones que el formulario web.

Example:
  go run ./cmd/tupak lead verify 5551234567
  go run ./cmd/tupak lead submit --nombre "Juan Carlos Pérez" --cedula 1712345678 --whatsapp 5551234567`,
}

var (
	leadVerifyCmd = &cobra.Command{
		Use:   "verify [number]",
		Short: "Verifica si un número tiene WhatsApp",
		Args:  cobra.ExactArgs(1),
		RunE:  runLeadVerify,
	}

	leadSubmitCmd = &cobra.Command{
		Use:   "submit",
		Short: "Registra un lead y muestra el enlace generado",
		RunE:  runLeadSubmit,
	}
)

var leadForm leads.Form

func init() {
	rootCmd.AddCommand(leadCmd)
	leadCmd.AddCommand(leadVerifyCmd)
	leadCmd.AddCommand(leadSubmitCmd)

	leadSubmitCmd.Flags().StringVar(&leadForm.Nombre, "nombre", "", "nombres y apellidos (mínimo 3 palabras)")
	leadSubmitCmd.Flags().StringVar(&leadForm.Cedula, "cedula", "", "cédula de 10 dígitos")
	leadSubmitCmd.Flags().StringVar(&leadForm.WhatsApp, "whatsapp", "", "número de WhatsApp")
}

func runLeadVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.newLeadService().VerifyNumber(ctx, args[0], "")
	if errors.Is(err, leads.ErrNumberNotFound) {
		fmt.Printf("❌ %s: %s\n", res.Number, err)
		return nil
	}
	if err != nil {
		return printLeadError(err)
	}

	fmt.Printf("✅ %s tiene WhatsApp (%s)\n", res.Number, res.JID)
	return nil
}

func runLeadSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	link, err := a.newLeadService().Submit(ctx, leadForm, "")
	if err != nil {
		return printLeadError(err)
	}

	fmt.Println("✅ Enlace generado:")
	fmt.Println(link)
	return nil
}

// printLeadError lists every invalid field before returning the error
func printLeadError(err error) error {
	var verr *leads.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			fmt.Printf("  %-9s %s\n", f.Field+":", f.Message)
		}
	}
	return err
}
