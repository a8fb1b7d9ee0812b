package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tupakrantina/backoffice/internal/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sesión con el backend de autenticación",
	Long: `Inicia o cierra sesión y muestra el usuario actual.

La sesión se guarda en el directorio de configuración del usuario y se
renueva automáticamente cuando está por expirar.

Example:
  go run ./cmd/tupak auth login --email gerencia@tupakrantina.com
  go run ./cmd/tupak auth whoami
  go run ./cmd/tupak auth token
  go run ./cmd/tupak auth logout`,
}

var (
	authLoginCmd = &cobra.Command{
		Use:   "login",
		Short: "Inicia sesión con correo y contraseña",
		RunE:  runAuthLogin,
	}

	authWhoamiCmd = &cobra.Command{
		Use:   "whoami",
		Short: "Muestra el usuario de la sesión",
		RunE:  runAuthWhoami,
	}

	authTokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Imprime un access token vigente (para llamar a la API)",
		RunE:  runAuthToken,
	}

	authLogoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Cierra la sesión",
		RunE:  runAuthLogout,
	}
)

var (
	authEmail string
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authWhoamiCmd)
	authCmd.AddCommand(authTokenCmd)
	authCmd.AddCommand(authLogoutCmd)

	authLoginCmd.Flags().StringVar(&authEmail, "email", "", "correo del usuario")
	authLoginCmd.MarkFlagRequired("email")
}

// sessionPath is where the CLI keeps the session between runs
func sessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tupak", "session.json"), nil
}

func saveSession(s *auth.Session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if s == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func loadSession() (*auth.Session, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, auth.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var s auth.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	return &s, nil
}

// newCoordinator restores the saved session and persists every change
func newCoordinator(a *app) (*auth.Coordinator, error) {
	client := auth.NewClient(a.cfg.Auth.URL, a.cfg.Auth.AnonKey, a.log)
	coord := auth.NewCoordinator(client, a.log.Zerolog())

	s, err := loadSession()
	switch {
	case err == nil:
		coord.Restore(s)
	case !errors.Is(err, auth.ErrNoSession):
		return nil, err
	}

	coord.OnAuthStateChange(func(event auth.Event, s *auth.Session) {
		if err := saveSession(s); err != nil {
			a.log.WithError(err).WithField("event", string(event)).Warn("Failed to persist session")
		}
	})
	return coord, nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	coord, err := newCoordinator(a)
	if err != nil {
		return err
	}

	fmt.Print("Contraseña: ")
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && password == "" {
		return fmt.Errorf("read password: %w", err)
	}

	s, err := coord.SignIn(ctx, strings.TrimSpace(authEmail), strings.TrimRight(password, "\r\n"))
	if err != nil {
		return err
	}

	fmt.Printf("✅ Sesión iniciada: %s\n", auth.DisplayName(s.User, ""))
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	coord, err := newCoordinator(a)
	if err != nil {
		return err
	}

	s, err := coord.GetSession(ctx)
	if err != nil {
		return err
	}

	u := coord.CurrentUser()
	if u == nil {
		u = &auth.User{}
	}
	fmt.Printf("Usuario : %s\n", auth.DisplayName(u, ""))
	fmt.Printf("Correo  : %s\n", u.Email)
	if u.Role != "" {
		fmt.Printf("Rol     : %s\n", u.Role)
	}
	fmt.Printf("Expira  : %s (%s)\n", s.Expiry().Format(time.RFC3339), humanize.Time(s.Expiry()))
	return nil
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	coord, err := newCoordinator(a)
	if err != nil {
		return err
	}

	s, err := coord.GetSession(ctx)
	if err != nil {
		return err
	}
	fmt.Println(s.AccessToken)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	coord, err := newCoordinator(a)
	if err != nil {
		return err
	}

	if err := coord.SignOut(ctx); err != nil {
		// the local session is gone either way
		a.log.WithError(err).Warn("Remote sign-out failed")
	}
	fmt.Println("✅ Sesión cerrada")
	return nil
}
