package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"profilesync/pkg/auth"
	"profilesync/pkg/ui"
)

var loginSiteURL string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage profile site credentials",
	Long: `Manage the profile site login used by 'profilesync sync'.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables PROFILESYNC_SITE_USERNAME and PROFILESYNC_SITE_PASSWORD`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store profile site credentials securely",
	Example: `  # Interactive login
  profilesync auth login

  # Login with username and site
  profilesync auth login alice --site https://profiles.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().StringVar(&loginSiteURL, "site", "", "profile site base URL stored with the account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	credManager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	username := ""
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	} else {
		fmt.Fprint(ui.Output, "Site username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return errors.New("username is required")
	}

	if _, err := credManager.Retrieve(username); err == nil {
		fmt.Fprintf(ui.Output, "Account '%s' already exists. Update credentials? (y/N): ", username)
		answer, _ := reader.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			ui.PrintWarning("Login cancelled")
			return nil
		}
	}

	fmt.Fprint(ui.Output, "Site password: ")
	password, err := readSecret(reader)
	fmt.Fprintln(ui.Output)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return errors.New("password is required")
	}

	account := &auth.Account{
		Username: username,
		Password: password,
		SiteURL:  loginSiteURL,
	}
	if err := credManager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", username))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	credManager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := credManager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Removed credentials for %s", args[0]))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	credManager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := credManager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts. Run 'profilesync auth login' to add one.")
		return nil
	}

	for _, account := range accounts {
		masked := auth.SanitizeAccount(account)
		ui.PrintInfo(masked.Username, fmt.Sprintf("password %s, site %s, saved %s",
			masked.Password, orDash(masked.SiteURL), masked.LastModified.Format(time.DateTime)))
	}
	return nil
}

// readSecret reads without echo from a terminal and falls back to a plain line
func readSecret(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
