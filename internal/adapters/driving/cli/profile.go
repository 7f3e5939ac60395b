package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

var (
	profileProtocol  string
	profileURL       string
	profileAuth      string
	profileUsername  string
	profileUserAgent string
	profileVersion   string
	profileTokenURL  string
	profileClientID  string
	profileScopes    []string
	profileTimeout   int
	profileRateLimit float64
	profileJSON      bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved connection profiles",
}

var profileAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Save a connection profile",
	Long: `Saves a connection profile to profiles.toml and prompts for its secrets,
which are stored in the OS keychain.

Examples:
  mlsq profile add crmls --protocol rets --url https://rets.example.com/login \
    --username agent --user-agent MyApp/1.0

  mlsq profile add bridge --protocol reso --url https://api.example.com/odata \
    --auth token`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileAdd,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a profile and its secrets",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileRemove,
}

func init() {
	f := profileAddCmd.Flags()
	f.StringVar(&profileProtocol, "protocol", "rets", "server protocol: rets or reso")
	f.StringVar(&profileURL, "url", "", "RETS login URL or RESO service root")
	f.StringVar(&profileAuth, "auth", "", "auth method: basic, oauth or token (default basic for RETS, oauth for RESO)")
	f.StringVarP(&profileUsername, "username", "u", "", "login username")
	f.StringVar(&profileUserAgent, "user-agent", "", "RETS user agent")
	f.StringVar(&profileVersion, "rets-version", "", "RETS version header, e.g. RETS/1.7.2")
	f.StringVar(&profileTokenURL, "token-url", "", "OAuth2 token endpoint")
	f.StringVar(&profileClientID, "client-id", "", "OAuth2 client ID")
	f.StringSliceVar(&profileScopes, "scope", nil, "OAuth2 scope (repeatable)")
	f.IntVar(&profileTimeout, "timeout", 0, "request timeout in seconds")
	f.Float64Var(&profileRateLimit, "rate-limit", 0, "maximum requests per second")
	_ = profileAddCmd.MarkFlagRequired("url")

	profileListCmd.Flags().BoolVar(&profileJSON, "json", false, "output profiles as JSON")

	profileCmd.AddCommand(profileAddCmd, profileListCmd, profileShowCmd, profileRemoveCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	protocol, err := domain.ParseProtocolKind(profileProtocol)
	if err != nil {
		return err
	}
	auth := domain.ParseAuthMethod(profileAuth)
	if profileAuth == "" {
		auth = domain.AuthMethodBasic
		if protocol == domain.ProtocolRESO {
			auth = domain.AuthMethodOAuth
		}
	}

	profile := domain.Profile{
		Name:           args[0],
		Protocol:       protocol,
		BaseURL:        profileURL,
		Auth:           auth,
		Username:       profileUsername,
		UserAgent:      profileUserAgent,
		Version:        profileVersion,
		TokenURL:       profileTokenURL,
		ClientID:       profileClientID,
		Scopes:         profileScopes,
		TimeoutSeconds: profileTimeout,
		RateLimit:      profileRateLimit,
	}
	if err := profile.Validate(); err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	secrets := make(map[domain.SecretKind]string)
	for _, kind := range profile.SecretKinds() {
		if kind == domain.SecretUserAgentPassword && profile.UserAgent == "" {
			continue
		}
		cmd.Print(secretPrompt(kind))
		value, err := readSecret(cmd, reader)
		cmd.Println()
		if err != nil {
			return fmt.Errorf("reading %s: %w", kind, err)
		}
		secrets[kind] = value
	}

	saved, err := profileService.Add(cmd.Context(), profile, secrets)
	if err != nil {
		return err
	}
	cmd.Printf("Profile %s saved (%s, %s auth).\n", saved.Name, saved.Protocol.DisplayName(), saved.Auth)
	return nil
}

func runProfileList(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	profiles, err := profileService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}
	if profileJSON {
		return printJSON(cmd, profiles)
	}
	if len(profiles) == 0 {
		cmd.Println("No profiles saved. Add one with 'mlsq profile add'.")
		return nil
	}

	rows := make([][]string, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		status := "ready"
		missing, err := profileService.MissingSecrets(cmd.Context(), p.ID)
		if err != nil {
			status = "unknown"
		} else if len(missing) > 0 {
			status = "missing " + joinKinds(missing)
		}
		rows[i] = []string{p.Name, p.Protocol.DisplayName(), string(p.Auth), p.BaseURL, status}
	}
	cmd.Println(renderTable([]string{"NAME", "PROTOCOL", "AUTH", "URL", "SECRETS"}, rows))
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	p, err := profileService.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render(p.Name))
	cmd.Printf("  ID:        %s\n", p.ID)
	cmd.Printf("  Protocol:  %s\n", p.Protocol.DisplayName())
	cmd.Printf("  URL:       %s\n", p.BaseURL)
	cmd.Printf("  Auth:      %s\n", p.Auth)
	printOptional(cmd, "Username", p.Username)
	printOptional(cmd, "UserAgent", p.UserAgent)
	printOptional(cmd, "Version", p.Version)
	printOptional(cmd, "TokenURL", p.TokenURL)
	printOptional(cmd, "ClientID", p.ClientID)
	printOptional(cmd, "Scopes", strings.Join(p.Scopes, " "))
	if p.TimeoutSeconds > 0 {
		printOptional(cmd, "Timeout", strconv.Itoa(p.TimeoutSeconds)+"s")
	}
	if p.RateLimit > 0 {
		printOptional(cmd, "RateLimit", strconv.FormatFloat(p.RateLimit, 'f', -1, 64)+"/s")
	}

	missing, err := profileService.MissingSecrets(cmd.Context(), p.ID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		cmd.Println(warningStyle.Render("  Missing secrets: " + joinKinds(missing)))
	}
	return nil
}

func runProfileRemove(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if err := profileService.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Profile %s removed.\n", args[0])
	return nil
}

func printOptional(cmd *cobra.Command, label, value string) {
	if value == "" {
		return
	}
	cmd.Printf("  %-10s %s\n", label+":", value)
}

func secretPrompt(kind domain.SecretKind) string {
	switch kind {
	case domain.SecretPassword:
		return "Password: "
	case domain.SecretUserAgentPassword:
		return "User agent password (empty for none): "
	case domain.SecretClientSecret:
		return "Client secret: "
	case domain.SecretAccessToken:
		return "Access token: "
	default:
		return string(kind) + ": "
	}
}

// readSecret reads one line without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func joinKinds(kinds []domain.SecretKind) string {
	s := make([]string, len(kinds))
	for i, k := range kinds {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
