package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/klinvest/broker-etrade/cmd/etrade/internal/auth"
	"github.com/klinvest/broker-etrade/cmd/etrade/internal/output"
	"github.com/klinvest/broker-etrade/pkg/etrade"
	"github.com/klinvest/broker-etrade/pkg/oauth1"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Authorize API access with E*TRADE, check token status, logout.",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize API access",
	Long: `Run the E*TRADE OAuth authorization.

A request token is obtained and the authorization page is printed.
Approve access in your browser and paste the verification code back.
Tokens expire at midnight US Eastern time.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear stored tokens",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE:  runStatus,
}

var verifierFlag string

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	loginCmd.Flags().StringVar(&verifierFlag, "verifier", "", "verification code (skips the prompt)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	consumerKey := viper.GetString("consumer_key")
	if consumerKey == "" {
		var err error
		consumerKey, err = prompt("Consumer key: ")
		if err != nil {
			return err
		}
	}

	consumerSecret := viper.GetString("consumer_secret")
	if consumerSecret == "" {
		var err error
		consumerSecret, err = promptSecret("Consumer secret: ")
		if err != nil {
			return err
		}
	}

	if consumerKey == "" || consumerSecret == "" {
		output.Error("Consumer key and secret are required")
		return nil
	}

	flow := oauth1.NewFlow(consumerKey, consumerSecret, oauth1.OutOfBand,
		etrade.OAuthEndpointFor(viper.GetString("base_url")), nil)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	rt, err := flow.RequestToken(ctx)
	if err != nil {
		output.Error("Could not obtain request token: " + err.Error())
		return nil
	}

	output.Header("Authorize API access")
	fmt.Println()
	fmt.Println("Open this page, log in, and approve access:")
	fmt.Println()
	fmt.Println("  " + flow.AuthorizeURL(rt.Token))
	fmt.Println()

	verifier := verifierFlag
	if verifier == "" {
		verifier, err = prompt("Verification code: ")
		if err != nil {
			return err
		}
	}

	ctx, cancel = context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	creds, err := flow.AccessToken(ctx, rt, verifier)
	if err != nil {
		output.Error("Authorization failed: " + err.Error())
		return nil
	}

	now := time.Now()
	sandbox := isSandbox()
	tokens := &auth.StoredTokens{
		OAuthToken:       creds.Token,
		OAuthTokenSecret: creds.TokenSecret,
		Sandbox:          sandbox,
		IssuedAt:         now,
		ExpiresAt:        auth.NextExpiry(now),
	}
	if err := auth.Save(tokens); err != nil {
		output.Warning("Could not save tokens: " + err.Error())
	}

	fmt.Println()
	output.Success("Authorized for the " + environment(sandbox) + " environment")
	output.Info("Tokens expire " + tokens.ExpiresAt.Local().Format("Mon Jan 2 15:04 MST"))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := auth.Clear(); err != nil {
		output.Error("Failed to clear tokens: " + err.Error())
		return nil
	}
	output.Success("Logged out")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	tokens, err := auth.Load()
	if err != nil {
		output.Error("Could not read tokens: " + err.Error())
		return nil
	}

	state := "unauthenticated"
	if tokens != nil && !tokens.Expired(time.Now()) {
		state = "authenticated"
	}

	if getFormat() == "json" {
		status := map[string]any{
			"state":        state,
			"consumer_key": viper.GetString("consumer_key") != "",
		}
		if tokens != nil {
			status["environment"] = environment(tokens.Sandbox)
			status["expires_at"] = tokens.ExpiresAt
		}
		return output.JSON(status)
	}

	output.Header("Authentication Status")
	fmt.Println()

	if tokens == nil {
		output.Warning("Not logged in")
		output.Info("Run 'etrade auth login' to authorize")
		return nil
	}

	pairs := [][]string{
		{"State", output.FormatStatus(state)},
		{"Environment", environment(tokens.Sandbox)},
		{"Issued", tokens.IssuedAt.Local().Format("Jan 2 15:04")},
		{"Expires", tokens.ExpiresAt.Local().Format("Jan 2 15:04")},
	}
	output.KeyValue(pairs)

	if state != "authenticated" {
		fmt.Println()
		output.Warning("Tokens expired. Run 'etrade auth login' again.")
	}
	return nil
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(label string) (string, error) {
	fmt.Print(label)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}

// requireAuth builds a signed client from config and stored tokens
func requireAuth() (*etrade.Client, error) {
	tokens, err := auth.Load()
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("not logged in. Run 'etrade auth login' first")
	}
	if tokens.Expired(time.Now()) {
		return nil, fmt.Errorf("tokens expired. Run 'etrade auth login' again")
	}

	consumerKey := viper.GetString("consumer_key")
	consumerSecret := viper.GetString("consumer_secret")
	if consumerKey == "" || consumerSecret == "" {
		return nil, fmt.Errorf("consumer key and secret are not configured. Run 'etrade config set'")
	}

	return etrade.NewClient(&etrade.Config{
		Credentials: tokens.Credentials(consumerKey, consumerSecret),
		Sandbox:     tokens.Sandbox,
		BaseURL:     viper.GetString("base_url"),
	}), nil
}
