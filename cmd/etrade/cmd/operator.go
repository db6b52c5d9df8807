package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/klinvest/broker-etrade/cmd/etrade/internal/output"
	"github.com/klinvest/broker-etrade/pkg/auth"
)

var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Operator access to the adapter service",
}

var operatorTokenCmd = &cobra.Command{
	Use:   "token NAME",
	Short: "Issue a bearer token for the adapter's /v1 routes",
	Long: `Issue a bearer token naming an operator.

The token is signed with the service's auth.jwt_secret. Pass the secret
with --secret or set ETRADE_JWT_SECRET.`,
	Args: cobra.ExactArgs(1),
	RunE: runOperatorToken,
}

var (
	secretFlag string
	ttlFlag    time.Duration
)

func init() {
	rootCmd.AddCommand(operatorCmd)
	operatorCmd.AddCommand(operatorTokenCmd)

	operatorTokenCmd.Flags().StringVar(&secretFlag, "secret", "", "service JWT secret")
	operatorTokenCmd.Flags().DurationVar(&ttlFlag, "ttl", 12*time.Hour, "token lifetime")
}

func runOperatorToken(cmd *cobra.Command, args []string) error {
	secret := secretFlag
	if secret == "" {
		secret = viper.GetString("jwt_secret")
	}
	if secret == "" {
		output.Error("JWT secret is required (--secret or ETRADE_JWT_SECRET)")
		return nil
	}

	issued, err := auth.NewManager(&auth.Config{Secret: secret, TTL: ttlFlag}).Issue(args[0])
	if err != nil {
		output.Error(err.Error())
		return nil
	}

	if getFormat() == "json" {
		return output.JSON(issued)
	}

	output.Success(fmt.Sprintf("Token issued for %s", args[0]))
	output.Info("Expires " + issued.ExpiresAt.Local().Format("Jan 2 15:04 MST"))
	fmt.Println()
	fmt.Println(issued.Token)
	return nil
}
