package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	format  string

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

var rootCmd = &cobra.Command{
	Use:   "etrade",
	Short: "E*TRADE broker operator CLI",
	Long: titleStyle.Render(`
╔═══════════════════════════════════════════════════════════╗
║  E*TRADE Broker CLI                                       ║
╚═══════════════════════════════════════════════════════════╝
`) + `
Authorize the E*TRADE API, inspect accounts and positions,
and place equity orders from your terminal.

Get started:
  etrade config set consumer_key KEY   Store your consumer key
  etrade auth login                    Authorize API access
  etrade accounts                      List accounts and balances
  etrade --help                        Show all commands`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.etrade/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "table", "output format: table, json")
	rootCmd.PersistentFlags().Bool("production", false, "use the production environment instead of the sandbox")

	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
			os.Exit(1)
		}

		if err := os.MkdirAll(configDir, 0700); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error creating config dir: ")+err.Error())
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetDefault("format", "table")
	viper.SetDefault("sandbox", true)
	viper.SetDefault("base_url", "")
	viper.SetDefault("consumer_key", "")
	viper.SetDefault("consumer_secret", "")

	viper.SetEnvPrefix("ETRADE")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".etrade"), nil
}

func getFormat() string {
	if format != "" && format != "table" {
		return format
	}
	return viper.GetString("format")
}

func isSandbox() bool {
	if production, _ := rootCmd.PersistentFlags().GetBool("production"); production {
		return false
	}
	return viper.GetBool("sandbox")
}

func environment(sandbox bool) string {
	if sandbox {
		return "sandbox"
	}
	return "production"
}
