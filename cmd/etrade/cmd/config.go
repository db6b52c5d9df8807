package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/klinvest/broker-etrade/cmd/etrade/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
	Long:  "View and modify CLI configuration.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display all current configuration values. Secrets are masked.",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Available keys:
  consumer_key     - E*TRADE consumer key
  consumer_secret  - E*TRADE consumer secret
  sandbox          - Use the sandbox environment: true, false (default: true)
  base_url         - Override the API host (mock server)
  format           - Default output format: table, json (default: table)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	RunE:  runConfigPath,
}

var configKeys = []string{"consumer_key", "consumer_secret", "sandbox", "base_url", "format"}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings := map[string]any{
		"consumer_key":    viper.GetString("consumer_key"),
		"consumer_secret": mask(viper.GetString("consumer_secret")),
		"sandbox":         viper.GetBool("sandbox"),
		"base_url":        viper.GetString("base_url"),
		"format":          viper.GetString("format"),
	}

	if getFormat() == "json" {
		return output.JSON(settings)
	}

	output.Header("Configuration")
	fmt.Println()
	pairs := make([][]string, 0, len(configKeys))
	for _, key := range configKeys {
		pairs = append(pairs, []string{key, fmt.Sprint(settings[key])})
	}
	output.KeyValue(pairs)

	if viper.ConfigFileUsed() != "" {
		fmt.Println()
		output.Info("Config file: " + viper.ConfigFileUsed())
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	valid := false
	for _, k := range configKeys {
		if k == key {
			valid = true
		}
	}
	if !valid {
		output.Error(fmt.Sprintf("Unknown config key: %s", key))
		output.Info("Valid keys: " + strings.Join(configKeys, ", "))
		return nil
	}

	switch key {
	case "format":
		if value != "table" && value != "json" {
			output.Error("format must be 'table' or 'json'")
			return nil
		}
		viper.Set(key, value)
	case "sandbox":
		b, err := strconv.ParseBool(value)
		if err != nil {
			output.Error("sandbox must be 'true' or 'false'")
			return nil
		}
		viper.Set(key, b)
	default:
		viper.Set(key, value)
	}

	dir, err := configDir()
	if err != nil {
		output.Error("Could not find home directory: " + err.Error())
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		output.Error("Could not create config directory: " + err.Error())
		return nil
	}

	if err := viper.WriteConfigAs(filepath.Join(dir, "config.yaml")); err != nil {
		output.Error("Could not save config: " + err.Error())
		return nil
	}

	if key == "consumer_secret" {
		value = mask(value)
	}
	output.Success(fmt.Sprintf("Set %s = %s", key, value))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	dir, err := configDir()
	if err != nil {
		output.Error("Could not find home directory: " + err.Error())
		return nil
	}
	configFile := filepath.Join(dir, "config.yaml")

	if getFormat() == "json" {
		return output.JSON(map[string]string{
			"config_file": configFile,
			"config_dir":  dir,
		})
	}

	fmt.Println(configFile)
	return nil
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}
