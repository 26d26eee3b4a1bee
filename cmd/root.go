package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/micrictor/flowbase/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "flowbase",
	Short: "Flow base policy reconciler",
	Long: `Adds a catalog of base rules to every Flow security policy on a Prism Central.
Rules already present are left alone; nothing is removed.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().String("host", "", "Prism Central address")
	rootCmd.PersistentFlags().Uint16("port", config.DEFAULT_PORT, "Prism Central port")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Prism Central user")
	rootCmd.PersistentFlags().Bool("insecure", false, "Skip TLS certificate verification")

	viper.BindPFlag("prism.host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("prism.port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("prism.user", rootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("prism.insecure", rootCmd.PersistentFlags().Lookup("insecure"))
}

// initEnv maps FLOWBASE_PRISM_HOST and friends onto the dotted keys.
func initEnv() {
	viper.SetEnvPrefix("FLOWBASE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads --config when given, then lets flags and the environment
// override it.
func loadConfig() (*config.AppConfig, error) {
	cfg := config.Default()
	if cfgFile != "" {
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if cfg, err = config.Parse(f); err != nil {
			return nil, fmt.Errorf("%s: %w", cfgFile, err)
		}
	}

	if viper.IsSet("prism.host") {
		cfg.Prism.Host = viper.GetString("prism.host")
	}
	if viper.IsSet("prism.port") {
		cfg.Prism.Port = uint16(viper.GetUint("prism.port"))
	}
	if viper.IsSet("prism.user") {
		cfg.Prism.User = viper.GetString("prism.user")
	}
	if viper.IsSet("prism.insecure") {
		cfg.Prism.Insecure = viper.GetBool("prism.insecure")
	}
	if viper.IsSet("catalog") {
		cfg.Catalog = viper.GetString("catalog")
	}
	if viper.IsSet("reconcile.dryRun") {
		cfg.Reconcile.DryRun = viper.GetBool("reconcile.dryRun")
	}
	if viper.IsSet("log.dir") {
		cfg.Log.Dir = viper.GetString("log.dir")
	}
	if viper.IsSet("log.level") {
		cfg.Log.Level = viper.GetString("log.level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// prismPassword takes FLOWBASE_PASSWORD, then the config file, then prompts.
func prismPassword(cfg *config.AppConfig) (string, error) {
	if pw := viper.GetString("password"); pw != "" {
		return pw, nil
	}
	if cfg.Prism.Password != "" {
		return cfg.Prism.Password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password: set FLOWBASE_PASSWORD or run from a terminal")
	}
	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", cfg.Prism.User, cfg.Prism.Host)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
