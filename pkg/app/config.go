package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFlagName = "config"
	envPrefix      = "FLIGHTLAB"
	dotEnvFile     = ".env"
)

var cfgFile string

// addConfigFlag registers --config on fs and arranges for viper to read the
// file, the .env file and FLIGHTLAB_* variables before the command runs.
func addConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile, "Read configuration from specified `FILE`, "+
		"support JSON, TOML, YAML, HCL, or Java properties formats.")

	cobra.OnInitialize(func() {
		if err := loadDotEnv(dotEnvFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", dotEnvFile, err)
			os.Exit(1)
		}

		viper.AutomaticEnv()
		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

		if cfgFile == "" {
			return
		}
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read configuration file(%s): %v\n", cfgFile, err)
			os.Exit(1)
		}
	})
}

// loadDotEnv loads name into the process environment. A missing file is fine
// and variables already set are never overridden.
func loadDotEnv(name string) error {
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(name)
}
