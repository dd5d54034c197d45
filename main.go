package main

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/qiuqiuaiweb3/trading-agents/cmd"
)

func configureViper() {
	// read config file
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/etc/trading-agents/")
	viper.AddConfigPath("$HOME/.config/trading-agents")
	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		// a config file is optional; everything can come from the
		// environment or command line flags
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}
}

func main() {
	// pull in a .env file when present
	_ = godotenv.Load()
	configureViper()
	cmd.Execute()
}
