package config

import (
	"github.com/spf13/viper"
)

type (
	Config struct {
		Database
		Auth
	}

	Database struct {
		Path string
	}
	Auth struct {
		BcryptCost int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("auth_bcrypt_cost", 12)

	return &Config{
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			BcryptCost: v.GetInt("AUTH_BCRYPT_COST"),
		},
	}
}
