package config

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type AppConfig struct {
	ServerAddr      string        `mapstructure:"SERVER_ADDR" validate:"min=2"`
	GinMode         string        `mapstructure:"GIN_MODE" validate:"oneof=debug release test"`
	TasksFile       string        `mapstructure:"TASKS_FILE" validate:"min=1"`
	LogLevel        string        `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"nonzero_duration"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"addr":      "SERVER_ADDR",
	"file":      "TASKS_FILE",
	"log-level": "LOG_LEVEL",
	"gin-mode":  "GIN_MODE",
}

func (c *AppConfig) Validate() error {
	v := validator.New()

	_ = v.RegisterValidation("nonzero_duration", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(time.Duration)
		return ok && d > 0
	})
	return v.Struct(c)
}

// RegisterFlags adds the flags LoadAppConfig knows how to bind.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", "", "listen address (SERVER_ADDR)")
	fs.String("file", "", "tasks backing file (TASKS_FILE)")
	fs.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	fs.String("gin-mode", "", "debug, release or test (GIN_MODE)")
}

// LoadAppConfig reads name.ext from the first of paths that has it, then the
// environment, then flags that were set explicitly. The file is optional.
func LoadAppConfig(name, ext string, flags *pflag.FlagSet, paths ...string) (*AppConfig, error) {
	v := viper.New()
	for _, path := range paths {
		v.AddConfigPath(path)
	}
	v.SetConfigName(name)
	v.SetConfigType(ext)
	v.AutomaticEnv()

	v.SetDefault("SERVER_ADDR", "0.0.0.0:8008")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("TASKS_FILE", "tasks.json")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
