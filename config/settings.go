// Copyright 2018 Brian Starkey <stark3y@gmail.com>

// Package config loads the runtime settings and the mission file.
//
// Settings are layered, highest precedence first: command line flags,
// MISSION_* environment variables, the settings file, then the defaults
// below.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var ErrInvalidSetting = errors.New("invalid setting")

const EnvPrefix = "MISSION"

type Settings struct {
	// Control loop period.
	Period time.Duration `mapstructure:"period" yaml:"period"`

	// Mission file (TOML).
	Mission string `mapstructure:"mission" yaml:"mission"`

	// Rotating log file, in addition to stderr. Empty to disable.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
	// Mission event log. Empty to disable.
	EventLog string `mapstructure:"event_log" yaml:"event_log"`

	// Telemetry RPC listen address. Empty to disable.
	TelemetryAddr string `mapstructure:"telemetry_addr" yaml:"telemetry_addr"`

	// I2C bus carrying the servo board. Empty runs without actuators.
	I2CBus string `mapstructure:"i2c_bus" yaml:"i2c_bus"`
	ServoAddr uint16 `mapstructure:"servo_addr" yaml:"servo_addr"`
	ServoTimeout time.Duration `mapstructure:"servo_timeout" yaml:"servo_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("period", 20*time.Millisecond)
	v.SetDefault("mission", "mission.toml")
	v.SetDefault("log_file", "")
	v.SetDefault("event_log", "")
	v.SetDefault("telemetry_addr", "localhost:8070")
	v.SetDefault("i2c_bus", "")
	v.SetDefault("servo_addr", 0x40)
	v.SetDefault("servo_timeout", 10*time.Second)
}

func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag in fs whose name matches a setting. Flag names
// use dashes where settings use underscores.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err != nil || !isSetting(key) {
			return
		}
		err = v.BindPFlag(key, f)
	})

	return err
}

func isSetting(key string) bool {
	switch key {
	case "period", "mission", "log_file", "event_log", "telemetry_addr",
		"i2c_bus", "servo_addr", "servo_timeout":
		return true
	}
	return false
}

func decoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// Load reads the settings file, if any, and decodes the merged settings.
func Load(v *viper.Viper, file string) (*Settings, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings '%s': %w", file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, decoderOption()); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *Settings) Validate() error {
	if s.Period <= 0 {
		return fmt.Errorf("%w: period %v", ErrInvalidSetting, s.Period)
	}
	if s.Mission == "" {
		return fmt.Errorf("%w: mission is empty", ErrInvalidSetting)
	}
	if s.ServoAddr == 0 || s.ServoAddr > 0x7f {
		return fmt.Errorf("%w: servo_addr 0x%x", ErrInvalidSetting, s.ServoAddr)
	}
	if s.ServoTimeout < 0 {
		return fmt.Errorf("%w: servo_timeout %v", ErrInvalidSetting, s.ServoTimeout)
	}

	return nil
}
