package database

import "time"

// Config describes the order database connection
type Config struct {
	Driver          string        `mapstructure:"driver" yaml:"driver" validate:"required,oneof=postgres sqlite"`
	DSN             string        `mapstructure:"dsn" yaml:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=silent error warn info"`
}

// RedisConfig describes the session Redis connection
type RedisConfig struct {
	Address      string        `mapstructure:"address" yaml:"address" validate:"required"`
	Password     string        `mapstructure:"password" yaml:"password"`
	DB           int           `mapstructure:"db" yaml:"db" validate:"min=0"`
	PoolSize     int           `mapstructure:"pool_size" yaml:"pool_size" validate:"min=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}
