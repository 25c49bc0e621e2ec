// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Channel Config ---

// ChannelsConfig holds per-channel transport settings. A channel with
// missing credentials reports unavailable and is skipped at dispatch time.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Email    EmailConfig    `mapstructure:"email"`
	Push     PushConfig     `mapstructure:"push"`
}

type WhatsAppConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AccessToken   string `mapstructure:"access_token"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	BaseURL       string `mapstructure:"base_url"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

type EmailConfig struct {
	Enabled   bool       `mapstructure:"enabled"`
	Backend   string     `mapstructure:"backend"` // "ses" or "smtp"
	FromEmail string     `mapstructure:"from_email"`
	AWSRegion string     `mapstructure:"aws_region"`
	SMTP      SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type PushConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AWSRegion string `mapstructure:"aws_region"`
}

// --- Dedup Config ---

// DedupConfig selects the ledger backend. "memory" is process-local and
// loses state on restart; "redis" survives restarts via TTL-bounded keys.
type DedupConfig struct {
	Backend       string `mapstructure:"backend"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// --- Schedule Config ---

// ScheduleConfig names the recurring daily slots (name -> "HH:MM" local
// time) plus the fixed-interval discovery sweep and the weekly report slot.
type ScheduleConfig struct {
	Slots                map[string]string `mapstructure:"slots"`
	SweepIntervalMinutes int               `mapstructure:"sweep_interval_minutes"`
	WeeklyReportDay      string            `mapstructure:"weekly_report_day"`
	WeeklyReportTime     string            `mapstructure:"weekly_report_time"`
}

// --- Server / Logging ---

// ServerConfig is the ops plane (health, metrics, scheduler status).
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
