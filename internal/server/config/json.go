package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/addressbook/internal/flagx"
	"github.com/dmitrijs2005/addressbook/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON configuration file.
// Durations use timex.Duration, which accepts "15m" as well as integer
// nanoseconds. Fields left out of the file keep their previous value.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	Algorithm                    string         `json:"algorithm"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RedisURL                     string         `json:"redis_url"`
	RateLimitMax                 int            `json:"rate_limit_max"`
	RateLimitWindow              timex.Duration `json:"rate_limit_window"`
	SendGridAPIKey               string         `json:"sendgrid_api_key"`
	MailFrom                     string         `json:"mail_from"`
	MailFromName                 string         `json:"mail_from_name"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3PublicURL                  string         `json:"s3_public_url"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson loads the file named by -c or -config, if any, and copies its
// non-zero values into config.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFile(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", jsonConfigFile, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", jsonConfigFile, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Algorithm, c.Algorithm)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&config.RedisURL, c.RedisURL)
	if c.RateLimitMax != 0 {
		config.RateLimitMax = c.RateLimitMax
	}
	setDuration(&config.RateLimitWindow, c.RateLimitWindow)
	setString(&config.SendGridAPIKey, c.SendGridAPIKey)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.MailFromName, c.MailFromName)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setString(&config.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
