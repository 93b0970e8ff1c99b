package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/addressbook/internal/flagx"
)

const defaultEnvFile = ".env"

var lookupEnv = os.LookupEnv

// parseEnv overlays values from a dotenv file and the process environment.
// The file is taken from -env, or ".env" in the working directory; a missing
// default file is not an error. Process environment wins over the file.
func parseEnv(config *Config, args []string, lookup func(string) (string, bool)) error {
	path := flagx.EnvFile(args)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	fileVars, err := godotenv.Read(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: read env file %s: %w", path, err)
		}
		fileVars = map[string]string{}
	}

	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	strs := map[string]*string{
		"HTTP_ADDR":        &config.EndpointAddrHTTP,
		"DATABASE_URL":     &config.DatabaseDSN,
		"SECRET_KEY":       &config.SecretKey,
		"ALGORITHM":        &config.Algorithm,
		"REDIS_URL":        &config.RedisURL,
		"SENDGRID_API_KEY": &config.SendGridAPIKey,
		"MAIL_FROM":        &config.MailFrom,
		"MAIL_FROM_NAME":   &config.MailFromName,
		"S3_ROOT_USER":     &config.S3RootUser,
		"S3_ROOT_PASSWORD": &config.S3RootPassword,
		"S3_BUCKET":        &config.S3Bucket,
		"S3_REGION":        &config.S3Region,
		"S3_BASE_ENDPOINT": &config.S3BaseEndpoint,
		"S3_PUBLIC_URL":    &config.S3PublicURL,
		"LOG_LEVEL":        &config.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":  &config.AccessTokenValidityDuration,
		"REFRESH_TOKEN_TTL": &config.RefreshTokenValidityDuration,
		"RATE_LIMIT_WINDOW": &config.RateLimitWindow,
		"SHUTDOWN_TIMEOUT":  &config.ShutdownTimeout,
	}
	for key, dst := range durations {
		v, ok := get(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := get("RATE_LIMIT_MAX"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RATE_LIMIT_MAX: %w", err)
		}
		config.RateLimitMax = n
	}

	return nil
}
