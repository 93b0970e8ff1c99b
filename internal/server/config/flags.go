package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/addressbook/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-A", "-t", "-r", "-R", "-l", "-w", "-k",
	"-u", "-p", "-b", "-g", "-e", "-P", "-L",
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-A string   JWT algorithm
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-R string   Redis URL
//	-l int      rate limit, requests per window
//	-w int      rate limit window, seconds
//	-k string   SendGrid API key
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-P string   public base URL for stored avatars
//	-L string   log level
//
// Unknown arguments (-c, -env and anything else) are filtered out first
// with flagx.FilterArgs.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Algorithm, "A", config.Algorithm, "jwt signing algorithm")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.RedisURL, "R", config.RedisURL, "redis URL")
	fs.IntVar(&config.RateLimitMax, "l", config.RateLimitMax, "rate limit (requests per window)")
	rateLimitWindow := fs.Int("w", int(config.RateLimitWindow.Seconds()), "rate limit window (in seconds)")
	fs.StringVar(&config.SendGridAPIKey, "k", config.SendGridAPIKey, "SendGrid API key")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicURL, "P", config.S3PublicURL, "public base URL for avatars")
	fs.StringVar(&config.LogLevel, "L", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: flags: %w", err)
	}

	// Durations are only touched when their flag was actually given, so
	// sub-minute values from other layers survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		case "w":
			config.RateLimitWindow = time.Duration(*rateLimitWindow) * time.Second
		}
	})

	return nil
}
