package config

import (
	"flag"
	"os"
	"time"

	"github.com/clarifio/clarifio/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    HTTP bind address (e.g., ":8080")
//	-d string    PostgreSQL DSN
//	-s string    JWT HMAC secret key
//	-t int       access token validity, minutes
//	-r int       refresh token validity, minutes
//	-k string    OpenAI API key
//	-m string    OpenAI model name
//	-l float     definition endpoint rate limit, requests per second
//	-u string    billing API base URL
//	-p string    billing API key
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-k", "-m", "-l", "-u", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.OpenAIAPIKey, "k", config.OpenAIAPIKey, "OpenAI API key")
	fs.StringVar(&config.OpenAIModel, "m", config.OpenAIModel, "OpenAI model")
	fs.Float64Var(&config.DefineRPS, "l", config.DefineRPS, "definition rate limit (requests per second)")
	fs.StringVar(&config.BillingAPIBase, "u", config.BillingAPIBase, "billing API base URL")
	fs.StringVar(&config.BillingAPIKey, "p", config.BillingAPIKey, "billing API key")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
