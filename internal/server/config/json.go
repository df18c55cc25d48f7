package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/clarifio/clarifio/internal/flagx"
	"github.com/clarifio/clarifio/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO (Data Transfer Object) used only for
// reading JSON configuration files. After unmarshalling, its fields are
// copied into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	OpenAIAPIKey                 string         `json:"openai_api_key"`
	OpenAIModel                  string         `json:"openai_model"`
	DefineRPS                    float64        `json:"define_rps"`
	DefineBurst                  int            `json:"define_burst"`
	BillingAPIBase               string         `json:"billing_api_base"`
	BillingAPIKey                string         `json:"billing_api_key"`
	PriceMonthly                 string         `json:"price_monthly"`
	PriceAnnual                  string         `json:"price_annual"`
	CheckoutRedirectURL          string         `json:"checkout_redirect_url"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. Set values are copied into the target Config; fields
// the JSON omits keep their earlier values. If the file cannot be read or
// contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	}
	if c.OpenAIAPIKey != "" {
		config.OpenAIAPIKey = c.OpenAIAPIKey
	}
	if c.OpenAIModel != "" {
		config.OpenAIModel = c.OpenAIModel
	}
	if c.DefineRPS != 0 {
		config.DefineRPS = c.DefineRPS
	}
	if c.DefineBurst != 0 {
		config.DefineBurst = c.DefineBurst
	}
	if c.BillingAPIBase != "" {
		config.BillingAPIBase = c.BillingAPIBase
	}
	if c.BillingAPIKey != "" {
		config.BillingAPIKey = c.BillingAPIKey
	}
	if c.PriceMonthly != "" {
		config.PriceMonthly = c.PriceMonthly
	}
	if c.PriceAnnual != "" {
		config.PriceAnnual = c.PriceAnnual
	}
	if c.CheckoutRedirectURL != "" {
		config.CheckoutRedirectURL = c.CheckoutRedirectURL
	}
}
