package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/bitcor/internal/flagx"
	"github.com/dmitrijs2005/bitcor/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "30s" style strings and integer nanoseconds (timex.Duration).
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	IdentityMode                string         `json:"identity_mode"`
	UserIDHeader                string         `json:"user_id_header"`
	UserEmailHeader             string         `json:"user_email_header"`
	VaultBackend                string         `json:"vault_backend"`
	VaultNamespace              string         `json:"vault_namespace"`
	AWSRegion                   string         `json:"aws_region"`
	AWSEndpoint                 string         `json:"aws_endpoint"`
	AWSAccessKeyID              string         `json:"aws_access_key_id"`
	AWSSecretAccessKey          string         `json:"aws_secret_access_key"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3SealPassphrase            string         `json:"s3_seal_passphrase"`
	OperationTimeout            timex.Duration `json:"operation_timeout"`
	CompensateOrphans           *bool          `json:"compensate_orphans"`
	LogLevel                    string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// $BITCOR_CONFIG) onto config. Keys missing from the file keep their current
// values. An unreadable or invalid file panics, matching parseFlags.
func parseJson(config *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.IdentityMode, c.IdentityMode)
	setString(&config.UserIDHeader, c.UserIDHeader)
	setString(&config.UserEmailHeader, c.UserEmailHeader)
	setString(&config.VaultBackend, c.VaultBackend)
	setString(&config.VaultNamespace, c.VaultNamespace)
	setString(&config.AWSRegion, c.AWSRegion)
	setString(&config.AWSEndpoint, c.AWSEndpoint)
	setString(&config.AWSAccessKeyID, c.AWSAccessKeyID)
	setString(&config.AWSSecretAccessKey, c.AWSSecretAccessKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3SealPassphrase, c.S3SealPassphrase)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.OperationTimeout.Duration != 0 {
		config.OperationTimeout = c.OperationTimeout.Duration
	}
	if c.CompensateOrphans != nil {
		config.CompensateOrphans = *c.CompensateOrphans
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
