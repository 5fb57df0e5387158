package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-t", "-i", "-v", "-n", "-g", "-e", "-u", "-p", "-b", "-k", "-o", "-x", "-l",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      minted token validity, minutes
//	-i string   identity mode: header | token
//	-v string   vault backend: secretsmanager | s3
//	-n string   vault namespace (address prefix)
//	-g string   AWS region
//	-e string   AWS endpoint override (LocalStack/MinIO)
//	-u string   AWS access key id
//	-p string   AWS secret access key
//	-b string   S3 bucket (s3 backend)
//	-k string   S3 sealing passphrase (s3 backend)
//	-o int      operation timeout, seconds
//	-x bool     compensate orphaned vault objects
//	-l string   log level
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs), so the
// -c/-config flag handled by parseJson does not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	tokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&config.IdentityMode, "i", config.IdentityMode, "identity mode (header|token)")
	fs.StringVar(&config.VaultBackend, "v", config.VaultBackend, "vault backend (secretsmanager|s3)")
	fs.StringVar(&config.VaultNamespace, "n", config.VaultNamespace, "vault namespace")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.AWSEndpoint, "e", config.AWSEndpoint, "AWS endpoint override")
	fs.StringVar(&config.AWSAccessKeyID, "u", config.AWSAccessKeyID, "AWS access key id")
	fs.StringVar(&config.AWSSecretAccessKey, "p", config.AWSSecretAccessKey, "AWS secret access key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3SealPassphrase, "k", config.S3SealPassphrase, "S3 sealing passphrase")
	opTimeout := fs.Int("o", int(config.OperationTimeout.Seconds()), "operation timeout (in seconds)")
	fs.BoolVar(&config.CompensateOrphans, "x", config.CompensateOrphans, "delete vault object when pointer upsert fails")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	config.OperationTimeout = time.Duration(*opTimeout) * time.Second
}
