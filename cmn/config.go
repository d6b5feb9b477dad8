// Package cmn provides common low-level types and utilities for all cloudemu packages
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package cmn

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Default listening ports, one per emulated provider.
const (
	DefaultAWSPort         = 4566
	DefaultAzurePort       = 4567
	DefaultAzureCompatPort = 10000 // Azurite-style alias for the Azure listener
	DefaultGCPPort         = 4568
	DefaultOraclePort      = 4569

	DefaultRegion    = "us-east-1"
	DefaultAccountID = "000000000000"
	DefaultHost      = "127.0.0.1"
	DefaultDataDir   = "./cloudemu-data"

	EnvPrefix = "CLOUDEMU"
)

// Service names used by the per-service mount flags.
const (
	SvcS3            = "s3"
	SvcDynamoDB      = "dynamodb"
	SvcSQS           = "sqs"
	SvcSNS           = "sns"
	SvcEvents        = "events"
	SvcSecrets       = "secretsmanager"
	SvcKMS           = "kms"
	SvcCognito       = "cognito"
	SvcMonitoring    = "monitoring"
	SvcLogs          = "logs"
	SvcSFN           = "stepfunctions"
	SvcPricing       = "pricing"
	SvcBlob          = "blob"
	SvcCosmos        = "cosmos"
	SvcKeyVault      = "keyvault"
	SvcServiceBus    = "servicebus"
	SvcGCS           = "gcs"
	SvcFirestore     = "firestore"
	SvcPubSub        = "pubsub"
	SvcBilling       = "billing"
	SvcObjectStorage = "objectstorage"
)

type (
	// Config is the process-wide, immutable emulator configuration. It is
	// built once at startup and threaded into every gateway and the store;
	// there are no module-level singletons.
	Config struct {
		Host            string
		AWSPort         int
		AzurePort       int
		AzureCompatPort int
		GCPPort         int
		OraclePort      int

		DataDir   string
		Region    string
		AccountID string

		// OracleNamespace is the namespace segment served under /n/.
		OracleNamespace string

		// Disabled lists services that must not be mounted.
		Disabled map[string]bool
	}
)

// SetDefaults registers every known key so that AutomaticEnv and config
// files can override any of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("aws_port", DefaultAWSPort)
	v.SetDefault("azure_port", DefaultAzurePort)
	v.SetDefault("azure_compat_port", DefaultAzureCompatPort)
	v.SetDefault("gcp_port", DefaultGCPPort)
	v.SetDefault("oracle_port", DefaultOraclePort)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("region", DefaultRegion)
	v.SetDefault("account_id", DefaultAccountID)
	v.SetDefault("oracle_namespace", "cloudemu")
	v.SetDefault("disabled_services", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper materializes a Config from bound flags, env and defaults.
func FromViper(v *viper.Viper) *Config {
	disabled := make(map[string]bool)
	for _, name := range v.GetStringSlice("disabled_services") {
		disabled[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return &Config{
		Host:            v.GetString("host"),
		AWSPort:         v.GetInt("aws_port"),
		AzurePort:       v.GetInt("azure_port"),
		AzureCompatPort: v.GetInt("azure_compat_port"),
		GCPPort:         v.GetInt("gcp_port"),
		OraclePort:      v.GetInt("oracle_port"),
		DataDir:         v.GetString("data_dir"),
		Region:          v.GetString("region"),
		AccountID:       v.GetString("account_id"),
		OracleNamespace: v.GetString("oracle_namespace"),
		Disabled:        disabled,
	}
}

// ServiceEnabled reports whether a service should be mounted.
func (c *Config) ServiceEnabled(name string) bool { return !c.Disabled[name] }

func (c *Config) Addr(port int) string { return fmt.Sprintf("%s:%d", c.Host, port) }

func (c *Config) Validate() error {
	for _, port := range []int{c.AWSPort, c.AzurePort, c.GCPPort, c.OraclePort} {
		if port <= 0 || port > 65535 {
			return NewInvalidArgument(fmt.Sprintf("invalid port %d", port))
		}
	}
	if c.DataDir == "" {
		return NewInvalidArgument("data_dir must not be empty")
	}
	return nil
}
