// Package main is the emulator process entry point: one binary, one
// shared store, one listener per enabled provider.
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudemu/cloudemu/cmn"
	"github.com/cloudemu/cloudemu/gateway"
	"github.com/cloudemu/cloudemu/gateway/aws"
	"github.com/cloudemu/cloudemu/gateway/azure"
	"github.com/cloudemu/cloudemu/gateway/gcp"
	"github.com/cloudemu/cloudemu/gateway/oracle"
	"github.com/cloudemu/cloudemu/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "cloudemu",
		Short: "Local, wire-compatible emulator for public-cloud service APIs",
		Long: `cloudemu listens on per-provider ports and answers requests from
unmodified cloud SDKs, IaC tools and CLIs, backed by a local durable store.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmn.FromViper(v))
		},
	}

	flags := cmd.Flags()
	flags.String("host", cmn.DefaultHost, "bind address")
	flags.Int("aws-port", cmn.DefaultAWSPort, "AWS listener port")
	flags.Int("azure-port", cmn.DefaultAzurePort, "Azure listener port")
	flags.Int("azure-compat-port", cmn.DefaultAzureCompatPort, "Azurite-compatible listener port (0 disables)")
	flags.Int("gcp-port", cmn.DefaultGCPPort, "GCP listener port")
	flags.Int("oracle-port", cmn.DefaultOraclePort, "Oracle listener port")
	flags.String("data-dir", cmn.DefaultDataDir, "directory for the store file and content blobs")
	flags.String("region", cmn.DefaultRegion, "default region for ARN construction")
	flags.String("account-id", cmn.DefaultAccountID, "default account id for ARN construction")
	flags.StringSlice("disable-service", nil, "service to leave unmounted (repeatable)")

	v.BindPFlag("host", flags.Lookup("host"))
	v.BindPFlag("aws_port", flags.Lookup("aws-port"))
	v.BindPFlag("azure_port", flags.Lookup("azure-port"))
	v.BindPFlag("azure_compat_port", flags.Lookup("azure-compat-port"))
	v.BindPFlag("gcp_port", flags.Lookup("gcp-port"))
	v.BindPFlag("oracle_port", flags.Lookup("oracle-port"))
	v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	v.BindPFlag("region", flags.Lookup("region"))
	v.BindPFlag("account_id", flags.Lookup("account-id"))
	v.BindPFlag("disabled_services", flags.Lookup("disable-service"))
	cmn.SetDefaults(v)

	return cmd
}

func run(parent context.Context, cfg *cmn.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	zl, err := zap.NewProduction(zap.WithCaller(false))
	if err != nil {
		return err
	}
	defer zl.Sync()
	log := zl.Sugar()

	cmn.InitShortID(uint64(time.Now().UnixNano()))

	store, err := storage.Open(cfg.DataDir, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsGW := aws.New(store, cfg, log)
	azureGW := azure.New(store, cfg, log)
	gcpGW := gcp.New(store, cfg, log)
	oracleGW := oracle.New(store, cfg, log)

	log.Infow("cloudemu starting",
		"data_dir", cfg.DataDir, "region", cfg.Region, "account", cfg.AccountID)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return gateway.Serve(ctx, cfg.Addr(cfg.AWSPort), awsGW.Handler(), log)
	})
	eg.Go(func() error {
		return gateway.Serve(ctx, cfg.Addr(cfg.AzurePort), azureGW.Handler(), log)
	})
	if cfg.AzureCompatPort > 0 {
		eg.Go(func() error {
			return gateway.Serve(ctx, cfg.Addr(cfg.AzureCompatPort), azureGW.Handler(), log)
		})
	}
	eg.Go(func() error {
		return gateway.Serve(ctx, cfg.Addr(cfg.GCPPort), gcpGW.Handler(), log)
	})
	eg.Go(func() error {
		return gateway.Serve(ctx, cfg.Addr(cfg.OraclePort), oracleGW.Handler(), log)
	})
	return eg.Wait()
}
