// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore"
	cpsql "github.com/Eclipse-Laboratories-Inc/execution/backend/checkpoint/sqlstore"
	recordsql "github.com/Eclipse-Laboratories-Inc/execution/backend/record/sqlstore"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/sqldb"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/Eclipse-Laboratories-Inc/execution/config"
	"github.com/Eclipse-Laboratories-Inc/execution/metrics"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// loadConfig reads the configuration file and applies the command line
// overrides. Commands touching only the database skip the full validation.
func loadConfig(context *cli.Context, validate bool) (config.Config, error) {
	cfg, err := config.Load(context.String(configFlag.Name))
	if err != nil {
		return config.Config{}, err
	}
	if policy := context.String(errorPolicyFlag.Name); policy != "" {
		if cfg.ErrorPolicy, err = common.ParseErrorPolicy(policy); err != nil {
			return config.Config{}, err
		}
	}
	if addr := context.String(metricsAddrFlag.Name); addr != "" {
		cfg.MetricsAddr = addr
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return config.Config{}, fmt.Errorf("invalid configuration; %w", err)
		}
	} else if _, err := cfg.Database.DataSource(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// environment bundles the database backed stores shared by the commands.
type environment struct {
	config      config.Config
	db          *sqldb.DB
	records     *recordsql.Store
	checkpoints *cpsql.Store
	registry    *prometheus.Registry
}

func openEnvironment(ctx context.Context, cfg config.Config) (*environment, error) {
	db, err := sqldb.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db.Driver() == sqldb.SQLite {
		if err := db.CreateTables(ctx); err != nil {
			return nil, errors.Join(err, db.Close())
		}
	}
	records, err := recordsql.NewStore(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	checkpoints, err := cpsql.NewStore(db)
	if err != nil {
		return nil, errors.Join(err, records.Close(), db.Close())
	}
	return &environment{
		config:      cfg,
		db:          db,
		records:     records,
		checkpoints: checkpoints,
		registry:    prometheus.NewRegistry(),
	}, nil
}

func (e *environment) openLedger() (*blockstore.Ledger, error) {
	open, err := e.config.Blockstore.Opener()
	if err != nil {
		return nil, err
	}
	return blockstore.OpenLedger(e.config.LedgerPath, e.config.GenesisPath, open)
}

// serveMetrics exposes the registry until ctx is done, if an address is set.
func (e *environment) serveMetrics(ctx context.Context) {
	if e.config.MetricsAddr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, e.config.MetricsAddr, e.registry); err != nil {
			log.Error("Metrics server failed", "addr", e.config.MetricsAddr, "err", err)
		}
	}()
}

func (e *environment) Close() error {
	return errors.Join(
		e.records.Close(),
		e.checkpoints.Close(),
		e.db.Close(),
	)
}
