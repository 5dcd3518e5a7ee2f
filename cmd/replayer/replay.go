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
	"errors"
	"fmt"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/sqldb"
	"github.com/Eclipse-Laboratories-Inc/execution/common/interrupt"
	"github.com/Eclipse-Laboratories-Inc/execution/ledgertool"
	"github.com/Eclipse-Laboratories-Inc/execution/metrics"
	"github.com/Eclipse-Laboratories-Inc/execution/replay"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var InitDb = cli.Command{
	Action: initDb,
	Name:   "init-db",
	Usage:  "creates the entry, replay and merkle root tables if missing",
}

var Replay = cli.Command{
	Action: addPerformanceDiagnoses(runReplay),
	Name:   "replay",
	Usage:  "replays persisted shreds into the ledger, verifying it periodically",
	Flags: []cli.Flag{
		&startSlotFlag,
	},
}

var ReplayRange = cli.Command{
	Action: addPerformanceDiagnoses(replayRange),
	Name:   "replay-range",
	Usage:  "replays an inclusive slot range and checks that it is connected",
	Flags: []cli.Flag{
		&fromSlotFlag,
		&toSlotFlag,
	},
}

var (
	startSlotFlag = cli.Uint64Flag{
		Name:  "start-slot",
		Usage: "slot to start from instead of resuming after the last checkpoint",
	}
	fromSlotFlag = cli.Uint64Flag{
		Name:     "from",
		Usage:    "first slot of the range",
		Required: true,
	}
	toSlotFlag = cli.Uint64Flag{
		Name:     "to",
		Usage:    "last slot of the range",
		Required: true,
	}
)

func initDb(context *cli.Context) error {
	cfg, err := loadConfig(context, false)
	if err != nil {
		return err
	}
	db, err := sqldb.Open(context.Context, cfg.Database)
	if err != nil {
		return err
	}
	if err := db.CreateTables(context.Context); err != nil {
		return errors.Join(err, db.Close())
	}
	log.Info("Database tables created", "driver", db.Driver())
	return db.Close()
}

func runReplay(context *cli.Context) (err error) {
	ctx, cancel := interrupt.RegisterWithCancel(context.Context)
	defer cancel()
	cfg, err := loadConfig(context, true)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, env.Close()) }()

	engine, ledger, err := newEngine(env)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, ledger.Close()) }()
	env.serveMetrics(ctx)

	if context.IsSet(startSlotFlag.Name) {
		err = engine.RunFrom(ctx, context.Uint64(startSlotFlag.Name))
	} else {
		err = engine.Run(ctx)
	}
	if errors.Is(err, interrupt.ErrCanceled) {
		log.Info("Replay stopped", "slot", engine.Cursor())
		return nil
	}
	return err
}

func replayRange(context *cli.Context) (err error) {
	from, to := context.Uint64(fromSlotFlag.Name), context.Uint64(toSlotFlag.Name)
	if from > to {
		return fmt.Errorf("invalid slot range [%d,%d]", from, to)
	}
	ctx, cancel := interrupt.RegisterWithCancel(context.Context)
	defer cancel()
	cfg, err := loadConfig(context, true)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, env.Close()) }()

	engine, ledger, err := newEngine(env)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, ledger.Close()) }()

	if err := engine.ReplayRange(ctx, from, to); err != nil {
		return err
	}
	fmt.Printf("Replayed slots %d to %d, range is connected\n", from, to)
	return nil
}

func newEngine(env *environment) (*replay.Engine, *blockstore.Ledger, error) {
	ledger, err := env.openLedger()
	if err != nil {
		return nil, nil, err
	}
	config := env.config.ReplayConfig()
	config.Metrics = metrics.NewReplay(env.registry)
	tool := ledgertool.NewTool(env.config.LedgerTool, nil)
	engine, err := replay.NewEngine(config, env.records, ledger, tool, env.checkpoints)
	if err != nil {
		return nil, nil, errors.Join(err, ledger.Close())
	}
	return engine, ledger, nil
}
