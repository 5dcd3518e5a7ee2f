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
	"os"
	"path/filepath"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/checkpoint"
	"github.com/urfave/cli/v2"
)

var Info = cli.Command{
	Action: info,
	Name:   "info",
	Usage:  "lists the replay progress recorded in the database and the ledger",
}

var Roots = cli.Command{
	Action: roots,
	Name:   "roots",
	Usage:  "prints the merkle root recorded for a slot, or the latest one",
	Flags: []cli.Flag{
		&slotFlag,
	},
}

var (
	slotFlag = cli.Uint64Flag{
		Name:  "slot",
		Usage: "slot to print the root for",
	}
)

func info(context *cli.Context) (err error) {
	cfg, err := loadConfig(context, false)
	if err != nil {
		return err
	}
	ctx := context.Context
	env, err := openEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, env.Close()) }()

	fmt.Printf("Database (%v):\n", env.db.Driver())
	last, found, err := env.records.LastSlot(ctx)
	if err != nil {
		return err
	}
	if found {
		fmt.Printf("\tLast entry slot:   %d\n", last)
	} else {
		fmt.Printf("\tLast entry slot:   none\n")
	}

	cp, found, err := env.checkpoints.LoadLast(ctx)
	if err != nil {
		return err
	}
	if found {
		fmt.Printf("\tLast checkpoint:   %d (verified %v)\n", cp.Slot, cp.VerifiedAt.Format(time.RFC3339))
	} else {
		fmt.Printf("\tLast checkpoint:   none\n")
	}
	resume, err := checkpoint.ResumeSlot(ctx, env.checkpoints)
	if err != nil {
		return err
	}
	fmt.Printf("\tResume slot:       %d\n", resume)

	root, found, err := env.checkpoints.LatestRoot(ctx)
	if err != nil {
		return err
	}
	if found {
		fmt.Printf("\tLatest root:       %v at slot %d\n", root.RootHash, root.Slot)
	} else {
		fmt.Printf("\tLatest root:       none\n")
	}

	fmt.Printf("Ledger (%v):\n", cfg.LedgerPath)
	if _, err := os.Stat(filepath.Join(cfg.LedgerPath, "blockstore")); err != nil {
		fmt.Printf("\tNot initialized\n")
		return nil
	}
	ledger, err := env.openLedger()
	if err != nil {
		fmt.Printf("\tFailed to open:    %v\n", err)
		return nil
	}
	defer func() { err = errors.Join(err, ledger.Close()) }()
	highest, found, err := ledger.HighestSlot()
	if err != nil {
		return err
	}
	if found {
		fmt.Printf("\tHighest slot:      %d\n", highest)
	} else {
		fmt.Printf("\tHighest slot:      empty\n")
	}
	return nil
}

func roots(context *cli.Context) (err error) {
	cfg, err := loadConfig(context, false)
	if err != nil {
		return err
	}
	ctx := context.Context
	env, err := openEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, env.Close()) }()

	var root checkpoint.MerkleRootRecord
	var found bool
	if context.IsSet(slotFlag.Name) {
		root, found, err = env.checkpoints.RootAt(ctx, context.Uint64(slotFlag.Name))
	} else {
		root, found, err = env.checkpoints.LatestRoot(ctx)
	}
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no merkle root recorded")
	}
	fmt.Printf("%d %v %v\n", root.Slot, root.RootHash, root.UpdatedOn.Format(time.RFC3339))
	return nil
}
