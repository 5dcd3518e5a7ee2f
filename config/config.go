// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package config holds the replayer configuration file. The file is read once
// at start up, overlaid by command line flags and treated as immutable
// afterwards.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/accounts"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore/badger"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore/ldb"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/blockstore/memory"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/sqldb"
	"github.com/Eclipse-Laboratories-Inc/execution/backend/utils"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/Eclipse-Laboratories-Inc/execution/notifier"
	"github.com/Eclipse-Laboratories-Inc/execution/replay"
)

// Duration is a time.Duration encoded as a string like "10s" in JSON.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	res, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(res)
	return nil
}

// BlockstoreKind selects the key/value store backing the ledger.
type BlockstoreKind string

const (
	LevelDB  BlockstoreKind = "leveldb"
	Badger   BlockstoreKind = "badger"
	InMemory BlockstoreKind = "memory"
)

// Opener returns the function opening a ledger of this kind.
func (k BlockstoreKind) Opener() (blockstore.Opener, error) {
	switch k {
	case LevelDB:
		return ldb.Open, nil
	case Badger:
		return badger.Open, nil
	case InMemory:
		return memory.Open, nil
	}
	return nil, fmt.Errorf("unknown blockstore kind %q", k)
}

type Replay struct {
	VerifyInterval    uint64   `json:"verify_interval"`
	SnapshotOffset    uint64   `json:"snapshot_offset"`
	Backoff           Duration `json:"backoff"`
	RetryBackoff      Duration `json:"retry_backoff"`
	MaxInsertAttempts int      `json:"max_insert_attempts"`
	MaxQueryAttempts  int      `json:"max_query_attempts"`
}

type Accounts struct {
	QueueSize      int      `json:"queue_size"`
	ReportInterval Duration `json:"report_interval"`
}

type Config struct {
	Database    sqldb.Config       `json:"database"`
	LedgerPath  string             `json:"ledger_path"`
	GenesisPath string             `json:"genesis_path"`
	SnapshotDir string             `json:"snapshot_dir"`
	LedgerTool  string             `json:"ledger_tool"`
	Blockstore  BlockstoreKind     `json:"blockstore"`
	Replay      Replay             `json:"replay"`
	Accounts    Accounts           `json:"accounts"`
	Notifier    notifier.Config    `json:"notifier"`
	ErrorPolicy common.ErrorPolicy `json:"error_policy"`
	MetricsAddr string             `json:"metrics_addr,omitempty"`
}

// Default returns the configuration used for settings absent from the file.
// The error policy has no default and has to be chosen explicitly.
func Default() Config {
	replayDefaults := replay.DefaultConfig()
	accountDefaults := accounts.DefaultWorkerConfig()
	return Config{
		Database:   sqldb.Config{Driver: sqldb.Postgres, Host: "localhost", Port: 5432},
		LedgerTool: "solana-ledger-tool",
		Blockstore: LevelDB,
		Replay: Replay{
			VerifyInterval:    replayDefaults.VerifyInterval,
			SnapshotOffset:    replayDefaults.SnapshotOffset,
			Backoff:           Duration(replayDefaults.Backoff),
			RetryBackoff:      Duration(replayDefaults.RetryBackoff),
			MaxInsertAttempts: replayDefaults.MaxInsertAttempts,
			MaxQueryAttempts:  replayDefaults.MaxQueryAttempts,
		},
		Accounts: Accounts{
			QueueSize:      accountDefaults.QueueSize,
			ReportInterval: Duration(accountDefaults.ReportInterval),
		},
		Notifier: notifier.Config{Kind: notifier.KindNoop},
	}
}

// Load reads the configuration file at the given path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := utils.ReadJsonFileInto(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration; %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.LedgerPath == "" {
		errs = append(errs, fmt.Errorf("ledger path must be set"))
	}
	if c.SnapshotDir == "" {
		errs = append(errs, fmt.Errorf("snapshot directory must be set"))
	}
	if c.LedgerTool == "" {
		errs = append(errs, fmt.Errorf("ledger tool must be set"))
	}
	if _, err := c.Blockstore.Opener(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Database.DataSource(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Notifier.Validate(); err != nil {
		errs = append(errs, err)
	}
	replayConfig := c.ReplayConfig()
	if err := replayConfig.Validate(); err != nil {
		errs = append(errs, err)
	}
	workerConfig := c.WorkerConfig()
	if err := workerConfig.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ReplayConfig derives the replay engine settings.
func (c *Config) ReplayConfig() replay.Config {
	return replay.Config{
		LedgerPath:        c.LedgerPath,
		SnapshotDir:       c.SnapshotDir,
		VerifyInterval:    c.Replay.VerifyInterval,
		SnapshotOffset:    c.Replay.SnapshotOffset,
		Backoff:           time.Duration(c.Replay.Backoff),
		RetryBackoff:      time.Duration(c.Replay.RetryBackoff),
		MaxInsertAttempts: c.Replay.MaxInsertAttempts,
		MaxQueryAttempts:  c.Replay.MaxQueryAttempts,
		ErrorPolicy:       c.ErrorPolicy,
	}
}

// WorkerConfig derives the account worker settings.
func (c *Config) WorkerConfig() accounts.WorkerConfig {
	return accounts.WorkerConfig{
		QueueSize:      c.Accounts.QueueSize,
		ReportInterval: time.Duration(c.Accounts.ReportInterval),
		ErrorPolicy:    c.ErrorPolicy,
	}
}
