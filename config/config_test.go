// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Eclipse-Laboratories-Inc/execution/backend/sqldb"
	"github.com/Eclipse-Laboratories-Inc/execution/common"
	"github.com/Eclipse-Laboratories-Inc/execution/notifier"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "replayer.json")
	if err := os.WriteFile(file, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return file
}

const fullConfig = `{
	"database": {"driver": "postgres", "host": "db", "user": "solana", "password": "secret", "dbname": "shreds", "port": 5433},
	"ledger_path": "/data/ledger",
	"genesis_path": "/data/genesis.bin",
	"snapshot_dir": "/data/snapshots",
	"ledger_tool": "/usr/bin/solana-ledger-tool",
	"blockstore": "badger",
	"replay": {"verify_interval": 20, "snapshot_offset": 4, "backoff": "2s", "retry_backoff": "100ms", "max_insert_attempts": 3, "max_query_attempts": 7},
	"accounts": {"queue_size": 50, "report_interval": "30s"},
	"notifier": {"kind": "persist", "select_all_entries": true},
	"error_policy": "continue",
	"metrics_addr": ":9090"
}`

func TestLoad_ReadsAllSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, sqldb.Config{Driver: sqldb.Postgres, Host: "db", Port: 5433, User: "solana", Password: "secret", DBName: "shreds"}, cfg.Database)
	require.Equal(t, "/data/ledger", cfg.LedgerPath)
	require.Equal(t, "/data/genesis.bin", cfg.GenesisPath)
	require.Equal(t, Badger, cfg.Blockstore)
	require.Equal(t, notifier.Config{Kind: notifier.KindPersist, SelectAllEntries: true}, cfg.Notifier)
	require.Equal(t, ":9090", cfg.MetricsAddr)

	replayConfig := cfg.ReplayConfig()
	require.Equal(t, uint64(20), replayConfig.VerifyInterval)
	require.Equal(t, uint64(4), replayConfig.SnapshotOffset)
	require.Equal(t, 2*time.Second, replayConfig.Backoff)
	require.Equal(t, 100*time.Millisecond, replayConfig.RetryBackoff)
	require.Equal(t, 3, replayConfig.MaxInsertAttempts)
	require.Equal(t, 7, replayConfig.MaxQueryAttempts)
	require.Equal(t, common.LogAndContinue, replayConfig.ErrorPolicy)
	require.Equal(t, "/data/snapshots", replayConfig.SnapshotDir)

	workerConfig := cfg.WorkerConfig()
	require.Equal(t, 50, workerConfig.QueueSize)
	require.Equal(t, 30*time.Second, workerConfig.ReportInterval)
	require.Equal(t, common.LogAndContinue, workerConfig.ErrorPolicy)
}

func TestLoad_AbsentSettingsUseDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"ledger_path": "ledger",
		"snapshot_dir": "snapshots",
		"database": {"host": "db", "dbname": "shreds"},
		"error_policy": "abort"
	}`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, LevelDB, cfg.Blockstore)
	require.Equal(t, uint16(5432), cfg.Database.Port)
	require.Equal(t, uint64(50), cfg.Replay.VerifyInterval)
	require.Equal(t, uint64(10), cfg.Replay.SnapshotOffset)
	require.Equal(t, Duration(10*time.Second), cfg.Replay.Backoff)
	require.Equal(t, 100, cfg.Accounts.QueueSize)
	require.Equal(t, notifier.KindNoop, cfg.Notifier.Kind)
}

func TestLoad_RejectsMalformedFiles(t *testing.T) {
	tests := map[string]string{
		"unknown field":  `{"ledger_paht": "typo"}`,
		"bad duration":   `{"replay": {"backoff": "soon"}}`,
		"bad policy":     `{"error_policy": "panic"}`,
		"not an object":  `[]`,
		"truncated file": `{"ledger_path": `,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestValidate_RequiresExplicitErrorPolicy(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"ledger_path": "ledger", "snapshot_dir": "snapshots"}`))
	require.NoError(t, err)
	require.Equal(t, common.PolicyUnset, cfg.ErrorPolicy)
	require.ErrorContains(t, cfg.Validate(), "error policy")
}

func TestValidate_DetectsInconsistentSettings(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.LedgerPath = "ledger"
		cfg.SnapshotDir = "snapshots"
		cfg.ErrorPolicy = common.AbortOnError
		return cfg
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := map[string]func(*Config){
		"missing ledger":       func(c *Config) { c.LedgerPath = "" },
		"missing snapshot dir": func(c *Config) { c.SnapshotDir = "" },
		"missing ledger tool":  func(c *Config) { c.LedgerTool = "" },
		"unknown blockstore":   func(c *Config) { c.Blockstore = "rocksdb" },
		"unknown driver":       func(c *Config) { c.Database.Driver = "mysql" },
		"unknown notifier":     func(c *Config) { c.Notifier.Kind = "geyser" },
		"offset too large":     func(c *Config) { c.Replay.SnapshotOffset = c.Replay.VerifyInterval },
		"empty queue":          func(c *Config) { c.Accounts.QueueSize = 0 },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			modify(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestBlockstoreKind_OpensLedger(t *testing.T) {
	for _, kind := range []BlockstoreKind{LevelDB, Badger, InMemory} {
		t.Run(string(kind), func(t *testing.T) {
			open, err := kind.Opener()
			require.NoError(t, err)
			ledger, err := open(t.TempDir())
			require.NoError(t, err)
			require.NoError(t, ledger.Close())
		})
	}
}

func TestDuration_TextEncoding(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	require.Equal(t, Duration(90*time.Second), d)
	text, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1m30s", string(text))
}
