// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package utils

import (
	"os"
	"path/filepath"
	"testing"
)

type manifest struct {
	Slot   uint64 `json:"slot"`
	Ledger string `json:"ledger"`
}

func TestReadJsonFile_CanReadJsonData(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(file, []byte(`{"slot":42,"ledger":"/tmp/ledger"}`), 0600); err != nil {
		t.Fatal(err)
	}

	data, err := ReadJsonFile[manifest](file)
	if err != nil {
		t.Fatal(err)
	}
	if want, got := (manifest{Slot: 42, Ledger: "/tmp/ledger"}), data; want != got {
		t.Errorf("unexpected content: want %+v, got %+v", want, got)
	}
}

func TestReadJsonFile_RejectsUnknownFields(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(file, []byte(`{"slot":42,"legder":"typo"}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadJsonFile[manifest](file); err == nil {
		t.Error("expected an error")
	}
}

func TestReadJsonFile_DetectsMissingFile(t *testing.T) {
	if _, err := ReadJsonFile[manifest](filepath.Join(t.TempDir(), "missing.json")); !os.IsNotExist(err) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWriteJsonFile_WrittenDataCanBeReadBack(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.json")
	want := manifest{Slot: 7, Ledger: "ledger"}
	if err := WriteJsonFile(file, want); err != nil {
		t.Fatalf("failed to write JSON file: %v", err)
	}
	got, err := ReadJsonFile[manifest](file)
	if err != nil {
		t.Fatalf("failed to read JSON file: %v", err)
	}
	if want != got {
		t.Errorf("unexpected content: want %+v, got %+v", want, got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestWriteJsonFile_DetectsMarshalingError(t *testing.T) {
	if err := WriteJsonFile(filepath.Join(t.TempDir(), "data.json"), make(chan bool)); err == nil {
		t.Error("expected an error")
	}
}

func TestWriteJsonFile_DetectsMissingDirectory(t *testing.T) {
	if err := WriteJsonFile(filepath.Join(t.TempDir(), "missing", "data.json"), manifest{}); err == nil {
		t.Error("expected an error")
	}
}

func TestReadJsonFileInto_KeepsAbsentFields(t *testing.T) {
	file := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(file, []byte(`{"slot":42}`), 0600); err != nil {
		t.Fatal(err)
	}
	data := manifest{Slot: 1, Ledger: "default"}
	if err := ReadJsonFileInto(file, &data); err != nil {
		t.Fatalf("failed to read JSON file: %v", err)
	}
	if want, got := (manifest{Slot: 42, Ledger: "default"}), data; want != got {
		t.Errorf("unexpected content: want %+v, got %+v", want, got)
	}
}
