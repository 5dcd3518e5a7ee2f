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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ReadJsonFile reads a JSON file and unmarshals it into a value of type T.
// Fields not present in T are rejected to surface misspelled settings.
func ReadJsonFile[T any](file string) (T, error) {
	var res T
	if err := ReadJsonFileInto(file, &res); err != nil {
		var zero T
		return zero, err
	}
	return res, nil
}

// ReadJsonFileInto unmarshals a JSON file over the given value. Fields absent
// from the file retain their current values.
func ReadJsonFileInto[T any](file string, res *T) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(res); err != nil {
		return fmt.Errorf("failed to parse %s; %w", file, err)
	}
	return nil
}

// WriteJsonFile writes data as indented JSON. The content is written to a
// temporary file first and renamed, so readers never observe partial files.
func WriteJsonFile[T any](file string, data T) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		return errors.Join(err, tmp.Close(), os.Remove(tmp.Name()))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(err, os.Remove(tmp.Name()))
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		return errors.Join(err, os.Remove(tmp.Name()))
	}
	return nil
}
