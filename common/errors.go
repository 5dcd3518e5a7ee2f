// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"fmt"
	"strings"
)

// ConstError is an error type that can be used for declaring error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

const ErrUnknownErrorPolicy = ConstError("unknown error policy")

// ErrorPolicy decides what a pipeline does once an operation has exhausted
// its retries. There is intentionally no usable zero value: configurations
// have to name the policy they want.
type ErrorPolicy int

const (
	// PolicyUnset is the zero value and is rejected by configuration validation.
	PolicyUnset ErrorPolicy = iota
	// AbortOnError stops the affected pipeline and reports the error.
	AbortOnError
	// LogAndContinue logs the error and keeps the pipeline running.
	LogAndContinue
)

// ParseErrorPolicy parses the textual form of a policy ("abort" or "continue").
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort":
		return AbortOnError, nil
	case "continue":
		return LogAndContinue, nil
	}
	return PolicyUnset, fmt.Errorf("%w: %q", ErrUnknownErrorPolicy, s)
}

func (p ErrorPolicy) String() string {
	switch p {
	case AbortOnError:
		return "abort"
	case LogAndContinue:
		return "continue"
	}
	return "unset"
}

// Abort reports whether errors should terminate the pipeline.
func (p ErrorPolicy) Abort() bool {
	return p != LogAndContinue
}

func (p ErrorPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ErrorPolicy) UnmarshalText(text []byte) error {
	res, err := ParseErrorPolicy(string(text))
	if err != nil {
		return err
	}
	*p = res
	return nil
}
