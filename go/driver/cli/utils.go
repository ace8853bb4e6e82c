// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cliUtils

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

// SetupLogging installs a terminal logger writing to out at the level
// selected by the verbosity flag.
func SetupLogging(context *cli.Context, out io.Writer) error {
	verbosity := VerbosityFlag.Fetch(context)
	if verbosity < 0 || verbosity > 5 {
		return fmt.Errorf("invalid verbosity %d, must be between 0 and 5", verbosity)
	}
	handler := log.NewTerminalHandlerWithLevel(out, log.FromLegacyLevel(verbosity), false)
	log.SetDefault(log.NewLogger(handler))
	return nil
}
