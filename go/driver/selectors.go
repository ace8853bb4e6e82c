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
	"fmt"

	cliUtils "github.com/Fantom-foundation/smock/go/driver/cli"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var SelectorsCmd = cli.Command{
	Action: doSelectors,
	Name:   "selectors",
	Usage:  "List the function selectors a mock of the contract dispatches on",
	Flags: []cli.Flag{
		cliUtils.ArtifactsFlag,
		cliUtils.ContractFlag,
	},
}

func doSelectors(context *cli.Context) error {
	compiled, err := loadArtifact(context)
	if err != nil {
		return err
	}
	contractAbi, err := compiled.ParseABI()
	if err != nil {
		return err
	}
	names := maps.Keys(contractAbi.Methods)
	slices.Sort(names)
	for _, name := range names {
		method := contractAbi.Methods[name]
		fmt.Fprintf(context.App.Writer, "0x%x %s\n", method.ID, method.Sig)
	}
	return nil
}
