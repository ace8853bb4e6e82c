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

	"github.com/Fantom-foundation/smock/go/common"
	cliUtils "github.com/Fantom-foundation/smock/go/driver/cli"
	"github.com/urfave/cli/v2"
	"pgregory.net/rand"
)

var AddressCmd = cli.Command{
	Action: doAddress,
	Name:   "address",
	Usage:  "Generate checksummed addresses as used for mocks",
	Flags: []cli.Flag{
		cliUtils.CountFlag,
		cliUtils.SeedFlag,
	},
}

func doAddress(context *cli.Context) error {
	count := cliUtils.CountFlag.Fetch(context)
	if count < 0 {
		return fmt.Errorf("invalid count %d", count)
	}
	var rnd *rand.Rand
	if seed, set := cliUtils.SeedFlag.Fetch(context); set {
		rnd = rand.New(seed)
	}
	allocator := common.NewAddressAllocator(rnd, nil)
	for i := 0; i < count; i++ {
		fmt.Fprintln(context.App.Writer, common.ChecksumAddress(allocator.Next()))
	}
	return nil
}
