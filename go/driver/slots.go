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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Fantom-foundation/smock/go/artifact"
	cliUtils "github.com/Fantom-foundation/smock/go/driver/cli"
	"github.com/Fantom-foundation/smock/go/smod"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var SlotsCmd = cli.Command{
	Action: doSlots,
	Name:   "slots",
	Usage:  "Resolve the storage slots written by assigning values to state variables",
	Flags: []cli.Flag{
		cliUtils.ArtifactsFlag,
		cliUtils.ContractFlag,
		cliUtils.ValuesFlag,
	},
}

func doSlots(context *cli.Context) error {
	compiled, err := loadArtifact(context)
	if err != nil {
		return err
	}
	layout, err := compiled.Layout()
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(strings.NewReader(cliUtils.ValuesFlag.Fetch(context)))
	decoder.UseNumber()
	var values map[string]any
	if err := decoder.Decode(&values); err != nil {
		return fmt.Errorf("invalid values: %w", err)
	}

	slots, err := smod.ResolveSlots(layout, values)
	if err != nil {
		return err
	}
	log.Debug("Resolved storage slots", "contract", compiled.FullyQualifiedName(), "slots", len(slots))
	for _, slot := range slots {
		fmt.Fprintln(context.App.Writer, slot)
	}
	return nil
}

func loadArtifact(context *cli.Context) (*artifact.Artifact, error) {
	store, err := artifact.NewStore(cliUtils.ArtifactsFlag.Fetch(context))
	if err != nil {
		return nil, err
	}
	return store.Load(cliUtils.ContractFlag.Fetch(context))
}
