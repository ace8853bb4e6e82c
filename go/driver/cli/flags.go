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

import "github.com/urfave/cli/v2"

type artifactsFlagType struct {
	cli.StringFlag
}

var ArtifactsFlag = &artifactsFlagType{
	cli.StringFlag{
		Name:      "artifacts",
		Aliases:   []string{"a"},
		Usage:     "directory containing the compiled contract artifacts",
		EnvVars:   []string{"SMOCK_ARTIFACTS"},
		Value:     "artifacts",
		TakesFile: true,
	},
}

func (f *artifactsFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type contractFlagType struct {
	cli.StringFlag
}

var ContractFlag = &contractFlagType{
	cli.StringFlag{
		Name:     "contract",
		Aliases:  []string{"c"},
		Usage:    "name of the contract, optionally qualified by its source as in path/File.sol:Name",
		Required: true,
	},
}

func (f *contractFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type valuesFlagType struct {
	cli.StringFlag
}

var ValuesFlag = &valuesFlagType{
	cli.StringFlag{
		Name:     "values",
		Usage:    "JSON object assigning values to state variables",
		Required: true,
	},
}

func (f *valuesFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type countFlagType struct {
	cli.IntFlag
}

var CountFlag = &countFlagType{
	cli.IntFlag{
		Name:    "count",
		Aliases: []string{"n"},
		Usage:   "number of addresses to generate",
		Value:   1,
	},
}

func (f *countFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

type seedFlagType struct {
	cli.Uint64Flag
}

var SeedFlag = &seedFlagType{
	cli.Uint64Flag{
		Name:    "seed",
		Aliases: []string{"s"},
		Usage:   "seed for the random number generator",
	},
}

// Fetch returns the seed and whether it was set.
func (f *seedFlagType) Fetch(context *cli.Context) (uint64, bool) {
	return context.Uint64(f.Name), context.IsSet(f.Name)
}

type verbosityFlagType struct {
	cli.IntFlag
}

var VerbosityFlag = &verbosityFlagType{
	cli.IntFlag{
		Name:    "verbosity",
		Usage:   "log level: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		EnvVars: []string{"SMOCK_VERBOSITY"},
		Value:   3,
	},
}

func (f *verbosityFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}
