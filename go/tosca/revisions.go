// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

import "fmt"

// Revision selects the hard fork rules code is executed under.
type Revision int

const (
	R07_Istanbul Revision = iota
	R09_Berlin
	R10_London
	R11_Paris
	R12_Shanghai
	R13_Cancun
)

var revisionNames = [...]string{"Istanbul", "Berlin", "London", "Paris", "Shanghai", "Cancun"}

func (r Revision) String() string {
	if r >= 0 && int(r) < len(revisionNames) {
		return revisionNames[r]
	}
	return fmt.Sprintf("Revision(%d)", int(r))
}
