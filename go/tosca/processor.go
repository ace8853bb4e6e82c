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

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

//go:generate mockgen -source processor.go -destination processor_mock.go -package tosca

// Processor executes transactions on a TransactionContext.
type Processor interface {
	Run(BlockParameters, Transaction, TransactionContext) (Receipt, error)
}

// Transaction is a message sent from an externally owned account.
type Transaction struct {
	Sender    Address  // pays for the gas
	Recipient *Address // nil for contract creations
	Nonce     uint64   // must match the sender's account nonce
	Input     Data
	Value     Value
	GasLimit  Gas
	GasPrice  Value
}

// Receipt is the outcome of a transaction.
type Receipt struct {
	Success         bool
	Output          Data     // return or revert data
	ContractAddress *Address // set by successful creations
	GasUsed         Gas
	Logs            []Log // empty unless successful
}

// ProcessorFactory creates a processor running code on the given interpreter.
type ProcessorFactory func(interpreter Interpreter) Processor

// NewProcessor creates a processor of the named kind on top of the given
// interpreter.
func NewProcessor(name string, interpreter Interpreter) (Processor, error) {
	factory := GetProcessorFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("processor not found: %s", name)
	}
	return factory(interpreter), nil
}

// GetProcessorFactory returns the factory registered under the given name, or
// nil if there is none. Names are case insensitive.
func GetProcessorFactory(name string) ProcessorFactory {
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	return processorRegistry[strings.ToLower(name)]
}

// GetAllRegisteredProcessorFactories returns a snapshot of the registry.
func GetAllRegisteredProcessorFactories() map[string]ProcessorFactory {
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	return maps.Clone(processorRegistry)
}

// RegisterProcessorFactory registers a new processor factory under the given
// name. It panics if the name is already taken or the factory is nil, since
// registration happens during package initialization.
func RegisterProcessorFactory(name string, factory ProcessorFactory) {
	key := strings.ToLower(name)
	if factory == nil {
		panic(fmt.Sprintf("invalid initialization: cannot register nil-factory using `%s`", key))
	}
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	if _, found := processorRegistry[key]; found {
		panic(fmt.Sprintf("invalid initialization: multiple factories registered for `%s`", key))
	}
	processorRegistry[key] = factory
}

var processorRegistry = map[string]ProcessorFactory{}

var processorRegistryLock sync.Mutex
