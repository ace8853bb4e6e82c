// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package evm

import (
	"bytes"
	"math"

	"github.com/Fantom-foundation/smock/go/tosca"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	maxCodeSize     = 24576
	maxInitCodeSize = 2 * maxCodeSize
)

func opEndWithResult(c *context) error {
	offset, size := c.stack.pop(), c.stack.pop()
	data, err := c.memory.getSlice(offset, size, c)
	if err != nil {
		return err
	}
	c.returnData = bytes.Clone(data)
	return nil
}

func opPush(c *context, n int) {
	start := min(c.pc+1, len(c.code))
	end := min(start+n, len(c.code))
	var data [32]byte
	copy(data[:n], c.code[start:end])
	c.stack.pushUndefined().SetBytes(data[:n])
	c.pc += n
}

func opJump(c *context) error {
	return jumpTo(c, c.stack.pop())
}

func opJumpi(c *context) error {
	destination, condition := c.stack.pop(), c.stack.pop()
	if condition.IsZero() {
		return nil
	}
	return jumpTo(c, destination)
}

func jumpTo(c *context, destination *uint256.Int) error {
	if !destination.IsUint64() || !c.jumpdests.isSet(destination.Uint64()) {
		return errInvalidJump
	}
	// the interpreter loop moves to the next instruction afterwards
	c.pc = int(destination.Uint64()) - 1
	return nil
}

func opUnary(c *context, op vm.OpCode) {
	top := c.stack.peek()
	switch op {
	case vm.ISZERO:
		if top.IsZero() {
			top.SetOne()
		} else {
			top.Clear()
		}
	case vm.NOT:
		top.Not(top)
	}
}

func opBinary(c *context, op vm.OpCode) {
	a, b := c.stack.pop(), c.stack.peek()
	switch op {
	case vm.ADD:
		b.Add(a, b)
	case vm.SUB:
		b.Sub(a, b)
	case vm.MUL:
		b.Mul(a, b)
	case vm.DIV:
		b.Div(a, b)
	case vm.SDIV:
		b.SDiv(a, b)
	case vm.MOD:
		b.Mod(a, b)
	case vm.SMOD:
		b.SMod(a, b)
	case vm.SIGNEXTEND:
		b.ExtendSign(b, a)
	case vm.AND:
		b.And(a, b)
	case vm.OR:
		b.Or(a, b)
	case vm.XOR:
		b.Xor(a, b)
	case vm.BYTE:
		b.Byte(a)
	case vm.LT:
		setBool(b, a.Lt(b))
	case vm.GT:
		setBool(b, a.Gt(b))
	case vm.SLT:
		setBool(b, a.Slt(b))
	case vm.SGT:
		setBool(b, a.Sgt(b))
	case vm.EQ:
		setBool(b, a.Eq(b))
	case vm.SHL:
		if a.LtUint64(256) {
			b.Lsh(b, uint(a.Uint64()))
		} else {
			b.Clear()
		}
	case vm.SHR:
		if a.LtUint64(256) {
			b.Rsh(b, uint(a.Uint64()))
		} else {
			b.Clear()
		}
	case vm.SAR:
		if a.GtUint64(255) {
			if b.Sign() >= 0 {
				b.Clear()
			} else {
				b.SetAllOne()
			}
		} else {
			b.SRsh(b, uint(a.Uint64()))
		}
	}
}

func opTernary(c *context, op vm.OpCode) {
	a, b, n := c.stack.pop(), c.stack.pop(), c.stack.peek()
	if n.IsZero() {
		return
	}
	switch op {
	case vm.ADDMOD:
		n.AddMod(a, b, n)
	case vm.MULMOD:
		n.MulMod(a, b, n)
	}
}

func setBool(z *uint256.Int, value bool) {
	if value {
		z.SetOne()
	} else {
		z.Clear()
	}
}

func opExp(c *context) error {
	base, exponent := c.stack.pop(), c.stack.peek()
	if err := c.useGas(gasExpByte * tosca.Gas(exponent.ByteLen())); err != nil {
		return err
	}
	exponent.Exp(base, exponent)
	return nil
}

func opSha3(c *context) error {
	offset, size := c.stack.pop(), c.stack.peek()
	data, err := c.memory.getSlice(offset, size, c)
	if err != nil {
		return err
	}
	if err := c.useGas(gasKeccakWord * tosca.Gas(sizeInWords(size.Uint64()))); err != nil {
		return err
	}
	size.SetBytes32(crypto.Keccak256(data))
	return nil
}

func opMcopy(c *context) error {
	destination, source, size := c.stack.pop(), c.stack.pop(), c.stack.pop()
	if size.IsZero() {
		return nil
	}
	if !size.IsUint64() {
		return errOverflow
	}
	if err := c.useGas(gasCopyWord * tosca.Gas(sizeInWords(size.Uint64()))); err != nil {
		return err
	}
	// expand for both regions before taking slices aliasing the memory
	if _, err := c.memory.getSlice(destination, size, c); err != nil {
		return err
	}
	src, err := c.memory.getSlice(source, size, c)
	if err != nil {
		return err
	}
	dst, _ := c.memory.getSlice(destination, size, c)
	copy(dst, src)
	return nil
}

func opSload(c *context) error {
	top := c.stack.peek()
	value := c.context.GetStorage(c.params.Recipient, tosca.Key(top.Bytes32()))
	top.SetBytes32(value[:])
	return nil
}

func opSstore(c *context) error {
	if c.params.Static {
		return errStaticContextViolation
	}
	// EIP-2200 demands that at least 2300 gas is available for SSTORE
	if c.gas <= gasSstoreSentry {
		return errOutOfGas
	}

	key := tosca.Key(c.stack.pop().Bytes32())
	value := tosca.Word(c.stack.pop().Bytes32())
	cost, refund := sstoreCosts(c.context.SetStorage(c.params.Recipient, key, value))
	if err := c.useGas(cost); err != nil {
		return err
	}
	c.refund += refund
	return nil
}

func opCallDataload(c *context) {
	top := c.stack.peek()
	if !top.IsUint64() {
		top.Clear()
		return
	}
	top.SetBytes32(getData(c.params.Input, top.Uint64(), 32))
}

// getData returns size bytes of data starting at start, right-padded with
// zeros where data is too short.
func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length || end < start {
		end = length
	}
	res := make([]byte, size)
	copy(res, data[start:end])
	return res
}

func genericDataCopy(c *context, data []byte) error {
	memOffset, dataOffset, length := c.stack.pop(), c.stack.pop(), c.stack.pop()
	return copyToMemory(c, data, memOffset, dataOffset, length)
}

func copyToMemory(c *context, data []byte, memOffset, dataOffset, length *uint256.Int) error {
	if !length.IsUint64() {
		return errOverflow
	}
	if err := c.useGas(gasCopyWord * tosca.Gas(sizeInWords(length.Uint64()))); err != nil {
		return err
	}
	offset, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		offset = math.MaxUint64
	}
	target, err := c.memory.getSlice(memOffset, length, c)
	if err != nil {
		return err
	}
	copy(target, getData(data, offset, length.Uint64()))
	return nil
}

func opReturnDataCopy(c *context) error {
	memOffset, dataOffset, length := c.stack.pop(), c.stack.pop(), c.stack.pop()

	start, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return errReturnDataOutOfBounds
	}
	end := new(uint256.Int).Add(dataOffset, length)
	end64, overflow := end.Uint64WithOverflow()
	if overflow || uint64(len(c.returnData)) < end64 {
		return errReturnDataOutOfBounds
	}
	if err := c.useGas(gasCopyWord * tosca.Gas(sizeInWords(length.Uint64()))); err != nil {
		return err
	}
	target, err := c.memory.getSlice(memOffset, length, c)
	if err != nil {
		return err
	}
	copy(target, c.returnData[start:end64])
	return nil
}

func opExtcodehash(c *context) {
	top := c.stack.peek()
	address := tosca.Address(top.Bytes20())
	if !c.context.AccountExists(address) && c.context.GetCodeSize(address) == 0 {
		top.Clear()
		return
	}
	hash := c.context.GetCodeHash(address)
	top.SetBytes32(hash[:])
}

func opExtCodeCopy(c *context) error {
	address := tosca.Address(c.stack.pop().Bytes20())
	memOffset, codeOffset, length := c.stack.pop(), c.stack.pop(), c.stack.pop()
	return copyToMemory(c, c.context.GetCode(address), memOffset, codeOffset, length)
}

func opSelfdestruct(c *context) (status, error) {
	if c.params.Static {
		return statusFailed, errStaticContextViolation
	}
	beneficiary := tosca.Address(c.stack.pop().Bytes20())
	balance := c.context.GetBalance(c.params.Recipient)
	if !c.context.AccountExists(beneficiary) && balance != (tosca.Value{}) {
		if err := c.useGas(gasCallNewAccount); err != nil {
			return statusFailed, err
		}
	}
	destructed := c.context.SelfDestruct(c.params.Recipient, beneficiary)
	// since London there is no refund (EIP-3529)
	if destructed && !c.isAtLeast(tosca.R10_London) {
		c.refund += 24_000
	}
	return statusSelfDestructed, nil
}

func opLog(c *context, numTopics int) error {
	if c.params.Static {
		return errStaticContextViolation
	}
	offset, size := c.stack.pop(), c.stack.pop()
	topics := make([]tosca.Hash, numTopics)
	for i := range topics {
		topics[i] = c.stack.pop().Bytes32()
	}
	if !size.IsUint64() {
		return errOverflow
	}
	if err := c.useGas(gasLogData * tosca.Gas(size.Uint64())); err != nil {
		return err
	}
	data, err := c.memory.getSlice(offset, size, c)
	if err != nil {
		return err
	}
	c.context.EmitLog(tosca.Log{
		Address: c.params.Recipient,
		Topics:  topics,
		Data:    bytes.Clone(data),
	})
	return nil
}

func opCall(c *context) error {
	// in a static context no value must be transferred
	if c.params.Static && !c.stack.peekN(2).IsZero() {
		return errStaticContextViolation
	}
	return genericCall(c, tosca.Call)
}

func genericCall(c *context, kind tosca.CallKind) error {
	value := uint256.NewInt(0)
	providedGas, addr := c.stack.pop(), c.stack.pop()
	if kind == tosca.Call || kind == tosca.CallCode {
		value = c.stack.pop()
	}
	inOffset, inSize, retOffset, retSize := c.stack.pop(), c.stack.pop(), c.stack.pop(), c.stack.pop()
	toAddr := tosca.Address(addr.Bytes20())

	// expand memory for both regions before aliasing either of them
	if _, err := c.memory.getSlice(inOffset, inSize, c); err != nil {
		return err
	}
	if _, err := c.memory.getSlice(retOffset, retSize, c); err != nil {
		return err
	}
	args, _ := c.memory.getSlice(inOffset, inSize, c)
	output, _ := c.memory.getSlice(retOffset, retSize, c)

	if !value.IsZero() {
		if err := c.useGas(gasCallValueTransfer); err != nil {
			return err
		}
		if kind == tosca.Call && !c.context.AccountExists(toAddr) {
			if err := c.useGas(gasCallNewAccount); err != nil {
				return err
			}
		}
	}

	// EIP-150: all but one 64th of the available gas may be forwarded
	nestedCallGas := c.gas - c.gas/64
	if providedGas.IsUint64() && nestedCallGas >= tosca.Gas(providedGas.Uint64()) {
		nestedCallGas = tosca.Gas(providedGas.Uint64())
	}
	if err := c.useGas(nestedCallGas); err != nil {
		return err
	}
	if !value.IsZero() {
		nestedCallGas += gasCallStipend
	}

	if (kind == tosca.Call || kind == tosca.CallCode) && !value.IsZero() {
		balance := c.context.GetBalance(c.params.Recipient)
		if balance.ToUint256().Lt(value) {
			c.stack.pushUndefined().Clear()
			c.returnData = nil
			c.gas += nestedCallGas
			return nil
		}
	}

	// nested calls of a static frame are static as well
	if c.params.Static && kind == tosca.Call {
		kind = tosca.StaticCall
	}

	callParams := tosca.CallParameters{
		Input: bytes.Clone(args),
		Gas:   nestedCallGas,
		Value: tosca.Value(value.Bytes32()),
	}
	switch kind {
	case tosca.Call, tosca.StaticCall:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = toAddr
	case tosca.CallCode:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = toAddr
	case tosca.DelegateCall:
		callParams.Sender = c.params.Sender
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = toAddr
		callParams.Value = c.params.Value
	}

	ret, err := c.context.Call(kind, callParams)
	if err != nil {
		return err
	}
	copy(output, ret.Output)
	setBool(c.stack.pushUndefined(), ret.Success)
	c.gas += ret.GasLeft
	c.refund += ret.GasRefund
	c.returnData = ret.Output
	return nil
}

func genericCreate(c *context, kind tosca.CallKind) error {
	if c.params.Static {
		return errStaticContextViolation
	}

	value, offset, size := c.stack.pop(), c.stack.pop(), c.stack.pop()
	salt := tosca.Hash{}
	if kind == tosca.Create2 {
		salt = c.stack.pop().Bytes32()
	}

	input, err := c.memory.getSlice(offset, size, c)
	if err != nil {
		return err
	}
	words := tosca.Gas(sizeInWords(uint64(len(input))))
	if c.isAtLeast(tosca.R12_Shanghai) {
		if len(input) > maxInitCodeSize {
			return errInitCodeTooLarge
		}
		if err := c.useGas(gasInitCodeWord * words); err != nil {
			return err
		}
	}
	if kind == tosca.Create2 {
		// hashing the init code to compute the target address
		if err := c.useGas(gasKeccakWord * words); err != nil {
			return err
		}
	}

	if !value.IsZero() {
		balance := c.context.GetBalance(c.params.Recipient)
		if value.Gt(balance.ToUint256()) {
			c.stack.pushUndefined().Clear()
			c.returnData = nil
			return nil
		}
	}

	gas := c.gas - c.gas/64
	if err := c.useGas(gas); err != nil {
		return err
	}

	res, err := c.context.Call(kind, tosca.CallParameters{
		Sender: c.params.Recipient,
		Value:  tosca.Value(value.Bytes32()),
		Input:  bytes.Clone(input),
		Gas:    gas,
		Salt:   salt,
	})
	if err != nil {
		return err
	}

	result := c.stack.pushUndefined()
	if res.Success {
		result.SetBytes20(res.CreatedAddress[:])
		c.returnData = nil
	} else {
		result.Clear()
		c.returnData = res.Output
	}
	c.gas += res.GasLeft
	c.refund += res.GasRefund
	return nil
}
