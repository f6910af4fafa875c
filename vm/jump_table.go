// Copyright 2024 The symbex Authors
// This file is part of the symbex library.
//
// The symbex library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The symbex library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

package vm

import (
	"github.com/symbex-labs/symbex/evmimage"
	"github.com/symbex-labs/symbex/params"
)

// executionFunc is the per-opcode handler. It returns the pc delta to
// apply when the operation does not itself own pc (jumps == false);
// for a jumping operation it has already written Frame.PC and the
// returned delta is ignored.
type executionFunc func(ip *Interpreter, f *Frame, p *Path) (StepResult, int, error)

// operation mirrors a classic EVM jump-table entry's shape — {execute,
// minStack, maxStack, halts, jumps, writes, reverts, returns} — with
// the gas-accounting fields collapsed into a single constantGas (gas is
// tracked but never a termination criterion here) and valid dropped in
// favor of a nil execute.
type operation struct {
	execute     executionFunc
	constantGas uint64
	minStack    int
	maxStack    int

	halts   bool
	jumps   bool
	writes  bool
	reverts bool
	returns bool
}

// JumpTable contains one operation per possible opcode byte.
type JumpTable [256]operation

func minStack(pops, pushes int) int { return pops }
func maxStack(pops, pushes int) int { return 1024 - pushes + pops }

var defaultJumpTable = newJumpTable()

func newJumpTable() JumpTable {
	var tbl JumpTable

	set := func(op evmimage.OpCode, o operation) { tbl[op] = o }

	arith := func(op evmimage.OpCode, fn executionFunc) {
		set(op, operation{execute: fn, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)})
	}
	arith(evmimage.ADD, opAdd)
	arith(evmimage.MUL, opMul)
	arith(evmimage.SUB, opSub)
	arith(evmimage.DIV, opDiv)
	arith(evmimage.SDIV, opSDiv)
	arith(evmimage.MOD, opMod)
	arith(evmimage.SMOD, opSMod)
	arith(evmimage.AND, opAnd)
	arith(evmimage.OR, opOr)
	arith(evmimage.XOR, opXor)
	arith(evmimage.LT, opLt)
	arith(evmimage.GT, opGt)
	arith(evmimage.SLT, opSlt)
	arith(evmimage.SGT, opSgt)
	arith(evmimage.EQ, opEq)
	arith(evmimage.BYTE, opByte)
	arith(evmimage.SHL, opShl)
	arith(evmimage.SHR, opShr)
	arith(evmimage.SAR, opSar)
	arith(evmimage.SIGNEXTEND, opSignExtend)

	set(evmimage.ADDMOD, operation{execute: opAddMod, constantGas: params.GasMidStep, minStack: minStack(3, 1), maxStack: maxStack(3, 1)})
	set(evmimage.MULMOD, operation{execute: opMulMod, constantGas: params.GasMidStep, minStack: minStack(3, 1), maxStack: maxStack(3, 1)})
	set(evmimage.EXP, operation{execute: opExp, constantGas: params.GasSlowStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)})
	set(evmimage.NOT, operation{execute: opNot, constantGas: params.GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(evmimage.ISZERO, operation{execute: opIsZero, constantGas: params.GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(evmimage.SHA3, operation{execute: opSha3, constantGas: params.Sha3Gas, minStack: minStack(2, 1), maxStack: maxStack(2, 1)})

	set(evmimage.ADDRESS, operation{execute: opAddress, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.BALANCE, operation{execute: opBalance, constantGas: params.CallGasCIP150, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(evmimage.ORIGIN, operation{execute: opOrigin, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.CALLER, operation{execute: opCaller, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.CALLVALUE, operation{execute: opCallValue, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.CALLDATALOAD, operation{execute: opCallDataLoad, constantGas: params.GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(evmimage.CALLDATASIZE, operation{execute: opCallDataSize, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.CALLDATACOPY, operation{execute: opCallDataCopy, constantGas: params.GasFastestStep, minStack: minStack(3, 0), maxStack: maxStack(3, 0)})
	set(evmimage.CODESIZE, operation{execute: opCodeSize, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.CODECOPY, operation{execute: opCodeCopy, constantGas: params.GasFastestStep, minStack: minStack(3, 0), maxStack: maxStack(3, 0)})
	set(evmimage.RETURNDATASIZE, operation{execute: opReturnDataSize, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.RETURNDATACOPY, operation{execute: opReturnDataCopy, constantGas: params.GasFastestStep, minStack: minStack(3, 0), maxStack: maxStack(3, 0)})
	set(evmimage.GASPRICE, operation{execute: opGasPrice, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.EXTCODESIZE, operation{execute: opExtCodeSize, constantGas: params.CallGasCIP150, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(evmimage.EXTCODEHASH, operation{execute: opExtCodeHash, constantGas: params.CallGasCIP150, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})

	set(evmimage.BLOCKHASH, operation{execute: opBlockhash, constantGas: params.GasExtStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(evmimage.COINBASE, operation{execute: opCoinbase, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.TIMESTAMP, operation{execute: opTimestamp, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.NUMBER, operation{execute: opNumber, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.DIFFICULTY, operation{execute: opPrevRandao, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.GASLIMIT, operation{execute: opGasLimit, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.CHAINID, operation{execute: opChainID, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.SELFBALANCE, operation{execute: opSelfBalance, constantGas: params.GasFastStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.BASEFEE, operation{execute: opBaseFee, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})

	set(evmimage.POP, operation{execute: opPop, constantGas: params.GasQuickStep, minStack: minStack(1, 0), maxStack: maxStack(1, 0)})
	set(evmimage.MLOAD, operation{execute: opMload, constantGas: params.GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(evmimage.MSTORE, operation{execute: opMstore, constantGas: params.GasFastestStep, minStack: minStack(2, 0), maxStack: maxStack(2, 0)})
	set(evmimage.MSTORE8, operation{execute: opMstore8, constantGas: params.GasFastestStep, minStack: minStack(2, 0), maxStack: maxStack(2, 0)})
	set(evmimage.SLOAD, operation{execute: opSload, constantGas: params.SloadGas, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(evmimage.SSTORE, operation{execute: opSstore, constantGas: params.SloadGas, minStack: minStack(2, 0), maxStack: maxStack(2, 0), writes: true})
	set(evmimage.JUMP, operation{execute: opJump, constantGas: params.GasMidStep, minStack: minStack(1, 0), maxStack: maxStack(1, 0), jumps: true})
	set(evmimage.JUMPI, operation{execute: opJumpi, constantGas: params.GasSlowStep, minStack: minStack(2, 0), maxStack: maxStack(2, 0), jumps: true})
	set(evmimage.PC, operation{execute: opPc, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.MSIZE, operation{execute: opMsize, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.GAS, operation{execute: opGas, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(evmimage.JUMPDEST, operation{execute: opJumpdest, constantGas: params.JumpdestGas, minStack: minStack(0, 0), maxStack: maxStack(0, 0)})
	set(evmimage.PUSH0, operation{execute: opPush0, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})

	for i := 1; i <= 32; i++ {
		op := evmimage.PUSH1 + evmimage.OpCode(i-1)
		set(op, operation{execute: makePush(i), constantGas: params.GasFastestStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	}
	for i := 1; i <= 16; i++ {
		op := evmimage.DUP1 + evmimage.OpCode(i-1)
		set(op, operation{execute: makeDup(i), constantGas: params.GasFastestStep, minStack: minStack(i, i+1), maxStack: maxStack(i, i+1)})
	}
	for i := 1; i <= 16; i++ {
		op := evmimage.SWAP1 + evmimage.OpCode(i-1)
		set(op, operation{execute: makeSwap(i), constantGas: params.GasFastestStep, minStack: minStack(i+1, i+1), maxStack: maxStack(i+1, i+1)})
	}
	for i := 0; i <= 4; i++ {
		op := evmimage.LOG0 + evmimage.OpCode(i)
		set(op, operation{execute: makeLog(i), constantGas: params.LogGas, minStack: minStack(2+i, 0), maxStack: maxStack(2+i, 0), writes: true})
	}

	set(evmimage.STOP, operation{execute: opStop, minStack: minStack(0, 0), maxStack: maxStack(0, 0), halts: true})
	set(evmimage.RETURN, operation{execute: opReturn, minStack: minStack(2, 0), maxStack: maxStack(2, 0), halts: true, returns: true})
	set(evmimage.REVERT, operation{execute: opRevert, minStack: minStack(2, 0), maxStack: maxStack(2, 0), halts: true, reverts: true, returns: true})
	set(evmimage.INVALID, operation{execute: opInvalid, halts: true, reverts: true})
	set(evmimage.SELFDESTRUCT, operation{execute: opSelfdestruct, minStack: minStack(1, 0), maxStack: maxStack(1, 0), halts: true, writes: true})

	set(evmimage.CALL, operation{execute: makeCall(CallRegular), constantGas: params.CallGasCIP150, minStack: minStack(7, 1), maxStack: maxStack(7, 1)})
	set(evmimage.CALLCODE, operation{execute: makeCall(CallCode), constantGas: params.CallGasCIP150, minStack: minStack(7, 1), maxStack: maxStack(7, 1)})
	set(evmimage.DELEGATECALL, operation{execute: makeCall(CallDelegate), constantGas: params.CallGasCIP150, minStack: minStack(6, 1), maxStack: maxStack(6, 1)})
	set(evmimage.STATICCALL, operation{execute: makeCall(CallStatic), constantGas: params.CallGasCIP150, minStack: minStack(6, 1), maxStack: maxStack(6, 1)})
	set(evmimage.CREATE, operation{execute: makeCreate(CallCreate), constantGas: params.CreateGas, minStack: minStack(3, 1), maxStack: maxStack(3, 1), writes: true})
	set(evmimage.CREATE2, operation{execute: makeCreate(CallCreate2), constantGas: params.CreateGas, minStack: minStack(4, 1), maxStack: maxStack(4, 1), writes: true})
	set(evmimage.EXTCODECOPY, operation{execute: opExtCodeCopy, constantGas: params.CallGasCIP150, minStack: minStack(4, 0), maxStack: maxStack(4, 0)})

	return tbl
}
