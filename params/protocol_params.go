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

package params

// Gas costs for opcodes, renamed from an "Energy" schedule to plain EVM
// terminology. Gas is accounted but never a termination criterion on
// its own, so only a single (Istanbul-era) cost schedule is carried
// rather than a full per-fork table.
const (
	GasQuickStep uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep uint64 = 5
	GasMidStep uint64 = 8
	GasSlowStep uint64 = 10
	GasExtStep uint64 = 20

	ExpByteGas uint64 = 50
	SloadGas uint64 = 800
	CallValueTransferGas uint64 = 9000
	CallNewAccountGas uint64 = 25000
	CallStipend uint64 = 2300
	CallGasCIP150 uint64 = 700
	QuadCoeffDiv uint64 = 512
	LogGas uint64 = 375
	LogDataGas uint64 = 8
	LogTopicGas uint64 = 375

	Sha3Gas uint64 = 30
	Sha3WordGas uint64 = 6

	SstoreSentryGasCIP2200 uint64 = 2300
	SstoreNoopGasCIP2200 uint64 = 800
	SstoreDirtyGasCIP2200 uint64 = 800
	SstoreInitGasCIP2200 uint64 = 20000
	SstoreInitRefundCIP2200 uint64 = 19200
	SstoreCleanGasCIP2200 uint64 = 5000
	SstoreCleanRefundCIP2200 uint64 = 4200
	SstoreClearRefundCIP2200 uint64 = 15000

	JumpdestGas uint64 = 1
	CreateDataGas uint64 = 200
	CallCreateDepth uint64 = 1024
	ExpGas uint64 = 10
	CopyGas uint64 = 3
	StackLimit uint64 = 1024
	CreateGas uint64 = 32000
	Create2Gas uint64 = 32000
	SelfdestructRefundGas uint64 = 24000
	MemoryGas uint64 = 3

	BalanceGasCIP1884 uint64 = 700
	ExtcodeSizeGasCIP150 uint64 = 700
	SloadGasCIP1884 uint64 = 800
	ExtcodeHashGasCIP1884 uint64 = 700
	ExtcodeCopyBaseCIP150 uint64 = 700
	SelfdestructGasCIP150 uint64 = 5000

	MaxCodeSize = 24576

	EcrecoverGas uint64 = 3000
	Sha256BaseGas uint64 = 60
	Sha256PerWordGas uint64 = 12
	Ripemd160BaseGas uint64 = 600
	Ripemd160PerWordGas uint64 = 120
	IdentityBaseGas uint64 = 15
	IdentityPerWordGas uint64 = 3
	ModExpQuadCoeffDiv uint64 = 20
)
