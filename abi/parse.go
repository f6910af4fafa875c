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

package abi

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseType turns one Solidity ABI JSON "type" string (the shape the
// external build tool's artifact emits) into a Type. Tuple types are
// rejected outright; everything else the synthesizer can eventually
// turn into calldata is accepted here so a bad type surfaces as a
// clear load-time error rather than a panic deep inside Synthesize.
func ParseType(s string) (Type, error) {
	if strings.HasSuffix(s, "[]") {
		elem, err := ParseType(strings.TrimSuffix(s, "[]"))
		if err != nil {
			return Type{}, err
		}
		return Array(elem), nil
	}
	switch {
	case s == "address":
		return Address(), nil
	case s == "bool":
		return Bool(), nil
	case s == "string":
		return String(), nil
	case s == "bytes":
		return Bytes(), nil
	case strings.HasPrefix(s, "bytes"):
		n, err := strconv.Atoi(s[len("bytes"):])
		if err != nil || n < 1 || n > 32 {
			return Type{}, fmt.Errorf("abi: invalid bytesN type %q", s)
		}
		return BytesN(n), nil
	case s == "uint":
		return Uint(256), nil
	case strings.HasPrefix(s, "uint"):
		bits, err := strconv.Atoi(s[len("uint"):])
		if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
			return Type{}, fmt.Errorf("abi: invalid uintN type %q", s)
		}
		return Uint(bits), nil
	case s == "int":
		return Int(256), nil
	case strings.HasPrefix(s, "int"):
		bits, err := strconv.Atoi(s[len("int"):])
		if err != nil || bits < 8 || bits > 256 || bits%8 != 0 {
			return Type{}, fmt.Errorf("abi: invalid intN type %q", s)
		}
		return Int(bits), nil
	case strings.HasPrefix(s, "tuple"):
		return Type{}, fmt.Errorf("abi: tuple/struct argument types are not supported")
	default:
		return Type{}, fmt.Errorf("abi: unrecognized type %q", s)
	}
}
