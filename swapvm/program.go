// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// headerLen is selector(1) + argLen(2)
const headerLen = 3

// MaxArgsLen is the largest argument block one entry can carry
const MaxArgsLen = 0xFFFF

// Instruction is one decoded program entry
type Instruction struct {
	Op   OpCode
	Args []byte
}

// Program is an encoded strategy: a concatenation of entries
//
//	selector(1) || argLen(2, big-endian) || args(argLen)
//
// Programs are authored once and replayed verbatim; the engine never
// modifies them.
type Program []byte

// Instructions splits the program into entries. It only checks framing;
// selectors and arguments are checked against an instruction set by the engine.
func (p Program) Instructions() ([]Instruction, error) {
	var out []Instruction
	for pc := 0; pc < len(p); {
		if len(p)-pc < headerLen {
			return nil, fmt.Errorf("%w: truncated header at %d", ErrMalformedProgram, pc)
		}
		op := OpCode(p[pc])
		n := int(binary.BigEndian.Uint16(p[pc+1 : pc+3]))
		pc += headerLen
		if len(p)-pc < n {
			return nil, fmt.Errorf("%w: %s args truncated at %d", ErrMalformedProgram, op, pc)
		}
		out = append(out, Instruction{Op: op, Args: p[pc : pc+n]})
		pc += n
	}
	return out, nil
}

// Hash returns the BLAKE3-256 digest of the program bytes, used as the
// strategy identifier
func (p Program) Hash() [32]byte {
	return blake3.Sum256(p)
}

// String disassembles the program, one entry per line
func (p Program) String() string {
	ins, err := p.Instructions()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	var sb strings.Builder
	for i, in := range ins {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%02d %s", i, in.Op)
		if len(in.Args) > 0 {
			sb.WriteString(" 0x")
			sb.WriteString(hex.EncodeToString(in.Args))
		}
	}
	return sb.String()
}
