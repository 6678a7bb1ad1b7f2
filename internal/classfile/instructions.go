package classfile

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Instruction is one decoded bytecode instruction.
type Instruction struct {
	Offset int
	Op     Opcode
	Length int
	// Operands holds the decoded immediate values: a pool index, a local
	// index, a constant, or for wide the widened opcode first.
	Operands []int
	// Targets are absolute branch targets (switches list default first).
	Targets []int
}

// Decode splits method bytecode into instructions.
func Decode(code []byte) ([]Instruction, error) {
	var out []Instruction
	for pc := 0; pc < len(code); {
		ins, err := decodeAt(code, pc)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
		pc += ins.Length
	}
	return out, nil
}

func decodeAt(code []byte, pc int) (Instruction, error) {
	op := Opcode(code[pc])
	ins := Instruction{Offset: pc, Op: op}
	need := func(n int) error {
		if pc+n > len(code) {
			return fmt.Errorf("truncated %s at offset %d", op, pc)
		}
		return nil
	}
	s2 := func(at int) int { return int(int16(binary.BigEndian.Uint16(code[at:]))) }
	u2 := func(at int) int { return int(binary.BigEndian.Uint16(code[at:])) }
	s4 := func(at int) int { return int(int32(binary.BigEndian.Uint32(code[at:]))) }

	if int(op) >= len(opcodeNames) {
		return ins, fmt.Errorf("invalid opcode 0x%02x at offset %d", byte(op), pc)
	}
	switch operandKindOf(op) {
	case opNone:
		ins.Length = 1
	case opLocal, opPool1, opNewArray:
		ins.Length = 2
		if err := need(2); err != nil {
			return ins, err
		}
		ins.Operands = []int{int(code[pc+1])}
	case opS1:
		ins.Length = 2
		if err := need(2); err != nil {
			return ins, err
		}
		ins.Operands = []int{int(int8(code[pc+1]))}
	case opS2:
		ins.Length = 3
		if err := need(3); err != nil {
			return ins, err
		}
		ins.Operands = []int{s2(pc + 1)}
	case opPool2:
		ins.Length = 3
		if err := need(3); err != nil {
			return ins, err
		}
		ins.Operands = []int{u2(pc + 1)}
	case opIinc:
		ins.Length = 3
		if err := need(3); err != nil {
			return ins, err
		}
		ins.Operands = []int{int(code[pc+1]), int(int8(code[pc+2]))}
	case opBranch2:
		ins.Length = 3
		if err := need(3); err != nil {
			return ins, err
		}
		ins.Targets = []int{pc + s2(pc+1)}
	case opBranch4:
		ins.Length = 5
		if err := need(5); err != nil {
			return ins, err
		}
		ins.Targets = []int{pc + s4(pc+1)}
	case opInterface, opDynamic:
		ins.Length = 5
		if err := need(5); err != nil {
			return ins, err
		}
		ins.Operands = []int{u2(pc + 1), int(code[pc+3])}
	case opMultiArray:
		ins.Length = 4
		if err := need(4); err != nil {
			return ins, err
		}
		ins.Operands = []int{u2(pc + 1), int(code[pc+3])}
	case opWide:
		if err := need(2); err != nil {
			return ins, err
		}
		inner := Opcode(code[pc+1])
		if inner == 0x84 {
			ins.Length = 6
			if err := need(6); err != nil {
				return ins, err
			}
			ins.Operands = []int{int(inner), u2(pc + 2), s2(pc + 4)}
		} else {
			ins.Length = 4
			if err := need(4); err != nil {
				return ins, err
			}
			ins.Operands = []int{int(inner), u2(pc + 2)}
		}
	case opTableSwitch:
		base := (pc + 4) &^ 3 // operands are 4-byte aligned
		if err := need(base - pc + 12); err != nil {
			return ins, err
		}
		low, high := s4(base+4), s4(base+8)
		if high < low {
			return ins, fmt.Errorf("tableswitch at %d: high < low", pc)
		}
		n := high - low + 1
		ins.Length = base - pc + 12 + 4*n
		if err := need(ins.Length); err != nil {
			return ins, err
		}
		ins.Targets = append(ins.Targets, pc+s4(base))
		for i := 0; i < n; i++ {
			ins.Targets = append(ins.Targets, pc+s4(base+12+4*i))
		}
		ins.Operands = []int{low, high}
	case opLookupSwitch:
		base := (pc + 4) &^ 3 // operands are 4-byte aligned
		if err := need(base - pc + 8); err != nil {
			return ins, err
		}
		n := s4(base + 4)
		if n < 0 {
			return ins, fmt.Errorf("lookupswitch at %d: negative pair count", pc)
		}
		ins.Length = base - pc + 8 + 8*n
		if err := need(ins.Length); err != nil {
			return ins, err
		}
		ins.Targets = append(ins.Targets, pc+s4(base))
		for i := 0; i < n; i++ {
			ins.Operands = append(ins.Operands, s4(base+8+8*i))
			ins.Targets = append(ins.Targets, pc+s4(base+12+8*i))
		}
	}
	return ins, nil
}

// BranchTargets returns the sorted, deduplicated branch targets of code.
func BranchTargets(code []byte) ([]int, error) {
	instrs, err := Decode(code)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var out []int
	for _, ins := range instrs {
		for _, t := range ins.Targets {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Ints(out)
	return out, nil
}
