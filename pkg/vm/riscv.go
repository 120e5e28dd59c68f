// Copyright 2025 Certen Protocol
//
// RISC-V reference interpreter. 32 general-purpose 64-bit registers, x0
// hard-wired to zero. Supports the instruction set required for
// correctness: ADDI, ADD, SUB, EBREAK; other opcodes are decoded but
// treated as no-ops, matching the reference's "implementations SHOULD
// extend this set" allowance.

package vm

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/certen/offchain-channel/pkg/corerr"
)

const (
	regSP = 2
	regGP = 3
	regA0 = 10
	regA1 = 11

	spInit = 0x7FFF_FFF0
	gpInit = 0x1000_0000
)

// RiscV is the reference interpreter named in the VM runtime section: a
// minimal, fully deterministic RISC-V core sufficient to execute compiled
// artifacts and to exercise the capability interface end to end.
type RiscV struct {
	limits     ExecutionLimits
	codeLoaded bool
	code       []byte
	memorySize uint64
	cycleCount uint64
	registers  [32]uint64
}

// NewRiscV returns an unloaded RiscV instance with default limits.
func NewRiscV() *RiscV {
	return &RiscV{limits: DefaultLimits()}
}

func (m *RiscV) VmKind() Kind { return KindRiscV }

func (m *RiscV) SetLimits(limits ExecutionLimits) { m.limits = limits }

// LoadCode requires 4-byte-aligned, non-empty code, then resets register
// and cycle state.
func (m *RiscV) LoadCode(code []byte) error {
	if len(code) == 0 {
		return corerr.New(corerr.VmError, "riscv.LoadCode", "empty code")
	}
	if len(code)%4 != 0 {
		return corerr.New(corerr.VmError, "riscv.LoadCode", "code must be 4-byte aligned")
	}

	m.code = append([]byte(nil), code...)
	m.codeLoaded = true
	m.initRegisters()
	m.cycleCount = 0
	return nil
}

func (m *RiscV) initRegisters() {
	for i := range m.registers {
		m.registers[i] = 0
	}
	m.registers[regSP] = spInit
	m.registers[regGP] = gpInit
}

// Execute runs the loaded code against input, exposing input length in a0
// and a virtual base address for input in a1, then fetch-decode-executes
// until EBREAK, a cycle-limit violation, or the pc leaving the code region.
func (m *RiscV) Execute(input []byte) (*ExecutionResult, error) {
	if !m.codeLoaded {
		return nil, corerr.New(corerr.VmError, "riscv.Execute", "no code loaded")
	}

	m.registers[regA0] = uint64(len(input))
	m.registers[regA1] = 0x2000_0000
	m.memorySize = uint64(len(input)) + 4096
	if m.memorySize > m.limits.MaxMemoryBytes {
		return nil, corerr.New(corerr.ResourceLimitExceeded, "riscv.Execute", "memory limit exceeded")
	}

	pc := uint64(0)
	for {
		word, err := m.fetch(pc)
		if err != nil {
			return nil, err
		}

		stop, err := m.step(word)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}

		pc += 4
		if pc >= uint64(len(m.code)) {
			return nil, corerr.New(corerr.VmError, "riscv.Execute", "reached end of code without EBREAK")
		}
	}

	return m.result(), nil
}

func (m *RiscV) fetch(pc uint64) (uint32, error) {
	if pc+4 > uint64(len(m.code)) {
		return 0, corerr.New(corerr.VmError, "riscv.fetch", "pc out of bounds")
	}
	return binary.LittleEndian.Uint32(m.code[pc : pc+4]), nil
}

// step decodes and executes one instruction, incrementing cycle_count and
// reporting whether execution should stop (EBREAK).
func (m *RiscV) step(word uint32) (bool, error) {
	m.cycleCount++
	if m.cycleCount > m.limits.MaxCycles {
		return false, corerr.New(corerr.ResourceLimitExceeded, "riscv.step", "max cycles exceeded")
	}

	opcode := word & 0x7F
	rd := int((word >> 7) & 0x1F)
	funct3 := (word >> 12) & 0x7
	rs1 := int((word >> 15) & 0x1F)
	rs2 := int((word >> 20) & 0x1F)
	funct7 := word >> 25

	switch opcode {
	case 0x13: // I-type: ADDI
		if funct3 == 0 {
			imm := int64(int32(word)) >> 20
			if rd != 0 {
				m.registers[rd] = m.registers[rs1] + uint64(imm)
			}
		}
		return false, nil

	case 0x33: // R-type: ADD / SUB
		if funct3 == 0 && funct7 == 0x00 {
			if rd != 0 {
				m.registers[rd] = m.registers[rs1] + m.registers[rs2]
			}
		} else if funct3 == 0 && funct7 == 0x20 {
			if rd != 0 {
				m.registers[rd] = m.registers[rs1] - m.registers[rs2]
			}
		}
		return false, nil

	case 0x73: // system: EBREAK
		if funct3 == 0 {
			return true, nil
		}
		return false, nil

	default:
		// Unrecognized opcode: treated as a no-op, per the reference's
		// allowance to extend the instruction set without breaking
		// existing code.
		return false, nil
	}
}

func (m *RiscV) result() *ExecutionResult {
	returnValue := m.registers[regA0]
	success := returnValue == 0

	var output []byte
	if success {
		output = make([]byte, 8)
		binary.LittleEndian.PutUint64(output, returnValue)
	}

	res := &ExecutionResult{
		Success:    success,
		Output:     output,
		GasUsed:    m.cycleCount,
		CyclesUsed: m.cycleCount,
	}
	if !success {
		res.Error = fmt.Sprintf("non-zero exit code: %d", returnValue)
	}
	return res
}

// vmState is the serializable snapshot payload.
type vmState struct {
	Registers  [32]uint64 `json:"registers"`
	CycleCount uint64     `json:"cycle_count"`
	MemorySize uint64     `json:"memory_size"`
	CodeLoaded bool       `json:"code_loaded"`
}

func (m *RiscV) Snapshot() (*Snapshot, error) {
	data, err := json.Marshal(vmState{
		Registers:  m.registers,
		CycleCount: m.cycleCount,
		MemorySize: m.memorySize,
		CodeLoaded: m.codeLoaded,
	})
	if err != nil {
		return nil, corerr.Wrap(corerr.InternalError, "riscv.Snapshot", err)
	}
	return &Snapshot{Kind: KindRiscV, Data: data}, nil
}

func (m *RiscV) Restore(snap *Snapshot) error {
	if snap.Kind != KindRiscV {
		return corerr.New(corerr.VmError, "riscv.Restore", "snapshot vm kind mismatch")
	}
	var state vmState
	if err := json.Unmarshal(snap.Data, &state); err != nil {
		return corerr.Wrap(corerr.VmError, "riscv.Restore", err)
	}
	m.registers = state.Registers
	m.cycleCount = state.CycleCount
	m.memorySize = state.MemorySize
	m.codeLoaded = state.CodeLoaded
	return nil
}

var _ Instance = (*RiscV)(nil)
