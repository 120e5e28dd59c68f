// Copyright 2025 Certen Protocol
//
// Move-to-RISC-V compilation pipeline: parse ABI, lower to stackless IR,
// lower IR to a fixed-width RISC-V encoding. Move is the only bytecode
// kind with a meaningful pipeline here; EVM/BPF/Script packages get a
// placeholder artifact tagged with their source kind.

package compiler

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/certen/offchain-channel/pkg/coreid"
	"github.com/certen/offchain-channel/pkg/corerr"
)

// TargetArch is the RISC-V target the pipeline lowers to.
type TargetArch string

const (
	TargetRV32IM  TargetArch = "RV32IM"
	TargetRV64IMC TargetArch = "RV64IMC"
	TargetRV64GC  TargetArch = "RV64GC"
)

// OptimizationLevel selects code generation strategy. The reference
// pipeline only varies the prologue/epilogue frame size by level; a real
// backend would vary instruction selection and scheduling.
type OptimizationLevel string

const (
	OptNone       OptimizationLevel = "None"
	OptSpeed      OptimizationLevel = "Speed"
	OptSize       OptimizationLevel = "Size"
	OptAggressive OptimizationLevel = "Aggressive"
)

// PipelineConfig configures one compile call.
type PipelineConfig struct {
	TargetArch        TargetArch
	OptimizationLevel OptimizationLevel
	EnableGasMetering bool
}

// IROp enumerates the stackless IR's primitive instructions. Stackless
// form is a contract, not an optimization: every operand is an explicit
// variable slot, which is what lets the backend assign registers directly
// instead of tracking an operand stack.
type IROp int

const (
	IRLoadConst IROp = iota
	IRGasCheck
	IRBinaryAdd
	IRBinarySub
	IRMemLoad
	IRMemStore
	IRBranch
	IRReturn
)

// IRInstr is one stackless IR instruction. Dst/Src1/Src2 are explicit
// variable slots (mapped 1:1 to RISC-V registers by the backend); Imm
// carries LoadConst's and GasCheck's literal operand.
type IRInstr struct {
	Op   IROp
	Dst  int
	Src1 int
	Src2 int
	Imm  uint64
}

// movePackageInfo is what parsing the ABI text yields: the module and
// entry-point names the pipeline needs, nothing more.
type movePackageInfo struct {
	PackageID   string
	Modules     []string
	EntryPoints []string
}

// parsePackage extracts module/entry-point names from a ContractMeta's ABI
// text. Real Move ABI JSON carries a richer module/function tree; this
// pipeline only needs names, so it tolerates missing or malformed ABI text
// by falling back to a single synthetic "main" entry point.
func parsePackage(meta *coreid.ContractMeta) *movePackageInfo {
	info := &movePackageInfo{PackageID: meta.Address}

	if meta.ABI == "" {
		info.Modules = []string{"main"}
		info.EntryPoints = []string{"main"}
		return info
	}

	var decoded struct {
		Modules []struct {
			Name      string   `json:"name"`
			Functions []string `json:"functions"`
		} `json:"modules"`
	}
	if err := json.Unmarshal([]byte(meta.ABI), &decoded); err != nil || len(decoded.Modules) == 0 {
		info.Modules = []string{"main"}
		info.EntryPoints = []string{"main"}
		return info
	}

	for _, mod := range decoded.Modules {
		info.Modules = append(info.Modules, mod.Name)
		info.EntryPoints = append(info.EntryPoints, mod.Functions...)
	}
	if len(info.EntryPoints) == 0 {
		info.EntryPoints = []string{"main"}
	}
	return info
}

// lowerToIR produces a stackless IR sequence for the package's entry
// points: an optional gas check, a constant load per entry point, a
// binary add of the first two loaded slots (when there are at least two),
// and a terminating return.
func lowerToIR(info *movePackageInfo, cfg PipelineConfig) []IRInstr {
	var ir []IRInstr
	if cfg.EnableGasMetering {
		ir = append(ir, IRInstr{Op: IRGasCheck, Imm: uint64(100 * len(info.EntryPoints))})
	}
	for i := range info.EntryPoints {
		ir = append(ir, IRInstr{Op: IRLoadConst, Dst: i + 1, Imm: uint64(i + 1)})
	}
	if len(info.EntryPoints) >= 2 {
		ir = append(ir, IRInstr{Op: IRBinaryAdd, Dst: 1, Src1: 1, Src2: 2})
	}
	ir = append(ir, IRInstr{Op: IRReturn})
	return ir
}

// lowerToRiscV lowers an IR sequence to fixed-width RISC-V instructions,
// wrapped in a prologue/epilogue stack-frame allocation. Frame size scales
// with optimization level as a stand-in for register-allocation pressure a
// real backend would compute.
func lowerToRiscV(ir []IRInstr, cfg PipelineConfig) []byte {
	frame := frameSize(cfg.OptimizationLevel)

	var code []byte
	code = append(code, encodeAddi(regSP, regSP, -frame)...)

	for _, instr := range ir {
		code = append(code, encodeIR(instr)...)
	}

	code = append(code, encodeAddi(regSP, regSP, frame)...)
	code = append(code, encodeEbreak()...)
	return code
}

func frameSize(opt OptimizationLevel) int32 {
	switch opt {
	case OptSize:
		return 8
	case OptAggressive:
		return 32
	default:
		return 16
	}
}

const (
	regZero = 0
	regSP   = 2
	regT0   = 5
	regA0   = 10
)

// encodeIR lowers one IR instruction to RISC-V machine code. LoadConst and
// binary arithmetic map directly to ADDI/ADD/SUB on the register named by
// the instruction's Dst/Src slot; GasCheck, memory ops, and branch have no
// reference-VM counterpart and lower to a NOP (ADDI x0, x0, 0), matching
// the instruction set the VM runtime is required to support.
func encodeIR(instr IRInstr) []byte {
	switch instr.Op {
	case IRLoadConst:
		return encodeAddi(regOf(instr.Dst), regZero, int32(instr.Imm))
	case IRBinaryAdd:
		return encodeAdd(regOf(instr.Dst), regOf(instr.Src1), regOf(instr.Src2))
	case IRBinarySub:
		return encodeSub(regOf(instr.Dst), regOf(instr.Src1), regOf(instr.Src2))
	case IRGasCheck, IRMemLoad, IRMemStore, IRBranch:
		return encodeAddi(regZero, regZero, 0)
	case IRReturn:
		// The reference VM reads a0 at EBREAK as the exit code; Return
		// clears it to 0 so a package that completes without trapping
		// reports success regardless of what earlier instructions left
		// in a0.
		return encodeAddi(regA0, regZero, 0)
	default:
		return encodeAddi(regZero, regZero, 0)
	}
}

// regOf maps an IR variable slot to a RISC-V register, reserving x0 (zero)
// and x2 (sp) and starting variable assignment at x10 (a0) so compiled
// artifacts interoperate with the VM's input-register convention.
func regOf(slot int) int {
	if slot <= 0 {
		return regT0
	}
	return 9 + slot // 1 -> a0(10), 2 -> a1(11), ...
}

func encodeAddi(rd, rs1 int, imm int32) []byte {
	word := uint32(imm)<<20&0xFFF00000 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x13
	return leBytes(word)
}

func encodeAdd(rd, rs1, rs2 int) []byte {
	word := uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x33
	return leBytes(word)
}

func encodeSub(rd, rs1, rs2 int) []byte {
	word := uint32(0x20)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x33
	return leBytes(word)
}

func encodeEbreak() []byte {
	return leBytes(0x00100073)
}

func leBytes(word uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, word)
	return b
}

// Compile runs the full pipeline for a Move ContractMeta. Non-Move kinds
// get a placeholder artifact tagged with their source kind, per the
// pipeline's scope.
func Compile(meta *coreid.ContractMeta, cfg PipelineConfig) (*Artifact, error) {
	if meta == nil {
		return nil, corerr.New(corerr.InvalidRequest, "compiler.Compile", "nil contract meta")
	}

	if meta.Kind != coreid.BytecodeMove {
		return &Artifact{
			OriginalAddress: meta.Address,
			SourceKind:      meta.Kind,
			Code:            nil,
			EntryPoints:     nil,
			Metadata:        ArtifactMetadata{},
			CompiledAt:      time.Now(),
		}, nil
	}

	info := parsePackage(meta)
	ir := lowerToIR(info, cfg)
	code := lowerToRiscV(ir, cfg)

	return &Artifact{
		OriginalAddress: meta.Address,
		SourceKind:      coreid.BytecodeMove,
		Code:            code,
		EntryPoints:     info.EntryPoints,
		Metadata: ArtifactMetadata{
			GasMetering:    cfg.EnableGasMetering,
			MemoryLimit:    64 * 1024 * 1024,
			StackLimit:     1024 * 1024,
			CallDepthLimit: 1024,
			Exports:        make(map[string]string),
		},
		CompiledAt: time.Now(),
	}, nil
}
