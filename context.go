// context.go - Central data model for the static recompiler

/*
(c) 2024 - 2025 Zayn Otley
https://github.com/IntuitionAmiga/RecompEngine

License: GPLv3 or later
*/

package recomp

import (
	"fmt"
	"sort"
)

// Reloc types match the ELF MIPS relocation numbering for the subset the
// recompiler understands.
type RelocType uint8

const (
	R_MIPS_NONE RelocType = 0
	R_MIPS_16   RelocType = 1
	R_MIPS_32   RelocType = 2
	R_MIPS_26   RelocType = 4
	R_MIPS_HI16 RelocType = 5
	R_MIPS_LO16 RelocType = 6
)

// Sentinel section indices. Regular sections occupy the low range; relocs
// against imports, events or absolute symbols carry one of these instead.
const (
	SECTION_NONE     uint16 = 0xFFFF // unpaired bss link
	SECTION_ABSOLUTE uint16 = 0xFFFE
	SECTION_IMPORT   uint16 = 0xFFFD
	SECTION_EVENT    uint16 = 0xFFFC
	SECTION_FIRST_SENTINEL uint16 = SECTION_EVENT
)

// ROM_ADDR_NONE marks a section with no ROM backing (.bss).
const ROM_ADDR_NONE uint32 = 0xFFFFFFFF

// Reloc is a request to patch one instruction's immediate with a symbol
// address or one half of it.
type Reloc struct {
	SectionOffset       uint32
	Type                RelocType
	TargetSection       uint16
	TargetSectionOffset uint32
	SymbolIndex         uint32
	ReferenceSymbol     bool
}

// Section is a contiguous ROM/VRAM region of homogeneous purpose.
type Section struct {
	Name            string
	ROMAddr         uint32
	RAMAddr         uint32
	Size            uint32
	BSSSectionIndex uint16
	Relocs          []Reloc
	Executable      bool
}

// Function is one recompilable unit: the big-endian instruction words copied
// out of its section plus the addresses they came from.
type Function struct {
	VRAM          uint32
	ROM           uint32
	Words         []uint32
	Name          string
	SectionIndex  uint16
	IgnoreFunc    bool
	Reimplemented bool
	Stubbed       bool
}

// JumpTable describes a statically discovered switch: the rom location of the
// table, the register the indexed address lands in, and the resolved entries.
type JumpTable struct {
	VRAM     uint32
	AddrReg  uint8
	ROM      uint32
	JumpVRAM uint32
	Entries  []uint32
}

// ReferenceSymbol belongs to the base ROM rather than the mod and is
// addressed by (section index, symbol index).
type ReferenceSymbol struct {
	Name          string
	SectionIndex  uint16
	SectionOffset uint32
	Size          uint32
	IsFunction    bool
}

// ReferenceSection is a value copy of a base-ROM section taken during
// reference import. No pointers back into the source context are kept.
type ReferenceSection struct {
	ROMAddr uint32
	RAMAddr uint32
	Size    uint32
}

type ImportSymbol struct {
	Name            string
	DependencyIndex uint32
}

type EventSymbol struct {
	Name string
}

type DependencyEvent struct {
	DependencyIndex uint32
	EventName       string
}

type Callback struct {
	FunctionIndex        uint32
	DependencyEventIndex uint32
}

// Hook flags for FunctionHook.Flags and the hook table of emitted mods.
const (
	HOOK_AT_ENTRY  uint32 = 0
	HOOK_AT_RETURN uint32 = 1
)

type FunctionHook struct {
	FuncIndex uint32
	Flags     uint32
}

type FunctionReplacement struct {
	FuncIndex  uint32
	TargetVRAM uint32
	Flags      uint32
}

// Context owns everything the recompiler knows about one translation input:
// the ROM bytes, the section and function tables, the mod symbol tables, and
// a value-imported copy of the reference (base ROM) context. Reference data
// is linked from relocs by index pairs only, never by pointer.
type Context struct {
	ROM       []byte
	Sections  []Section
	Functions []Function

	SectionFunctions [][]uint32
	FunctionsByVRAM  map[uint32][]uint32
	FunctionsByName  map[string]uint32

	JumpTables []JumpTable

	// Reference (base ROM) data, absorbed by value in ImportReferenceContext.
	ReferenceSections []ReferenceSection
	ReferenceSymbols  []ReferenceSymbol

	ImportSymbols    []ImportSymbol
	ExportedFuncs    []uint32
	EventSymbols     []EventSymbol
	DependencyEvents []DependencyEvent
	Callbacks        []Callback
	Hooks            []FunctionHook
	Replacements     []FunctionReplacement

	Dependencies    []string
	dependencyIndex map[string]uint32
}

// NewContext returns an empty Context with its lookup maps ready.
func NewContext() *Context {
	return &Context{
		FunctionsByVRAM: make(map[uint32][]uint32),
		FunctionsByName: make(map[string]uint32),
		dependencyIndex: make(map[string]uint32),
	}
}

// IsRegularSection reports whether idx names a real section rather than one
// of the sentinels.
func IsRegularSection(idx uint16) bool {
	return idx < SECTION_FIRST_SENTINEL
}

// AddFunction appends a function and indexes it by vram and section.
// Duplicate vram entries are allowed (overlays).
func (ctx *Context) AddFunction(fn Function) uint32 {
	idx := uint32(len(ctx.Functions))
	ctx.Functions = append(ctx.Functions, fn)
	if ctx.FunctionsByVRAM == nil {
		ctx.FunctionsByVRAM = make(map[uint32][]uint32)
	}
	ctx.FunctionsByVRAM[fn.VRAM] = append(ctx.FunctionsByVRAM[fn.VRAM], idx)
	for uint16(len(ctx.SectionFunctions)) <= fn.SectionIndex {
		ctx.SectionFunctions = append(ctx.SectionFunctions, nil)
	}
	ctx.SectionFunctions[fn.SectionIndex] = append(ctx.SectionFunctions[fn.SectionIndex], idx)
	if fn.Name != "" {
		if ctx.FunctionsByName == nil {
			ctx.FunctionsByName = make(map[string]uint32)
		}
		ctx.FunctionsByName[fn.Name] = idx
	}
	return idx
}

// AddDependency interns a dependency id, returning its stable index.
func (ctx *Context) AddDependency(name string) uint32 {
	if ctx.dependencyIndex == nil {
		ctx.dependencyIndex = make(map[string]uint32)
	}
	if idx, ok := ctx.dependencyIndex[name]; ok {
		return idx
	}
	idx := uint32(len(ctx.Dependencies))
	ctx.Dependencies = append(ctx.Dependencies, name)
	ctx.dependencyIndex[name] = idx
	return idx
}

// DependencyIndex looks up an interned dependency id.
func (ctx *Context) DependencyIndex(name string) (uint32, bool) {
	idx, ok := ctx.dependencyIndex[name]
	return idx, ok
}

// NumRegularReferenceSymbols counts reference symbols that live in a regular
// reference section.
func (ctx *Context) NumRegularReferenceSymbols() int {
	n := 0
	for i := range ctx.ReferenceSymbols {
		if IsRegularSection(ctx.ReferenceSymbols[i].SectionIndex) {
			n++
		}
	}
	return n
}

// GetReferenceSymbol returns the reference symbol for a reloc's
// (target section, symbol index) pair. The section argument is checked
// against the symbol's own section; a mismatch is a broken invariant.
func (ctx *Context) GetReferenceSymbol(section uint16, symbolIndex uint32) (*ReferenceSymbol, error) {
	if symbolIndex >= uint32(len(ctx.ReferenceSymbols)) {
		return nil, fmt.Errorf("reference symbol index %d out of range", symbolIndex)
	}
	sym := &ctx.ReferenceSymbols[symbolIndex]
	if sym.SectionIndex != section {
		return nil, fmt.Errorf("reference symbol %d belongs to section %d, reloc targets %d",
			symbolIndex, sym.SectionIndex, section)
	}
	return sym, nil
}

// ReferenceSectionVRAM returns the load address of a regular reference
// section.
func (ctx *Context) ReferenceSectionVRAM(section uint16) (uint32, error) {
	if !IsRegularSection(section) || int(section) >= len(ctx.ReferenceSections) {
		return 0, fmt.Errorf("reference section %d out of range", section)
	}
	return ctx.ReferenceSections[section].RAMAddr, nil
}

// IsRegularReferenceSection reports whether the reloc target names an
// imported base-ROM section.
func (ctx *Context) IsRegularReferenceSection(section uint16) bool {
	return IsRegularSection(section) && int(section) < len(ctx.ReferenceSections)
}

// SectionsByROM builds the rom-address lookup both front ends hand to the mod
// symbol parser.
func (ctx *Context) SectionsByROM() map[uint32]uint16 {
	out := make(map[uint32]uint16, len(ctx.Sections))
	for i := range ctx.Sections {
		out[ctx.Sections[i].ROMAddr] = uint16(i)
	}
	return out
}

// ImportReferenceContext absorbs another context's sections and symbols as
// reference data. Everything is copied by value; the only links back are
// (section, symbol) index pairs carried by relocs.
func (ctx *Context) ImportReferenceContext(ref *Context) {
	ctx.ReferenceSections = make([]ReferenceSection, len(ref.Sections))
	for i := range ref.Sections {
		ctx.ReferenceSections[i] = ReferenceSection{
			ROMAddr: ref.Sections[i].ROMAddr,
			RAMAddr: ref.Sections[i].RAMAddr,
			Size:    ref.Sections[i].Size,
		}
	}

	ctx.ReferenceSymbols = make([]ReferenceSymbol, 0, len(ref.Functions))
	for i := range ref.Functions {
		fn := &ref.Functions[i]
		sec := &ref.Sections[fn.SectionIndex]
		ctx.ReferenceSymbols = append(ctx.ReferenceSymbols, ReferenceSymbol{
			Name:          fn.Name,
			SectionIndex:  fn.SectionIndex,
			SectionOffset: fn.VRAM - sec.RAMAddr,
			Size:          uint32(len(fn.Words) * 4),
			IsFunction:    true,
		})
	}
}

// AddReferenceDataSymbol registers a non-function reference symbol (data or
// rodata) in the same namespace as function reference symbols.
func (ctx *Context) AddReferenceDataSymbol(sym ReferenceSymbol) uint32 {
	sym.IsFunction = false
	idx := uint32(len(ctx.ReferenceSymbols))
	ctx.ReferenceSymbols = append(ctx.ReferenceSymbols, sym)
	return idx
}

// BindReferenceRelocs populates the symbol index of every R_MIPS_26 reloc
// that targets a regular reference section. It first maps every regular
// reference symbol by its vram address, then binds each reloc to the first
// symbol at the target address that belongs to the reloc's target section.
// An unmatched reloc is fatal.
func (ctx *Context) BindReferenceRelocs() error {
	symbolsByVRAM := make(map[uint32][]uint32)
	for i := range ctx.ReferenceSymbols {
		sym := &ctx.ReferenceSymbols[i]
		if !IsRegularSection(sym.SectionIndex) {
			continue
		}
		vram, err := ctx.ReferenceSectionVRAM(sym.SectionIndex)
		if err != nil {
			return err
		}
		addr := vram + sym.SectionOffset
		symbolsByVRAM[addr] = append(symbolsByVRAM[addr], uint32(i))
	}

	for si := range ctx.Sections {
		for ri := range ctx.Sections[si].Relocs {
			reloc := &ctx.Sections[si].Relocs[ri]
			if reloc.Type != R_MIPS_26 || !reloc.ReferenceSymbol {
				continue
			}
			if !ctx.IsRegularReferenceSection(reloc.TargetSection) {
				continue
			}
			sectionVRAM, err := ctx.ReferenceSectionVRAM(reloc.TargetSection)
			if err != nil {
				return err
			}
			targetVRAM := sectionVRAM + reloc.TargetSectionOffset

			found := false
			for _, symIndex := range symbolsByVRAM[targetVRAM] {
				if ctx.ReferenceSymbols[symIndex].SectionIndex == reloc.TargetSection {
					reloc.SymbolIndex = symIndex
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("failed to find R_MIPS_26 relocation target in section %d with vram 0x%08X",
					reloc.TargetSection, targetVRAM)
			}
		}
	}
	return nil
}

// FunctionsAtVRAM returns the indices of every function starting at vram, in
// insertion order.
func (ctx *Context) FunctionsAtVRAM(vram uint32) []uint32 {
	return ctx.FunctionsByVRAM[vram]
}

// SortedVRAMs returns the function start addresses in ascending order.
// It gives a deterministic iteration order over the vram map.
func (ctx *Context) SortedVRAMs() []uint32 {
	out := make([]uint32, 0, len(ctx.FunctionsByVRAM))
	for v := range ctx.FunctionsByVRAM {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FunctionWordsFromROM copies size bytes of big-endian instruction words for
// a function out of the context ROM.
func (ctx *Context) FunctionWordsFromROM(rom uint32, size uint32) ([]uint32, error) {
	if size%4 != 0 {
		return nil, fmt.Errorf("function size 0x%X not word aligned", size)
	}
	end := uint64(rom) + uint64(size)
	if end > uint64(len(ctx.ROM)) {
		return nil, fmt.Errorf("function at rom 0x%X size 0x%X exceeds rom size 0x%X", rom, size, len(ctx.ROM))
	}
	words := make([]uint32, size/4)
	for i := range words {
		base := rom + uint32(i)*4
		words[i] = uint32(ctx.ROM[base])<<24 | uint32(ctx.ROM[base+1])<<16 |
			uint32(ctx.ROM[base+2])<<8 | uint32(ctx.ROM[base+3])
	}
	return words, nil
}
