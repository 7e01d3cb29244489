// mod_symbols.go - Mod symbol container format v1 (read, write)

/*
(c) 2024 - 2025 Zayn Otley
https://github.com/IntuitionAmiga/RecompEngine

License: GPLv3 or later
*/

package recomp

import "encoding/binary"

// Format v1 layout, all fields little-endian. Strings are u32 length plus
// raw bytes.
//
//	magic   "MSYM"
//	u32     version (1)
//	u32     section count
//	  per section: u32 rom_addr (0xFFFFFFFF = none), u32 vram, u32 size
//	    u32 function count;  per function: u32 section_offset, u32 size
//	    u32 reloc count;     per reloc:    u32 section_offset, u8 type,
//	                         u8 flags (bit0 = reference symbol), u16 pad,
//	                         u32 target, u32 target_section_offset,
//	                         u32 symbol_index
//	u32 dependency count;        per: str
//	u32 import count;            per: u32 dependency_index, str name
//	u32 dependency event count;  per: u32 dependency_index, str name
//	u32 event count;             per: str name
//	u32 export count;            per: u32 func_index, str name
//	u32 callback count;          per: u32 function_index, u32 dep_event_index
//	u32 hook count;              per: u32 func_index, u32 flags
//	u32 replacement count;       per: u32 func_index, u32 target_vram, u32 flags
//
// A reloc's target field holds the mod section index for local targets, one
// of the FILE_SECTION_* sentinels, or — when the reference flag is set and
// the target is not a sentinel — the ROM address of the reference section,
// resolved against the importing side's section map at parse time.
const (
	MOD_SYMS_MAGIC   = "MSYM"
	MOD_SYMS_VERSION = 1

	FILE_SECTION_ABSOLUTE uint32 = 0xFFFFFFFE
	FILE_SECTION_IMPORT   uint32 = 0xFFFFFFFD
	FILE_SECTION_EVENT    uint32 = 0xFFFFFFFC

	relocFlagReference uint8 = 1 << 0
)

// ModSymbolsError is the complete parse status taxonomy of the v1 format.
type ModSymbolsError int

const (
	MOD_SYMS_GOOD ModSymbolsError = iota
	MOD_SYMS_MALFORMED_HEADER
	MOD_SYMS_UNKNOWN_VERSION
	MOD_SYMS_UNKNOWN_SECTION
	MOD_SYMS_UNKNOWN_RELOC_TYPE
	MOD_SYMS_UNKNOWN_SYMBOL
	MOD_SYMS_UNKNOWN_IMPORT
	MOD_SYMS_UNKNOWN_EVENT
	MOD_SYMS_UNKNOWN_DEPENDENCY
	MOD_SYMS_UNRESOLVED_REFERENCE
	MOD_SYMS_DUPLICATE_EXPORT
	MOD_SYMS_TRUNCATED
)

var modSymbolsErrorNames = map[ModSymbolsError]string{
	MOD_SYMS_GOOD:                 "good",
	MOD_SYMS_MALFORMED_HEADER:     "malformed header",
	MOD_SYMS_UNKNOWN_VERSION:      "unknown version",
	MOD_SYMS_UNKNOWN_SECTION:      "unknown section",
	MOD_SYMS_UNKNOWN_RELOC_TYPE:   "unknown reloc type",
	MOD_SYMS_UNKNOWN_SYMBOL:       "unknown symbol",
	MOD_SYMS_UNKNOWN_IMPORT:       "unknown import",
	MOD_SYMS_UNKNOWN_EVENT:        "unknown event",
	MOD_SYMS_UNKNOWN_DEPENDENCY:   "unknown dependency",
	MOD_SYMS_UNRESOLVED_REFERENCE: "unresolved reference",
	MOD_SYMS_DUPLICATE_EXPORT:     "duplicate export",
	MOD_SYMS_TRUNCATED:            "truncated",
}

func (e ModSymbolsError) String() string {
	if name, ok := modSymbolsErrorNames[e]; ok {
		return name
	}
	return "unknown error"
}

// binReader walks the buffer single-pass; every read validates the remaining
// length before dereferencing.
type binReader struct {
	data      []byte
	off       int
	truncated bool
}

func (r *binReader) remain() int { return len(r.data) - r.off }

func (r *binReader) u8() uint8 {
	if r.remain() < 1 {
		r.truncated = true
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *binReader) u16() uint16 {
	if r.remain() < 2 {
		r.truncated = true
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *binReader) u32() uint32 {
	if r.remain() < 4 {
		r.truncated = true
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *binReader) str() string {
	n := r.u32()
	if r.truncated || r.remain() < int(n) {
		r.truncated = true
		return ""
	}
	s := string(r.data[r.off : r.off+int(n)])
	r.off += int(n)
	return s
}

// count reads a table length and sanity-checks it against the smallest
// possible per-entry size so a hostile count cannot drive allocation.
func (r *binReader) count(entrySize int) (int, bool) {
	n := r.u32()
	if r.truncated || int64(n)*int64(entrySize) > int64(r.remain()) {
		r.truncated = true
		return 0, false
	}
	return int(n), true
}

type binWriter struct {
	data []byte
}

func (w *binWriter) u8(v uint8)   { w.data = append(w.data, v) }
func (w *binWriter) u16(v uint16) { w.data = binary.LittleEndian.AppendUint16(w.data, v) }
func (w *binWriter) u32(v uint32) { w.data = binary.LittleEndian.AppendUint32(w.data, v) }
func (w *binWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.data = append(w.data, s...)
}

// ParseModSymbols reads a v1 container into ctx. rom is the mod binary the
// sections index into; refSectionsByROM maps reference section ROM addresses
// to reference section indices (built by the caller from its reference
// context, e.g. with SectionsByROM).
func ParseModSymbols(data []byte, rom []byte, refSectionsByROM map[uint32]uint16, ctx *Context) ModSymbolsError {
	r := &binReader{data: data}

	if r.remain() < 8 || string(r.data[0:4]) != MOD_SYMS_MAGIC {
		return MOD_SYMS_MALFORMED_HEADER
	}
	r.off = 4
	if version := r.u32(); version != MOD_SYMS_VERSION {
		return MOD_SYMS_UNKNOWN_VERSION
	}

	numSections, ok := r.count(12)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}

	for sectionIndex := 0; sectionIndex < numSections; sectionIndex++ {
		section := Section{
			ROMAddr:         r.u32(),
			RAMAddr:         r.u32(),
			Size:            r.u32(),
			BSSSectionIndex: SECTION_NONE,
			Executable:      true,
		}

		numFuncs, ok := r.count(8)
		if !ok {
			return MOD_SYMS_TRUNCATED
		}
		type pendingFunc struct{ offset, size uint32 }
		funcs := make([]pendingFunc, numFuncs)
		for i := range funcs {
			funcs[i] = pendingFunc{offset: r.u32(), size: r.u32()}
		}

		numRelocs, ok := r.count(20)
		if !ok {
			return MOD_SYMS_TRUNCATED
		}
		for i := 0; i < numRelocs; i++ {
			offset := r.u32()
			relocType := RelocType(r.u8())
			flags := r.u8()
			r.u16()
			target := r.u32()
			targetOffset := r.u32()
			symbolIndex := r.u32()
			if r.truncated {
				return MOD_SYMS_TRUNCATED
			}

			switch relocType {
			case R_MIPS_NONE, R_MIPS_16, R_MIPS_32, R_MIPS_26, R_MIPS_HI16, R_MIPS_LO16:
			default:
				return MOD_SYMS_UNKNOWN_RELOC_TYPE
			}

			reloc := Reloc{
				SectionOffset:       offset,
				Type:                relocType,
				TargetSectionOffset: targetOffset,
				SymbolIndex:         symbolIndex,
				ReferenceSymbol:     flags&relocFlagReference != 0,
			}

			switch target {
			case FILE_SECTION_ABSOLUTE:
				reloc.TargetSection = SECTION_ABSOLUTE
			case FILE_SECTION_IMPORT:
				reloc.TargetSection = SECTION_IMPORT
			case FILE_SECTION_EVENT:
				reloc.TargetSection = SECTION_EVENT
			default:
				if reloc.ReferenceSymbol {
					refSection, found := refSectionsByROM[target]
					if !found {
						return MOD_SYMS_UNRESOLVED_REFERENCE
					}
					reloc.TargetSection = refSection
				} else {
					if target >= uint32(numSections) {
						return MOD_SYMS_UNKNOWN_SECTION
					}
					reloc.TargetSection = uint16(target)
				}
			}
			section.Relocs = append(section.Relocs, reloc)
		}

		if r.truncated {
			return MOD_SYMS_TRUNCATED
		}

		ctx.Sections = append(ctx.Sections, section)
		for uint16(len(ctx.SectionFunctions)) <= uint16(sectionIndex) {
			ctx.SectionFunctions = append(ctx.SectionFunctions, nil)
		}

		for _, pf := range funcs {
			if section.ROMAddr == ROM_ADDR_NONE {
				return MOD_SYMS_UNKNOWN_SECTION
			}
			romStart := uint64(section.ROMAddr) + uint64(pf.offset)
			if romStart+uint64(pf.size) > uint64(len(rom)) || pf.size%4 != 0 {
				return MOD_SYMS_TRUNCATED
			}
			words := make([]uint32, pf.size/4)
			for w := range words {
				b := romStart + uint64(w)*4
				words[w] = uint32(rom[b])<<24 | uint32(rom[b+1])<<16 |
					uint32(rom[b+2])<<8 | uint32(rom[b+3])
			}
			ctx.AddFunction(Function{
				VRAM:         section.RAMAddr + pf.offset,
				ROM:          uint32(romStart),
				Words:        words,
				SectionIndex: uint16(sectionIndex),
			})
		}
	}

	numDeps, ok := r.count(4)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}
	for i := 0; i < numDeps; i++ {
		ctx.AddDependency(r.str())
	}

	numImports, ok := r.count(8)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}
	for i := 0; i < numImports; i++ {
		depIndex := r.u32()
		name := r.str()
		if r.truncated {
			return MOD_SYMS_TRUNCATED
		}
		if depIndex >= uint32(len(ctx.Dependencies)) {
			return MOD_SYMS_UNKNOWN_DEPENDENCY
		}
		ctx.ImportSymbols = append(ctx.ImportSymbols, ImportSymbol{Name: name, DependencyIndex: depIndex})
	}

	numDepEvents, ok := r.count(8)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}
	for i := 0; i < numDepEvents; i++ {
		depIndex := r.u32()
		name := r.str()
		if r.truncated {
			return MOD_SYMS_TRUNCATED
		}
		if depIndex >= uint32(len(ctx.Dependencies)) {
			return MOD_SYMS_UNKNOWN_DEPENDENCY
		}
		ctx.DependencyEvents = append(ctx.DependencyEvents, DependencyEvent{DependencyIndex: depIndex, EventName: name})
	}

	numEvents, ok := r.count(4)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}
	for i := 0; i < numEvents; i++ {
		ctx.EventSymbols = append(ctx.EventSymbols, EventSymbol{Name: r.str()})
	}

	numExports, ok := r.count(8)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}
	exportNames := make(map[string]bool, numExports)
	for i := 0; i < numExports; i++ {
		funcIndex := r.u32()
		name := r.str()
		if r.truncated {
			return MOD_SYMS_TRUNCATED
		}
		if funcIndex >= uint32(len(ctx.Functions)) {
			return MOD_SYMS_UNKNOWN_SYMBOL
		}
		if exportNames[name] {
			return MOD_SYMS_DUPLICATE_EXPORT
		}
		exportNames[name] = true
		ctx.Functions[funcIndex].Name = name
		ctx.FunctionsByName[name] = funcIndex
		ctx.ExportedFuncs = append(ctx.ExportedFuncs, funcIndex)
	}

	numCallbacks, ok := r.count(8)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}
	for i := 0; i < numCallbacks; i++ {
		funcIndex := r.u32()
		depEventIndex := r.u32()
		if funcIndex >= uint32(len(ctx.Functions)) {
			return MOD_SYMS_UNKNOWN_SYMBOL
		}
		if depEventIndex >= uint32(len(ctx.DependencyEvents)) {
			return MOD_SYMS_UNKNOWN_EVENT
		}
		ctx.Callbacks = append(ctx.Callbacks, Callback{FunctionIndex: funcIndex, DependencyEventIndex: depEventIndex})
	}

	numHooks, ok := r.count(8)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}
	for i := 0; i < numHooks; i++ {
		funcIndex := r.u32()
		flags := r.u32()
		if funcIndex >= uint32(len(ctx.Functions)) {
			return MOD_SYMS_UNKNOWN_SYMBOL
		}
		ctx.Hooks = append(ctx.Hooks, FunctionHook{FuncIndex: funcIndex, Flags: flags})
	}

	numReplacements, ok := r.count(12)
	if !ok {
		return MOD_SYMS_TRUNCATED
	}
	for i := 0; i < numReplacements; i++ {
		funcIndex := r.u32()
		targetVRAM := r.u32()
		flags := r.u32()
		if funcIndex >= uint32(len(ctx.Functions)) {
			return MOD_SYMS_UNKNOWN_SYMBOL
		}
		ctx.Replacements = append(ctx.Replacements, FunctionReplacement{
			FuncIndex:  funcIndex,
			TargetVRAM: targetVRAM,
			Flags:      flags,
		})
	}

	// Import and event reloc indices can only be validated once their tables
	// are parsed.
	for si := range ctx.Sections {
		for ri := range ctx.Sections[si].Relocs {
			reloc := &ctx.Sections[si].Relocs[ri]
			switch reloc.TargetSection {
			case SECTION_IMPORT:
				if reloc.SymbolIndex >= uint32(len(ctx.ImportSymbols)) {
					return MOD_SYMS_UNKNOWN_IMPORT
				}
			case SECTION_EVENT:
				if reloc.SymbolIndex >= uint32(len(ctx.EventSymbols)) {
					return MOD_SYMS_UNKNOWN_EVENT
				}
			}
		}
	}

	if r.truncated {
		return MOD_SYMS_TRUNCATED
	}
	return MOD_SYMS_GOOD
}

// SymbolsToBinV1 serializes the mod tables of ctx into the v1 container.
// Relocs against regular reference sections are written as the reference
// section's ROM address, so the writing context must carry an imported
// reference context. Re-parsing the result against the same reference
// section map yields an equivalent context.
func SymbolsToBinV1(ctx *Context) []byte {
	w := &binWriter{}
	w.data = append(w.data, MOD_SYMS_MAGIC...)
	w.u32(MOD_SYMS_VERSION)

	w.u32(uint32(len(ctx.Sections)))
	for sectionIndex := range ctx.Sections {
		section := &ctx.Sections[sectionIndex]
		w.u32(section.ROMAddr)
		w.u32(section.RAMAddr)
		w.u32(section.Size)

		var funcIndices []uint32
		if sectionIndex < len(ctx.SectionFunctions) {
			funcIndices = ctx.SectionFunctions[sectionIndex]
		}
		w.u32(uint32(len(funcIndices)))
		for _, fi := range funcIndices {
			fn := &ctx.Functions[fi]
			w.u32(fn.VRAM - section.RAMAddr)
			w.u32(uint32(len(fn.Words) * 4))
		}

		w.u32(uint32(len(section.Relocs)))
		for ri := range section.Relocs {
			reloc := &section.Relocs[ri]
			w.u32(reloc.SectionOffset)
			w.u8(uint8(reloc.Type))
			var flags uint8
			if reloc.ReferenceSymbol {
				flags |= relocFlagReference
			}
			w.u8(flags)
			w.u16(0)

			switch {
			case reloc.TargetSection == SECTION_ABSOLUTE:
				w.u32(FILE_SECTION_ABSOLUTE)
			case reloc.TargetSection == SECTION_IMPORT:
				w.u32(FILE_SECTION_IMPORT)
			case reloc.TargetSection == SECTION_EVENT:
				w.u32(FILE_SECTION_EVENT)
			case reloc.ReferenceSymbol:
				w.u32(ctx.ReferenceSections[reloc.TargetSection].ROMAddr)
			default:
				w.u32(uint32(reloc.TargetSection))
			}
			w.u32(reloc.TargetSectionOffset)
			w.u32(reloc.SymbolIndex)
		}
	}

	w.u32(uint32(len(ctx.Dependencies)))
	for _, dep := range ctx.Dependencies {
		w.str(dep)
	}

	w.u32(uint32(len(ctx.ImportSymbols)))
	for i := range ctx.ImportSymbols {
		w.u32(ctx.ImportSymbols[i].DependencyIndex)
		w.str(ctx.ImportSymbols[i].Name)
	}

	w.u32(uint32(len(ctx.DependencyEvents)))
	for i := range ctx.DependencyEvents {
		w.u32(ctx.DependencyEvents[i].DependencyIndex)
		w.str(ctx.DependencyEvents[i].EventName)
	}

	w.u32(uint32(len(ctx.EventSymbols)))
	for i := range ctx.EventSymbols {
		w.str(ctx.EventSymbols[i].Name)
	}

	w.u32(uint32(len(ctx.ExportedFuncs)))
	for _, fi := range ctx.ExportedFuncs {
		w.u32(fi)
		w.str(ctx.Functions[fi].Name)
	}

	w.u32(uint32(len(ctx.Callbacks)))
	for i := range ctx.Callbacks {
		w.u32(ctx.Callbacks[i].FunctionIndex)
		w.u32(ctx.Callbacks[i].DependencyEventIndex)
	}

	w.u32(uint32(len(ctx.Hooks)))
	for i := range ctx.Hooks {
		w.u32(ctx.Hooks[i].FuncIndex)
		w.u32(ctx.Hooks[i].Flags)
	}

	w.u32(uint32(len(ctx.Replacements)))
	for i := range ctx.Replacements {
		w.u32(ctx.Replacements[i].FuncIndex)
		w.u32(ctx.Replacements[i].TargetVRAM)
		w.u32(ctx.Replacements[i].Flags)
	}

	return w.data
}
