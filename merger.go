// merger.go - Additive, index-remapping merge of mod contexts

package recomp

// CopyIntoContext appends everything in `in` to `out`, rewriting every index
// so the merged context is self-contained: section and event indices shift
// by the prior table sizes, dependencies and imports and dependency events
// dedupe through remap tables, and function-carrying tables follow their
// functions. Reference section indices are shared between inputs and stay
// untouched.
func CopyIntoContext(out *Context, in *Context) bool {
	romOffset := uint32(len(out.ROM))
	sectionOffset := uint16(len(out.Sections))
	functionOffset := uint32(len(out.Functions))
	eventOffset := uint32(len(out.EventSymbols))

	out.ROM = append(out.ROM, in.ROM...)

	// Dependencies: by-name dedupe with a remap table.
	newDependencyIndices := make([]uint32, len(in.Dependencies))
	for depIndex, dep := range in.Dependencies {
		newDependencyIndices[depIndex] = out.AddDependency(dep)
	}

	// Imports: dedupe on (remapped dependency, name).
	newImportIndices := make([]uint32, len(in.ImportSymbols))
	for importIndex := range in.ImportSymbols {
		sym := &in.ImportSymbols[importIndex]
		dependencyIndex := newDependencyIndices[sym.DependencyIndex]

		found := false
		for i := range out.ImportSymbols {
			if out.ImportSymbols[i].DependencyIndex == dependencyIndex && out.ImportSymbols[i].Name == sym.Name {
				newImportIndices[importIndex] = uint32(i)
				found = true
				break
			}
		}
		if !found {
			newImportIndices[importIndex] = uint32(len(out.ImportSymbols))
			out.ImportSymbols = append(out.ImportSymbols, ImportSymbol{
				Name:            sym.Name,
				DependencyIndex: dependencyIndex,
			})
		}
	}

	// Dependency events: dedupe on (remapped dependency, name).
	newDependencyEventIndices := make([]uint32, len(in.DependencyEvents))
	for eventIndex := range in.DependencyEvents {
		event := &in.DependencyEvents[eventIndex]
		dependencyIndex := newDependencyIndices[event.DependencyIndex]

		found := false
		for i := range out.DependencyEvents {
			if out.DependencyEvents[i].DependencyIndex == dependencyIndex && out.DependencyEvents[i].EventName == event.EventName {
				newDependencyEventIndices[eventIndex] = uint32(i)
				found = true
				break
			}
		}
		if !found {
			newDependencyEventIndices[eventIndex] = uint32(len(out.DependencyEvents))
			out.DependencyEvents = append(out.DependencyEvents, DependencyEvent{
				DependencyIndex: dependencyIndex,
				EventName:       event.EventName,
			})
		}
	}

	// Sections, with every reloc's target rewritten.
	for sectionIndex := range in.Sections {
		section := in.Sections[sectionIndex]
		section.Relocs = append([]Reloc(nil), section.Relocs...)
		if section.ROMAddr != ROM_ADDR_NONE {
			section.ROMAddr += romOffset
		}
		section.Name = ""

		for ri := range section.Relocs {
			reloc := &section.Relocs[ri]
			switch {
			case reloc.TargetSection == SECTION_ABSOLUTE:
				// Absolute relocs should have been resolved before merging.
				// Soft warning; nothing to remap.
				logger.Warnf("Internal error: reloc in section %d references an absolute symbol and should have been relocated already. Please report this issue.", sectionIndex)
			case reloc.TargetSection == SECTION_IMPORT:
				reloc.SymbolIndex = newImportIndices[reloc.SymbolIndex]
			case reloc.TargetSection == SECTION_EVENT:
				reloc.SymbolIndex += eventOffset
			case reloc.ReferenceSymbol:
				// Reference section indices remain unchanged.
			default:
				reloc.TargetSection += sectionOffset
			}
		}
		out.Sections = append(out.Sections, section)
	}

	for uint16(len(out.SectionFunctions)) < uint16(len(out.Sections)) {
		out.SectionFunctions = append(out.SectionFunctions, nil)
	}

	// Functions, re-indexed by vram and section.
	for funcIndex := range in.Functions {
		fn := in.Functions[funcIndex]
		fn.Words = append([]uint32(nil), fn.Words...)
		fn.SectionIndex += sectionOffset
		fn.ROM += romOffset
		outFuncIndex := uint32(len(out.Functions))
		out.Functions = append(out.Functions, fn)
		if out.FunctionsByVRAM == nil {
			out.FunctionsByVRAM = make(map[uint32][]uint32)
		}
		out.FunctionsByVRAM[fn.VRAM] = append(out.FunctionsByVRAM[fn.VRAM], outFuncIndex)
		out.SectionFunctions[fn.SectionIndex] = append(out.SectionFunctions[fn.SectionIndex], outFuncIndex)
	}

	for _, replacement := range in.Replacements {
		replacement.FuncIndex += functionOffset
		out.Replacements = append(out.Replacements, replacement)
	}

	for _, hook := range in.Hooks {
		hook.FuncIndex += functionOffset
		out.Hooks = append(out.Hooks, hook)
	}

	for _, callback := range in.Callbacks {
		callback.FunctionIndex += functionOffset
		callback.DependencyEventIndex = newDependencyEventIndices[callback.DependencyEventIndex]
		out.Callbacks = append(out.Callbacks, callback)
	}

	for _, exportedFunc := range in.ExportedFuncs {
		out.ExportedFuncs = append(out.ExportedFuncs, exportedFunc+functionOffset)
	}

	out.EventSymbols = append(out.EventSymbols, in.EventSymbols...)

	return true
}
