// symbol_file.go - Reference symbol TOML loader

package recomp

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

type symbolFileFunc struct {
	Name string `toml:"name"`
	VRAM int64  `toml:"vram"`
	Size int64  `toml:"size"`
}

type symbolFileSection struct {
	Name      string           `toml:"name"`
	ROM       *int64           `toml:"rom"`
	VRAM      int64            `toml:"vram"`
	Size      int64            `toml:"size"`
	BSS       *int64           `toml:"bss_section"`
	Functions []symbolFileFunc `toml:"functions"`
}

type symbolFile struct {
	Sections []symbolFileSection `toml:"section"`
}

// FromSymbolFile populates ctx from a TOML symbol description. rom may be
// empty (the usual case for reference contexts); function words are then
// zero-filled placeholders carrying only their size.
func FromSymbolFile(path string, rom []byte, ctx *Context) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading symbol file %s", path)
	}

	tree, err := toml.LoadBytes(data)
	if err != nil {
		return errors.Wrapf(err, "parsing symbol file %s", path)
	}
	// go-toml decodes an empty inline array as an untyped list, which its
	// struct decoder rejects for []symbolFileFunc; drop such keys first.
	if sections, ok := tree.Get("section").([]*toml.Tree); ok {
		for _, s := range sections {
			if fns, ok := s.Get("functions").([]interface{}); ok && len(fns) == 0 {
				s.Delete("functions")
			}
		}
	}

	var file symbolFile
	if err := tree.Unmarshal(&file); err != nil {
		return errors.Wrapf(err, "parsing symbol file %s", path)
	}

	ctx.ROM = rom
	for _, fileSection := range file.Sections {
		sectionIndex := uint16(len(ctx.Sections))
		section := Section{
			Name:            fileSection.Name,
			ROMAddr:         ROM_ADDR_NONE,
			RAMAddr:         uint32(fileSection.VRAM),
			Size:            uint32(fileSection.Size),
			BSSSectionIndex: SECTION_NONE,
			Executable:      len(fileSection.Functions) > 0,
		}
		if fileSection.ROM != nil {
			section.ROMAddr = uint32(*fileSection.ROM)
		}
		if fileSection.BSS != nil {
			section.BSSSectionIndex = uint16(*fileSection.BSS)
		}
		ctx.Sections = append(ctx.Sections, section)
		for uint16(len(ctx.SectionFunctions)) <= sectionIndex {
			ctx.SectionFunctions = append(ctx.SectionFunctions, nil)
		}

		for _, fileFunc := range fileSection.Functions {
			vram := uint32(fileFunc.VRAM)
			size := uint32(fileFunc.Size)
			if vram < section.RAMAddr || vram+size > section.RAMAddr+section.Size {
				return fmt.Errorf("symbol file %s: function %s at 0x%08X outside section %s", path, fileFunc.Name, vram, section.Name)
			}
			if size%4 != 0 || vram%4 != 0 {
				return fmt.Errorf("symbol file %s: function %s is not word aligned", path, fileFunc.Name)
			}

			funcROM := uint32(0)
			words := make([]uint32, size/4)
			if section.ROMAddr != ROM_ADDR_NONE {
				funcROM = section.ROMAddr + (vram - section.RAMAddr)
				if int(funcROM)+int(size) <= len(rom) {
					for w := range words {
						b := funcROM + uint32(w)*4
						words[w] = uint32(rom[b])<<24 | uint32(rom[b+1])<<16 |
							uint32(rom[b+2])<<8 | uint32(rom[b+3])
					}
				}
			}

			ctx.AddFunction(Function{
				VRAM:         vram,
				ROM:          funcROM,
				Words:        words,
				Name:         fileFunc.Name,
				SectionIndex: sectionIndex,
			})
		}
	}
	return nil
}
