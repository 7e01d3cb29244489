// main.go - Mod symbol and binary merger front end

/*
(c) 2024 - 2025 Zayn Otley
https://github.com/IntuitionAmiga/RecompEngine

License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"

	recomp "github.com/IntuitionAmiga/RecompEngine"
)

func mustReadFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s\n", path)
		os.Exit(1)
	}
	return data
}

func parseModContext(symPath string, symData, binary []byte, sectionsByROM map[uint32]uint16) *recomp.Context {
	ctx := recomp.NewContext()
	if err := recomp.ParseModSymbols(symData, binary, sectionsByROM, ctx); err != recomp.MOD_SYMS_GOOD {
		fmt.Fprintf(os.Stderr, "Error parsing mod symbols %s\n", symPath)
		os.Exit(1)
	}
	ctx.ROM = binary
	return ctx
}

func main() {
	if len(os.Args) != 8 {
		fmt.Printf("Usage: %s <function symbol toml> <symbol file 1> <binary 1> <symbol file 2> <binary 2> <output symbol file> <output binary file>\n", os.Args[0])
		os.Exit(0)
	}

	functionSymbolTomlPath := os.Args[1]
	symFilePath1 := os.Args[2]
	binaryPath1 := os.Args[3]
	symFilePath2 := os.Args[4]
	binaryPath2 := os.Args[5]
	outputSymPath := os.Args[6]
	outputBinaryPath := os.Args[7]

	symFile1 := mustReadFile(symFilePath1)
	binary1 := mustReadFile(binaryPath1)
	symFile2 := mustReadFile(symFilePath2)
	binary2 := mustReadFile(binaryPath2)

	referenceContext := recomp.NewContext()
	if err := recomp.FromSymbolFile(functionSymbolTomlPath, nil, referenceContext); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load provided function reference symbol file: %v\n", err)
		os.Exit(1)
	}

	sectionsByROM := referenceContext.SectionsByROM()

	context1 := parseModContext(symFilePath1, symFile1, binary1, sectionsByROM)
	context2 := parseModContext(symFilePath2, symFile2, binary2, sectionsByROM)

	merged := recomp.NewContext()
	merged.ImportReferenceContext(referenceContext)

	if !recomp.CopyIntoContext(merged, context1) {
		fmt.Fprintf(os.Stderr, "Failed to merge first mod into output\n")
		os.Exit(1)
	}
	if !recomp.CopyIntoContext(merged, context2) {
		fmt.Fprintf(os.Stderr, "Failed to merge second mod into output\n")
		os.Exit(1)
	}

	symsOut := recomp.SymbolsToBinV1(merged)

	if err := os.WriteFile(outputSymPath, symsOut, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write symbol file to %s\n", outputSymPath)
		os.Exit(1)
	}

	if err := os.WriteFile(outputBinaryPath, merged.ROM, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write binary file to %s\n", outputBinaryPath)
		os.Exit(1)
	}
}
