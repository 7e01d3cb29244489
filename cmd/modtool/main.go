// main.go - Offline mod recompiler front end

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

func main() {
	if len(os.Args) != 5 {
		fmt.Printf("Usage: %s [mod symbol file] [mod binary file] [recomp symbols file] [output C file]\n", os.Args[0])
		os.Exit(0)
	}

	symbolData, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open symbol file\n")
		os.Exit(1)
	}

	romData, err := os.ReadFile(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open ROM\n")
		os.Exit(1)
	}

	referenceContext := recomp.NewContext()
	if err := recomp.FromSymbolFile(os.Args[3], nil, referenceContext); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load provided function reference symbol file: %v\n", err)
		os.Exit(1)
	}

	sectionsByVROM := referenceContext.SectionsByROM()

	modContext := recomp.NewContext()
	if parseErr := recomp.ParseModSymbols(symbolData, romData, sectionsByVROM, modContext); parseErr != recomp.MOD_SYMS_GOOD {
		fmt.Fprintf(os.Stderr, "Error parsing mod symbols: %v\n", parseErr)
		os.Exit(1)
	}

	modContext.ImportReferenceContext(referenceContext)

	// Populate the symbol index of every R_MIPS_26 reference reloc.
	if err := modContext.BindReferenceRelocs(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	modContext.ROM = romData

	outputPath := os.Args[4]
	outputFile, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output file %s\n", outputPath)
		os.Exit(1)
	}

	if err := recomp.RecompileMod(modContext, outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		outputFile.Close()
		os.Remove(outputPath)
		os.Exit(1)
	}

	if err := outputFile.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output file %s\n", outputPath)
		os.Remove(outputPath)
		os.Exit(1)
	}
}
