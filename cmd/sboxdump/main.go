// Writes the substitution tables in the format read by cipher.sbox_file.
//
// Usage:
//
//	go run ./cmd/sboxdump <output> [input]
//
// Without input the RFC 2144 tables are written. With input the dump is
// validated and rewritten, which normalises a copied file.
package main

import (
	"fmt"
	"os"

	"github.com/udisondev/longgate/internal/crypto"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, "Usage: sboxdump <output> [input]")
		os.Exit(2)
	}

	var src crypto.TableSource = crypto.StandardTableSource{}
	if len(os.Args) == 3 {
		src = crypto.FileTableSource{Path: os.Args[2]}
	}

	boxes, err := src.LoadTables()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(os.Args[1], crypto.EncodeSBoxes(boxes), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d bytes to %s\n", crypto.SBoxDumpSize, os.Args[1])
}
