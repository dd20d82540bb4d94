// Command conduit evaluates a routing script and writes the generated
// conduit, pipe and junction box meshes as JSON.
//
//	conduit -in kitchen.conduit -out kitchen.json
//	conduit -reference -cells 120 < kitchen.conduit
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"

	"github.com/chazu/conduit/pkg/engine"
	"github.com/chazu/conduit/pkg/kernel/sdfx"
	"github.com/chazu/conduit/pkg/tube"
)

func main() {
	cfg := tube.DefaultConfig()

	in := flag.String("in", "", "script to read (default stdin)")
	out := flag.String("out", "", "file to write (default stdout)")
	reference := flag.Bool("reference", false, "emit sdfx reference meshes instead of swept meshes")
	cells := flag.Int("cells", sdfx.DefaultMeshCells, "marching cubes resolution of -reference")
	indent := flag.Bool("indent", false, "indent the JSON output")
	timeout := flag.Duration("timeout", engine.DefaultTimeout, "script evaluation limit")
	flag.IntVar(&cfg.CircleSegments, "segments", cfg.CircleSegments, "profile points per ring")
	flag.IntVar(&cfg.CornerSegments, "corner-segments", cfg.CornerSegments, "pieces per corner bend")
	flag.Float64Var(&cfg.ElecPathR, "elec-path-r", cfg.ElecPathR, "bend radius of electrical corners (m)")
	flag.Parse()

	source, err := readSource(*in)
	if err != nil {
		log.Fatalf("read script: %v", err)
	}

	app := NewApp(cfg, sdfx.NewWithCells(*cells), *timeout)

	var (
		result any
		failed bool
	)
	if *reference {
		r := app.Reference(string(source))
		result, failed = r, len(r.Errors) > 0
	} else {
		r := app.Evaluate(string(source))
		result, failed = r, len(r.Errors) > 0
		for _, w := range r.Warnings {
			log.Printf("warning: %s", w.Message)
		}
	}

	if err := writeJSON(*out, result, *indent); err != nil {
		log.Fatalf("write result: %v", err)
	}
	if failed {
		os.Exit(1)
	}
}

func readSource(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(path string, v any, indent bool) error {
	w := io.Writer(os.Stdout)
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
