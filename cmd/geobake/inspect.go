package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/geobake/internal/store"
	"github.com/Faultbox/geobake/pkg/formats"
)

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Print every vertex or feature")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: geobake inspect [-v] <file.bin[.gz]>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	data, err := readAsset(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	base := filepath.Base(path)
	fmt.Printf("File:  %s\n", path)
	fmt.Printf("Bytes: %d\n", len(data))

	if strings.HasPrefix(base, "map") {
		err = inspectFeatures(data, *verbose)
	} else {
		err = inspectTile(data, *verbose)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func readAsset(path string) ([]byte, error) {
	if strings.HasSuffix(path, ".gz") {
		return store.ReadFile(path)
	}
	return os.ReadFile(path)
}

func inspectTile(data []byte, verbose bool) error {
	tm, err := formats.ParseTileMesh(data)
	if err != nil {
		return err
	}
	fmt.Printf("Kind:     tile mesh\n")
	fmt.Printf("Z range:  %.2f .. %.2f\n", tm.MinZ, tm.MinZ+tm.RangeZ)
	fmt.Printf("Vertices: %d\n", len(tm.Vertices))
	fmt.Printf("Faces:    %d\n", len(tm.Faces))

	if verbose {
		for i, v := range tm.Vertices {
			fmt.Printf("  v%-5d xyz=(%5d,%5d,%5d) n=(%4d,%4d,%4d)\n", i, v.X, v.Y, v.Z, v.NX, v.NY, v.NZ)
		}
		for i, f := range tm.Faces {
			fmt.Printf("  f%-5d %v\n", i, f)
		}
	}
	return nil
}

func inspectFeatures(data []byte, verbose bool) error {
	feats, err := formats.ParseFeatures(data)
	if err != nil {
		return err
	}

	kinds := make(map[string]int)
	roadTypes := make(map[string]int)
	var buildings, roads int
	for _, f := range feats {
		switch f := f.(type) {
		case *formats.Building:
			buildings++
			kinds[f.Kind.String()]++
			if verbose {
				fmt.Printf("  building %-10s base=(%.1f,%.1f) ground=%.1f..%.1f height=%.1f points=%d\n",
					f.Kind, f.BaseX, f.BaseY, f.GroundMin, f.GroundMax, f.Height, len(f.Footprint))
			}
		case *formats.Road:
			roads++
			roadTypes[roadTypeName(f.Type)]++
			if verbose {
				fmt.Printf("  road %-7s lanes=%d base=(%.1f,%.1f,%.1f) nodes=%d\n",
					roadTypeName(f.Type), f.Lanes, f.BaseX, f.BaseY, f.BaseElevation, len(f.Nodes))
			}
		}
	}

	fmt.Printf("Kind:      feature map\n")
	fmt.Printf("Buildings: %d\n", buildings)
	printCounts(kinds)
	fmt.Printf("Roads:     %d\n", roads)
	printCounts(roadTypes)
	return nil
}

func roadTypeName(t formats.RoadType) string {
	switch t {
	case formats.RoadPath:
		return "path"
	case formats.RoadTwoWay:
		return "two-way"
	case formats.RoadOneWay:
		return "one-way"
	default:
		return fmt.Sprintf("type%d", t)
	}
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-12s %d\n", k, counts[k])
	}
}
