// Command xrecordgen writes static xrecord descriptor tables for the
// structs of a Go package.
//
//	xrecordgen -pkg ./models -out models_xrecord.go -types Customer,Order
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-mizu/xrecord/internal/gen"
)

func main() {
	pkg := flag.String("pkg", ".", "package pattern to generate tables for")
	out := flag.String("out", "xrecord_tables.go", "output file name, written into the package directory")
	only := flag.String("types", "", "comma separated type names (default: every exported struct)")
	flag.Parse()

	var names []string
	if *only != "" {
		for _, n := range strings.Split(*only, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	results, err := gen.Load("", names, *pkg)
	if err != nil {
		log.Fatalf("xrecordgen: %v", err)
	}
	if len(results) == 0 {
		log.Fatalf("xrecordgen: no mappable structs in %s", *pkg)
	}
	for _, r := range results {
		for _, w := range r.Warnings {
			fmt.Fprintf(os.Stderr, "xrecordgen: %s: %s\n", r.PkgPath, w)
		}
		path := filepath.Join(r.Dir, *out)
		if err := os.WriteFile(path, r.Source, 0o644); err != nil {
			log.Fatalf("xrecordgen: %v", err)
		}
		fmt.Fprintf(os.Stderr, "xrecordgen: wrote %s\n", path)
	}
}
