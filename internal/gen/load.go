package gen

import (
	"fmt"
	"path/filepath"

	"golang.org/x/tools/go/packages"
)

// LoadMode is what Load asks go/packages for.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedTypes

// Result is the generated source for one package.
type Result struct {
	PkgPath  string
	Dir      string
	Source   []byte
	Warnings []string
}

// Load generates the descriptor tables of the packages matching patterns.
// only restricts generation to the named types.
func Load(dir string, only []string, patterns ...string) ([]Result, error) {
	cfg := &packages.Config{Mode: LoadMode, Dir: dir}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors: %v", errs)
	}

	var out []Result
	for _, pkg := range pkgs {
		file, warnings := InspectPackage(pkg.Types, only)
		if len(file.Structs) == 0 {
			continue
		}
		src, err := Render(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pkg.PkgPath, err)
		}
		r := Result{PkgPath: pkg.PkgPath, Source: src, Warnings: warnings}
		if len(pkg.GoFiles) > 0 {
			r.Dir = filepath.Dir(pkg.GoFiles[0])
		}
		out = append(out, r)
	}
	return out, nil
}
