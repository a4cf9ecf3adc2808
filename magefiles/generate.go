//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Paper builds the CLI and generates a paper for topic, writing the document
// and its outline/template artifacts under output/.
func Paper(topic string) error {
	mg.Deps(Build, Init)

	bin := filepath.Join(binDir, binName)
	out := filepath.Join("output", "paper.tex")
	if err := sh.RunV(bin, "generate", topic, "--output", out, "--artifacts-dir", filepath.Join("output", "artifacts")); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

// Purge clears the document cache.
func Purge() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "cache", "purge")
}
