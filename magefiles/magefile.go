//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main contains Mage build targets for html-converter developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir   = "bin"
	binName  = "html-converter"
	cmdPkg   = "./cmd/html-converter"
	dataDir  = "scraping_data"
	urlsFile = "urls.txt"
)

// Init creates the output directory and an empty URL file if missing.
func Init() error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dataDir, err)
	}
	if _, err := os.Stat(urlsFile); os.IsNotExist(err) {
		if err := os.WriteFile(urlsFile, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", urlsFile, err)
		}
	}
	fmt.Printf("Initialized %s/ and %s\n", dataDir, urlsFile)
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Run builds the binary and converts the URLs in urls.txt.
func Run() error {
	mg.Deps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName))
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Clean removes build output. Converted pages are kept.
func Clean() error {
	return sh.Rm(binDir)
}
