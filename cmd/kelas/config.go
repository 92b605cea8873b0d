package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/infokelas/kelas"
	"github.com/infokelas/kelas/internal/config"
)

// ConfigCmd groups the config file subcommands.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write a commented starter config."`
	Path ConfigPathCmd `cmd:"" help:"Print the config layers that are read."`
}

// target is --config when given, else the user config file.
func (g *Globals) target() string {
	if g.Config != "" {
		return g.Config
	}
	return config.DefaultPaths()[0]
}

// ConfigInitCmd writes the embedded config template.
type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing file."`
}

// Run executes the config init command.
func (c *ConfigInitCmd) Run(g *Globals, w io.Writer) error {
	path := g.target()
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("config: %s already exists, pass --force to overwrite", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}
	if err := os.WriteFile(path, kelas.ConfigTemplate, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}

// ConfigPathCmd lists the config layers in increasing priority.
type ConfigPathCmd struct{}

// Run executes the config path command.
func (c *ConfigPathCmd) Run(g *Globals, w io.Writer) error {
	paths := config.DefaultPaths()
	if g.Config != "" {
		paths = []string{g.Config}
	}
	for _, p := range paths {
		state := "missing"
		if _, err := os.Stat(p); err == nil {
			state = "found"
		}
		_, _ = fmt.Fprintf(w, "%s (%s)\n", p, state)
	}
	return nil
}
