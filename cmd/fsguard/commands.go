package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/fsguard/internal/config"
	"github.com/standardbeagle/fsguard/internal/indexing"
	"github.com/standardbeagle/fsguard/internal/logging"
	"github.com/standardbeagle/fsguard/internal/search"
	"github.com/standardbeagle/fsguard/internal/security"
	"github.com/standardbeagle/fsguard/internal/tools"
	"github.com/standardbeagle/fsguard/pkg/pathutil"
)

// cliRuntime wires the components for a local command. Without configured
// allowed paths the working directory is the only allowed directory.
func cliRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, err
	}
	if len(cfg.AllowedPaths) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cfg.AllowedPaths = []security.AllowedPath{{Path: cwd}}
	}
	return newRuntime(cfg, logging.ModeCLI)
}

// baseDir returns --dir or the working directory with symlinks resolved, the
// form the tools report paths in.
func baseDir(c *cli.Context) (string, error) {
	dir := c.String("dir")
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("%s argument is required", name)
	}
	return strings.Join(c.Args().Slice(), " "), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func findCommand(c *cli.Context) error {
	query, err := requireArg(c, "query")
	if err != nil {
		return err
	}
	dir, err := baseDir(c)
	if err != nil {
		return err
	}
	rt, err := cliRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.service.FindFilesByName(c.Context, tools.FindRequest{BaseDir: dir, Query: query, Extension: c.String("ext")})
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, res)
	}

	files := pathutil.ToRelativeAll(res.Files, dir, func(r *indexing.FileRecord) *string { return &r.Path })
	for _, f := range files {
		fmt.Fprintln(c.App.Writer, f.Path)
	}
	return nil
}

func grepCommand(c *cli.Context) error {
	text, err := requireArg(c, "text")
	if err != nil {
		return err
	}
	dir, err := baseDir(c)
	if err != nil {
		return err
	}
	rt, err := cliRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	req := tools.ContentRequest{
		BaseDir:      dir,
		ContentQuery: text,
		FilePattern:  c.String("pattern"),
		Extension:    c.String("ext"),
	}
	if c.Bool("case-sensitive") {
		insensitive := false
		req.CaseInsensitive = &insensitive
	}
	if n := c.Int("context"); n >= 0 {
		req.ContextLines = &n
	}
	if n := c.Int("max"); n > 0 {
		req.MaxResults = &n
	}

	res, err := rt.service.SearchFileContent(c.Context, req)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, res)
	}

	results := pathutil.ToRelativeAll(res.Results, dir, func(f *search.FileMatches) *string { return &f.Path })
	for i, file := range results {
		if i > 0 {
			fmt.Fprintln(c.App.Writer, "--")
		}
		for _, m := range file.Matches {
			for _, line := range m.Context {
				sep := "-"
				if line.IsMatch {
					sep = ":"
				}
				fmt.Fprintf(c.App.Writer, "%s%s%d%s%s\n", file.Path, sep, line.Line, sep, line.Content)
			}
		}
	}
	return nil
}

func readCommand(c *cli.Context) error {
	path, err := requireArg(c, "path")
	if err != nil {
		return err
	}
	rt, err := cliRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := rt.service.ReadFile(c.Context, tools.PathRequest{Path: path})
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c.App.Writer, snap)
	}

	fmt.Fprintf(c.App.Writer, "# %s quickHash=%s lines=%d\n", snap.Path, snap.QuickHash, snap.TotalLines)
	for n := 1; n <= snap.TotalLines; n++ {
		fmt.Fprintf(c.App.Writer, "%6d  %s\n", n, snap.Content[n])
	}
	return nil
}

func dirsCommand(c *cli.Context) error {
	rt, err := cliRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	res := rt.service.ListAllowedDirectories(c.Context)
	if c.Bool("json") {
		return printJSON(c.App.Writer, res)
	}
	for _, d := range res.Directories {
		status := "ok"
		if !d.Exists {
			status = "missing"
		}
		fmt.Fprintf(c.App.Writer, "%-20s %-8s %s\n", d.Name, status, d.Path)
	}
	return nil
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	content, err := config.MarshalTOML(cfg)
	if err != nil {
		return fmt.Errorf("failed to convert to TOML: %w", err)
	}
	_, err = c.App.Writer.Write(content)
	return err
}

func configValidateCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		fmt.Fprintf(c.App.Writer, "Configuration could not be loaded: %v\n", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(c.App.Writer, "Configuration is invalid: %v\n", err)
		return err
	}

	var warnings []string
	if len(cfg.AllowedPaths) == 0 {
		warnings = append(warnings, "no allowed directories configured; the mcp command will refuse to start")
	}
	for _, p := range cfg.AllowedPaths {
		if info, err := os.Stat(p.Path); err != nil || !info.IsDir() {
			warnings = append(warnings, fmt.Sprintf("allowed directory %s does not exist", p.Path))
		}
	}
	sort.Strings(warnings)

	fmt.Fprintf(c.App.Writer, "Configuration is valid: %d allowed directories, cache driver %s\n",
		len(cfg.AllowedPaths), cfg.Cache.Driver)
	for _, w := range warnings {
		fmt.Fprintf(c.App.Writer, "  warning: %s\n", w)
	}
	return nil
}
