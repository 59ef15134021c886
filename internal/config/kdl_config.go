package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/security"
)

// applyKDLFile overlays dir/.fsguard.kdl onto cfg. It reports whether the
// file exists.
func applyKDLFile(cfg *Config, dir string) (bool, error) {
	path := filepath.Join(dir, KDLFileName)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return true, fserrors.NewConfigError("file", path, err)
	}
	if err := applyKDL(cfg, string(content), dir); err != nil {
		return true, fserrors.NewConfigError("file", path, err)
	}
	return true, nil
}

// applyKDL overlays a KDL document onto cfg. Only the nodes present change
// the configuration; exclude patterns accumulate. Relative allowed paths are
// resolved against baseDir.
//
//	allowed_paths {
//	    path "/srv/app" name="app"
//	}
//	index { max_files 50000; follow_symlinks false }
//	exclude "**/node_modules/**" "**/.git/**"
//	cache { driver "sqlite"; path "/var/cache/fsguard.db" }
//	search { context_lines 2; max_file_size "10MB" }
//	logging { level "debug"; format "console" }
//	metrics { enabled true; address ":9464" }
func applyKDL(cfg *Config, content, baseDir string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "allowed_paths":
			cfg.AllowedPaths = append(cfg.AllowedPaths, parseAllowedPathNodes(n, baseDir)...)
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_files":
					assignInt(cn, &cfg.Index.MaxFiles)
				case "max_dirs":
					assignInt(cn, &cfg.Index.MaxDirs)
				case "partial_rescan_threshold":
					assignInt(cn, &cfg.Index.PartialRescanThreshold)
				case "max_cache_bytes":
					assignSize(cn, &cfg.Index.MaxCacheBytes)
				case "follow_symlinks":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Index.FollowSymlinks = b
					}
				case "registry_size":
					assignInt(cn, &cfg.Index.RegistrySize)
				}
			}
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		case "cache":
			for _, cn := range n.Children {
				assignSimpleString(cn, "driver", func(v string) { cfg.Cache.Driver = v })
				assignSimpleString(cn, "path", func(v string) { cfg.Cache.Path = v })
				if nodeName(cn) == "size" {
					assignInt(cn, &cfg.Cache.Size)
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "context_lines":
					assignInt(cn, &cfg.Search.ContextLines)
				case "max_results":
					assignInt(cn, &cfg.Search.MaxResults)
				case "max_file_size":
					assignSize(cn, &cfg.Search.MaxFileSize)
				case "workers":
					assignInt(cn, &cfg.Search.Workers)
				}
			}
		case "logging":
			for _, cn := range n.Children {
				assignSimpleString(cn, "level", func(v string) { cfg.Logging.Level = v })
				assignSimpleString(cn, "format", func(v string) { cfg.Logging.Format = v })
				assignSimpleString(cn, "output", func(v string) { cfg.Logging.OutputPath = v })
			}
		case "metrics":
			for _, cn := range n.Children {
				if nodeName(cn) == "enabled" {
					if b, ok := firstBoolArg(cn); ok {
						cfg.Metrics.Enabled = b
					}
				}
				assignSimpleString(cn, "address", func(v string) { cfg.Metrics.Address = v })
			}
		}
	}
	return nil
}

// parseAllowedPathNodes reads `path "<dir>" name="<label>"` children
func parseAllowedPathNodes(n *document.Node, baseDir string) []security.AllowedPath {
	var out []security.AllowedPath
	for _, cn := range n.Children {
		if nodeName(cn) != "path" {
			continue
		}
		p, ok := firstStringArg(cn)
		if !ok || p == "" {
			continue
		}
		if !filepath.IsAbs(p) && baseDir != "" {
			p = filepath.Join(baseDir, p)
		}
		entry := security.AllowedPath{Path: filepath.Clean(p)}
		if name, ok := propString(cn, "name"); ok {
			entry.Name = name
		}
		out = append(out, entry)
	}
	return out
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func propString(n *document.Node, key string) (string, bool) {
	if n.Properties == nil {
		return "", false
	}
	if v, ok := n.Properties[key]; ok {
		if s, ok2 := v.Value.(string); ok2 {
			return s, true
		}
	}
	return "", false
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func assignInt(n *document.Node, dst *int) {
	if v, ok := firstIntArg(n); ok {
		*dst = v
	}
}

// assignSize accepts either a byte count or a size string such as "10MB"
func assignSize(n *document.Node, dst *int64) {
	if v, ok := firstIntArg(n); ok {
		*dst = int64(v)
		return
	}
	if s, ok := firstStringArg(n); ok {
		if sz, err := parseSize(s); err == nil {
			*dst = sz
		}
	}
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block form: exclude { "pattern" }, where each child node is named by the string
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}
