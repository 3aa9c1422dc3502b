package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "leadhub"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists what one layer of a context may import besides the
// standard library. Prefixes starting with "./" are relative to the context.
type layerRule struct {
	allowed      []string
	thirdParty   bool
	forbidInfra  bool
	forbidLayers []string
}

var layerRules = map[string]layerRule{
	"domain": {
		allowed:      []string{"./domain"},
		forbidInfra:  true,
		forbidLayers: []string{"adapters", "application", "ports", "transport"},
	},
	"ports": {
		allowed:      []string{"./domain", "./ports", modulePath + "/contracts"},
		forbidInfra:  true,
		forbidLayers: []string{"adapters", "application", "transport"},
	},
	"application": {
		allowed:      []string{"./application", "./domain", "./ports", modulePath + "/contracts"},
		forbidInfra:  true,
		forbidLayers: []string{"adapters", "transport"},
	},
	"transport": {
		allowed:      []string{"./transport"},
		forbidInfra:  true,
		forbidLayers: []string{"adapters", "application", "domain", "ports"},
	},
	"adapters": {
		thirdParty:  true,
		forbidInfra: true,
	},
}

func main() {
	root := "contexts"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	violations := collectViolations(root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 3 {
			return nil
		}

		contextPrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, parts[0], parts[1])
		layer := ""
		if len(parts) > 3 {
			layer = parts[2]
		}
		violations = append(violations, validateFile(path, filepath.ToSlash(path), layer, contextPrefix)...)
		return nil
	})

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})
	return violations
}

func validateFile(path string, displayPath string, layer string, contextPrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: displayPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		for _, rule := range checkImport(importPath, layer, contextPrefix) {
			violations = append(violations, violation{
				File:   displayPath,
				Line:   line,
				Import: importPath,
				Rule:   rule,
			})
		}
	}
	return violations
}

// checkImport returns the rules importPath breaks when imported from layer.
// Files at the context root (module wiring) only obey the cross-context rule.
func checkImport(importPath string, layer string, contextPrefix string) []string {
	var broken []string
	if hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, contextPrefix) {
		broken = append(broken, "cross-context imports are forbidden")
	}

	rule, ok := layerRules[layer]
	if !ok {
		return broken
	}

	for _, forbidden := range rule.forbidLayers {
		if hasPrefix(importPath, contextPrefix+"/"+forbidden) {
			broken = append(broken, fmt.Sprintf("%s must not import %s", layer, forbidden))
		}
	}
	if rule.forbidInfra && hasPrefix(importPath, modulePath+"/internal") {
		broken = append(broken, layer+" must not import runtime infrastructure")
	}

	if isStdlib(importPath) || (rule.thirdParty && !strings.HasPrefix(importPath, modulePath+"/")) {
		return broken
	}
	if rule.allowed == nil {
		return broken
	}
	for _, prefix := range rule.allowed {
		if strings.HasPrefix(prefix, "./") {
			prefix = contextPrefix + "/" + strings.TrimPrefix(prefix, "./")
		}
		if hasPrefix(importPath, prefix) {
			return broken
		}
	}
	return append(broken, layer+" import is outside explicit allowlist")
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, modulePath+"/") {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
