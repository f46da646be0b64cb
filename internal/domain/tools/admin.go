package tools

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// DefaultStagePattern matches stage documents in every supported encoding
const DefaultStagePattern = "**/*.{usd,usda,usdc,json,yaml,yml,toml,usd.gz,usda.gz,usdc.gz,json.gz,yaml.gz,yml.gz,toml.gz}"

const defaultMaxResults = 1000

var errEnoughResults = errors.New("result limit reached")

func (d *Dispatcher) adminCommands() []Command {
	return []Command{
		{
			Name:        "get_registry_status",
			Description: "Report open stages, least recently used first",
			Category:    types.CategoryAdmin,
			Run:         d.registryStatus,
		},
		{
			Name:        "get_available_tools",
			Description: "List every tool with its parameters",
			Category:    types.CategoryAdmin,
			Params: []types.Param{
				{Name: "category", Type: types.ParamString, Description: "Only list tools in this category"},
			},
			Run: d.availableTools,
		},
		{
			Name:        "find_stage_files",
			Description: "Find stage documents under a directory",
			Category:    types.CategoryAdmin,
			Params: []types.Param{
				{Name: "root_dir", Type: types.ParamString, Description: "Directory to search", Default: "."},
				{Name: "pattern", Type: types.ParamString, Description: "Glob over paths relative to root_dir; ** crosses directories", Default: DefaultStagePattern},
				{Name: "max_results", Type: types.ParamInteger, Description: "Stop after this many matches", Default: defaultMaxResults, Min: Bound(1)},
			},
			Run: findStageFiles,
		},
	}
}

func (d *Dispatcher) registryStatus(_ context.Context, _ Args) (Result, error) {
	return Result{
		Message: "Registry status",
		Data:    d.registry.Stats().ToMap(),
	}, nil
}

func (d *Dispatcher) availableTools(_ context.Context, args Args) (Result, error) {
	category := args.String("category")
	list := make([]map[string]interface{}, 0)
	for _, t := range d.Tools() {
		if category != "" && string(t.Category) != category {
			continue
		}
		list = append(list, map[string]interface{}{
			"name":        t.Name,
			"description": t.Description,
			"category":    string(t.Category),
			"form":        string(t.Form),
			"mutates":     t.Mutates,
			"params":      t.Params,
		})
	}
	return Result{
		Message: "Available tools",
		Data: map[string]interface{}{
			"tools":      list,
			"count":      len(list),
			"categories": d.Categories(),
		},
	}, nil
}

func findStageFiles(ctx context.Context, args Args) (Result, error) {
	pattern := args.String("pattern")
	if !doublestar.ValidatePattern(pattern) {
		return Result{}, validationf("Invalid pattern: %s", pattern)
	}
	root, err := filepath.Abs(args.String("root_dir"))
	if err != nil {
		return Result{}, validationf("Invalid root_dir: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Result{}, validationf("Directory not found: %s", root)
	}
	limit := args.Int("max_results")

	var (
		mu        sync.Mutex
		files     []string
		truncated bool
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); !ok {
			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		if len(files) >= limit {
			truncated = true
			return errEnoughResults
		}
		files = append(files, p)
		return nil
	})
	if err != nil && !errors.Is(err, errEnoughResults) {
		return Result{}, err
	}

	sort.Strings(files)
	if files == nil {
		files = []string{}
	}
	return Result{
		Message: "Stage files found",
		Data: map[string]interface{}{
			"root_dir":  root,
			"pattern":   pattern,
			"files":     files,
			"count":     len(files),
			"truncated": truncated,
		},
	}, nil
}
