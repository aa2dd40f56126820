package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/adapters/tabular"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/app"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/alias"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/assemble"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/library"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/profile"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/report"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/subject"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "prism-convert",
		Short: "Survey export conversion against a canonical template library",
	}

	rootCmd.AddCommand(
		newConvertCmd(),
		newTemplatesCmd(),
		newCheckCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type convertFlags struct {
	templateDir string
	globalDir   string
	aliasFile   string
	idMapFile   string
	idColumn    string
	session     string
	duplicates  string
	tasks       []string
	strict      bool
	outDir      string
	reportPath  string
}

func newConvertCmd() *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert [input-file]",
		Short: "Convert a wide survey export into per-task long-format tables",
		Long: `Convert a survey export (CSV, TSV or Excel) into canonical per-task tables.

Example: prism-convert convert export.csv --templates ./library --out ./out --duplicates sessions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.templateDir, "templates", "./library", "Survey template directory")
	cmd.Flags().StringVar(&flags.globalDir, "global-templates", "", "Global reference template directory for drift classification")
	cmd.Flags().StringVar(&flags.aliasFile, "aliases", "", "Column alias file")
	cmd.Flags().StringVar(&flags.idMapFile, "id-map", "", "JSON file mapping raw subject keys to participant IDs")
	cmd.Flags().StringVar(&flags.idColumn, "id-column", "", "Participant-ID column of the input")
	cmd.Flags().StringVar(&flags.session, "session", "", "Session to convert (or \"all\")")
	cmd.Flags().StringVar(&flags.duplicates, "duplicates", "error", "Duplicate-ID policy: error, keep_first, keep_last, sessions")
	cmd.Flags().StringSliceVar(&flags.tasks, "tasks", nil, "Restrict output to these tasks")
	cmd.Flags().BoolVar(&flags.strict, "strict-levels", false, "Disable numeric tolerance for level-coded items")
	cmd.Flags().StringVar(&flags.outDir, "out", "./out", "Output directory for per-task TSV files")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "Write the markdown conversion report to this path")

	return cmd
}

func runConvert(ctx context.Context, inputPath string, flags convertFlags) error {
	raw, err := tabular.NewDataReader(inputPath).ReadTable()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	loader := &library.Loader{}
	var aliasMap map[string]string
	if flags.aliasFile != "" {
		entries, err := alias.ParseFile(flags.aliasFile)
		if err != nil {
			return err
		}
		if aliasMap, err = alias.BuildAliasMap(entries); err != nil {
			return err
		}
		loader.CanonicalAliases = alias.BuildCanonicalAliases(entries)
	}

	idMap, err := loadIDMap(flags.idMapFile)
	if err != nil {
		return err
	}

	policy, err := convert.ParseDuplicatePolicy(flags.duplicates)
	if err != nil {
		return err
	}

	resolver := &subject.Resolver{Suggester: &subject.LevenshteinSuggester{}}
	svc := app.NewConverterService(loader, resolver, nil, flags.templateDir, flags.globalDir)
	svc.SetAliasMap(aliasMap)

	result, err := svc.Convert(ctx, app.ConvertRequest{
		SourceFile: inputPath,
		Table:      raw,
		Options: convert.Options{
			IDColumn:     flags.idColumn,
			IDMap:        idMap,
			IDMapSource:  flags.idMapFile,
			Session:      flags.session,
			Duplicates:   policy,
			Tasks:        flags.tasks,
			StrictLevels: flags.strict,
		},
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(flags.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	writer := &tabular.Writer{Dir: flags.outDir}
	for _, task := range result.TasksWithData {
		path, err := writer.WriteTask(task, result.Tables[task])
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if flags.reportPath != "" {
		md := report.Markdown(report.Input{
			SourceFile: inputPath,
			InputRows:  raw.Len(),
			Result:     result,
			Profiles:   profile.Columns(raw),
		})
		if err := os.WriteFile(flags.reportPath, []byte(md), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Wrote %s\n", flags.reportPath)
	}

	fmt.Printf("Run %s: tasks with data: %s\n", result.RunID.String(), joinTasks(result))
	return nil
}

func newTemplatesCmd() *cobra.Command {
	var templateDir, globalDir string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the survey templates of a library directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := &library.Loader{}
			lib, err := loader.Load(templateDir, globalDir)
			if err != nil {
				return err
			}
			for _, task := range sortedTasks(lib) {
				tpl := lib.Templates[task]
				prov := string(tpl.Provenance.Kind)
				if prov == "" {
					prov = "-"
				}
				fmt.Printf("%-20s %-30s %3d items  %s\n", task, tpl.SourceFile, len(tpl.ExpectedItems()), prov)
			}
			for _, msg := range lib.Warnings.Flatten() {
				fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&templateDir, "templates", "./library", "Survey template directory")
	cmd.Flags().StringVar(&globalDir, "global-templates", "", "Global reference template directory")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var templateDir string

	cmd := &cobra.Command{
		Use:   "check [input-file]",
		Short: "Report which input columns would match the template library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := tabular.NewDataReader(args[0]).ReadTable()
			if err != nil {
				return err
			}
			loader := &library.Loader{}
			lib, err := loader.Load(templateDir, "")
			if err != nil {
				return err
			}
			matched, unmatched := 0, 0
			for _, col := range raw.Columns {
				if task, ok := columnTask(col, lib); ok {
					fmt.Printf("%-30s -> %s\n", col, task)
					matched++
				} else {
					fmt.Printf("%-30s -> (no template)\n", col)
					unmatched++
				}
			}
			fmt.Printf("%d of %d columns matched\n", matched, matched+unmatched)
			return nil
		},
	}

	cmd.Flags().StringVar(&templateDir, "templates", "./library", "Survey template directory")
	return cmd
}

func columnTask(col string, lib *library.Library) (string, bool) {
	mapping := assemble.MatchColumns([]string{col}, lib)
	m, ok := mapping[col]
	if !ok {
		return "", false
	}
	return string(m.Task), true
}

func loadIDMap(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ID map: %w", err)
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid ID map JSON: %w", err)
	}
	return out, nil
}

func joinTasks(result *convert.Result) string {
	if len(result.TasksWithData) == 0 {
		return "none"
	}
	parts := make([]string, len(result.TasksWithData))
	for i, t := range result.TasksWithData {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func sortedTasks(lib *library.Library) []core.TaskName {
	out := make([]core.TaskName, 0, len(lib.Templates))
	for task := range lib.Templates {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
