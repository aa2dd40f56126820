// Package app wires the conversion stages into a single service.
package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/table"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/template"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/alias"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/assemble"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/library"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/rows"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/session"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/subject"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/ports"
)

// ConverterService runs the full survey conversion pipeline
type ConverterService struct {
	loader      *library.Loader
	resolver    *subject.Resolver
	ledger      ports.RunLedgerPort
	templateDir string
	globalDir   string
	aliasMap    map[string]string
}

// NewConverterService creates a conversion service. ledger may be nil;
// runs are then not recorded.
func NewConverterService(loader *library.Loader, resolver *subject.Resolver, ledger ports.RunLedgerPort, templateDir, globalDir string) *ConverterService {
	return &ConverterService{
		loader:      loader,
		resolver:    resolver,
		ledger:      ledger,
		templateDir: templateDir,
		globalDir:   globalDir,
	}
}

// SetAliasMap installs the canonical alias map applied to every input
// table before column matching
func (s *ConverterService) SetAliasMap(aliasMap map[string]string) {
	s.aliasMap = aliasMap
}

// ConvertRequest describes one conversion run
type ConvertRequest struct {
	// SourceFile names the input for reporting and the run ledger.
	SourceFile string
	// Table is the already-parsed raw input.
	Table *table.Table
	// Options carries the caller's conversion settings.
	Options convert.Options
}

// Convert executes the pipeline: alias canonicalization, template
// loading, column matching, subject-ID resolution, session filtering,
// duplicate handling, per-row validation and result assembly. Any
// fatal stage error aborts with no partial output.
func (s *ConverterService) Convert(ctx context.Context, req ConvertRequest) (*convert.Result, error) {
	startedAt := time.Now()
	runID := core.NewRunID()
	raw := req.Table
	if raw == nil || raw.Len() == 0 {
		return nil, fmt.Errorf("conversion input is empty")
	}
	log.Printf("[Converter] Run %s: %d rows, %d columns from %s",
		runID.String(), raw.Len(), len(raw.Columns), req.SourceFile)

	policy, err := convert.ParseDuplicatePolicy(string(req.Options.Duplicates))
	if err != nil {
		return nil, err
	}

	t := raw
	if len(s.aliasMap) > 0 {
		t, err = alias.ApplyAliasMap(t, s.aliasMap)
		if err != nil {
			return nil, err
		}
	}

	lib, err := s.loader.Load(s.templateDir, s.globalDir)
	if err != nil {
		return nil, err
	}

	matchedColumns := append([]string{}, t.Columns...)
	mapping := assemble.MatchColumns(matchedColumns, lib)
	included, warnings, err := assemble.ResolveTasks(mapping, req.Options.Tasks, lib.Warnings)
	if err != nil {
		return nil, err
	}

	idColumn := subject.DefaultIDColumn(t, req.Options.IDColumn)
	if idColumn == "" {
		return nil, fmt.Errorf("no participant-ID column found (declared %q)", req.Options.IDColumn)
	}
	idColumn, err = s.resolver.Resolve(t, idColumn, req.Options.IDMap, req.Options.IDMapSource, warnings)
	if err != nil {
		return nil, err
	}

	_, detectedSessions := session.DetectSessions(t)
	t, err = session.Filter(t, req.Options.Session, policy, warnings)
	if err != nil {
		return nil, err
	}
	t, dupSessionCol, err := session.HandleDuplicates(t, idColumn, policy, warnings)
	if err != nil {
		return nil, err
	}
	sessionCol := dupSessionCol
	if sessionCol == "" {
		sessionCol, _ = session.DetectColumn(t)
	}

	byTaskRun, _ := assemble.BuildTaskRunColumns(mapping)
	validator := &rows.Validator{
		LevelMatcher: rows.DefaultLevelMatcher{},
		StrictLevels: req.Options.StrictLevels,
	}

	tolerance := convert.ToleranceSet{}
	tables := make(map[core.TaskName]*table.Table, len(included))
	var tasksWithData []core.TaskName

	for _, task := range included {
		tpl := lib.Templates[task]
		if tpl == nil {
			continue
		}
		out, hasData, err := s.convertTask(ctx, t, tpl, byTaskRun[task], idColumn, sessionCol, validator, tolerance)
		if err != nil {
			return nil, err
		}
		tables[task] = out
		if hasData {
			tasksWithData = append(tasksWithData, task)
		}
	}
	sort.Slice(tasksWithData, func(i, j int) bool { return tasksWithData[i] < tasksWithData[j] })

	result := &convert.Result{
		RunID:            runID,
		TasksWithData:    tasksWithData,
		Warnings:         warnings.Flatten(),
		WarningsByTask:   warnings.ByTask,
		Tolerance:        toleranceByTask(tolerance, included),
		Duplicates:       lib.Duplicates,
		TemplateMatches:  assemble.BuildTemplateMatches(matchedColumns, mapping),
		DetectedSessions: detectedSessions,
		Tables:           tables,
	}

	s.recordRun(ctx, req, raw, result, startedAt)
	log.Printf("[Converter] Run %s finished: %d tasks with data, %d warnings",
		runID.String(), len(result.TasksWithData), len(result.Warnings))
	return result, nil
}

// convertTask emits the long-format output of one task: one row per
// input row per run, ordered by input row then run number.
func (s *ConverterService) convertTask(ctx context.Context, t *table.Table, tpl *template.SurveyTemplate, byRun map[int]rows.RunColumns, idColumn, sessionCol string, validator *rows.Validator, tolerance convert.ToleranceSet) (*table.Table, bool, error) {
	items := tpl.ExpectedItems()
	runNums := assemble.Runs(byRun)
	if len(runNums) == 0 {
		runNums = []int{0}
	}
	withRun := len(runNums) > 1 || (len(runNums) == 1 && runNums[0] != 0)

	columns := []string{"participant_id"}
	if sessionCol != "" {
		columns = append(columns, "session")
	}
	if withRun {
		columns = append(columns, "run")
	}
	columns = append(columns, items...)
	out := table.New(columns)

	hasData := false
	perRun := make(map[int][]rows.RowOutput, len(runNums))
	for _, run := range runNums {
		outputs, err := validator.ProcessTable(ctx, t, tpl, byRun[run], idColumn, tolerance)
		if err != nil {
			return nil, false, err
		}
		perRun[run] = outputs
	}

	for i, srcRow := range t.Rows {
		for _, run := range runNums {
			procd := perRun[run][i]
			row := table.Row{"participant_id": strings.TrimSpace(srcRow[idColumn])}
			if sessionCol != "" {
				row["session"] = sessionValue(srcRow, sessionCol)
			}
			if withRun {
				row["run"] = runLabel(run)
			}
			for _, item := range items {
				row[item] = procd.Items[item]
			}
			if procd.MissingCount < len(items) {
				hasData = true
			}
			out.AppendRow(row)
		}
	}
	return out, hasData, nil
}

// recordRun writes the run to the ledger when one is configured. Ledger
// failures are logged, never fatal: the conversion result stands.
func (s *ConverterService) recordRun(ctx context.Context, req ConvertRequest, raw *table.Table, result *convert.Result, startedAt time.Time) {
	if s.ledger == nil {
		return
	}
	toleranceCount := 0
	for _, items := range result.Tolerance {
		toleranceCount += len(items)
	}
	rec := ports.RunRecord{
		RunID:            result.RunID,
		SourceFile:       req.SourceFile,
		InputFingerprint: core.FingerprintColumns(raw.Columns),
		InputRows:        raw.Len(),
		Tasks:            result.TasksWithData,
		WarningCount:     len(result.Warnings),
		ToleranceCount:   toleranceCount,
		StartedAt:        startedAt,
		FinishedAt:       time.Now(),
	}
	if err := s.ledger.RecordRun(ctx, rec); err != nil {
		log.Printf("[Converter] Failed to record run %s: %v", result.RunID.String(), err)
	}
}

// runLabel renders a run number for the output table. Bare columns
// carry no run suffix and count as run 1.
func runLabel(run int) string {
	if run == 0 {
		run = 1
	}
	return strconv.Itoa(run)
}

func sessionValue(row table.Row, sessionCol string) string {
	v := strings.TrimSpace(row[sessionCol])
	if table.IsMissing(v) {
		return table.MissingToken
	}
	return v
}

func toleranceByTask(ts convert.ToleranceSet, included []core.TaskName) map[core.TaskName][]string {
	out := make(map[core.TaskName][]string)
	for _, task := range included {
		if items := ts.Items(task); len(items) > 0 {
			out[task] = items
		}
	}
	return out
}
