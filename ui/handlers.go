package ui

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/adapters/tabular"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/app"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/convert"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/profile"
	"github.com/MRI-Lab-Graz/prism-studio-sub003/internal/report"
)

var validUploadExtensions = []string{".csv", ".tsv", ".txt", ".xlsx", ".xls"}

// handleTemplates lists the loaded survey templates
func (s *Server) handleTemplates(c *gin.Context) {
	lib, err := s.loader.Load(s.cfg.Paths.TemplateDir, s.cfg.Paths.GlobalTemplateDir)
	if err != nil {
		log.Printf("[handleTemplates] FAILED - Template load error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load template library"})
		return
	}

	type templateInfo struct {
		Task       string `json:"task"`
		SourceFile string `json:"source_file"`
		Items      int    `json:"items"`
		Provenance string `json:"provenance"`
	}
	out := make([]templateInfo, 0, len(lib.Templates))
	for task, tpl := range lib.Templates {
		out = append(out, templateInfo{
			Task:       string(task),
			SourceFile: tpl.SourceFile,
			Items:      len(tpl.ExpectedItems()),
			Provenance: string(tpl.Provenance.Kind),
		})
	}
	c.JSON(http.StatusOK, gin.H{"templates": out, "count": len(out)})
}

// handleConvert accepts a multipart survey export upload and runs the
// conversion pipeline over it
func (s *Server) handleConvert(c *gin.Context) {
	log.Printf("[handleConvert] Starting conversion upload")

	file, header, err := c.Request.FormFile("dataset")
	if err != nil {
		log.Printf("[handleConvert] FAILED - No file uploaded: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	maxBytes := int64(s.cfg.Convert.MaxUploadMB) * 1024 * 1024
	if header.Size > maxBytes {
		log.Printf("[handleConvert] FAILED - File too large: %d bytes", header.Size)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("File size (%.1f MB) exceeds the %d MB limit",
				float64(header.Size)/(1024*1024), s.cfg.Convert.MaxUploadMB)})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !validExtension(ext) {
		log.Printf("[handleConvert] FAILED - Invalid file extension: %s", header.Filename)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Unsupported file type %q (allowed: %s)",
				ext, strings.Join(validUploadExtensions, ", "))})
		return
	}

	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to buffer upload"})
		return
	}
	defer os.Remove(tmp.Name())
	if err := c.SaveUploadedFile(header, tmp.Name()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save upload"})
		return
	}

	raw, err := tabular.NewDataReader(tmp.Name()).ReadTable()
	if err != nil {
		log.Printf("[handleConvert] FAILED - Unreadable table: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to parse input table: %v", err)})
		return
	}

	opts, err := parseOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.converter.Convert(c.Request.Context(), app.ConvertRequest{
		SourceFile: header.Filename,
		Table:      raw,
		Options:    opts,
	})
	if err != nil {
		log.Printf("[handleConvert] FAILED - Conversion error: %v", err)
		c.JSON(conversionStatus(err), gin.H{"error": err.Error()})
		return
	}

	log.Printf("[handleConvert] Run %s completed: %d tasks with data", result.RunID.String(), len(result.TasksWithData))

	in := report.Input{
		SourceFile: header.Filename,
		InputRows:  raw.Len(),
		Result:     result,
		Profiles:   profile.Columns(raw),
	}
	if c.Query("report") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(in))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result": result,
		"report": report.Markdown(in),
	})
}

// handleRuns lists recent conversion runs from the ledger
func (s *Server) handleRuns(c *gin.Context) {
	if s.ledger == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Run ledger not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.ledger.ListRuns(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[handleRuns] FAILED - Ledger query error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func parseOptions(c *gin.Context) (convert.Options, error) {
	policy, err := convert.ParseDuplicatePolicy(c.PostForm("duplicate_handling"))
	if err != nil {
		return convert.Options{}, err
	}
	strict := false
	if v := c.PostForm("strict_levels"); v != "" {
		strict, err = strconv.ParseBool(v)
		if err != nil {
			return convert.Options{}, fmt.Errorf("invalid strict_levels value %q", v)
		}
	}
	var tasks []string
	if v := strings.TrimSpace(c.PostForm("tasks")); v != "" {
		tasks = strings.Split(v, ",")
	}
	return convert.Options{
		IDColumn:     c.PostForm("id_column"),
		Session:      c.PostForm("session"),
		Duplicates:   policy,
		Tasks:        tasks,
		StrictLevels: strict,
	}, nil
}

// conversionStatus maps fatal conversion errors to HTTP statuses. Data
// problems the caller can fix are 422, everything else 500.
func conversionStatus(err error) int {
	if core.IsFatalConversionError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func validExtension(ext string) bool {
	for _, allowed := range validUploadExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
