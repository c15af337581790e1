package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// Data is everything a rendered report draws on.
type Data struct {
	GeneratedAt     time.Time                    `json:"generatedAt"`
	Result          organize.ExecutionResult     `json:"result"`
	Environments    []organize.EnvironmentResult `json:"-"`
	Performance     PerformanceAnalysis          `json:"performance"`
	Recommendations []Recommendation             `json:"recommendations"`
	System          SystemInfo                   `json:"system"`
}

func newData(result organize.ExecutionResult, generatedAt time.Time, system SystemInfo) Data {
	return Data{
		GeneratedAt:     generatedAt,
		Result:          result,
		Environments:    result.OrderedEnvironments(),
		Performance:     Analyze(result),
		Recommendations: Recommend(result),
		System:          system,
	}
}

// titleCase builds a fresh caser per call; casers are stateful.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

var templateFuncs = map[string]interface{}{
	"title": func(v interface{}) string { return titleCase(fmt.Sprint(v)) },
	"ms":    func(d time.Duration) string { return d.Round(time.Millisecond).String() },
	"pct":   func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" },
	"rate":  func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"short": func(s string) string {
		if len(s) > 12 {
			return s[:12]
		}
		return s
	},
	"status": func(ok bool) string {
		if ok {
			return "success"
		}
		return "failed"
	},
}

const markdownSections = `
{{define "summary"}}## Summary

- Execution ID: {{.Result.ExecutionID}}
- Status: {{status .Result.Success}}
- Mode: {{.Result.Options.Mode}}{{if .Result.Options.DryRun}} (dry run){{end}}
- Started: {{.Result.StartTime.Format "2006-01-02 15:04:05"}}
- Duration: {{ms .Result.TotalProcessingTime}}
- Errors: {{len .Result.Errors}}, warnings: {{len .Result.Warnings}}
{{end}}
{{define "statistics"}}## Overall Statistics

| Metric | Value |
|---|---|
| Scanned files | {{.Result.OverallStatistics.TotalScannedFiles}} |
| Moved files | {{.Result.OverallStatistics.TotalMovedFiles}} |
| Created directories | {{.Result.OverallStatistics.TotalCreatedDirectories}} |
| Permission updates | {{.Result.OverallStatistics.TotalPermissionUpdates}} |
| Flat file reduction | {{.Result.OverallStatistics.FlatFileReduction}} |
| Structure compliance | {{.Result.OverallStatistics.StructureComplianceRate}} |
| Environment match | {{.Result.OverallStatistics.EnvironmentMatchRate}} |
{{end}}
{{define "environments"}}## Environments
{{range .Environments}}
### {{title .Environment}}

- Status: {{status .Success}}
- Scanned: {{.ScannedFiles}}, classified: {{.ClassifiedFiles}}, moved: {{.MovedFiles}}
- Directories created: {{.CreatedDirectories}}
- Permission updates: {{.PermissionUpdates}}
- Processing time: {{ms .ProcessingTime}}
- Errors: {{.ErrorCount}}
{{else}}
No environment was processed.
{{end}}{{end}}
{{define "performance"}}## Performance

- Throughput: {{rate .Performance.Throughput.FilesPerSecond}} files/s ({{.Performance.Throughput.TotalFiles}} files in {{ms .Performance.Throughput.TotalTime}})
- Slowest environment: {{ms .Performance.MaxProcessingTime}}, fastest: {{ms .Performance.MinProcessingTime}}
{{range .Performance.Bottlenecks}}- Bottleneck: {{.Environment}} at {{pct .Percentage}} of environment time. {{.Suggestion}}
{{end}}{{if .Performance.PhaseTimings}}
| Phase | Duration | Failed |
|---|---|---|
{{range .Performance.PhaseTimings}}| {{.Phase}} | {{ms .Duration}} | {{.Failed}} |
{{end}}{{end}}{{end}}
{{define "recommendations"}}## Recommendations
{{range .Recommendations}}
- **[{{.Priority}}] {{.Title}}** ({{.Type}}): {{.Description}} {{.Action}}{{else}}
No recommendations.{{end}}
{{end}}
{{define "errors"}}## Errors
{{range .Result.Errors}}
- {{.Phase}}{{if .Environment}} [{{.Environment}}]{{end}}: {{.Message}}{{else}}
No errors.{{end}}
{{range .Result.Warnings}}- warning: {{.}}
{{end}}{{end}}
{{define "system"}}## System

- Platform: {{.System.OS}}/{{.System.Arch}}, {{.System.GoVersion}}
- Working directory: {{.System.WorkingDir}}
- Heap in use: {{.System.HeapInUse}} bytes
{{if .System.GitRevision}}- Revision: {{if .System.GitBranch}}{{.System.GitBranch}}@{{end}}{{short .System.GitRevision}}
{{end}}{{end}}
{{define "integrated"}}# File Organization Report

Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}}
{{template "summary" .}}
{{template "statistics" .}}
{{template "environments" .}}
{{template "performance" .}}
{{template "recommendations" .}}
{{template "errors" .}}
{{template "system" .}}{{end}}
`

var markdown = template.Must(template.New("report").Funcs(templateFuncs).Parse(markdownSections))

// kindSections selects the markdown sections written for each report kind.
var kindSections = map[organize.ReportKind][]string{
	organize.ReportExecutionSummary:      {"summary", "statistics", "environments"},
	organize.ReportEnvironmentComparison: {"environments", "performance"},
	organize.ReportErrorAnalysis:         {"errors", "recommendations"},
	organize.ReportPerformanceAnalysis:   {"performance", "recommendations"},
}

func renderMarkdown(data Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.ExecuteTemplate(&buf, "integrated", data); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

func renderSections(kind organize.ReportKind, data Data) ([]byte, error) {
	sections, ok := kindSections[kind]
	if !ok {
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\nExecution %s, generated %s\n\n",
		titleCase(strings.ReplaceAll(string(kind), "_", " ")),
		data.Result.ExecutionID,
		data.GeneratedAt.Format("2006-01-02 15:04:05"),
	)
	for _, name := range sections {
		if err := markdown.ExecuteTemplate(&buf, name, data); err != nil {
			return nil, fmt.Errorf("render %s section %s: %w", kind, name, err)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

func renderJSON(data Data) ([]byte, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render json: %w", err)
	}
	return append(out, '\n'), nil
}

const htmlPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>File Organization Report {{.Result.ExecutionID}}</title></head>
<body>
<h1>File Organization Report</h1>
<p>Execution {{.Result.ExecutionID}}: {{status .Result.Success}} in {{ms .Result.TotalProcessingTime}}</p>
<h2>Overall Statistics</h2>
<table>
<tr><th>Scanned files</th><td>{{.Result.OverallStatistics.TotalScannedFiles}}</td></tr>
<tr><th>Moved files</th><td>{{.Result.OverallStatistics.TotalMovedFiles}}</td></tr>
<tr><th>Created directories</th><td>{{.Result.OverallStatistics.TotalCreatedDirectories}}</td></tr>
<tr><th>Permission updates</th><td>{{.Result.OverallStatistics.TotalPermissionUpdates}}</td></tr>
<tr><th>Structure compliance</th><td>{{.Result.OverallStatistics.StructureComplianceRate}}</td></tr>
<tr><th>Environment match</th><td>{{.Result.OverallStatistics.EnvironmentMatchRate}}</td></tr>
</table>
<h2>Environments</h2>
<table>
<tr><th>Environment</th><th>Status</th><th>Scanned</th><th>Moved</th><th>Time</th><th>Errors</th></tr>
{{range .Environments}}<tr><td>{{title .Environment}}</td><td>{{status .Success}}</td><td>{{.ScannedFiles}}</td><td>{{.MovedFiles}}</td><td>{{ms .ProcessingTime}}</td><td>{{.ErrorCount}}</td></tr>
{{end}}</table>
<h2>Performance</h2>
<p>{{rate .Performance.Throughput.FilesPerSecond}} files/s</p>
{{if .Recommendations}}<h2>Recommendations</h2>
<ul>
{{range .Recommendations}}<li><strong>{{.Priority}}</strong> {{.Title}}: {{.Description}}</li>
{{end}}</ul>
{{end}}{{if .Result.Errors}}<h2>Errors</h2>
<ul>
{{range .Result.Errors}}<li>{{.Phase}} {{.Environment}}: {{.Message}}</li>
{{end}}</ul>
{{end}}</body>
</html>
`

var htmlReport = htmltemplate.Must(htmltemplate.New("report").Funcs(htmltemplate.FuncMap(templateFuncs)).Parse(htmlPage))

func renderHTML(data Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlReport.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

var csvHeader = []string{
	"environment", "success", "scanned_files", "classified_files", "moved_files",
	"created_directories", "permission_updates", "processing_ms", "errors",
}

func renderCSV(data Data) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{csvHeader}
	for _, env := range data.Environments {
		rows = append(rows, []string{
			env.Environment.String(),
			strconv.FormatBool(env.Success),
			strconv.Itoa(env.ScannedFiles),
			strconv.Itoa(env.ClassifiedFiles),
			strconv.Itoa(env.MovedFiles),
			strconv.Itoa(env.CreatedDirectories),
			strconv.Itoa(env.PermissionUpdates),
			strconv.FormatInt(env.ProcessingTime.Milliseconds(), 10),
			strconv.Itoa(env.ErrorCount),
		})
	}
	stats := data.Result.OverallStatistics
	rows = append(rows, []string{
		"total",
		strconv.FormatBool(data.Result.Success),
		strconv.Itoa(stats.TotalScannedFiles),
		"",
		strconv.Itoa(stats.TotalMovedFiles),
		strconv.Itoa(stats.TotalCreatedDirectories),
		strconv.Itoa(stats.TotalPermissionUpdates),
		strconv.FormatInt(data.Result.TotalProcessingTime.Milliseconds(), 10),
		strconv.Itoa(len(data.Result.Errors)),
	})
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return buf.Bytes(), nil
}
