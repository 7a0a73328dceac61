package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

// CukeFeature matches one feature of godog's cucumber formatter output.
type CukeFeature struct {
	URI         string        `json:"uri"`
	ID          string        `json:"id"`
	Keyword     string        `json:"keyword"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Line        int           `json:"line"`
	Tags        []CukeTag     `json:"tags"`
	Elements    []CukeElement `json:"elements"`
}

type CukeTag struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// CukeElement is a scenario or background
type CukeElement struct {
	ID      string     `json:"id"`
	Keyword string     `json:"keyword"`
	Name    string     `json:"name"`
	Line    int        `json:"line"`
	Type    string     `json:"type"`
	Tags    []CukeTag  `json:"tags"`
	Steps   []CukeStep `json:"steps"`
}

type CukeStep struct {
	Keyword string     `json:"keyword"`
	Name    string     `json:"name"`
	Line    int        `json:"line"`
	Result  CukeResult `json:"result"`
}

type CukeResult struct {
	Status       string `json:"status"`
	Duration     int64  `json:"duration"` // nanoseconds
	ErrorMessage string `json:"error_message,omitempty"`
}

// Status folds step results into a scenario status: any failure wins, then
// undefined, pending and skipped, else passed.
func (e CukeElement) Status() models.ScenarioStatus {
	seen := map[string]bool{}
	for _, s := range e.Steps {
		seen[s.Result.Status] = true
	}
	for _, st := range []models.ScenarioStatus{
		models.ScenarioFailed,
		models.ScenarioUndefined,
		models.ScenarioPending,
		models.ScenarioSkipped,
	} {
		if seen[string(st)] {
			return st
		}
	}
	return models.ScenarioPassed
}

func (e CukeElement) Duration() time.Duration {
	var d time.Duration
	for _, s := range e.Steps {
		d += time.Duration(s.Result.Duration)
	}
	return d
}

// ParseCucumberJSON decodes a cucumber JSON report
func ParseCucumberJSON(r io.Reader) ([]CukeFeature, error) {
	var features []CukeFeature
	if err := json.NewDecoder(r).Decode(&features); err != nil {
		return nil, fmt.Errorf("decode cucumber report: %w", err)
	}
	return features, nil
}

// Summarize counts scenarios and steps per status. Backgrounds only contribute steps.
func Summarize(features []CukeFeature) *models.RunSummary {
	sum := models.NewRunSummary()
	sum.Features = len(features)
	for _, f := range features {
		for _, el := range f.Elements {
			for _, s := range el.Steps {
				sum.Steps[s.Result.Status]++
			}
			sum.Duration += el.Duration()
			if el.Type == "background" {
				continue
			}
			sum.Scenarios[string(el.Status())]++
		}
	}
	return sum
}

// HTMLOptions carries the header data of the generated page
type HTMLOptions struct {
	Title    string
	Metadata map[string]string
	// Generated defaults to now.
	Generated time.Time
}

type htmlMeta struct {
	Key, Value string
}

type htmlView struct {
	Title     string
	Generated string
	Metadata  []htmlMeta
	Summary   *models.RunSummary
	Total     int
	Features  []CukeFeature
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"status":   func(e CukeElement) string { return string(e.Status()) },
	"duration": func(e CukeElement) string { return e.Duration().Round(time.Millisecond).String() },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:2em}
table{border-collapse:collapse;margin-bottom:1.5em}
td,th{border:1px solid #ccc;padding:4px 8px;text-align:left}
.passed{color:#2e7d32}.failed{color:#c62828}.skipped,.pending,.undefined{color:#ef6c00}
pre{background:#f6f6f6;padding:6px;white-space:pre-wrap}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.Generated}}</p>
{{if .Metadata}}<table>
<tr><th colspan="2">Metadata</th></tr>
{{range .Metadata}}<tr><td>{{.Key}}</td><td>{{.Value}}</td></tr>
{{end}}</table>{{end}}
<table>
<tr><th>Features</th><th>Scenarios</th>{{range $k, $v := .Summary.Scenarios}}<th class="{{$k}}">{{$k}}</th>{{end}}<th>Duration</th></tr>
<tr><td>{{.Summary.Features}}</td><td>{{.Total}}</td>{{range $k, $v := .Summary.Scenarios}}<td>{{$v}}</td>{{end}}<td>{{.Summary.Duration}}</td></tr>
</table>
{{range .Features}}<h2>{{.Keyword}}: {{.Name}}</h2>
<p><code>{{.URI}}</code></p>
{{range .Elements}}{{if ne .Type "background"}}<h3 class="{{status .}}">{{.Keyword}}: {{.Name}} ({{status .}}, {{duration .}})</h3>
<table>
{{range .Steps}}<tr><td>{{.Keyword}}{{.Name}}</td><td class="{{.Result.Status}}">{{.Result.Status}}</td></tr>
{{if .Result.ErrorMessage}}<tr><td colspan="2"><pre>{{.Result.ErrorMessage}}</pre></td></tr>{{end}}
{{end}}</table>
{{end}}{{end}}{{end}}
</body>
</html>
`))

// RenderHTML writes the standalone report page
func RenderHTML(w io.Writer, features []CukeFeature, opts HTMLOptions) error {
	if opts.Title == "" {
		opts.Title = "Cucumber Report"
	}
	if opts.Generated.IsZero() {
		opts.Generated = time.Now()
	}

	view := htmlView{
		Title:     opts.Title,
		Generated: opts.Generated.Format(time.RFC1123),
		Summary:   Summarize(features),
		Features:  features,
	}
	view.Total = view.Summary.TotalScenarios()
	for k, v := range opts.Metadata {
		view.Metadata = append(view.Metadata, htmlMeta{Key: k, Value: v})
	}
	sort.Slice(view.Metadata, func(i, j int) bool { return view.Metadata[i].Key < view.Metadata[j].Key })

	return htmlTemplate.Execute(w, view)
}

// GenerateHTML reads the cucumber JSON at jsonPath and writes the HTML report to output.
func GenerateHTML(jsonPath, output string, opts HTMLOptions) (*models.RunSummary, error) {
	in, err := os.Open(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("open cucumber report: %w", err)
	}
	defer in.Close()

	features, err := ParseCucumberJSON(in)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, err
	}
	out, err := os.Create(output)
	if err != nil {
		return nil, fmt.Errorf("create html report: %w", err)
	}
	if err := RenderHTML(out, features, opts); err != nil {
		out.Close()
		return nil, fmt.Errorf("render html report: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, err
	}
	return Summarize(features), nil
}
