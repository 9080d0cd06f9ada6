package report

import (
	"html/template"
	"io"
	"path"

	"csvprofiler/internal/profile"
)

type htmlColumn struct {
	profile.ColumnProfile
	Numeric  bool
	MinS     string
	MaxS     string
	MeanS    string
	MedianS  string
	StdDevS  string
	Frequent []htmlFrequent
	PIIS     string
}

type htmlFrequent struct {
	Rank    int
	Value   string
	Count   string
	Percent string
}

type htmlPage struct {
	Source           string
	SourceBase       string
	Generated        string
	TotalRows        string
	TotalColumns     int
	DuplicateRecords string
	PII              string
	Columns          []htmlColumn
}

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Data Profile Report - {{.SourceBase}}</title>
<style>
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,sans-serif;background:#f4f5fb;margin:0;padding:20px;color:#333}
.container{max-width:1200px;margin:0 auto;background:#fff;border-radius:10px;box-shadow:0 10px 40px rgba(0,0,0,.15);overflow:hidden}
.header{background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);color:#fff;padding:32px;text-align:center}
.metadata{display:grid;grid-template-columns:repeat(auto-fit,minmax(200px,1fr));gap:16px;padding:24px;background:#f8f9fa}
.metadata-label,.metric-label{color:#666;font-size:.85em;text-transform:uppercase;letter-spacing:1px}
.metadata-value{font-size:1.6em;font-weight:bold}
.pii{padding:12px 24px;background:#fff4e5;color:#8a4b00}
.columns-section{padding:24px}
.column-card{border:1px solid #e0e0e0;border-radius:8px;margin-bottom:20px}
.column-header{background:#f8f9fa;padding:12px 20px;border-bottom:2px solid #667eea;display:flex;justify-content:space-between}
.column-name{font-weight:bold}
.column-type{background:#667eea;color:#fff;padding:2px 8px;border-radius:4px;font-size:.85em}
.column-content{padding:16px 20px}
.metrics-grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(180px,1fr));gap:12px}
table{border-collapse:collapse;width:100%;margin-top:12px}
th,td{text-align:left;padding:6px 10px;border-bottom:1px solid #eee}
</style>
</head>
<body>
<div class="container">
<div class="header"><h1>Data Profile Report</h1></div>
<div class="metadata">
<div class="metadata-item"><div class="metadata-label">Source</div><div class="metadata-value" title="{{.Source}}">{{.SourceBase}}</div></div>
<div class="metadata-item"><div class="metadata-label">Total Rows</div><div class="metadata-value" id="total-rows">{{.TotalRows}}</div></div>
<div class="metadata-item"><div class="metadata-label">Total Columns</div><div class="metadata-value" id="total-columns">{{.TotalColumns}}</div></div>
<div class="metadata-item"><div class="metadata-label">Duplicate Records</div><div class="metadata-value">{{.DuplicateRecords}}</div></div>
<div class="metadata-item"><div class="metadata-label">Generated</div><div class="metadata-value">{{.Generated}}</div></div>
</div>
{{if .PII}}<div class="pii">Possible PII: {{.PII}}</div>{{end}}
<div class="columns-section">
{{range .Columns}}<div class="column-card" data-column="{{.Name}}">
<div class="column-header"><span class="column-name">{{.Name}}</span><span class="column-type">{{.Type}}</span></div>
<div class="column-content">
<div class="metrics-grid">
<div class="metric"><div class="metric-label">Total Rows</div><div class="metric-value">{{.TotalRows}}</div></div>
<div class="metric"><div class="metric-label">Null Count</div><div class="metric-value">{{.NullCount}} ({{.NullPercentage}}%)</div></div>
<div class="metric"><div class="metric-label">Distinct Values</div><div class="metric-value">{{.DistinctValues}}</div></div>
<div class="metric"><div class="metric-label">Duplicate Rows</div><div class="metric-value">{{.DuplicateRows}}</div></div>
{{if .Cardinality}}<div class="metric"><div class="metric-label">Cardinality</div><div class="metric-value">{{.Cardinality}}</div></div>{{end}}
{{if .PIIS}}<div class="metric"><div class="metric-label">PII</div><div class="metric-value">{{.PIIS}}</div></div>{{end}}
</div>
{{if .Numeric}}<table class="numeric">
<tr><th>Min</th><th>Max</th><th>Mean</th><th>Median</th><th>Std Dev</th></tr>
<tr><td>{{.MinS}}</td><td>{{.MaxS}}</td><td>{{.MeanS}}</td><td>{{.MedianS}}</td><td>{{.StdDevS}}</td></tr>
</table>{{end}}
{{if .Frequent}}<table class="frequent">
<tr><th>#</th><th>Value</th><th>Count</th><th>%</th></tr>
{{range .Frequent}}<tr><td>{{.Rank}}</td><td>{{.Value}}</td><td>{{.Count}}</td><td>{{.Percent}}</td></tr>
{{end}}</table>{{end}}
</div>
</div>
{{end}}</div>
</div>
</body>
</html>
`))

func renderHTML(w io.Writer, s *profile.Summary, opt Options) error {
	page := htmlPage{
		Source:           s.Source,
		SourceBase:       path.Base(s.Source),
		Generated:        opt.Timestamp.Format(timestampLayout),
		TotalRows:        count(s.TotalRows),
		TotalColumns:     s.TotalColumns,
		DuplicateRecords: count(s.DuplicateRecords),
		PII:              piiColumns(s),
		Columns:          make([]htmlColumn, len(s.Columns)),
	}
	for i, c := range s.Columns {
		hc := htmlColumn{
			ColumnProfile: c,
			Numeric:       c.HasNumericStats(),
			MinS:          stat(c.Min, -1),
			MaxS:          stat(c.Max, -1),
			MeanS:         stat(c.Mean, statPlaces),
			MedianS:       stat(c.Median, statPlaces),
			StdDevS:       stat(c.StdDev, statPlaces),
		}
		if len(c.PII) > 0 {
			hc.PIIS = joinFlags(c.PII)
		}
		for j, vc := range c.MostFrequent {
			hc.Frequent = append(hc.Frequent, htmlFrequent{
				Rank:    j + 1,
				Value:   vc.Value,
				Count:   count(vc.Count),
				Percent: printer.Sprintf("%.2f", percentOf(vc.Count, c.TotalRows)),
			})
		}
		page.Columns[i] = hc
	}
	return htmlTmpl.Execute(w, page)
}
