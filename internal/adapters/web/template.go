package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"timestamp": func(v any) string {
		switch t := v.(type) {
		case time.Time:
			return t.Local().Format("2006-01-02 15:04:05")
		case *time.Time:
			if t != nil {
				return t.Local().Format("2006-01-02 15:04:05")
			}
		}
		return "never"
	},
	"checked": func(a, b string) bool {
		return a == b
	},
}).Parse(pagesHTML))

// render executes a named template; nothing is written if it fails
func render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

const pagesHTML = `
{{define "header"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}} - Lamps</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.errors { color: red; }
</style>
</head>
<body>
<p><a href="/lamps/">All lamps</a></p>
{{end}}

{{define "footer"}}</body>
</html>
{{end}}

{{define "lamp_list"}}{{template "header" "Lamps"}}
<h1>Lamps</h1>
<table>
<tr><th>Name</th><th>State</th><th>Brightness</th><th>Total working time</th></tr>
{{range .}}<tr>
<td><a href="/lamps/{{.ID}}">{{.Name}}</a></td>
<td class="{{.State}}">{{.State}}</td>
<td>{{.Brightness}}%</td>
<td>{{duration .TotalWorkingTime}}</td>
</tr>
{{else}}<tr><td colspan="4">No lamps.</td></tr>
{{end}}</table>
{{template "footer"}}{{end}}

{{define "lamp_detail"}}{{template "header" .Lamp.Name}}
<h1>{{.Lamp.Name}}</h1>
<table>
<tr><th>State</th><td class="{{.Lamp.State}}">{{.Lamp.State}}</td></tr>
<tr><th>Brightness</th><td>{{.Lamp.Brightness}}%</td></tr>
<tr><th>Last switch</th><td>{{timestamp .Lamp.LastSwitch}}</td></tr>
<tr><th>Total working time</th><td>{{duration .Lamp.TotalWorkingTime}}</td></tr>
</table>
<p><a href="/lamps/{{.Lamp.ID}}/control">Control</a></p>
<h2>Working periods</h2>
<table>
<tr><th>Start</th><th>End</th><th>Brightness</th></tr>
{{range .Periods}}<tr>
<td>{{timestamp .Start}}</td>
<td>{{if .End}}{{timestamp .End}}{{else}}open{{end}}</td>
<td>{{.Brightness}}%</td>
</tr>
{{else}}<tr><td colspan="3">Never switched on.</td></tr>
{{end}}</table>
{{template "footer"}}{{end}}

{{define "lamp_control"}}{{template "header" .Lamp.Name}}
<h1>Control {{.Lamp.Name}}</h1>
{{with .Errors}}{{with index . "detail"}}<p class="errors">{{range .}}{{.}} {{end}}</p>{{end}}{{end}}
<form method="post" action="/lamps/{{.Lamp.ID}}/control">
<p>
<label><input type="radio" name="status" value="on"{{if checked .Form.Status "on"}} checked{{end}}> On</label>
<label><input type="radio" name="status" value="off"{{if checked .Form.Status "off"}} checked{{end}}> Off</label>
{{with .Errors}}{{with index . "status"}}<span class="errors">{{range .}}{{.}} {{end}}</span>{{end}}{{end}}
</p>
<p>
<label>Brightness %
<input type="number" name="brightness" min="1" max="100" value="{{if .Form.Brightness}}{{.Form.Brightness}}{{end}}" required></label>
{{with .Errors}}{{with index . "brightness"}}<span class="errors">{{range .}}{{.}} {{end}}</span>{{end}}{{end}}
</p>
<p><button type="submit">Apply</button></p>
</form>
{{template "footer"}}{{end}}

{{define "error"}}{{template "header" .Title}}
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{template "footer"}}{{end}}
`
