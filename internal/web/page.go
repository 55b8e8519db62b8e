package web

import (
	"html/template"
	"net/http"

	appLog "github.com/louispotok/frieden/internal/log"
	"github.com/louispotok/frieden/internal/layout"
)

// tmplTimeline is the server-rendered timeline page. It mirrors the
// display tree one-to-one: a header row plus an hour-ruled box per day
// with absolutely positioned busy slots. The root carries
// data-ready="true" so the capture pipeline knows rendering is done.
const tmplTimeline = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:system-ui,sans-serif;background:#fdfeff;color:#222;font-size:14px}
header{padding:12px 16px;border-bottom:2px solid #222}
header h1{font-size:18px}
.days{display:flex;overflow-y:auto}
.day{width:{{printf "%.4f" .ColPercent}}%;border-right:1px solid #ddd}
.dateLabel{height:50px;padding:4px 8px;border-bottom:2px solid #222}
.dateLabel.accent{background:#222;color:#fdfeff}
.dateLabel h2{font-size:14px;display:inline}
.dateLabel p{font-size:12px;display:inline;margin-left:6px}
.dateBox{position:relative}
.hour{height:50px;border-bottom:1px solid #eee}
.hourAnnotation{font-size:10px;color:#999;padding:2px 4px}
.slot{position:absolute;left:4px;right:4px;background:#222;color:#fdfeff;
font-size:11px;padding:2px 6px;border-radius:3px;overflow:hidden}
.now{position:absolute;left:0;right:0;border-top:2px solid #e03131;
color:#e03131;font-size:10px;padding-left:2px}
</style>
</head>
<body>
<div class="app" data-ready="true">
<header><h1>{{.Title}}</h1></header>
<div class="days">
{{range .Days}}<div class="day">
<div class="dateLabel{{if .Today}} accent{{end}}"><h2>{{.Weekday}}</h2><p>{{.DateLabel}}</p></div>
<div class="dateBox">
{{range .Hours}}<div class="hour">{{if .Label}}<div class="hourAnnotation">{{.Label}}</div>{{end}}</div>
{{end}}{{range .Slots}}<div class="slot" style="top:{{printf "%.2f" .TopPx}}px;height:{{printf "%.2f" .HeightPx}}px">{{.Label}}</div>
{{end}}{{if .Now}}<div class="now" style="top:{{printf "%.2f" .Now.TopPx}}px">now</div>{{end}}
</div>
</div>
{{end}}</div>
</div>
</body>
</html>`

var timelineTemplate = template.Must(template.New("timeline").Parse(tmplTimeline))

type timelinePage struct {
	Title      string
	ColPercent float64
	Days       []layout.DayColumn
}

// handleTimelinePage renders the timeline as HTML, primarily for the
// headless preview capture but usable directly in a browser.
func (s *Server) handleTimelinePage(w http.ResponseWriter, r *http.Request) {
	anchor, days := s.timelineParams(r)
	tl := s.buildTimeline(r.Context(), anchor, days)

	page := timelinePage{
		Title:      "frieden",
		ColPercent: 100.0 / float64(len(tl.Days)),
		Days:       tl.Days,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := timelineTemplate.Execute(w, page); err != nil {
		appLog.Error("failed to render timeline page", err)
	}
}
