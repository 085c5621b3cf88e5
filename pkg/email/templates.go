package email

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"date": func(t interface{}) string {
			switch v := t.(type) {
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Format("January 2, 2006")
			case time.Time:
				return v.Format("January 2, 2006")
			}
			return ""
		},
	}).ParseFS(templateFS, "templates/*.html")
}
