// Package web embeds the HTML templates served by the viewer.
//
// Usage in the render package:
//
//	import "github.com/seenimoa/investorfolio/web"
//	tmpl := template.Must(template.ParseFS(web.TemplatesFS(), "*.html"))
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed all:templates
var templates embed.FS

// TemplatesFS returns a filesystem rooted at the embedded templates/ directory.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		log.Fatalf("web.TemplatesFS: %v", err)
	}
	return sub
}
