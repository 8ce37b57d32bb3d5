package swms

import (
	"io/fs"

	"github.com/goliatone/go-swms/pkg/renderers/html"
)

// EmbeddedTemplates exposes the built-in HTML templates so callers can reuse
// or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}

// AssetsFS exposes the print stylesheet used by the HTML renderer.
//
// Typical mount:
//
//	mux.Handle("/assets/swms/",
//	  http.StripPrefix("/assets/swms/",
//	    http.FileServerFS(swms.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return html.AssetsFS()
}
