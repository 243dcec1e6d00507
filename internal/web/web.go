// Package web embeds and serves the dashboard frontend. The files are plain
// HTML, CSS and JavaScript with no build step, compiled into the binary so a
// deploy is a single file.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Handler serves the embedded frontend. The root path resolves to
// static/index.html.
func Handler() (http.Handler, error) {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, err
	}
	return http.FileServer(http.FS(sub)), nil
}
