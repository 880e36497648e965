// Package web bundles the HTML templates and static assets into the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templates embed.FS

//go:embed static
var static embed.FS

// Templates is the template tree rooted at templates/, so views are named
// like "posts/index".
func Templates() fs.FS {
	return mustSub(templates, "templates")
}

// Static holds the CSS served under /static.
func Static() fs.FS {
	return mustSub(static, "static")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
