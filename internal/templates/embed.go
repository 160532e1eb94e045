// Package templates holds the files written by conceptual init.
package templates

import (
	"embed"
	"io/fs"
)

// initTemplates embeds the files created by init. The structure is:
//   - init/conceptual.yml (the starting conceptual model document)
//
//go:embed init
var initTemplates embed.FS

// InitFS returns the embedded filesystem containing the init templates.
func InitFS() fs.FS {
	return initTemplates
}

// Conceptual returns the starting conceptual.yml written by init.
func Conceptual() string {
	data, err := initTemplates.ReadFile("init/conceptual.yml")
	if err != nil {
		// The file is embedded at build time; a miss means the embed directive is broken.
		panic("templates: init/conceptual.yml not embedded: " + err.Error())
	}
	return string(data)
}
