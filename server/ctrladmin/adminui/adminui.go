package adminui

import "embed"

//go:embed layout.tmpl pages/*.tmpl
var TemplatesFS embed.FS
