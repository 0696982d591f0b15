package badgeui

import "embed"

//go:embed styles/*.tmpl
var TemplatesFS embed.FS
