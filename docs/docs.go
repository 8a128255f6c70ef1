package docs

import "embed"

// DocsFS holds the documentation pages extracted by the docs command.
//
//go:embed pages
var DocsFS embed.FS
