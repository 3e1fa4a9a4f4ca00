package web

import (
	"embed"
)

// staticFiles holds the embedded HTML for the operator page.
//
//go:embed static/*
var staticFiles embed.FS
