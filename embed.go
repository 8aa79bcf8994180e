package spacetraveling

import "embed"

// EmbeddedAssets contains static assets shipped with the framework:
// feed.js, the "load more" button handler.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
