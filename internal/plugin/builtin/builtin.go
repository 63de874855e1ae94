// Package builtin bundles the plugins compiled into every zine binary.
//
// Each bundled plugin has two halves: a Go implementation registered in
// the plugin registry at package init, and a descriptor directory
// embedded here. Discovery scans the embedded descriptors after the
// instance-local and configured search paths, so an instance can shadow
// a bundled plugin by shipping one with the same name.
package builtin

import (
	"embed"
	"io/fs"

	"github.com/zineproject/zine/internal/plugin"
)

//go:embed descriptors
var bundledFS embed.FS

// Bundled returns the discovery root over the embedded descriptors.
func Bundled() plugin.SearchPath {
	sub, err := fs.Sub(bundledFS, "descriptors")
	if err != nil {
		// the embed layout is fixed at compile time
		panic(err)
	}
	return plugin.SearchPath{FS: sub, Origin: "builtin"}
}
