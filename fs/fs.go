// Package appfs embeds the migrations and static assets shipped with the binaries.
package appfs

import "embed"

//go:embed migrations assets assets/templates/email/_base.*
var FS embed.FS
