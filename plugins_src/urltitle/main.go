// Build with: go build -buildmode=plugin -o plugins/urltitle.so ./plugins_src/urltitle
package main

import (
	"obot/pkg/api"
	"obot/plugins/urltitle"
)

var Plugin api.Plugin = urltitle.New()
