package main

import (
	"embed"
	"io/fs"

	"github.com/goliatone/go-router"
)

//go:embed views
var viewsFS embed.FS

// viewConfig serves the embedded shell templates to the router view engine
type viewConfig struct {
	templates fs.FS
	dir       string
	ext       string
	reload    bool
}

var _ router.ViewConfigProvider = viewConfig{}

func newViewConfig() viewConfig {
	return viewConfig{
		templates: viewsFS,
		dir:       "views",
		ext:       ".html",
	}
}

func (v viewConfig) GetEmbed() bool { return true }
func (v viewConfig) GetDirFS() string { return v.dir }
func (v viewConfig) GetDirOS() string { return v.dir }
func (v viewConfig) GetExt() string { return v.ext }
func (v viewConfig) GetTemplatesFS() fs.FS { return v.templates }
func (v viewConfig) GetCSSPath() string { return "" }
func (v viewConfig) GetJSPath() string { return "" }
func (v viewConfig) GetRemovePathPrefix() string { return "" }
func (v viewConfig) GetReload() bool { return v.reload }
func (v viewConfig) GetDebug() bool { return false }
func (v viewConfig) GetAssetsFS() fs.FS { return v.templates }
func (v viewConfig) GetTemplateFunctions() map[string]any { return templateFunctions }

var templateFunctions = map[string]any{
	"check": func(done bool) string {
		if done {
			return "[x]"
		}
		return "[ ]"
	},
}

func newViewEngine() router.Views {
	return router.InitializeViewEngine(newViewConfig())
}
