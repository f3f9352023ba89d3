// Package web serves the static pages of the monitoring dashboard.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"runtime"
	"strings"
)

// devModeEnv switches the server to reading assets from the source tree, so
// that dashboard changes show up without recompiling.
const devModeEnv = "SNACKSIM_MONITOR_DEV"

//go:embed dist/*
var dist embed.FS

// GetAssets returns the file system holding the dashboard assets.
func GetAssets() http.FileSystem {
	if devMode() {
		dir := sourceAssetDir()
		fmt.Printf(
			"In monitoring tool development mode, serving assets from %s\n",
			dir)

		return http.Dir(dir)
	}

	assets, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(assets)
}

func sourceAssetDir() string {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("error getting path")
	}

	return path.Join(path.Dir(thisFile), "dist")
}

func devMode() bool {
	value, set := os.LookupEnv(devModeEnv)
	if !set {
		return false
	}

	return strings.EqualFold(value, "true") || value == "1"
}
