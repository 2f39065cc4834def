package handler

import (
	"mime"
	"path/filepath"

	"github.com/freekieb7/docserve/http"
)

// Get serves a file. "/" maps to the index page and "/guide" to the guide.
func (d *DocumentRoot) Get(ctx *http.RequestCtx) {
	file, ok := d.special(ctx.Path)
	if !ok {
		if file, ok = d.resolve(ctx); !ok {
			return
		}
	}

	if !d.requireFile(ctx, file, "Not Found") {
		return
	}

	content, err := d.fs.ReadFile(file)
	if err != nil {
		ctx.Logger.Error("reading file failed", "file", file, "error", err)
		reply(ctx, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	send(ctx, http.NewResponse().WithBody(GetMimeType(file), content))
}

// GetMimeType guesses the content type from the file extension.
func GetMimeType(file string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(file)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
