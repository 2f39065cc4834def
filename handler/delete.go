package handler

import (
	"github.com/freekieb7/docserve/http"
)

func (d *DocumentRoot) Delete(ctx *http.RequestCtx) {
	file, ok := d.resolve(ctx)
	if !ok {
		return
	}

	if !d.requireFile(ctx, file, "File not found") {
		return
	}

	if err := d.fs.DeleteFile(file); err != nil {
		internalError(ctx, err)
		return
	}

	reply(ctx, http.StatusOK, "File deleted successfully")
}
