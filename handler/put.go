package handler

import (
	"github.com/freekieb7/docserve/http"
)

// Put stores the request body as the file at the request path.
func (d *DocumentRoot) Put(ctx *http.RequestCtx) {
	file, ok := d.resolve(ctx)
	if !ok {
		return
	}

	if err := d.fs.WriteFile(file, []byte(ctx.Body)); err != nil {
		internalError(ctx, err)
		return
	}

	reply(ctx, http.StatusCreated, "File updated successfully")
}
