// Package handler serves, creates, patches and deletes files below a
// document root, one handler per HTTP method.
package handler

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/freekieb7/docserve/filesystem"
	"github.com/freekieb7/docserve/http"
)

const (
	IndexFile = "index.html"
	GuideFile = "guide.json"
)

type DocumentRoot struct {
	root string
	fs   filesystem.Filesystem
}

func New(root string, fs filesystem.Filesystem) *DocumentRoot {
	return &DocumentRoot{
		root: root,
		fs:   fs,
	}
}

// Register installs one handler per supported method on router.
func (d *DocumentRoot) Register(router *http.Router) {
	router.GET(d.Get)
	router.POST(d.Post)
	router.PUT(d.Put)
	router.PATCH(d.Patch)
	router.DELETE(d.Delete)
}

// resolve maps a request path onto a file below the root. ok is false when
// a response has already been sent.
func (d *DocumentRoot) resolve(ctx *http.RequestCtx) (string, bool) {
	file, err := filesystem.SafeJoin(d.root, strings.TrimLeft(ctx.Path, "/"))
	if err != nil {
		if errors.Is(err, filesystem.ErrOutsideRoot) {
			ctx.Logger.Warn("path traversal attempt", "path", ctx.Path)
			reply(ctx, http.StatusForbidden, "Forbidden")
			return "", false
		}

		internalError(ctx, err)
		return "", false
	}
	return file, true
}

// requireFile answers 404 with notFound unless file is an existing regular file.
func (d *DocumentRoot) requireFile(ctx *http.RequestCtx, file, notFound string) bool {
	isFile, err := d.fs.IsFile(file)
	if err != nil {
		internalError(ctx, err)
		return false
	}
	if !isFile {
		reply(ctx, http.StatusNotFound, notFound)
		return false
	}
	return true
}

func (d *DocumentRoot) special(path string) (string, bool) {
	switch path {
	case "/":
		return filepath.Join(d.root, IndexFile), true
	case "/guide":
		return filepath.Join(d.root, GuideFile), true
	}
	return "", false
}

func reply(ctx *http.RequestCtx, status uint16, text string) {
	send(ctx, http.NewResponse().WithStatus(status).WithText(text))
}

func send(ctx *http.RequestCtx, res *http.Response) {
	if err := ctx.Send(res); err != nil {
		ctx.Logger.Info("sending response failed", "status", res.Status, "error", err)
	}
}

func internalError(ctx *http.RequestCtx, err error) {
	ctx.Logger.Error("handler error", "method", ctx.Request.Method, "path", ctx.Path, "error", err)
	reply(ctx, http.StatusInternalServerError, "Error: "+err.Error())
}
