package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"reflect"
	"slices"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/freekieb7/docserve/http"
)

var (
	errInvalidPatch = errors.New("invalid patch format")
	errItemNotFound = errors.New("item with given id not found")
)

// Patch merges a JSON object from the body into a JSON file. A list file is
// patched element-wise: the element whose "id" equals the patch "id" is
// updated. An object file is updated key by key.
func (d *DocumentRoot) Patch(ctx *http.RequestCtx) {
	file, ok := d.resolve(ctx)
	if !ok {
		return
	}

	if !d.requireFile(ctx, file, "File not found") {
		return
	}

	raw, err := d.fs.ReadFile(file)
	if err != nil {
		internalError(ctx, err)
		return
	}

	var existing any
	if err := json.Unmarshal(raw, &existing); err != nil {
		internalError(ctx, err)
		return
	}

	var patch any
	if err := json.Unmarshal([]byte(ctx.Body), &patch); err != nil {
		internalError(ctx, err)
		return
	}

	switch err := applyPatch(existing, patch); {
	case errors.Is(err, errItemNotFound):
		reply(ctx, http.StatusNotFound, "Item with given id not found")
		return
	case errors.Is(err, errInvalidPatch):
		reply(ctx, http.StatusBadRequest, "Invalid patch format")
		return
	}

	encoded, err := encodeIndented(existing)
	if err != nil {
		internalError(ctx, err)
		return
	}

	if err := d.fs.WriteFile(file, encoded); err != nil {
		internalError(ctx, err)
		return
	}

	reply(ctx, http.StatusOK, "File patched successfully")
}

// applyPatch updates existing in place.
func applyPatch(existing, patch any) error {
	fields, isObject := patch.(map[string]any)
	if !isObject {
		return errInvalidPatch
	}

	switch target := existing.(type) {
	case []any:
		id, hasID := fields["id"]
		if !hasID {
			return errInvalidPatch
		}

		for _, item := range target {
			if obj, ok := item.(map[string]any); ok && reflect.DeepEqual(obj["id"], id) {
				maps.Copy(obj, fields)
				return nil
			}
		}
		return errItemNotFound
	case map[string]any:
		maps.Copy(target, fields)
		return nil
	}

	return errInvalidPatch
}

func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return escapeNonASCII(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// escapeNonASCII rewrites every non-ASCII rune as a \uXXXX escape, using a
// surrogate pair above the BMP. Outside strings the encoder only emits ASCII.
func escapeNonASCII(b []byte) []byte {
	if !slices.ContainsFunc(b, func(c byte) bool { return c >= utf8.RuneSelf }) {
		return b
	}

	out := make([]byte, 0, len(b)+len(b)/2)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]

		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = appendEscape(out, r1)
			r = r2
		}
		out = appendEscape(out, r)
	}
	return out
}

func appendEscape(dst []byte, r rune) []byte {
	const hex = "0123456789abcdef"
	return append(dst, '\\', 'u', hex[r>>12&0xf], hex[r>>8&0xf], hex[r>>4&0xf], hex[r&0xf])
}
