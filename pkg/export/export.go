// Package export serializes an annotation store for download.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/sroie/pkg/annotation"
	"github.com/lehigh-university-libraries/sroie/pkg/imageproc"
)

const (
	TextContentType  = "text/plain; charset=utf-8"
	JSONContentType  = "application/json"
	ImageContentType = "image/jpeg"
)

// Source is the read side of an annotation store
type Source interface {
	Categories() []string
	Annotations(category string) []annotation.Annotation
}

// Text renders one line per annotation, in category then insertion order:
//
//	x_min,y_min,x_max,y_max,CATEGORY: text
func Text(src Source) string {
	var b strings.Builder
	for _, category := range src.Categories() {
		label := strings.ToUpper(category)
		for _, a := range src.Annotations(category) {
			fmt.Fprintf(&b, "%s,%s: %s\n", a.Box, label, a.Text)
		}
	}
	return b.String()
}

// JSON renders an object keyed by lowercased category name whose values are
// the annotation texts in insertion order. Keys keep category order, output
// is indented with four spaces and non-ASCII text is left unescaped.
//
// Categories that lowercase to the same key share one entry at the first
// position; the last such category supplies its texts.
func JSON(src Source) ([]byte, error) {
	var keys []string
	values := make(map[string][]string)
	for _, category := range src.Categories() {
		key := strings.ToLower(category)
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		texts := []string{}
		for _, a := range src.Annotations(category) {
			texts = append(texts, a.Text)
		}
		values[key] = texts
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			compact.WriteByte(',')
		}
		if err := encode(&compact, key); err != nil {
			return nil, err
		}
		compact.WriteByte(':')
		if err := encode(&compact, values[key]); err != nil {
			return nil, err
		}
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, fmt.Errorf("failed to indent json: %w", err)
	}
	return unescapeLineSeparators(out.Bytes()), nil
}

// Image re-encodes the original image as JPEG
func Image(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("no image loaded")
	}
	return imageproc.EncodeJPEG(img, quality)
}

// BaseName strips the last extension from an uploaded filename
func BaseName(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[:i]
	}
	return filename
}

// TextFilename is the download name of the text export
func TextFilename(filename string) string {
	return BaseName(filename) + ".txt"
}

// JSONFilename is the download name of the JSON export
func JSONFilename(filename string) string {
	return BaseName(filename) + "_structured.json"
}

// ImageFilename is the download name of the original image export
func ImageFilename(filename string) string {
	return BaseName(filename) + "_original.jpg"
}

// unescapeLineSeparators writes U+2028 and U+2029 as raw text.
// encoding/json always escapes them, even with SetEscapeHTML(false).
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if rest := data[i+1:]; bytes.HasPrefix(rest, []byte("u2028")) || bytes.HasPrefix(rest, []byte("u2029")) {
			r := '\u2028'
			if rest[4] == '9' {
				r = '\u2029'
			}
			out = utf8.AppendRune(out, r)
			i += 5
			continue
		}
		// copy the escape pair whole so an escaped backslash is never reread
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

func encode(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	// Encode terminates each value with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}
