package archive

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"
)

// File is one generated file destined for the archive and the repository.
type File struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty"`
}

var ErrUnsafePath = errors.New("file path escapes the output root")

var binaryExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".ico":  true,
	".bmp":  true,
}

// CleanPath validates and normalizes a relative archive path.
func CleanPath(raw string) (string, error) {
	p := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	if p == "" {
		return "", ErrUnsafePath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." ||
		strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, "/") ||
		strings.Contains(cleaned, ":") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, raw)
	}
	return cleaned, nil
}

func isBinaryPath(p string) bool {
	return binaryExtensions[strings.ToLower(path.Ext(p))]
}

// decode returns the raw bytes of one file, enforcing the encoding invariant:
// image assets must be base64, everything else defaults to utf-8.
func decode(f File) ([]byte, error) {
	switch f.Encoding {
	case EncodingBase64:
		buf, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Path, err)
		}
		return buf, nil
	case "", EncodingUTF8:
		if isBinaryPath(f.Path) {
			return nil, fmt.Errorf("binary asset %s must be base64 encoded", f.Path)
		}
		return []byte(f.Content), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q for %s", f.Encoding, f.Path)
	}
}

// Build packs the file list into a zip archive.
func Build(files []File) ([]byte, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to archive")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		cleaned, err := CleanPath(f.Path)
		if err != nil {
			return nil, err
		}
		data, err := decode(f)
		if err != nil {
			return nil, err
		}
		w, err := zw.Create(cleaned)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", cleaned, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", cleaned, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Extract unpacks an archive back into a file list. Binary assets come back
// base64 encoded, everything else utf-8, so the result satisfies the same
// invariant Build enforces.
func Extract(archive []byte) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	files := make([]File, 0, len(zr.File))
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		cleaned, err := CleanPath(entry.Name)
		if err != nil {
			return nil, err
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", cleaned, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", cleaned, err)
		}

		f := File{Path: cleaned}
		if isBinaryPath(cleaned) {
			f.Content = base64.StdEncoding.EncodeToString(data)
			f.Encoding = EncodingBase64
		} else {
			f.Content = string(data)
			f.Encoding = EncodingUTF8
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, errors.New("archive contains no files")
	}
	return files, nil
}
