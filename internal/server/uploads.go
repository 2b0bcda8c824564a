package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// saveUpload stores the named multipart file under the public uploads
// directory and returns its attachment reference. A missing file field is
// not an error; the empty reference is returned instead.
func (s *Server) saveUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("Error closing uploaded file: %v", err)
		}
	}()

	dir := filepath.Join(s.cfg.PublicDir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	// Generated name plus the client's extension; the original name is
	// never trusted for the stored path.
	name := s.newUploadName() + filepath.Ext(header.Filename)

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		return "", err
	}

	if err := dst.Close(); err != nil {
		return "", err
	}

	return "/uploads/" + name, nil
}
