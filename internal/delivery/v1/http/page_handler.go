package http

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

const (
	indexPage = "index.html"
	adminPage = "admin-catalogo.html"
)

// PageHandler отдаёт HTML-страницы и статические файлы из публичного каталога.
type PageHandler struct {
	publicDir string
}

func NewPageHandler(publicDir string) *PageHandler {
	return &PageHandler{publicDir: publicDir}
}

func (p *PageHandler) index(w http.ResponseWriter, r *http.Request) {
	p.serveFile(w, r, indexPage)
}

func (p *PageHandler) admin(w http.ResponseWriter, r *http.Request) {
	p.serveFile(w, r, adminPage)
}

func (p *PageHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	full := filepath.Join(p.publicDir, name)
	if info, err := os.Stat(full); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}

// static отдаёт файлы публичного каталога, включая uploads/. Листинг каталогов запрещён.
func (p *PageHandler) static() http.Handler {
	return http.FileServer(noListingFS{http.Dir(p.publicDir)})
}

// noListingFS прячет каталоги без index.html, чтобы http.FileServer не строил их листинг.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}

	index, err := n.fs.Open(path.Join(name, indexPage))
	if err != nil {
		f.Close()
		return nil, fs.ErrNotExist
	}
	index.Close()

	return f, nil
}
