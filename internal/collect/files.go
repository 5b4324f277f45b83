package collect

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/TobiSchelling/ClicheCounter/internal/database"
)

// FileOptions attributes imported transcript files.
type FileOptions struct {
	Organization  string
	Speaker       string
	Label         string
	PublishedDate string
}

// ImportPath imports a single .txt or .pdf transcript, or every such file
// in a directory (not recursive). Unsupported files in a directory are
// ignored.
func ImportPath(db *database.DB, path string, opts FileOptions) (*Result, error) {
	if opts.Organization == "" {
		return nil, fmt.Errorf("importing %s: organization is required", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	res := newResult()
	if !info.IsDir() {
		if err := importFile(db, path, opts, res); err != nil {
			return res, err
		}
		return res, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		if err := importFile(db, filepath.Join(path, e.Name()), opts, res); err != nil {
			log.Printf("Skipping %s: %v", e.Name(), err)
		}
	}
	log.Printf("File import complete: %d files, %d new, %d duplicates", res.TotalFound, res.NewTranscripts, res.Duplicates)
	return res, nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".pdf":
		return true
	}
	return false
}

func importFile(db *database.DB, path string, opts FileOptions, res *Result) error {
	text, err := ReadTranscriptFile(path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	label := opts.Label
	if label == "" {
		label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	t := database.Transcript{
		URL:          "file://" + filepath.ToSlash(abs),
		Organization: opts.Organization,
		Label:        &label,
		Text:         &text,
		Source:       database.SourceFile,
	}
	if opts.Speaker != "" {
		t.Speaker = &opts.Speaker
	}
	if opts.PublishedDate != "" {
		t.PublishedDate = &opts.PublishedDate
	}
	return res.record(db, t)
}

// ReadTranscriptFile returns the plain text of a .txt or .pdf file.
func ReadTranscriptFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	case ".pdf":
		return readPDF(path)
	}
	return "", fmt.Errorf("unsupported transcript file %s (want .txt or .pdf)", path)
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading pdf page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text in %s", path)
	}
	return text, nil
}
