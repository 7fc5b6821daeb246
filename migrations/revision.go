package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

var revisionTemplate = template.Must(template.New("revision").Parse(`package migrations

// {{.Message}}
func init() {
	register(&Migration{
		Revision:     "{{.Revision}}",
		DownRevision: "{{.DownRevision}}",
		Message:      {{printf "%q" .Message}},
		CreateDate:   "{{.CreateDate}}",
		Up:           []Operation{},
		Down:         []Operation{},
	})
}
`))

// NewRevisionID returns YYYYMMDD_NNNN where NNNN is one past the highest
// sequence number in the chain.
func NewRevisionID(chain []*Migration, now time.Time) string {
	max := 0
	for _, m := range chain {
		rev := m.Revision
		if i := strings.LastIndexByte(rev, '_'); i >= 0 {
			rev = rev[i+1:]
		}
		if n, err := strconv.Atoi(rev); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s_%04d", now.Format("20060102"), max+1)
}

// Revision writes a new empty migration source file into dir whose down
// revision is the current head. It returns the path of the new file.
func Revision(dir, message string, autogenerate bool, now time.Time) (string, error) {
	if autogenerate {
		return "", ErrAutogenerate
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("a revision message is required")
	}
	chain, err := Chain()
	if err != nil {
		return "", err
	}
	head := ""
	if len(chain) > 0 {
		head = chain[len(chain)-1].Revision
	}

	rev := NewRevisionID(chain, now)
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(message), "_"), "_")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "_")
	}
	path := filepath.Join(dir, fmt.Sprintf("v%s_%s.go", rev, slug))
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("revision file %s already exists", path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create revision file: %w", err)
	}
	defer f.Close()

	err = revisionTemplate.Execute(f, map[string]string{
		"Revision":     rev,
		"DownRevision": head,
		"Message":      message,
		"CreateDate":   now.Format("2006-01-02"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render revision file: %w", err)
	}
	return path, nil
}
