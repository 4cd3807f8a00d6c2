package httpsut

import (
	"bufio"
	"bytes"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultBody identifies the sample in a small JSON document.
const DefaultBody = `{"id":{{.ID}},"index":{{.Index}}}`

// TemplateEngine renders request bodies. Functions that pick data do so by
// sample index, so the same sample always produces the same body.
type TemplateEngine struct {
	fileCache map[string][]string
	mu        sync.RWMutex
	funcMap   template.FuncMap
}

// TemplateData is passed to the execution context.
type TemplateData struct {
	ID        uint64
	Index     uint64
	RequestID string
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		fileCache: make(map[string][]string),
	}

	e.funcMap = template.FuncMap{
		"uuid":       e.randomUUID,
		"choice":     e.choice,
		"sampleLine": e.sampleLine,
	}

	return e
}

// Preprocess converts the shorthand variables {{index}}, {{id}} and
// {{requestID}} to template field access.
func (e *TemplateEngine) Preprocess(input string) string {
	s := input
	s = strings.ReplaceAll(s, "{{index}}", "{{.Index}}")
	s = strings.ReplaceAll(s, "{{id}}", "{{.ID}}")
	s = strings.ReplaceAll(s, "{{requestID}}", "{{.RequestID}}")
	return s
}

func (e *TemplateEngine) Parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Funcs(e.funcMap).Parse(e.Preprocess(text))
	return t, errors.Wrapf(err, "parsing %s template", name)
}

func (e *TemplateEngine) Execute(t *template.Template, data TemplateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "rendering %s template", t.Name())
	}
	return buf.Bytes(), nil
}

func (e *TemplateEngine) randomUUID() string {
	return uuid.NewString()
}

// choice picks choices[index % len(choices)].
func (e *TemplateEngine) choice(index uint64, choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[index%uint64(len(choices))]
}

// sampleLine returns the non-empty line of filename selected by index,
// wrapping around. Files are read once.
func (e *TemplateEngine) sampleLine(filename string, index uint64) (string, error) {
	lines, err := e.lines(filename)
	if err != nil || len(lines) == 0 {
		return "", err
	}
	return lines[index%uint64(len(lines))], nil
}

func (e *TemplateEngine) lines(filename string) ([]string, error) {
	e.mu.RLock()
	lines, ok := e.fileCache[filename]
	e.mu.RUnlock()
	if ok {
		return lines, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if lines, ok = e.fileCache[filename]; ok {
		return lines, nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file '%s'", filename)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	var loaded []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			loaded = append(loaded, line)
		}
	}
	e.fileCache[filename] = loaded
	return loaded, nil
}
