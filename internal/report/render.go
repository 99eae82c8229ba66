package report

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Rendered is a serialized document ready to be stored or served.
type Rendered struct {
	FileName    string
	ContentType string
	Body        []byte
}

// Renderer turns a Document into a file.
type Renderer interface {
	Render(ctx context.Context, doc *Document) (Rendered, error)
}

// JSONRenderer writes the document as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(_ context.Context, doc *Document) (Rendered, error) {
	if doc == nil {
		return Rendered{}, fmt.Errorf("report: render: nil document")
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Rendered{}, fmt.Errorf("report: render: %w", err)
	}
	return Rendered{
		FileName:    FileName(doc.Metadata, ".json"),
		ContentType: "application/json",
		Body:        body,
	}, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName keeps a unit name safe for file names and object keys.
func SanitizeName(name string) string {
	safe := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if safe == "" {
		return "UNIDADE"
	}
	return safe
}

// FileName returns MAPA_DIARIO_<unit>_<DD-MM-YYYY><ext> or
// MAPA_SEMANAL_<unit>_-_<DD-MM-YYYY><ext>.
func FileName(m Metadata, ext string) string {
	unit := SanitizeName(m.UnitName)
	if m.Type == TypeWeekly {
		return fmt.Sprintf("MAPA_SEMANAL_%s_-_%s%s", unit, m.From.BR(), ext)
	}
	return fmt.Sprintf("MAPA_DIARIO_%s_%s%s", unit, m.From.BR(), ext)
}
