package export

import (
	"bytes"
	"strings"

	"maizedigest/app/service/composer"

	"github.com/fumiama/go-docx"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// CodeExportFailed marks document rendering failures.
const CodeExportFailed = "export_failed"

const (
	headingSize = "32"
	subheadSize = "28"
)

type Service struct{}

func New(_ *do.Injector) (*Service, error) {
	return &Service{}, nil
}

// Render produces the Word document for a digest: one heading per section,
// section text split on line breaks into paragraphs.
func (s *Service) Render(digest *composer.Digest) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	addHeading(doc, "Executive Summary", headingSize)
	addBody(doc, digest.Executive)

	addHeading(doc, "Opening", subheadSize)
	addBody(doc, digest.Opening)

	addHeading(doc, "Main Content", subheadSize)
	addBody(doc, digest.Main.Flatten())

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, oops.Code(CodeExportFailed).Wrapf(err, "failed to render document")
	}

	return buf.Bytes(), nil
}

func addHeading(doc *docx.Docx, text, size string) {
	doc.AddParagraph().AddText(text).Size(size).Bold()
}

func addBody(doc *docx.Docx, text string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		doc.AddParagraph().AddText(line)
	}

	// keep the section visible even when the model left it blank
	if strings.TrimSpace(text) == "" {
		doc.AddParagraph().AddText("")
	}
}
