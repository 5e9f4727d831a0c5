package export

import (
	"testing"

	"maizedigest/app/service/composer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesDocx(t *testing.T) {
	svc := &Service{}

	blob, err := svc.Render(&composer.Digest{
		Executive: "Challenge. Solution. Impact.",
		Opening:   "An opening paragraph.\nWith a second line.",
		Main:      composer.MainContent{Text: "The main body."},
	})

	require.NoError(t, err)
	require.NotEmpty(t, blob)
	// docx files are zip archives
	assert.Equal(t, []byte("PK"), blob[:2])
}

func TestRenderSectionedMain(t *testing.T) {
	svc := &Service{}

	blob, err := svc.Render(&composer.Digest{
		Executive: "e",
		Opening:   "o",
		Main: composer.MainContent{Sections: []composer.Section{
			{Title: "Process", Text: "how it went"},
			{Title: "Outcomes", Text: "what shipped"},
		}},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}

func TestRenderToleratesEmptySections(t *testing.T) {
	svc := &Service{}

	blob, err := svc.Render(&composer.Digest{})

	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}
