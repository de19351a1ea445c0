// File: cmd/cmd_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsanko9k/inkclip/internal/extract"
)

func TestRootRegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["scrape"], "scrape command should be registered")
	assert.True(t, names["validate"], "validate command should be registered")
}

func TestScrapeCmdFlags(t *testing.T) {
	c := newScrapeCmd()

	for _, name := range []string{"output", "concurrency", "debug"} {
		assert.NotNil(t, c.Flags().Lookup(name), "missing flag %q", name)
	}

	// Requires at least one URL argument.
	err := c.Args(c, []string{})
	assert.Error(t, err)
	assert.NoError(t, c.Args(c, []string{"https://medium.com/@a/story"}))
}

func TestValidateCmdTakesNoArgs(t *testing.T) {
	c := newValidateCmd()
	assert.Error(t, c.Args(c, []string{"extra"}))
	assert.NoError(t, c.Args(c, nil))
}

func TestWriteOutputsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	outputs := []articleOutput{
		{
			URL: "https://medium.com/@a/story",
			Article: &extract.Result{
				Title:        "A Story",
				CanonicalURL: "https://medium.com/@a/story",
				BodyText:     "Hello.",
				Images:       []string{"https://miro.medium.com/max/700/1.png"},
			},
		},
		{
			URL:   "not-a-url",
			Error: &scrapeError{Kind: "invalid_input", Message: "URL is missing scheme or domain"},
		},
	}

	require.NoError(t, writeOutputs(outputs, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []articleOutput
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "A Story", decoded[0].Article.Title)
	assert.Nil(t, decoded[0].Error)
	assert.Nil(t, decoded[1].Article)
	assert.Equal(t, "invalid_input", decoded[1].Error.Kind)
}
