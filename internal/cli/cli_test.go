package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	start, _, err := root.Find([]string{"start"})
	require.NoError(t, err)
	assert.Equal(t, "start", start.Name())
	assert.NotNil(t, start.Flags().Lookup("offline"))

	migrate, _, err := root.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.Equal(t, "migrate", migrate.Name())

	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("port"))
}

func TestSampleSongs(t *testing.T) {
	songs := sampleSongs()
	require.Len(t, songs, 5)
	for _, s := range songs {
		assert.NotEmpty(t, s.Audio)
		assert.NotEqual(t, "Unknown", s.Question.Version(), s.Question.ID)
	}
	assert.Contains(t, songs[0].Question.Answers(), "bad apple")
}
