package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeDOM(t *testing.T) {
	html := `<html><head><title> Music Player </title><script src="app.js"></script></head>
<body>
  <a href="/ranking">ranking</a>
  <a href="/my">my</a>
  <form id="search"><input></form>
  <script>init()</script>
</body></html>`

	summary, err := SummarizeDOM(html)
	require.NoError(t, err)
	assert.Equal(t, `title="Music Player" links=2 forms=1 scripts=2`, summary)
}

func TestSummarizeDOMNoTitle(t *testing.T) {
	summary, err := SummarizeDOM(`<html><body><p>blank</p></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, `title="(no title)" links=0 forms=0 scripts=0`, summary)
}
