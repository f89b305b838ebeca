package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileHTML(t *testing.T) {
	raw, err := parseProfileHTML(profilePageHTML, "nasa")
	require.NoError(t, err)

	assert.Equal(t, "nasa", raw["username"])
	assert.Equal(t, "NASA", raw["display_name"])
	assert.Equal(t, "Explore the universe.", raw["bio"])
	assert.Equal(t, "https://cdn.example/nasa.jpg", raw["profile_image_url"])
	assert.Equal(t, int64(96500000), raw["follower_count"])
	assert.Equal(t, int64(77), raw["following_count"])
	assert.Equal(t, int64(4321), raw["post_count"])
	assert.Equal(t, true, raw["verified"])
	assert.Equal(t, false, raw["business_account"])
}

func TestParseProfileHTMLMetaFallbacks(t *testing.T) {
	page := `<html><head>
<meta property="og:image" content="https://cdn.example/og.jpg" />
<meta property="og:title" content="NASA (@nasa) on Instagram" />
</head><body>no structured data</body></html>`

	raw, err := parseProfileHTML(page, "nasa")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/og.jpg", raw["profile_image_url"])
	assert.Equal(t, "NASA", raw["display_name"])
	assert.Equal(t, false, raw["verified"])
}

func TestParseProfileHTMLSkipsNonPersonBlocks(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"@type":"Organization","name":"Instagram"}</script>
<script type="application/ld+json">{"@type":"Person","name":"NASA","description":"space","image":"https://cdn.example/n.jpg"}</script>
</head><body></body></html>`

	raw, err := parseProfileHTML(page, "nasa")
	require.NoError(t, err)

	assert.Equal(t, "NASA", raw["display_name"])
	assert.Equal(t, "space", raw["bio"])
}

func TestParseProfileHTMLBareBody(t *testing.T) {
	raw, err := parseProfileHTML("<html><body></body></html>", "nasa")
	require.NoError(t, err)

	// Identity falls back to the requested handle
	assert.Equal(t, "nasa", raw["username"])
	assert.Equal(t, "nasa", raw["id"])
	_, hasFollowers := raw["follower_count"]
	assert.False(t, hasFollowers)
}

func TestExtractCSRFToken(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "embedded config json",
			body: `{"config":{"csrf_token":"abc123","viewer":null}}`,
			want: "abc123",
		},
		{
			name: "cookie mirror",
			body: `document.cookie = "csrftoken=def456; path=/";`,
			want: "def456",
		},
		{
			name: "bare token field",
			body: `{"token":"ghi789"}`,
			want: "ghi789",
		},
		{
			name: "no token present",
			body: `<html><body>plain page</body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCSRFToken(tt.body))
		})
	}
}
