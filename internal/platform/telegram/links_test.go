package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const listingPage = `<html><body>
<div class="card"><a href="https://t.me/technews"><b>Tech</b> News</a></div>
<div class="card"><a href="https://t.me/TechNews">duplicate</a></div>
<div class="card"><a href="t.me/crypto_daily">https://t.me/crypto_daily</a></div>
<a href="https://t.me/joinchat/AAAA">private</a>
<a href="https://t.me/+AbCdEf">invite</a>
<a href="https://example.com/technology">other site</a>
<a href="https://telegram.me/startup_digest/15">Startup Digest</a>
</body></html>`

func TestExtractChannelLinks(t *testing.T) {
	refs := ExtractChannelLinks([]byte(listingPage), 0)

	assert.Equal(t, []ChannelRef{
		{Username: "technews", Link: "https://t.me/technews", Title: "Tech News"},
		{Username: "crypto_daily", Link: "https://t.me/crypto_daily", Title: "@crypto_daily"},
		{Username: "startup_digest", Link: "https://t.me/startup_digest", Title: "Startup Digest"},
	}, refs)
}

func TestExtractChannelLinksLimit(t *testing.T) {
	refs := ExtractChannelLinks([]byte(listingPage), 2)
	assert.Len(t, refs, 2)
}

func TestUsernameFromLink(t *testing.T) {
	tests := map[string]string{
		"https://t.me/durov":        "durov",
		"t.me/durov/123":            "durov",
		"@durov":                    "durov",
		"https://www.t.me/durov":    "durov",
		"https://t.me/s/durov":      "",
		"https://t.me/joinchat/xyz": "",
		"https://example.com/durov": "",
		"https://t.me/ab":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, UsernameFromLink(in), in)
	}
}

func TestAvatarURL(t *testing.T) {
	assert.Equal(t, "https://t.me/i/userpic/320/durov.jpg", AvatarURL("durov"))
	assert.Empty(t, AvatarURL(""))
}
