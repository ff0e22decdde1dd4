package telegram

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// Служебные пути t.me, которые не являются каналами
var reservedPaths = map[string]bool{
	"joinchat": true, "addstickers": true, "share": true, "proxy": true,
	"socks": true, "iv": true, "s": true, "c": true, "addlist": true,
}

// ChannelRef канал, найденный на странице каталога
type ChannelRef struct {
	Username string
	Link     string
	Title    string
}

// ExtractChannelLinks находит ссылки на публичные каналы t.me в HTML.
// Дубликаты по username отбрасываются, порядок сохраняется, не больше limit.
func ExtractChannelLinks(page []byte, limit int) []ChannelRef {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	refs := make([]ChannelRef, 0)
	seen := make(map[string]bool)

	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if limit > 0 && len(refs) >= limit {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				username := UsernameFromLink(attr.Val)
				key := strings.ToLower(username)
				if username == "" || seen[key] {
					continue
				}
				seen[key] = true

				title := strings.Join(strings.Fields(textContent(n)), " ")
				if title == "" || strings.Contains(title, "t.me/") {
					title = "@" + username
				}
				refs = append(refs, ChannelRef{
					Username: username,
					Link:     "https://t.me/" + username,
					Title:    title,
				})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if !walk(child) {
				return false
			}
		}
		return true
	}
	walk(doc)

	return refs
}

// UsernameFromLink достаёт username канала из ссылки t.me или telegram.me
func UsernameFromLink(link string) string {
	link = strings.TrimSpace(link)
	if strings.HasPrefix(link, "@") {
		if usernameRegex.MatchString(link[1:]) {
			return link[1:]
		}
		return ""
	}

	u, err := url.Parse(NormalizeLink(link))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "t.me" && host != "telegram.me" {
		return ""
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	first := strings.Split(path, "/")[0]
	if reservedPaths[strings.ToLower(first)] || strings.HasPrefix(first, "+") {
		return ""
	}
	if !usernameRegex.MatchString(first) {
		return ""
	}
	return first
}

// AvatarURL публичный адрес аватара канала
func AvatarURL(username string) string {
	if username == "" {
		return ""
	}
	return "https://t.me/i/userpic/320/" + username + ".jpg"
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return sb.String()
}
