// Package scraper pulls candidate garment image URLs out of a product page.
package scraper

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Image URLs containing these fragments are page chrome, not products.
var skipFragments = []string{"icon", "logo", "avatar", "thumb", "small", "banner"}

// "ad" is matched as a whole path token so "/uploads/" and "shadow" survive.
const adToken = "ad"

var productClassHints = []string{"product", "item", "goods", "photo"}
var productSrcHints = []string{"product", "item"}
var containerClassHints = []string{"product-image", "item-image", "goods-image"}

// ExtractImageURLs returns absolute image URLs found in page, product-looking
// images first. When none look like product images every <img> is returned.
// Order follows the document and duplicates are dropped.
func ExtractImageURLs(page []byte, base *url.URL) []string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	var preferred, all []string
	seenPreferred := map[string]bool{}
	seenAll := map[string]bool{}

	var walk func(n *html.Node, inProductContainer bool)
	walk = func(n *html.Node, inProductContainer bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "img":
				if src, ok := resolve(n, base); ok {
					if !seenAll[src] {
						seenAll[src] = true
						all = append(all, src)
					}
					if (inProductContainer || looksLikeProduct(n)) && !seenPreferred[src] {
						seenPreferred[src] = true
						preferred = append(preferred, src)
					}
				}
			}
			if !inProductContainer && classContainsAny(n, containerClassHints) {
				inProductContainer = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inProductContainer)
		}
	}
	walk(doc, false)

	if len(preferred) > 0 {
		return preferred
	}
	return all
}

func looksLikeProduct(img *html.Node) bool {
	if classContainsAny(img, productClassHints) {
		return true
	}
	if _, ok := attr(img, "data-src"); ok {
		return true
	}
	src, _ := attr(img, "src")
	src = strings.ToLower(src)
	for _, hint := range productSrcHints {
		if strings.Contains(src, hint) {
			return true
		}
	}
	return false
}

func classContainsAny(n *html.Node, hints []string) bool {
	class, ok := attr(n, "class")
	if !ok {
		return false
	}
	class = strings.ToLower(class)
	for _, hint := range hints {
		if strings.Contains(class, hint) {
			return true
		}
	}
	return false
}

// resolve picks the first usable source attribute and makes it absolute.
func resolve(img *html.Node, base *url.URL) (string, bool) {
	var raw string
	for _, key := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := attr(img, key); ok && strings.TrimSpace(v) != "" {
			raw = strings.TrimSpace(v)
			break
		}
	}
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme == "" && strings.HasPrefix(raw, "//") {
		abs.Scheme = "https"
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}

	s := abs.String()
	if skipped(s) {
		return "", false
	}
	return s, true
}

func skipped(imageURL string) bool {
	lower := strings.ToLower(imageURL)
	for _, frag := range skipFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	for _, tok := range tokens {
		if tok == adToken || tok == adToken+"s" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
