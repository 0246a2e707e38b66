package docs

import (
	"path"
	"strings"
)

// pageURL computes the site-relative URL and output path for a page source.
// With directory URLs `a.md` becomes `a/` (`a/index.html`), otherwise `a.html`.
func pageURL(src string, isIndex, directoryURLs bool) (url, dest string) {
	dir := path.Dir(src)
	if dir == "." {
		dir = ""
	}
	stem := strings.TrimSuffix(path.Base(src), path.Ext(src))

	if isIndex {
		dest = path.Join(dir, "index.html")
		if directoryURLs {
			if dir == "" {
				return "", dest
			}
			return dir + "/", dest
		}
		return dest, dest
	}
	if directoryURLs {
		url = path.Join(dir, stem) + "/"
		return url, url + "index.html"
	}
	url = path.Join(dir, stem+".html")
	return url, url
}

// RelativeURL returns the URL of target relative to a page served at from.
// Both are site-relative; a trailing slash marks a directory.
func RelativeURL(from, target string) string {
	base := from
	if !strings.HasSuffix(base, "/") {
		base = path.Dir(base)
		if base == "." {
			base = ""
		}
	}
	baseParts := splitURL(base)
	targetParts := splitURL(target)

	common := 0
	for common < len(baseParts) && common < len(targetParts) && baseParts[common] == targetParts[common] {
		common++
	}
	// A file target equal to a prefix directory name must stay a file.
	if common == len(targetParts) && !strings.HasSuffix(target, "/") && common > 0 {
		common--
	}

	var b strings.Builder
	for i := common; i < len(baseParts); i++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(targetParts[common:], "/"))
	if strings.HasSuffix(target, "/") && len(targetParts) > common {
		b.WriteString("/")
	}
	if b.Len() == 0 {
		return "./"
	}
	return b.String()
}

func splitURL(u string) []string {
	u = strings.Trim(u, "/")
	if u == "" {
		return nil
	}
	return strings.Split(u, "/")
}
