package validate

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// CheckTarget reports why s is not a relative URL or URL-with-fragment as
// written into a navigation entry. An empty target is allowed; Doxygen
// writes null for entries without a page.
func CheckTarget(s string) error {
	if s == "" {
		return nil
	}
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return fmt.Errorf("contains whitespace or control characters")
	}
	if strings.ContainsRune(s, '\\') {
		return fmt.Errorf("contains a backslash")
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "" {
		return fmt.Errorf("has scheme %q", u.Scheme)
	}
	if u.Host != "" || strings.HasPrefix(s, "//") {
		return fmt.Errorf("has a host")
	}
	if u.Path == "" && u.RawQuery == "" && u.Fragment == "" {
		return fmt.Errorf("empty reference")
	}
	return nil
}

// CheckFragment validates a shard index entry: a relative URL that names a
// page, optionally followed by a fragment.
func CheckFragment(s string) error {
	if s == "" {
		return fmt.Errorf("empty entry")
	}
	if err := CheckTarget(s); err != nil {
		return err
	}
	if strings.HasPrefix(s, "#") {
		return fmt.Errorf("fragment without a page")
	}
	return nil
}

// splitTarget returns the page file and fragment of a target.
func splitTarget(s string) (page, fragment string) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		page, fragment = s[:i], s[i+1:]
	} else {
		page = s
	}
	if i := strings.IndexByte(page, '?'); i >= 0 {
		page = page[:i]
	}
	return page, fragment
}
