package verifier

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Locator finds an element by its accessible role and a substring of its
// accessible name.
type Locator struct {
	Role       string
	Name       string
	IgnoreCase bool
}

// implicit tags carrying a role without an explicit role attribute.
var implicitRoles = map[string][]string{
	"heading": {"h1", "h2", "h3", "h4", "h5", "h6"},
	"button":  {"button", "input[type=button]", "input[type=submit]"},
	"link":    {"a[href]"},
	"img":     {"img[alt]"},
}

// findVisibleJS returns the first visible element matching selector whose
// accessible name matches the regex built from pattern and flags, or null.
// The name is a non-empty aria-label, else the rendered text.
const findVisibleJS = `(selector, pattern, flags) => {
	const re = new RegExp(pattern, flags);
	const name = (el) => {
		const label = el.getAttribute('aria-label');
		const text = label !== null && label.trim() !== '' ? label : (el.innerText || el.textContent || '');
		return text.replace(/\s+/g, ' ').trim();
	};
	const visible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden' || style.visibility === 'collapse') {
			return false;
		}
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};
	for (const el of document.querySelectorAll(selector)) {
		if (visible(el) && re.test(name(el))) {
			return el;
		}
	}
	return null;
}`

func (l Locator) String() string {
	flags := ""
	if l.IgnoreCase {
		flags = "i"
	}
	return fmt.Sprintf("role=%s[name=/%s/%s]", l.Role, l.Name, flags)
}

// pattern renders the name as a regexp source where any run of whitespace
// matches any other. The source is valid in both Go and JS.
func (l Locator) pattern() string {
	words := strings.Fields(l.Name)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

// Regexp returns the name pattern for playwright, which converts the (?i)
// prefix into a JS flag.
func (l Locator) Regexp() *regexp.Regexp {
	if l.IgnoreCase {
		return regexp.MustCompile("(?i)" + l.pattern())
	}
	return regexp.MustCompile(l.pattern())
}

// CSS returns a selector for every element that carries the role.
func (l Locator) CSS() string {
	sel := append([]string{}, implicitRoles[l.Role]...)
	sel = append(sel, fmt.Sprintf("[role=%q]", l.Role))
	return strings.Join(sel, ",")
}

// jsArgs returns the arguments findVisibleJS is called with.
func (l Locator) jsArgs() []interface{} {
	flags := ""
	if l.IgnoreCase {
		flags = "i"
	}
	return []interface{}{l.CSS(), l.pattern(), flags}
}

// findExpr returns a JS expression evaluating to the first visible match.
func (l Locator) findExpr() string {
	args := l.jsArgs()
	quoted := make([]string, len(args))
	for i, a := range args {
		b, _ := json.Marshal(a)
		quoted[i] = string(b)
	}
	return fmt.Sprintf("(%s)(%s)", findVisibleJS, strings.Join(quoted, ", "))
}
