// Package resource models a CSD directory entry as an XML element tree.
// Values are never mutated after construction: every change yields a new Resource.
package resource

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Namespace is the CSD 2013 XML namespace.
const Namespace = "urn:ihe:iti:csd:2013"

// Resource is one CSD entity (facility, organization, provider or service).
type Resource struct {
	el *etree.Element
}

// New wraps a detached copy of el. Elements in the CSD namespace lose their
// prefix so the fragment can be re-rooted under a requestParams element that
// declares CSD as the default namespace. Elements and attributes from any other
// namespace keep their prefix, and every prefix the fragment uses is declared on
// its root.
func New(el *etree.Element) *Resource {
	cp := el.Copy()
	used := make(map[string]bool)
	unqualify(el, cp, Namespace, used)
	pruneDeclarations(cp, used)
	declarePrefixes(el, cp, used)
	return &Resource{el: cp}
}

// Tag returns the local element name, e.g. "facility".
func (r *Resource) Tag() string {
	return r.el.Tag
}

// EntityID returns the entityID attribute, or "" if absent.
func (r *Resource) EntityID() string {
	return r.el.SelectAttrValue("entityID", "")
}

// OtherIDs returns the code attribute of every otherID child with the given schema.
func (r *Resource) OtherIDs(codingSchema string) []string {
	var codes []string
	for _, child := range r.el.SelectElements("otherID") {
		if child.SelectAttrValue("codingSchema", "") == codingSchema {
			codes = append(codes, child.SelectAttrValue("code", ""))
		}
	}
	return codes
}

// WithOtherID returns a new Resource with an extra
// <otherID code="…" codingSchema="…"/> child appended.
func (r *Resource) WithOtherID(code, codingSchema string) *Resource {
	cp := r.el.Copy()
	other := cp.CreateElement("otherID")
	other.CreateAttr("code", code)
	other.CreateAttr("codingSchema", codingSchema)
	return &Resource{el: cp}
}

// Element returns a detached copy of the underlying element for serialization.
func (r *Resource) Element() *etree.Element {
	return r.el.Copy()
}

// unqualify rewrites cp, a copy of src, so that CSD elements are unprefixed.
// outerDefault is the default namespace in effect around cp once re-rooted.
// Prefixes still referenced by cp are recorded in used.
func unqualify(src, cp *etree.Element, outerDefault string, used map[string]bool) {
	attrs := cp.Attr[:0]
	for _, a := range cp.Attr {
		switch {
		case a.Space == "" && a.Key == "xmlns":
			continue
		case a.Space == "xmlns":
			// declarations made inside the fragment keep their lexical scope
		case a.Space != "":
			used[a.Space] = true
		}
		if prefix, _, ok := strings.Cut(a.Value, ":"); ok && a.Space != "xmlns" && !strings.ContainsAny(prefix, " /") {
			// QName-valued attributes such as xsi:type="csd:organization"
			if _, declared := lookupNamespace(src, prefix); declared {
				used[prefix] = true
			}
		}
		attrs = append(attrs, a)
	}
	cp.Attr = attrs

	uri, _ := lookupNamespace(src, src.Space)
	inner := outerDefault
	switch {
	case uri == Namespace || (src.Space == "" && uri == ""):
		// unqualified documents are treated as CSD
		cp.Space = ""
		inner = Namespace
		if outerDefault != Namespace {
			cp.CreateAttr("xmlns", Namespace)
		}
	case src.Space == "":
		inner = uri
		if outerDefault != uri {
			cp.CreateAttr("xmlns", uri)
		}
	default:
		used[src.Space] = true
	}

	srcChildren, cpChildren := src.ChildElements(), cp.ChildElements()
	for i := range cpChildren {
		unqualify(srcChildren[i], cpChildren[i], inner, used)
	}
}

// pruneDeclarations drops the prefix declarations bound to the CSD namespace
// that nothing in the fragment refers to any more.
func pruneDeclarations(el *etree.Element, used map[string]bool) {
	attrs := el.Attr[:0]
	for _, a := range el.Attr {
		if a.Space == "xmlns" && a.Value == Namespace && !used[a.Key] {
			continue
		}
		attrs = append(attrs, a)
	}
	el.Attr = attrs
	for _, child := range el.ChildElements() {
		pruneDeclarations(child, used)
	}
}

// declarePrefixes adds to the fragment root an xmlns declaration for every used
// prefix that src inherits from outside the fragment.
func declarePrefixes(src, cp *etree.Element, used map[string]bool) {
	prefixes := make([]string, 0, len(used))
	for p := range used {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	for _, p := range prefixes {
		if p == "xml" || cp.SelectAttr("xmlns:"+p) != nil {
			continue
		}
		if uri, ok := lookupNamespace(src, p); ok {
			cp.CreateAttr("xmlns:"+p, uri)
		}
	}
}

// lookupNamespace resolves prefix against the declarations in scope at el.
// An empty prefix resolves the default namespace.
func lookupNamespace(el *etree.Element, prefix string) (string, bool) {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value, true
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value, true
			}
		}
	}
	return "", false
}

// HasLocalSuffix reports whether el's local tag ends with suffix. Matching on the
// local name tolerates whatever prefix the server chose for the CSD namespace.
func HasLocalSuffix(el *etree.Element, suffix string) bool {
	return strings.HasSuffix(el.Tag, suffix)
}
