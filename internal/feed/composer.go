// Package feed composes and sends the XML feed documents that push
// document identifiers, metadata, and ACLs to the Appliance.
package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// Type distinguishes a full-replace feed (defines the authoritative DocId
// set) from an incremental one (additive changes only).
type Type string

// Feed type constants match the wire values expected by the Appliance's
// feed DTD.
const (
	TypeFullReplace  Type = "full"
	TypeIncremental  Type = "incremental"
	TypeMetadataOnly Type = "metadata-and-url"
)

// Record is the composer's input shape: everything needed to emit one
// <record> element, already flattened from whatever public type produced
// it (DocIdRecord or NamedResource).
type Record struct {
	URL              string
	LastModified     *time.Time
	Delete           bool
	CrawlImmediately bool
	Lock             bool
	ResultLink       *string
	Metadata         map[string]string
	Acl              *AclFragment
}

// AclFragment is the inline ACL shape embedded in a record.
type AclFragment struct {
	PermitUsers  []string
	DenyUsers    []string
	PermitGroups []string
	DenyGroups   []string
	ParentURL    string
	InheritFrom  string // rule name: "leaf-node", "parent-overrides", "and-both-permit", "or-either-permit"
}

// Header identifies the data source and feed type.
type Header struct {
	DataSource        string
	FeedType          Type
	CharacterEncoding string
}

// Compose writes a complete feed document to w. Output is deterministic:
// records appear in the order given, attributes in a fixed order per
// element, UTF-8 throughout. Attribute order is pinned by hand rather than
// left to encoding/xml's struct-tag-driven (and therefore
// struct-field-order-accidental) output, because the Appliance's feed
// parser is a protocol boundary, not an internal detail.
func Compose(w io.Writer, h Header, records []Record) error {
	enc := &encoder{w: w}
	enc.writeString(xml.Header)
	if h.CharacterEncoding != "" {
		enc.writeString(fmt.Sprintf(`<!-- encoding: %s -->`+"\n", escapeAttr(h.CharacterEncoding)))
	}
	enc.writeString(`<gsafeed>` + "\n")
	enc.writeString(fmt.Sprintf(
		`  <header><datasource>%s</datasource><feedtype>%s</feedtype></header>`+"\n",
		escapeText(h.DataSource), escapeText(string(h.FeedType)),
	))
	enc.writeString(`  <group>` + "\n")
	for _, r := range records {
		enc.writeRecord(r)
	}
	enc.writeString(`  </group>` + "\n")
	enc.writeString(`</gsafeed>` + "\n")
	return enc.err
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) writeString(s string) {
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func (e *encoder) writeRecord(r Record) {
	var b strings.Builder
	b.WriteString(`    <record url="`)
	b.WriteString(escapeAttr(r.URL))
	b.WriteByte('"')
	if r.LastModified != nil {
		b.WriteString(` last-modified="`)
		b.WriteString(escapeAttr(r.LastModified.UTC().Format(time.RFC1123)))
		b.WriteByte('"')
	}
	if r.Delete {
		b.WriteString(` action="delete"`)
	}
	if r.CrawlImmediately {
		b.WriteString(` crawl-immediately="true"`)
	}
	if r.Lock {
		b.WriteString(` lock="true"`)
	}
	if r.ResultLink != nil {
		b.WriteString(` displayurl="`)
		b.WriteString(escapeAttr(*r.ResultLink))
		b.WriteByte('"')
	}

	hasBody := len(r.Metadata) > 0 || r.Acl != nil
	if !hasBody {
		b.WriteString(`/>` + "\n")
		e.writeString(b.String())
		return
	}
	b.WriteString(">\n")

	if r.Acl != nil {
		writeAcl(&b, r.Acl)
	}
	for _, k := range sortedKeys(r.Metadata) {
		b.WriteString(`      <metadata name="`)
		b.WriteString(escapeAttr(k))
		b.WriteString(`" content="`)
		b.WriteString(escapeAttr(r.Metadata[k]))
		b.WriteString(`"/>` + "\n")
	}
	b.WriteString(`    </record>` + "\n")
	e.writeString(b.String())
}

func writeAcl(b *strings.Builder, a *AclFragment) {
	b.WriteString(`      <acl`)
	if a.ParentURL != "" {
		b.WriteString(` inherit-from="`)
		b.WriteString(escapeAttr(a.ParentURL))
		b.WriteByte('"')
	}
	if a.InheritFrom != "" {
		b.WriteString(` inheritance-type="`)
		b.WriteString(escapeAttr(a.InheritFrom))
		b.WriteByte('"')
	}
	b.WriteString(">\n")
	writePrincipals(b, "principal", "permit", "user", a.PermitUsers)
	writePrincipals(b, "principal", "deny", "user", a.DenyUsers)
	writePrincipals(b, "principal", "permit", "group", a.PermitGroups)
	writePrincipals(b, "principal", "deny", "group", a.DenyGroups)
	b.WriteString(`      </acl>` + "\n")
}

func writePrincipals(b *strings.Builder, elem, access, scope string, names []string) {
	for _, n := range names {
		b.WriteString(`        <`)
		b.WriteString(elem)
		b.WriteString(` scope="`)
		b.WriteString(scope)
		b.WriteString(`" access="`)
		b.WriteString(access)
		b.WriteString(`">`)
		b.WriteString(escapeText(n))
		b.WriteString(`</`)
		b.WriteString(elem)
		b.WriteString(">\n")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Metadata attribute order must be deterministic across runs even
	// though Go map iteration is randomized; sort lexically.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func escapeAttr(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return url.QueryEscape(s)
	}
	return b.String()
}

func escapeText(s string) string {
	return escapeAttr(s)
}
