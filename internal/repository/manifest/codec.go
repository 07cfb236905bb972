package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/oshokin/repo-generator/internal/domain/addon"
)

// ErrInvalidManifest is returned for manifests that parse but lack required attributes.
var ErrInvalidManifest = errors.New("invalid addon manifest")

// MetadataPoints are the extension points describing addon metadata.
func MetadataPoints() []string {
	return []string{"xbmc.addon.metadata", "kodi.addon.metadata"}
}

// addonDocument is the decoding shape of an <addon> element.
type addonDocument struct {
	XMLName    xml.Name           `xml:"addon"`
	Attrs      []xml.Attr         `xml:",any,attr"`
	Inner      []byte             `xml:",innerxml"`
	Extensions []extensionElement `xml:"extension"`
}

// addonsDocument is the decoding shape of the addons.xml catalog.
type addonsDocument struct {
	XMLName xml.Name        `xml:"addons"`
	Addons  []addonDocument `xml:"addon"`
}

type extensionElement struct {
	Point  string          `xml:"point,attr"`
	Assets []assetsElement `xml:"assets"`
}

type assetsElement struct {
	Items []assetItem `xml:",any"`
}

type assetItem struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

// ReadPackage parses the manifest file at path.
func ReadPackage(path string) (*addon.Package, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	pkg, err := ParsePackage(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return pkg, nil
}

// ParsePackage decodes one addon manifest. Non-UTF-8 documents are converted
// according to their XML declaration.
func ParsePackage(r io.Reader) (*addon.Package, error) {
	var doc addonDocument
	if err := newDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return toPackage(&doc)
}

// Encode renders the catalog: XML declaration, <addons> root, one <addon> per entry.
func Encode(repo *addon.Repository) []byte {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)
	buf.WriteString("<addons>\n")

	for _, pkg := range repo.Packages() {
		buf.Write(pkg.Element)
		buf.WriteByte('\n')
	}

	buf.WriteString("</addons>\n")

	return buf.Bytes()
}

// Decode parses a catalog produced by Encode.
func Decode(r io.Reader) (*addon.Repository, error) {
	var doc addonsDocument
	if err := newDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	repo := addon.NewRepository()

	for i := range doc.Addons {
		pkg, err := toPackage(&doc.Addons[i])
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}

		repo.Upsert(pkg)
	}

	return repo, nil
}

func newDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	return decoder
}

func toPackage(doc *addonDocument) (*addon.Package, error) {
	pkg := new(addon.Package)

	for _, attr := range doc.Attrs {
		if attr.Name.Space != "" {
			continue
		}

		switch attr.Name.Local {
		case "id":
			pkg.ID = strings.TrimSpace(attr.Value)
		case "version":
			pkg.Version = strings.TrimSpace(attr.Value)
		}
	}

	if pkg.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidManifest)
	}

	if pkg.Version == "" {
		return nil, fmt.Errorf("%w: %s: missing version", ErrInvalidManifest, pkg.ID)
	}

	if filepath.Base(pkg.ID) != pkg.ID || pkg.ID == "." || pkg.ID == ".." {
		return nil, fmt.Errorf("%w: id %q is not a plain name", ErrInvalidManifest, pkg.ID)
	}

	pkg.Assets = collectAssets(doc.Extensions)

	element, err := encodeElement(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", pkg.ID, err)
	}

	pkg.Element = element

	return pkg, nil
}

// xmlNamespace is the namespace bound to the reserved "xml" prefix.
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// encodeElement writes the <addon> element with its attributes in source order
// and its inner XML unchanged. The decoder resolves attribute prefixes to
// namespace URLs, so prefixes are mapped back through the root's declarations.
func encodeElement(doc *addonDocument) ([]byte, error) {
	prefixes := map[string]string{xmlNamespace: "xml"}

	for _, attr := range doc.Attrs {
		if attr.Name.Space == "xmlns" {
			prefixes[attr.Value] = attr.Name.Local
		}
	}

	var buf bytes.Buffer

	buf.WriteString("<addon")

	for _, attr := range doc.Attrs {
		buf.WriteByte(' ')

		switch space := attr.Name.Space; {
		case space == "":
		case space == "xmlns":
			buf.WriteString("xmlns:")
		case prefixes[space] != "":
			buf.WriteString(prefixes[space] + ":")
		default:
			// Undeclared prefixes are left unresolved by the decoder.
			buf.WriteString(space + ":")
		}

		buf.WriteString(attr.Name.Local)
		buf.WriteString(`="`)

		if err := xml.EscapeText(&buf, []byte(attr.Value)); err != nil {
			return nil, err
		}

		buf.WriteByte('"')
	}

	buf.WriteByte('>')
	buf.Write(doc.Inner)
	buf.WriteString("</addon>")

	return buf.Bytes(), nil
}

// collectAssets returns the non-empty text of every child of <assets> inside a
// metadata extension, with separators normalized and duplicates removed.
func collectAssets(extensions []extensionElement) []string {
	points := make(map[string]struct{}, len(MetadataPoints()))
	for _, p := range MetadataPoints() {
		points[p] = struct{}{}
	}

	var (
		assets []string
		seen   = make(map[string]struct{})
	)

	for _, ext := range extensions {
		if _, ok := points[ext.Point]; !ok || len(ext.Assets) == 0 {
			continue
		}

		for _, item := range ext.Assets[0].Items {
			asset := normalizeAsset(item.Text)
			if asset == "" {
				continue
			}

			if _, dup := seen[asset]; dup {
				continue
			}

			seen[asset] = struct{}{}
			assets = append(assets, asset)
		}
	}

	return assets
}

// normalizeAsset accepts both separators and returns a cleaned OS path.
func normalizeAsset(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	return filepath.Clean(filepath.FromSlash(strings.ReplaceAll(raw, `\`, "/")))
}
