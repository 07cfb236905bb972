package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/repo-generator/internal/domain/addon"
)

const exampleManifest = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<addon id="plugin.example" name="Example" version="1.0.0" provider-name="me">
  <requires>
    <import addon="xbmc.python" version="3.0.0"/>
  </requires>
  <extension point="xbmc.python.pluginsource" library="default.py"/>
  <extension point="xbmc.addon.metadata">
    <summary lang="en_GB">Example</summary>
    <assets>
      <icon>icon.png</icon>
      <fanart>resources\fanart.jpg</fanart>
      <banner></banner>
      <screenshot>resources/shot.png</screenshot>
      <screenshot>resources/shot.png</screenshot>
    </assets>
  </extension>
  <extension point="xbmc.service">
    <assets><icon>ignored.png</icon></assets>
  </extension>
</addon>
`

// TestParsePackage reads identity, assets and keeps the inner XML verbatim.
func TestParsePackage(t *testing.T) {
	t.Parallel()

	pkg, err := ParsePackage(strings.NewReader(exampleManifest))
	require.NoError(t, err)
	require.Equal(t, "plugin.example", pkg.ID)
	require.Equal(t, "1.0.0", pkg.Version)
	require.Equal(t, []string{
		"icon.png",
		filepath.Join("resources", "fanart.jpg"),
		filepath.Join("resources", "shot.png"),
	}, pkg.Assets)

	element := string(pkg.Element)
	require.True(t, strings.HasPrefix(element,
		`<addon id="plugin.example" name="Example" version="1.0.0" provider-name="me">`), element)
	require.Contains(t, element, `<import addon="xbmc.python" version="3.0.0"/>`)
	require.Contains(t, element, `<fanart>resources\fanart.jpg</fanart>`)
	require.True(t, strings.HasSuffix(element, "</addon>"))
}

// TestParsePackage_Errors covers malformed XML, wrong root and missing attributes.
func TestParsePackage_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed":       `<addon id="a" version="1"><requires></addon>`,
		"wrong root":      `<plugin id="a" version="1"/>`,
		"missing id":      `<addon version="1"/>`,
		"missing version": `<addon id="a"/>`,
		"path id":         `<addon id="../a" version="1"/>`,
	}

	for name, doc := range cases {
		_, err := ParsePackage(strings.NewReader(doc))
		require.Error(t, err, name)
	}

	_, err := ParsePackage(strings.NewReader(`<addon id="a"/>`))
	require.ErrorIs(t, err, ErrInvalidManifest)
}

// TestParsePackage_Latin1 decodes a manifest declared as ISO-8859-1.
func TestParsePackage_Latin1(t *testing.T) {
	t.Parallel()

	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<addon id=\"plugin.caf\xe9\" version=\"2\"><summary>caf\xe9</summary></addon>")

	pkg, err := ParsePackage(bytes.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "plugin.café", pkg.ID)
	require.Contains(t, string(pkg.Element), "<summary>café</summary>")
}

// TestEncodeDecode_Catalog checks the catalog layout and that decoding gives the same entries back.
func TestEncodeDecode_Catalog(t *testing.T) {
	t.Parallel()

	a, err := ParsePackage(strings.NewReader(`<addon id="plugin.a" version="1"><x/></addon>`))
	require.NoError(t, err)

	b, err := ParsePackage(strings.NewReader(`<addon id="plugin.b" version="2"/>`))
	require.NoError(t, err)

	data := Encode(addon.NewRepository(a, b))
	require.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>
<addons>
<addon id="plugin.a" version="1"><x/></addon>
<addon id="plugin.b" version="2"></addon>
</addons>
`, string(data))

	repo, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, []string{"plugin.a", "plugin.b"}, repo.IDs())
	require.Equal(t, data, Encode(repo))
}

// TestParsePackage_Namespaces keeps prefixed root attributes bound to their declarations.
func TestParsePackage_Namespaces(t *testing.T) {
	t.Parallel()

	const xsi = "http://www.w3.org/2001/XMLSchema-instance"

	doc := `<addon xmlns:xsi="` + xsi + `" id="plugin.ns" version="1" ` +
		`xsi:noNamespaceSchemaLocation="addon.xsd" xml:lang="en"><xsi:note>n</xsi:note></addon>`

	pkg, err := ParsePackage(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, doc, string(pkg.Element))

	data := Encode(addon.NewRepository(pkg))

	// Every prefix in the catalog must resolve to its namespace.
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var spaces []string

	for {
		tok, tokErr := decoder.Token()
		if errors.Is(tokErr, io.EOF) {
			break
		}

		require.NoError(t, tokErr)

		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "note" {
			spaces = append(spaces, start.Name.Space)
		}
	}

	require.Equal(t, []string{xsi}, spaces)

	repo, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, data, Encode(repo))
}

// TestParsePackage_EscapesAttributes writes special characters back as entities.
func TestParsePackage_EscapesAttributes(t *testing.T) {
	t.Parallel()

	pkg, err := ParsePackage(strings.NewReader(`<addon id="plugin.q" version="1" name="A &amp; &quot;B&quot; &lt;C&gt;"/>`))
	require.NoError(t, err)
	require.Equal(t,
		`<addon id="plugin.q" version="1" name="A &amp; &#34;B&#34; &lt;C&gt;"></addon>`,
		string(pkg.Element))
}
