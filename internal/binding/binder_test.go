package binding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/layout"
)

func testLayout(t *testing.T) *layout.Layout {
	t.Helper()
	l, err := layout.New(layout.DefaultCanvasWidth, layout.DefaultCanvasHeight)
	require.NoError(t, err)
	require.NoError(t, l.AddField(layout.Field{
		ID: "f1", Type: layout.FieldTypeText, X: 100, Y: 100, Width: 300, Height: 50,
		Text: &layout.TextAttrs{Content: "Recipient", FontSize: 24, FontFamily: "Arial"},
	}))
	require.NoError(t, l.AddField(layout.Field{
		ID: "logo", Type: layout.FieldTypeImage, X: 10, Y: 10, Width: 64, Height: 64,
		Image: &layout.ImageAttrs{Image: layout.ImageRef{Data: []byte{1}}, Opacity: 1},
	}))
	return l
}

func TestResolveBoundColumn(t *testing.T) {
	l := testLayout(t)
	f := &l.Fields[0]
	bindings := BindingMap{"f1": "Name"}

	assert.Equal(t, "Ada", Resolve(f, DataRow{"Name": "Ada"}, bindings))
}

func TestResolveFallsBackToStaticContent(t *testing.T) {
	l := testLayout(t)
	f := &l.Fields[0]
	bindings := BindingMap{"f1": "Name"}

	assert.Equal(t, "Recipient", Resolve(f, DataRow{"Name": ""}, bindings), "empty value")
	assert.Equal(t, "Recipient", Resolve(f, DataRow{}, bindings), "missing column")
	assert.Equal(t, "Recipient", Resolve(f, DataRow{"Name": "Ada"}, BindingMap{}), "unbound field")
}

func TestResolveFieldBindingKeyIsDefault(t *testing.T) {
	f := layout.Field{
		ID: "f1", Type: layout.FieldTypeText, X: 100, Y: 100, Width: 300, Height: 50,
		Text: &layout.TextAttrs{Content: "Recipient", BindingKey: "Name", FontSize: 24},
	}

	assert.Equal(t, "Ada", Resolve(&f, DataRow{"Name": "Ada"}, BindingMap{}),
		"field binds its own key without a map entry")
	assert.Equal(t, "Grace", Resolve(&f, DataRow{"Name": "Ada", "Winner": "Grace"}, BindingMap{"f1": "Winner"}),
		"map entry overrides the field's key")
	assert.Equal(t, "Recipient", Resolve(&f, DataRow{"Other": "x"}, BindingMap{}),
		"missing column falls back to static content")
}

func TestResolveImageFieldIsStatic(t *testing.T) {
	l := testLayout(t)
	f := &l.Fields[1]

	assert.Equal(t, "", Resolve(f, DataRow{"logo": "x.png"}, BindingMap{"logo": "logo"}))
}

func TestBuildFrame(t *testing.T) {
	l := testLayout(t)
	frame := BuildFrame(l, DataRow{"Name": "Ada"}, BindingMap{"f1": "Name"})

	assert.Equal(t, Frame{"f1": "Ada"}, frame)
}

func TestBindingMapValidate(t *testing.T) {
	l := testLayout(t)

	assert.NoError(t, BindingMap{"f1": "Name"}.Validate(l))
	assert.NoError(t, BindingMap{"f1": ""}.Validate(l), "empty binding means unbound")

	var notFound *layout.NotFoundError
	require.ErrorAs(t, BindingMap{"ghost": "Name"}.Validate(l), &notFound)
	assert.Error(t, BindingMap{"logo": "Name"}.Validate(l), "image fields cannot be bound")
}

func TestNormalizeColumnKeys(t *testing.T) {
	row := DataRow{"Full_Name": "Ada", "FullName": "kept"}
	got := NormalizeColumnKeys(row)

	assert.Equal(t, "kept", got["FullName"], "existing keys win over aliases")
	assert.Equal(t, "Ada", got["Full_Name"])

	got = NormalizeColumnKeys(DataRow{"cert_id": "C-1"})
	assert.Equal(t, "C-1", got["certid"])
}

func TestRecipientName(t *testing.T) {
	assert.Equal(t, "Ada", RecipientName(DataRow{"Name": "Ada"}))
	assert.Equal(t, "Ada", RecipientName(DataRow{"Full_Name": "Ada"}))
	assert.Equal(t, "Bob", RecipientName(DataRow{"Student Name": "Bob"}))
	assert.Equal(t, "", RecipientName(DataRow{"Course": "Go"}))
	assert.Equal(t, "", RecipientName(DataRow{"Name": ""}))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "Ada_Lovelace", SanitizeFileName("Ada Lovelace", "x"))
	assert.Equal(t, "J_ose", SanitizeFileName("J'osé", "x"))
	assert.Equal(t, "fallback", SanitizeFileName("", "fallback"))
	assert.Equal(t, "fallback", SanitizeFileName("...", "fallback"))

	long := SanitizeFileName(strings.Repeat("b", 200), "x")
	assert.Len(t, long, 80)
}

func TestArchiveEntryName(t *testing.T) {
	assert.Equal(t, "001_Ada.pdf", ArchiveEntryName(0, DataRow{"Name": "Ada"}, "pdf"))
	assert.Equal(t, "002_recipient_2.pdf", ArchiveEntryName(1, DataRow{"Name": ""}, "pdf"))
	assert.Equal(t, "003_recipient_3.pdf", ArchiveEntryName(2, DataRow{}, "pdf"))
}
