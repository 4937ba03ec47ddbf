package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualsFormula(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  string
		want   string
	}{
		{name: "email", column: "Email", value: "a@b.com", want: `{Email}="a@b.com"`},
		{name: "active flag", column: "Active Student", value: "true", want: `{Active Student}="true"`},
		{name: "quotes", column: "Email", value: `x"y@b.co`, want: `{Email}="x\"y@b.co"`},
		{name: "backslash", column: "Email", value: `x\y`, want: `{Email}="x\\y"`},
		{name: "not pre-encoded", column: "Email", value: "a+b@c.de", want: `{Email}="a+b@c.de"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EqualsFormula(tt.column, tt.value))
		})
	}
}

func TestParseOrderings(t *testing.T) {
	assert.Nil(t, ParseOrderings(""))
	assert.Equal(t,
		[]Ordering{{Field: "Date Published", Ascending: false}, {Field: "Title", Ascending: true}},
		ParseOrderings("-Date Published, Title,"),
	)
}

func TestNonEmpty(t *testing.T) {
	recs := []Record{
		{ID: "rec1", Fields: map[string]interface{}{"Email": "a@b.co"}},
		{ID: "rec2", Fields: map[string]interface{}{}},
		{ID: "rec3"},
	}
	kept := NonEmpty(recs)
	if assert.Len(t, kept, 1) {
		assert.Equal(t, "rec1", kept[0].ID)
	}
}

func TestRecord_StringField(t *testing.T) {
	rec := Record{Fields: map[string]interface{}{
		"Name": "Aiko",
		"TAGS": []interface{}{"JLPT N3", "Business"},
		"Num":  float64(3),
	}}
	assert.Equal(t, "Aiko", rec.StringField("Name"))
	assert.Equal(t, "JLPT N3, Business", rec.StringField("TAGS"))
	assert.Equal(t, "3", rec.StringField("Num"))
	assert.Equal(t, "", rec.StringField("Missing"))
}
