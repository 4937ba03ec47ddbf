package student

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nihongowithmoeno/moeno/core"
)

func TestActiveCodec(t *testing.T) {
	assert.Equal(t, "true", EncodeActive(true))
	assert.Equal(t, "false", EncodeActive(false))

	tests := []struct {
		name string
		val  interface{}
		want bool
	}{
		{name: "string true", val: "true", want: true},
		{name: "string false", val: "false"},
		{name: "bool true", val: true, want: true},
		{name: "capitalized", val: "True"},
		{name: "missing", val: nil},
		{name: "number", val: float64(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeActive(tt.val))
		})
	}
}

func TestClassesCodec(t *testing.T) {
	classes := []ScheduledClass{{Date: "2024-05-01T10:00:00", Topic: "Keigo"}}

	assert.Equal(t, "[]", EncodeClasses(nil))
	assert.Equal(t, `[{"date":"2024-05-01T10:00:00","topic":"Keigo"}]`, EncodeClasses(classes))

	tests := []struct {
		name string
		val  interface{}
		want []ScheduledClass
	}{
		{name: "valid", val: `[{"date":"2024-05-01T10:00:00","topic":"Keigo"}]`, want: classes},
		{name: "missing", val: nil, want: []ScheduledClass{}},
		{name: "empty", val: "", want: []ScheduledClass{}},
		{name: "malformed", val: `[{"date":`, want: []ScheduledClass{}},
		{name: "json null", val: "null", want: []ScheduledClass{}},
		{name: "wrong shape", val: `{"date":"x"}`, want: []ScheduledClass{}},
		{name: "not a string", val: float64(3), want: []ScheduledClass{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeClasses(tt.val)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromRecord(t *testing.T) {
	s := FromRecord(core.Record{
		ID: "rec1",
		Fields: map[string]interface{}{
			ColFirstName:     "Aiko",
			ColEmail:         "aiko@test.co",
			ColActiveStudent: "true",
		},
	})
	assert.Equal(t, "rec1", s.ID)
	assert.Equal(t, "Aiko", s.Name)
	assert.True(t, s.ActiveStudent)
	assert.Equal(t, DefaultTimezone, s.Timezone)
	assert.Equal(t, []ScheduledClass{}, s.ScheduledClasses)
}

func TestUpdateStudent_fields(t *testing.T) {
	us := UpdateStudent{
		ID:            "rec1",
		FirstName:     core.StrPtr(""),
		TrelloURL:     core.StrPtr(""),
		ActiveStudent: core.BoolPtr(false),
	}
	assert.Equal(t, map[string]interface{}{
		ColTrelloURL:     "",
		ColActiveStudent: "false",
	}, us.fields())

	us = UpdateStudent{ID: "rec1", ScheduledClasses: []ScheduledClass{}}
	assert.Equal(t, map[string]interface{}{ColScheduledClasses: "[]"}, us.fields())
}
