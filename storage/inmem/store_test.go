package inmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihongowithmoeno/moeno/core"
)

func TestStore_ListRecords(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Seed("Posts", map[string]interface{}{"Title": "B", "Date": "2024-02-01"})
	s.Seed("Posts", map[string]interface{}{"Title": `Say "hi"`, "Date": "2024-03-01"})
	s.Seed("Posts", map[string]interface{}{"Title": "A", "Date": "2024-01-01"})

	tests := []struct {
		name      string
		opts      core.ListOptions
		wantTitle []string
		wantErr   bool
	}{
		{name: "all", wantTitle: []string{"B", `Say "hi"`, "A"}},
		{name: "equality", opts: core.ListOptions{Formula: core.EqualsFormula("Title", "A")}, wantTitle: []string{"A"}},
		{name: "escaped quotes", opts: core.ListOptions{Formula: core.EqualsFormula("Title", `Say "hi"`)}, wantTitle: []string{`Say "hi"`}},
		{name: "no match", opts: core.ListOptions{Formula: core.EqualsFormula("Title", "Z")}, wantTitle: []string{}},
		{
			name:      "sort desc + max",
			opts:      core.ListOptions{Sort: []core.Ordering{{Field: "Date"}}, MaxRecords: 2},
			wantTitle: []string{`Say "hi"`, "B"},
		},
		{name: "unsupported formula", opts: core.ListOptions{Formula: "AND(1,2)"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.ListRecords(ctx, "Posts", tt.opts)
			if tt.wantErr {
				assert.True(t, core.IsValidation(err), "err = %v", err)
				return
			}
			require.NoError(t, err)
			titles := make([]string, 0, len(recs))
			for _, rec := range recs {
				titles = append(titles, rec.StringField("Title"))
			}
			assert.Equal(t, tt.wantTitle, titles)
		})
	}
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	rec, err := s.CreateRecord(ctx, "T", map[string]interface{}{"Name": "Aiko", "Notes": ""})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.NotContains(t, rec.Fields, "Notes")

	rec, err = s.UpdateRecord(ctx, "T", rec.ID, map[string]interface{}{"Notes": "likes kanji"})
	require.NoError(t, err)
	assert.Equal(t, "Aiko", rec.StringField("Name"))
	assert.Equal(t, "likes kanji", rec.StringField("Notes"))

	got, err := s.GetRecord(ctx, "T", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	require.NoError(t, s.DeleteRecord(ctx, "T", rec.ID))
	_, err = s.GetRecord(ctx, "T", rec.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(s.DeleteRecord(ctx, "T", rec.ID)))
}

func TestStore_FailNext(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.FailNext(&core.UpstreamError{Service: "airtable", StatusCode: 429})

	_, err := s.ListRecords(ctx, "T", core.ListOptions{})
	assert.True(t, core.IsRateLimited(err))

	_, err = s.ListRecords(ctx, "T", core.ListOptions{})
	assert.NoError(t, err)
}
