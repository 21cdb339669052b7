package rest

import (
	"testing"
	"time"

	"github.com/edgeflare/pgrest/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type organisation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	Owner     *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"owner"`
}

func TestDecode(t *testing.T) {
	rows := testutil.Rows(t, "organisations.json")

	var org organisation
	require.NoError(t, Decode(rows[1], &org))
	assert.Equal(t, "Org X", org.Name)
	assert.Equal(t, 42, org.Score)
	assert.Equal(t, time.Date(2024, 4, 15, 8, 0, 0, 123456000, time.UTC), org.CreatedAt.UTC())
	require.NotNil(t, org.Owner)
	assert.Equal(t, "cy@example.com", org.Owner.Email)

	var all []organisation
	require.NoError(t, Decode(rows, &all))
	require.Len(t, all, 3)
	assert.Nil(t, all[2].Owner)
	assert.Equal(t, "f3e1a0b2-95c1-46e8-8a4b-2d9d6b1c7e10", all[2].ID)
}

func TestDecodeError(t *testing.T) {
	var org organisation
	err := Decode(Record{"created_at": "yesterday"}, &org)
	assert.ErrorContains(t, err, "rest: decode")
}

func TestLookup(t *testing.T) {
	rows := testutil.Rows(t, "organisations.json")
	first := rows[0]

	tests := []struct {
		name     string
		record   Record
		path     string
		expected any
		wantErr  bool
	}{
		{name: "top level", record: first, path: ".name", expected: "Test Organisation"},
		{name: "without leading dot", record: first, path: "category", expected: "Tech"},
		{name: "nested", record: first, path: ".owner.email", expected: "ada@example.com"},
		{name: "index", record: first, path: ".members[1].email", expected: "bob@example.com"},
		{name: "wildcard", record: first, path: ".members[*].email", expected: []any{"ada@example.com", "bob@example.com"}},
		{name: "empty brackets flatten arrays", record: first, path: ".members[].roles", expected: []any{"admin", "dev", "dev"}},
		{name: "whole array", record: first, path: ".members[]", expected: first["members"]},
		{name: "dot only", record: first, path: ".", expected: first},
		{name: "missing key", record: first, path: ".nope", wantErr: true},
		{name: "index out of range", record: first, path: ".members[5]", wantErr: true},
		{name: "not an array", record: first, path: ".name[0]", wantErr: true},
		{name: "through a scalar", record: first, path: ".name.first", wantErr: true},
		{name: "malformed", record: first, path: ".members[0", wantErr: true},
		{name: "wildcard matches nothing", record: rows[1], path: ".members[*].email", wantErr: true},
		{name: "empty path", record: first, path: "", wantErr: true},
		{name: "nil record", record: nil, path: ".a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lookup(tt.record, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLookupTyped(t *testing.T) {
	rows := testutil.Rows(t, "organisations.json")

	name, err := LookupString(rows[0], ".owner.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)

	owner, err := LookupString(rows[2], ".owner")
	require.NoError(t, err)
	assert.Empty(t, owner)

	score, err := LookupInt(rows[0], ".score")
	require.NoError(t, err)
	assert.Equal(t, 87, score)

	created, err := LookupTime(rows[0], ".created_at")
	require.NoError(t, err)
	assert.True(t, created.Equal(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)))

	_, err = LookupInt(rows[0], ".name")
	assert.Error(t, err)
	_, err = LookupTime(rows[0], ".missing")
	assert.ErrorContains(t, err, "key not found")
	_, err = LookupString(rows[0], ".members[x]")
	assert.ErrorContains(t, err, "invalid index")
}

func TestWithIDCopies(t *testing.T) {
	in := Record{"name": "a"}
	out := withID(in, "1")
	assert.Equal(t, Record{"name": "a", "id": "1"}, out)
	assert.Equal(t, Record{"name": "a"}, in)
}
