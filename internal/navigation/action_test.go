package navigation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRoundTrip(t *testing.T) {
	cases := []Action{
		{Kind: KindGenerate},
		{Kind: KindMyEmails},
		{Kind: KindView, Address: "a1@x.io"},
		{Kind: KindCheck, Address: "a_b@x.io"},
		{Kind: KindRead, Address: "a|b@x.io", MessageID: "65f0c0ffee"},
		{Kind: KindDelete, Address: "z@x.io"},
	}
	for _, want := range cases {
		got, err := ParseAction(want.Unique(), want.Payload())
		require.NoError(t, err, want)
		assert.Equal(t, want, got)
	}
}

func TestParseActionRejectsMalformed(t *testing.T) {
	for _, tc := range []struct{ unique, payload string }{
		{"view", ""},
		{"read", "a@x.io"},
		{"read", "a@x.io|"},
		{"read", "|m1"},
		{"unknown", "a@x.io"},
	} {
		_, err := ParseAction(tc.unique, tc.payload)
		assert.ErrorIs(t, err, ErrBadAction, tc)
	}
}

func TestParseLegacy(t *testing.T) {
	cases := map[string]Action{
		"generate":               {Kind: KindGenerate},
		"my_emails":              {Kind: KindMyEmails},
		"noop":                   {Kind: KindNoop},
		"view_a@x.io":            {Kind: KindView, Address: "a@x.io"},
		"next_a@x.io":            {Kind: KindNext, Address: "a@x.io"},
		"copy_a@x.io":            {Kind: KindCopy, Address: "a@x.io"},
		"delete_a@x.io":          {Kind: KindDelete, Address: "a@x.io"},
		"check_a@x.io":           {Kind: KindCheck, Address: "a@x.io"},
		"read_a@x.io_m1":         {Kind: KindRead, Address: "a@x.io", MessageID: "m1"},
		"read_first_last@x.io_7": {Kind: KindRead, Address: "first_last@x.io", MessageID: "7"},
	}
	for data, want := range cases {
		got, ok := ParseLegacy(data)
		require.True(t, ok, data)
		assert.Equal(t, want, got, data)
	}

	for _, data := range []string{"", "view_", "read_nounderscore", "frobnicate"} {
		_, ok := ParseLegacy(data)
		assert.False(t, ok, data)
	}
}

func TestTruncateIdempotent(t *testing.T) {
	long := strings.Repeat("é", 50)
	once := Truncate(long, 40)
	assert.Equal(t, strings.Repeat("é", 40)+"...", once)
	assert.Equal(t, once, Truncate(once, 40))

	assert.Equal(t, "short", Truncate("short", 40))
	exact := strings.Repeat("x", 35)
	assert.Equal(t, exact, Truncate(exact, 35))
}
