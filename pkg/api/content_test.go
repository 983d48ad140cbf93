package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestContentUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantArray bool
		wantText  string
	}{
		{"string", `"hello"`, false, "hello"},
		{"empty string", `""`, false, ""},
		{"array", `[{"type":"text","text":"a"},{"type":"text","text":"b"}]`, true, "ab"},
		{"empty array", `[]`, true, ""},
		{"image part", `[{"type":"image_url","image_url":{"url":"http://x/y.png"}}]`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Content
			require.NoError(t, json.Unmarshal([]byte(tt.input), &c))
			assert.Equal(t, tt.wantArray, c.IsArray())
			assert.Equal(t, tt.wantText, c.String())
		})
	}
}

func TestContentUnmarshalRejectsOtherTypes(t *testing.T) {
	for _, input := range []string{`42`, `{"text":"x"}`, `true`} {
		var c Content
		assert.Error(t, json.Unmarshal([]byte(input), &c), input)
	}
}

func TestMessageNullContent(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":null}`), &msg))
	assert.Nil(t, msg.Content)

	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":""}`), &msg))
	require.NotNil(t, msg.Content)
	assert.Equal(t, "", msg.Content.Text)

	data, err := json.Marshal(Message{Role: RoleAssistant})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"assistant","content":null}`, string(data))
}

func TestContentMarshalPreservesEncoding(t *testing.T) {
	data, err := json.Marshal(NewTextContent("hi"))
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, string(data))

	data, err = json.Marshal(NewPartsContent(TextPart("hi")))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":"hi"}]`, string(data))

	data, err = json.Marshal(NewPartsContent())
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	data, err = json.Marshal(NewPartsContent(TextPart("")))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":""}]`, string(data))
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))
	assert.Equal(t, []ContentPart{TextPart("x")}, Normalize(NewTextContent("x")))

	parts := []ContentPart{TextPart("a"), TextPart("b")}
	assert.Equal(t, parts, Normalize(NewPartsContent(parts...)))
}

func TestJoin(t *testing.T) {
	parts := []ContentPart{TextPart("a"), TextPart("b"), TextPart("c")}
	assert.Equal(t, "abc", Render(parts))
	assert.Equal(t, "a\nb\nc", Join(parts, "\n"))
	assert.Equal(t, "", Join(nil, "\n"))
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content *Content
		want    bool
	}{
		{"nil", nil, true},
		{"empty string", NewTextContent(""), true},
		{"text", NewTextContent("x"), false},
		{"no parts", NewPartsContent(), true},
		{"blank parts", NewPartsContent(TextPart("  "), TextPart("\n")), true},
		{"one non-blank part", NewPartsContent(TextPart(" "), TextPart("x")), false},
		{"image part", NewPartsContent(ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: "u"}}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.content))
		})
	}
}

func TestContentRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		if got := Render(Normalize(NewTextContent(s))); got != s {
			t.Fatalf("Render(Normalize(%q)) = %q", s, got)
		}
	})
}

func TestNormalizeIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		texts := rapid.SliceOf(rapid.String()).Draw(t, "texts")
		parts := make([]ContentPart, 0, len(texts))
		for _, s := range texts {
			parts = append(parts, TextPart(s))
		}

		once := Normalize(NewPartsContent(parts...))
		twice := Normalize(NewPartsContent(once...))
		if len(once) != len(twice) {
			t.Fatalf("normalize changed length: %d != %d", len(once), len(twice))
		}
		for i := range once {
			if once[i] != twice[i] {
				t.Fatalf("part %d changed: %+v != %+v", i, once[i], twice[i])
			}
		}
	})
}

func TestContentJSONRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		data, err := json.Marshal(NewTextContent(s))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var c Content
		if err := json.Unmarshal(data, &c); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if c.IsArray() || c.Text != s {
			t.Fatalf("round trip changed %q into %+v", s, c)
		}
	})
}
