package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyCopyMessage(t *testing.T) {
	testCases := []struct {
		locale   string
		expected string
	}{
		{"zh-CN", "没有内容可复制!"},
		{"zh-Hans", "没有内容可复制!"},
		{"zh", "没有内容可复制!"},
		{"en", "No content to copy!"},
		{"en-US", "No content to copy!"},
		{"tlh", "没有内容可复制!"},
		{"", "没有内容可复制!"},
		{"not a locale", "没有内容可复制!"},
	}

	for _, tc := range testCases {
		t.Run(tc.locale, func(t *testing.T) {
			msg, err := EmptyCopyMessage(tc.locale)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, msg)
		})
	}
}

func TestCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	t.Run("default language first", func(t *testing.T) {
		langs := c.Languages()
		require.NotEmpty(t, langs)
		assert.Equal(t, DefaultLanguage, langs[0])
		assert.Contains(t, langs, "en")
	})

	t.Run("unknown key returns key", func(t *testing.T) {
		assert.Equal(t, "toast.nope", c.T("en", "toast.nope"))
	})

	t.Run("key pointing at a section returns key", func(t *testing.T) {
		assert.Equal(t, "toast", c.T("en", "toast"))
	})
}

func TestLoadFallsBackToDefaultLanguage(t *testing.T) {
	fsys := fstest.MapFS{
		"translations/zh-Hans.json": {Data: []byte(`{"toast":{"empty_copy":"没有内容可复制!","only_zh":"仅中文"}}`)},
		"translations/en.json":      {Data: []byte(`{"toast":{"empty_copy":"No content to copy!"}}`)},
	}
	c, err := load(fsys)
	require.NoError(t, err)

	assert.Equal(t, "仅中文", c.T("en", "toast.only_zh"))
}

func TestLoadRequiresDefaultLanguage(t *testing.T) {
	fsys := fstest.MapFS{
		"translations/en.json": {Data: []byte(`{}`)},
	}
	_, err := load(fsys)
	assert.Error(t, err)
}

func TestLoadRejectsBadJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"translations/zh-Hans.json": {Data: []byte(`{`)},
	}
	_, err := load(fsys)
	assert.Error(t, err)
}
