package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalogs() fstest.MapFS {
	return fstest.MapFS{
		"i18n/en.yaml": {Data: []byte("nav:\n  home: Home\n  services: Services\ncontact:\n  submit: Send\nfooter: All rights reserved\n")},
		"i18n/ar.yaml": {Data: []byte("nav:\n  home: الرئيسية\n  services: الخدمات\n")},
		"i18n/fr.yaml": {Data: []byte("nav:\n  home: Accueil\nextra: Seulement en français\n")},
	}
}

func TestLoadDictionary(t *testing.T) {
	dict, err := LoadDictionary(testCatalogs(), "i18n")
	require.NoError(t, err)

	assert.Equal(t, []string{"contact.submit", "extra", "footer", "nav.home", "nav.services"}, dict.Keys())

	t.Run("missing default catalog", func(t *testing.T) {
		_, err := LoadDictionary(fstest.MapFS{}, "i18n")
		assert.Error(t, err)
	})
	t.Run("malformed catalog", func(t *testing.T) {
		_, err := LoadDictionary(fstest.MapFS{"i18n/en.yaml": {Data: []byte("nav: [")}}, "i18n")
		assert.Error(t, err)
	})
}

func TestDictionary_T(t *testing.T) {
	dict, err := LoadDictionary(testCatalogs(), "i18n")
	require.NoError(t, err)

	tests := []struct {
		name string
		lang Lang
		key  string
		want string
	}{
		{name: "english", lang: English, key: "nav.home", want: "Home"},
		{name: "translated", lang: Arabic, key: "nav.services", want: "الخدمات"},
		{name: "english fallback", lang: Arabic, key: "contact.submit", want: "Send"},
		{name: "no catalog", lang: Urdu, key: "nav.home", want: "Home"},
		{name: "unknown key", lang: French, key: "nope", want: "nope"},
		{name: "key only in one language", lang: English, key: "extra", want: "extra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dict.T(tt.lang, tt.key))
		})
	}
}

func TestDictionary_All(t *testing.T) {
	dict, err := LoadDictionary(testCatalogs(), "i18n")
	require.NoError(t, err)

	all := dict.All(French)
	assert.Equal(t, "Accueil", all["nav.home"])
	assert.Equal(t, "Services", all["nav.services"])
	assert.Equal(t, "Seulement en français", all["extra"])
	assert.Len(t, all, len(dict.Keys()))
}
