package tests

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/media"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/translation"
	testutil "github.com/trezcool/khidmat/tests"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newUploadRequest(t *testing.T, token, folder, filename string, content []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	if folder != "" {
		require.NoError(t, w.WriteField("folder", folder))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/uploads", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestToolsApi_upload(t *testing.T) {
	app := setup(t)
	_, token := app.editor(t)

	tests := []struct {
		name     string
		folder   string
		filename string
		content  []byte
		wantCode int
		wantErr  map[string]string
	}{
		{name: "png", folder: "services", filename: "cleaning.png", content: pngHeader, wantCode: http.StatusCreated},
		{name: "svg in default folder", filename: "logo.svg", content: []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`), wantCode: http.StatusCreated},
		{name: "missing file", folder: "blogs", wantCode: http.StatusBadRequest, wantErr: map[string]string{"file": "no file was uploaded"}},
		{name: "empty file", filename: "empty.png", content: []byte{}, wantCode: http.StatusBadRequest, wantErr: map[string]string{"file": media.ErrEmptyFile.Error()}},
		{name: "not an image", filename: "notes.txt", content: []byte("hello"), wantCode: http.StatusBadRequest, wantErr: map[string]string{"file": media.ErrUnsupportedType.Error()}},
		{name: "unknown folder", folder: "secrets", filename: "a.png", content: pngHeader, wantCode: http.StatusBadRequest, wantErr: map[string]string{"folder": media.ErrInvalidFolder.Error()}},
		{
			name: "too large", filename: "big.png", content: append(append([]byte{}, pngHeader...), make([]byte, 1<<20)...),
			wantCode: http.StatusBadRequest, wantErr: map[string]string{"file": media.ErrTooLarge.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, newUploadRequest(t, token, tt.folder, tt.filename, tt.content))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != nil {
				assert.JSONEq(t, marshal(t, tt.wantErr), rec.Body.String())
				return
			}
			var up media.Upload
			decode(t, rec, &up)
			assert.True(t, strings.HasPrefix(up.URL, "https://cdn.khidmat.test/"), up.URL)
			assert.NotEmpty(t, up.ContentType)
		})
	}

	assert.Len(t, app.uploader.keys, 2)
	assert.True(t, strings.HasPrefix(app.uploader.keys[0], "services/"))
	assert.True(t, strings.HasPrefix(app.uploader.keys[1], "misc/"))
	assert.True(t, strings.HasSuffix(app.uploader.keys[1], ".svg"))
}

func TestToolsApi_translate(t *testing.T) {
	app := setup(t)
	_, token := app.editor(t)

	type translated struct {
		Lang     i18n.Lang `json:"lang"`
		Dir      i18n.Dir  `json:"dir"`
		Text     string    `json:"text"`
		Fallback bool      `json:"fallback"`
	}

	t.Run("chosen languages", func(t *testing.T) {
		app.tr.FailLangs = map[i18n.Lang]bool{i18n.Russian: true}
		defer func() { app.tr.FailLangs = nil }()

		body := map[string]interface{}{"text": "Book now", "targets": []string{"ar", "ru", "en"}}
		rec := app.do(http.MethodPost, "/api/admin/translate", token, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp []translated
		decode(t, rec, &resp)
		require.Len(t, resp, 2, "the source language is skipped")
		assert.Equal(t, translated{Lang: i18n.Arabic, Dir: i18n.RTL, Text: testutil.Translated("Book now", i18n.Arabic)}, resp[0])
		assert.Equal(t, translated{Lang: i18n.Russian, Dir: i18n.LTR, Text: "Book now", Fallback: true}, resp[1])
	})

	t.Run("every language by default", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/admin/translate", token, map[string]string{"text": "Book now"})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp []translated
		decode(t, rec, &resp)
		assert.Len(t, resp, len(i18n.Targets()))
	})

	t.Run("validation", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/admin/translate", token, map[string]interface{}{"text": "  ", "targets": []string{"xx"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"text"`)
	})
}

func TestToolsApi_reconcile(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	_, token := app.editor(t)

	app.tr.FailOn = map[string]bool{"Deep Cleaning": true, "Do you work weekends?": true}
	src, _, err := app.offerings.Create(ctx, offering.NewOffering{Title: "Deep Cleaning"}, true)
	require.NoError(t, err)
	_, _, err = app.faqs.Create(ctx, faq.NewFAQ{Question: "Do you work weekends?", Answer: "Yes."}, true)
	require.NoError(t, err)

	// cache the fallback
	rec := app.do(http.MethodGet, "/api/fr/services/"+src.Slug, "", nil)
	var public localized[offering.Localized]
	decode(t, rec, &public)
	assert.Equal(t, translation.StateFallback, public.Data.State)

	app.tr.FailOn = nil
	rec = app.do(http.MethodPost, "/api/admin/translations/reconcile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report translation.ReconcileReport
	decode(t, rec, &report)
	assert.Equal(t, 2*len(i18n.Targets()), report.Fixed)
	assert.Zero(t, report.Pending)

	rec = app.do(http.MethodGet, "/api/fr/services/"+src.Slug, "", nil)
	decode(t, rec, &public)
	assert.Equal(t, testutil.Translated("Deep Cleaning", i18n.French), public.Data.Title, "the cache was invalidated")
}
