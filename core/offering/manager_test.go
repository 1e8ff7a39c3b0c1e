package offering_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/translation"
	"github.com/trezcool/khidmat/storage/database/inmem"
	"github.com/trezcool/khidmat/tests"
)

func setup(t *testing.T) (*offering.Manager, *testutil.Translator) {
	t.Helper()
	validate, _ := testutil.NewValidator()
	tr := &testutil.Translator{}
	repo := inmemdb.NewOfferingRepository(inmemdb.NewDB())
	return offering.NewManager(repo, translation.NewFanout(tr, nil), validate), tr
}

func newCleaning() offering.NewOffering {
	return offering.NewOffering{
		Title:       "Deep Cleaning",
		Summary:     "Top to bottom",
		Description: "We clean everything.",
		Icon:        "broom",
		Position:    2,
	}
}

func TestManager_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("auto translated", func(t *testing.T) {
		mgr, _ := setup(t)
		src, report, err := mgr.Create(ctx, newCleaning(), true)
		require.NoError(t, err)

		assert.Equal(t, "deep-cleaning", src.Slug)
		assert.Equal(t, i18n.English, src.Lang)
		assert.Equal(t, translation.StateSource, src.State)
		assert.True(t, src.IsActive)
		assert.Len(t, report.Languages, len(i18n.Targets()))
		assert.Zero(t, report.FallbackCount())

		rows, err := mgr.Translations(ctx, src.Slug)
		require.NoError(t, err)
		require.Len(t, rows, len(i18n.All()))
		for _, r := range rows[1:] {
			assert.Equal(t, testutil.Translated("Deep Cleaning", r.Lang), r.Title)
			assert.Empty(t, r.MetaTitle, "blank fields are copied")
			assert.Equal(t, "broom", r.Icon)
			assert.Equal(t, translation.StateAuto, r.State)
		}
	})

	t.Run("partial failure falls back to english", func(t *testing.T) {
		mgr, tr := setup(t)
		tr.FailOn = map[string]bool{"Top to bottom": true}

		src, report, err := mgr.Create(ctx, newCleaning(), true)
		require.NoError(t, err, "translation failures are not persistence errors")
		assert.Equal(t, len(i18n.Targets()), report.FallbackCount())

		ar, err := mgr.Get(ctx, src.Slug, i18n.Arabic)
		require.NoError(t, err)
		assert.False(t, ar.FallbackUsed)
		assert.Equal(t, "Top to bottom", ar.Summary)
		assert.Equal(t, testutil.Translated("Deep Cleaning", i18n.Arabic), ar.Title)
		assert.Equal(t, translation.StateFallback, ar.State)

		pending, err := mgr.Pending(ctx)
		require.NoError(t, err)
		assert.Len(t, pending, len(i18n.Targets()))
	})

	t.Run("without translation", func(t *testing.T) {
		mgr, tr := setup(t)
		_, report, err := mgr.Create(ctx, newCleaning(), false)
		require.NoError(t, err)
		assert.Empty(t, report.Languages)
		assert.Zero(t, tr.Calls())
	})

	t.Run("duplicate slug", func(t *testing.T) {
		mgr, _ := setup(t)
		_, _, err := mgr.Create(ctx, newCleaning(), false)
		require.NoError(t, err)

		_, _, err = mgr.Create(ctx, newCleaning(), false)
		require.Error(t, err)
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "slug", vErr.Fields[0].Field)
	})

	t.Run("invalid", func(t *testing.T) {
		mgr, _ := setup(t)
		_, _, err := mgr.Create(ctx, offering.NewOffering{Title: "  ", Slug: "Bad Slug"}, false)
		require.Error(t, err)
		_, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
	})
}

func TestManager_Update(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setup(t)
	src, _, err := mgr.Create(ctx, newCleaning(), true)
	require.NoError(t, err)

	_, err = mgr.UpdateTranslation(ctx, src.Slug, i18n.French, offering.Translation{Title: "Nettoyage en profondeur"})
	require.NoError(t, err)

	title, pos := "Deep Home Cleaning", 7

	t.Run("keeps manual rows", func(t *testing.T) {
		updated, report, err := mgr.Update(ctx, src.Slug, offering.UpdateOffering{Title: &title, Position: &pos}, true, false)
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, src.Slug, updated.Slug)

		fr, ok := report.Lang(i18n.French)
		require.True(t, ok)
		assert.True(t, fr.Skipped)

		frRow, err := mgr.Get(ctx, src.Slug, i18n.French)
		require.NoError(t, err)
		assert.Equal(t, "Nettoyage en profondeur", frRow.Title)
		assert.Equal(t, pos, frRow.Position, "shared attributes follow the english row")

		ru, err := mgr.Get(ctx, src.Slug, i18n.Russian)
		require.NoError(t, err)
		assert.Equal(t, testutil.Translated(title, i18n.Russian), ru.Title)
	})

	t.Run("force overwrites manual rows", func(t *testing.T) {
		_, report, err := mgr.Update(ctx, src.Slug, offering.UpdateOffering{}, true, true)
		require.NoError(t, err)
		fr, _ := report.Lang(i18n.French)
		assert.False(t, fr.Skipped)

		frRow, err := mgr.Get(ctx, src.Slug, i18n.French)
		require.NoError(t, err)
		assert.Equal(t, testutil.Translated(title, i18n.French), frRow.Title)
		assert.Equal(t, translation.StateAuto, frRow.State)
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := mgr.Update(ctx, "nope", offering.UpdateOffering{}, false, false)
		assert.True(t, core.IsNotFound(err))
	})
}

func TestManager_UpdateTranslation(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setup(t)
	src, _, err := mgr.Create(ctx, newCleaning(), false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		slug    string
		lang    i18n.Lang
		tr      offering.Translation
		wantErr bool
	}{
		{name: "english is rejected", slug: src.Slug, lang: i18n.English, tr: offering.Translation{Title: "x"}, wantErr: true},
		{name: "unsupported language", slug: src.Slug, lang: "de", tr: offering.Translation{Title: "x"}, wantErr: true},
		{name: "blank title", slug: src.Slug, lang: i18n.Urdu, tr: offering.Translation{Title: " "}, wantErr: true},
		{name: "unknown service", slug: "nope", lang: i18n.Urdu, tr: offering.Translation{Title: "x"}, wantErr: true},
		{name: "creates the row", slug: src.Slug, lang: i18n.Urdu, tr: offering.Translation{Title: "گہری صفائی"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := mgr.UpdateTranslation(ctx, tt.slug, tt.lang, tt.tr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, translation.StateManual, row.State)
			assert.Equal(t, tt.tr.Title, row.Title)
			assert.Equal(t, src.Icon, row.Icon)
		})
	}
}

func TestManager_Reads(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setup(t)

	cleaning, _, err := mgr.Create(ctx, newCleaning(), false)
	require.NoError(t, err)
	pest, _, err := mgr.Create(ctx, offering.NewOffering{Title: "Pest Control", Position: 1}, true)
	require.NoError(t, err)
	inactive := false
	_, _, err = mgr.Create(ctx, offering.NewOffering{Title: "AC Repair", IsActive: &inactive}, true)
	require.NoError(t, err)

	t.Run("get falls back to english", func(t *testing.T) {
		got, err := mgr.Get(ctx, cleaning.Slug, i18n.Chinese)
		require.NoError(t, err)
		assert.True(t, got.FallbackUsed)
		assert.Equal(t, "Deep Cleaning", got.Title)
	})

	t.Run("inactive is hidden", func(t *testing.T) {
		_, err := mgr.Get(ctx, "ac-repair", i18n.English)
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("list", func(t *testing.T) {
		active := true
		list, err := mgr.List(ctx, i18n.Hindi, &offering.QueryFilter{IsActive: &active}, nil)
		require.NoError(t, err)
		require.Len(t, list, 2)

		assert.Equal(t, pest.Slug, list[0].Slug, "ordered by position")
		assert.False(t, list[0].FallbackUsed)
		assert.Equal(t, testutil.Translated("Pest Control", i18n.Hindi), list[0].Title)
		assert.True(t, list[1].FallbackUsed)
		assert.Equal(t, i18n.English, list[1].Lang)
	})

	t.Run("list ordering", func(t *testing.T) {
		list, err := mgr.List(ctx, i18n.English, nil, []core.DBOrdering{{Field: "title", Ascending: true}})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "AC Repair", list[0].Title)
	})
}

func TestManager_Retranslate(t *testing.T) {
	ctx := context.Background()
	mgr, tr := setup(t)
	tr.FailLangs = map[i18n.Lang]bool{i18n.Arabic: true}

	src, report, err := mgr.Create(ctx, newCleaning(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FallbackCount())

	pending, err := mgr.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, []translation.PendingRow{{Group: src.Slug, Lang: i18n.Arabic}}, pending)

	tr.FailLangs = nil
	lr, err := mgr.Retranslate(ctx, src.Slug, i18n.Arabic)
	require.NoError(t, err)
	assert.Equal(t, translation.StateAuto, lr.State)

	pending, err = mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = mgr.Retranslate(ctx, "nope", i18n.Arabic)
	assert.True(t, core.IsNotFound(err))
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	mgr, _ := setup(t)
	src, _, err := mgr.Create(ctx, newCleaning(), true)
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, src.Slug))
	_, err = mgr.Translations(ctx, src.Slug)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(mgr.Delete(ctx, src.Slug)))
}
