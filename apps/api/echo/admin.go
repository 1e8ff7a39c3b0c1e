package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/page"
	"github.com/trezcool/khidmat/core/translation"
)

type contentApi struct {
	*Server
}

func registerContentAdminAPI(g *echo.Group, s *Server) {
	api := contentApi{Server: s}

	sg := g.Group("/services")
	sg.GET("", api.listServices)
	sg.POST("", api.createService)
	sg.GET("/:slug", api.serviceTranslations)
	sg.PUT("/:slug", api.updateService)
	sg.DELETE("/:slug", api.deleteService)
	sg.PUT("/:slug/translations/:lang", api.translateService)
	sg.POST("/:slug/translations/:lang/retranslate", api.retranslate(s.deps.Offerings, "slug", nsServices))

	bg := g.Group("/blogs")
	bg.GET("", api.listBlogs)
	bg.POST("", api.createBlog)
	bg.GET("/:slug", api.blogTranslations)
	bg.PUT("/:slug", api.updateBlog)
	bg.DELETE("/:slug", api.deleteBlog)
	bg.PUT("/:slug/translations/:lang", api.translateBlog)
	bg.POST("/:slug/translations/:lang/retranslate", api.retranslate(s.deps.Blogs, "slug", nsBlogs))

	fg := g.Group("/faqs")
	fg.GET("", api.listFAQs)
	fg.POST("", api.createFAQ)
	fg.GET("/:group", api.faqTranslations)
	fg.PUT("/:group", api.updateFAQ)
	fg.DELETE("/:group", api.deleteFAQ)
	fg.PUT("/:group/translations/:lang", api.translateFAQ)
	fg.POST("/:group/translations/:lang/retranslate", api.retranslate(s.deps.FAQs, "group", nsFAQs))

	ag := g.Group("/about")
	ag.GET("", api.aboutTranslations)
	ag.PUT("", api.updateAbout)
	ag.PUT("/translations/:lang", api.translateAbout)
	ag.POST("/translations/:lang/retranslate", api.retranslate(s.deps.About, "", nsAbout))

	stg := g.Group("/statistics")
	stg.GET("", api.listStatistics)
	stg.POST("", api.createStatistic)
	stg.GET("/:group", api.statisticTranslations)
	stg.PUT("/:group", api.updateStatistic)
	stg.DELETE("/:group", api.deleteStatistic)
	stg.PUT("/:group/translations/:lang", api.translateStatistic)
	stg.POST("/:group/translations/:lang/retranslate", api.retranslate(s.deps.Statistics, "group", nsStatistics))

	registerSubmissionsAdminAPI(g, s)
	registerToolsAdminAPI(g, s)
}

func writeResponse(data interface{}, report translation.Report) WriteResponse {
	resp := WriteResponse{Data: data}
	if len(report.Languages) > 0 {
		resp.Report = report
	}
	return resp
}

// written answers a create or update. After a *translation.SyncError the record is
// saved, so it is returned with the report where the failed languages carry their error.
func (api contentApi) written(ctx echo.Context, code int, namespace string, data interface{}, report translation.Report, err error) error {
	if err != nil {
		if !translation.IsSyncError(err) {
			return err
		}
		api.deps.Logger.Error("saving translations", err, map[string]interface{}{"namespace": namespace})
	}
	api.invalidate(ctx, namespace)
	return ctx.JSON(code, writeResponse(data, report))
}

// queryLang is the `?lang=` of the admin listings, English by default.
func queryLang(ctx echo.Context) i18n.Lang {
	if lang, err := i18n.Parse(ctx.QueryParam(i18n.Param)); err == nil {
		return lang
	}
	return i18n.Default
}

type retranslator interface {
	Retranslate(ctx context.Context, group string, lang i18n.Lang) (translation.LangReport, error)
}

// retranslate machine translates one language row again; manual rows are left untouched.
func (api contentApi) retranslate(src retranslator, groupParam, namespace string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		lang, err := pathLang(ctx)
		if err != nil {
			return err
		}
		if err = translation.CheckTarget(lang, i18n.Default); err != nil {
			return err
		}
		var group string
		if groupParam != "" {
			group = ctx.Param(groupParam)
		}
		report, err := src.Retranslate(ctx.Request().Context(), group, lang)
		if err != nil {
			return err
		}
		api.invalidate(ctx, namespace)
		return ctx.JSON(http.StatusOK, report)
	}
}

// Services

func (api contentApi) listServices(ctx echo.Context) error {
	filter := new(offering.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []offering.Localized{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "position", "title", "created_at", "updated_at")

	list, err := api.deps.Offerings.List(ctx.Request().Context(), queryLang(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing services")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api contentApi) createService(ctx echo.Context) error {
	var data offering.NewOffering
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOffering")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	o, report, err := api.deps.Offerings.Create(ctx.Request().Context(), data, flags.AutoTranslate)
	return api.written(ctx, http.StatusCreated, nsServices, o, report, err)
}

func (api contentApi) serviceTranslations(ctx echo.Context) error {
	rows, err := api.deps.Offerings.Translations(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api contentApi) updateService(ctx echo.Context) error {
	var data offering.UpdateOffering
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOffering")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	o, report, err := api.deps.Offerings.Update(ctx.Request().Context(), ctx.Param("slug"), data, flags.AutoTranslate, flags.Force)
	return api.written(ctx, http.StatusOK, nsServices, o, report, err)
}

func (api contentApi) translateService(ctx echo.Context) error {
	lang, err := pathLang(ctx)
	if err != nil {
		return err
	}
	var data offering.Translation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Translation")
	}
	o, err := api.deps.Offerings.UpdateTranslation(ctx.Request().Context(), ctx.Param("slug"), lang, data)
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsServices)
	return ctx.JSON(http.StatusOK, o)
}

func (api contentApi) deleteService(ctx echo.Context) error {
	if err := api.deps.Offerings.Delete(ctx.Request().Context(), ctx.Param("slug")); err != nil {
		return err
	}
	api.invalidate(ctx, nsServices)
	return ctx.NoContent(http.StatusNoContent)
}

// Blogs

func (api contentApi) listBlogs(ctx echo.Context) error {
	filter := new(blog.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []blog.Localized{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "published_at", "title", "created_at", "updated_at")

	list, err := api.deps.Blogs.List(ctx.Request().Context(), queryLang(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing blogs")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api contentApi) createBlog(ctx echo.Context) error {
	var data blog.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	p, report, err := api.deps.Blogs.Create(ctx.Request().Context(), data, flags.AutoTranslate)
	return api.written(ctx, http.StatusCreated, nsBlogs, p, report, err)
}

func (api contentApi) blogTranslations(ctx echo.Context) error {
	rows, err := api.deps.Blogs.Translations(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api contentApi) updateBlog(ctx echo.Context) error {
	var data blog.UpdatePost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePost")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	p, report, err := api.deps.Blogs.Update(ctx.Request().Context(), ctx.Param("slug"), data, flags.AutoTranslate, flags.Force)
	return api.written(ctx, http.StatusOK, nsBlogs, p, report, err)
}

func (api contentApi) translateBlog(ctx echo.Context) error {
	lang, err := pathLang(ctx)
	if err != nil {
		return err
	}
	var data blog.Translation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Translation")
	}
	p, err := api.deps.Blogs.UpdateTranslation(ctx.Request().Context(), ctx.Param("slug"), lang, data)
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsBlogs)
	return ctx.JSON(http.StatusOK, p)
}

func (api contentApi) deleteBlog(ctx echo.Context) error {
	if err := api.deps.Blogs.Delete(ctx.Request().Context(), ctx.Param("slug")); err != nil {
		return err
	}
	api.invalidate(ctx, nsBlogs, nsComments)
	return ctx.NoContent(http.StatusNoContent)
}

// FAQs

func (api contentApi) listFAQs(ctx echo.Context) error {
	filter := new(faq.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []faq.Localized{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "position", "created_at")

	list, err := api.deps.FAQs.List(ctx.Request().Context(), queryLang(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing faqs")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api contentApi) createFAQ(ctx echo.Context) error {
	var data faq.NewFAQ
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFAQ")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	f, report, err := api.deps.FAQs.Create(ctx.Request().Context(), data, flags.AutoTranslate)
	return api.written(ctx, http.StatusCreated, nsFAQs, f, report, err)
}

func (api contentApi) faqTranslations(ctx echo.Context) error {
	rows, err := api.deps.FAQs.Translations(ctx.Request().Context(), ctx.Param("group"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api contentApi) updateFAQ(ctx echo.Context) error {
	var data faq.UpdateFAQ
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFAQ")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	f, report, err := api.deps.FAQs.Update(ctx.Request().Context(), ctx.Param("group"), data, flags.AutoTranslate, flags.Force)
	return api.written(ctx, http.StatusOK, nsFAQs, f, report, err)
}

func (api contentApi) translateFAQ(ctx echo.Context) error {
	lang, err := pathLang(ctx)
	if err != nil {
		return err
	}
	var data faq.Translation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Translation")
	}
	f, err := api.deps.FAQs.UpdateTranslation(ctx.Request().Context(), ctx.Param("group"), lang, data)
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsFAQs)
	return ctx.JSON(http.StatusOK, f)
}

func (api contentApi) deleteFAQ(ctx echo.Context) error {
	if err := api.deps.FAQs.Delete(ctx.Request().Context(), ctx.Param("group")); err != nil {
		return err
	}
	api.invalidate(ctx, nsFAQs)
	return ctx.NoContent(http.StatusNoContent)
}

// About

func (api contentApi) aboutTranslations(ctx echo.Context) error {
	rows, err := api.deps.About.Translations(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api contentApi) updateAbout(ctx echo.Context) error {
	var data page.UpdateAbout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAbout")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	a, report, err := api.deps.About.Update(ctx.Request().Context(), data, flags.AutoTranslate, flags.Force)
	return api.written(ctx, http.StatusOK, nsAbout, a, report, err)
}

func (api contentApi) translateAbout(ctx echo.Context) error {
	lang, err := pathLang(ctx)
	if err != nil {
		return err
	}
	var data page.AboutTranslation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AboutTranslation")
	}
	a, err := api.deps.About.UpdateTranslation(ctx.Request().Context(), lang, data)
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsAbout)
	return ctx.JSON(http.StatusOK, a)
}

// Statistics

func (api contentApi) listStatistics(ctx echo.Context) error {
	list, err := api.deps.Statistics.List(ctx.Request().Context(), queryLang(ctx))
	if err != nil {
		return errors.Wrap(err, "listing statistics")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api contentApi) createStatistic(ctx echo.Context) error {
	var data page.NewStatistic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStatistic")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	st, report, err := api.deps.Statistics.Create(ctx.Request().Context(), data, flags.AutoTranslate)
	return api.written(ctx, http.StatusCreated, nsStatistics, st, report, err)
}

func (api contentApi) statisticTranslations(ctx echo.Context) error {
	rows, err := api.deps.Statistics.Translations(ctx.Request().Context(), ctx.Param("group"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api contentApi) updateStatistic(ctx echo.Context) error {
	var data page.UpdateStatistic
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatistic")
	}
	var flags TranslateFlags
	flags.Bind(ctx)

	st, report, err := api.deps.Statistics.Update(ctx.Request().Context(), ctx.Param("group"), data, flags.AutoTranslate, flags.Force)
	return api.written(ctx, http.StatusOK, nsStatistics, st, report, err)
}

func (api contentApi) translateStatistic(ctx echo.Context) error {
	lang, err := pathLang(ctx)
	if err != nil {
		return err
	}
	var data page.StatisticTranslation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatisticTranslation")
	}
	st, err := api.deps.Statistics.UpdateTranslation(ctx.Request().Context(), ctx.Param("group"), lang, data)
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsStatistics)
	return ctx.JSON(http.StatusOK, st)
}

func (api contentApi) deleteStatistic(ctx echo.Context) error {
	if err := api.deps.Statistics.Delete(ctx.Request().Context(), ctx.Param("group")); err != nil {
		return err
	}
	api.invalidate(ctx, nsStatistics)
	return ctx.NoContent(http.StatusNoContent)
}
