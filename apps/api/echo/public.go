package echoapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/faq"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/offering"
	"github.com/trezcool/khidmat/core/review"
)

// Cache namespaces, one per entity.
const (
	nsServices   = "services"
	nsBlogs      = "blogs"
	nsComments   = "comments"
	nsFAQs       = "faqs"
	nsAbout      = "about"
	nsStatistics = "statistics"
	nsReviews    = "reviews"
)

type publicApi struct {
	*Server
}

func registerPublicAPI(g *echo.Group, s *Server) {
	api := publicApi{Server: s}
	forms := s.limiter.middleware

	g.GET("/services", api.listServices)
	g.GET("/services/:slug", api.getService)
	g.GET("/blogs", api.listBlogs)
	g.GET("/blogs/:slug", api.getBlog)
	g.GET("/blogs/:slug/comments", api.listComments)
	g.POST("/blogs/:slug/comments", api.addComment, forms)
	g.GET("/faqs", api.listFAQs)
	g.GET("/about", api.getAbout)
	g.GET("/statistics", api.listStatistics)
	g.GET("/reviews", api.listReviews)
	g.POST("/reviews", api.submitReview, forms)
	g.POST("/contact", api.submitContact, forms)
	g.GET("/i18n", api.dictionary)
}

// cached serves the public reads from the cache, loading and storing them on a miss.
// Errors are never cached.
func (s *Server) cached(ctx echo.Context, namespace string, load func(lang i18n.Lang) (interface{}, error)) error {
	lang := contextLang(ctx)
	reqCtx := ctx.Request().Context()
	key := ctx.Request().URL.RequestURI()

	if s.deps.Cache != nil {
		data, hit, err := s.deps.Cache.Get(reqCtx, namespace, key)
		if err != nil {
			s.deps.Logger.Warn("reading cache", err, map[string]interface{}{"namespace": namespace})
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.CacheLookup(namespace, hit)
		}
		if hit {
			return ctx.JSONBlob(http.StatusOK, data)
		}
	}

	v, err := load(lang)
	if err != nil {
		return err
	}
	data, err := json.Marshal(LocalizedResponse{Lang: lang, Dir: lang.Direction(), Data: v})
	if err != nil {
		return errors.Wrap(err, "encoding response")
	}

	if s.deps.Cache != nil {
		if err = s.deps.Cache.Set(reqCtx, namespace, key, data, s.deps.Conf.Server.CacheTTL); err != nil {
			s.deps.Logger.Warn("writing cache", err, map[string]interface{}{"namespace": namespace})
		}
	}
	return ctx.JSONBlob(http.StatusOK, data)
}

// invalidate drops the cached public reads after an admin write.
func (s *Server) invalidate(ctx echo.Context, namespaces ...string) {
	s.invalidateNamespaces(ctx.Request().Context(), namespaces)
}

// invalidateNamespaces is also called after the reconcile passes that fixed rows;
// reconciler sources are named after their cache namespace.
func (s *Server) invalidateNamespaces(ctx context.Context, namespaces []string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Invalidate(ctx, namespaces...); err != nil {
		s.deps.Logger.Error("invalidating cache", err, map[string]interface{}{"namespaces": namespaces})
	}
}

func (api publicApi) listServices(ctx echo.Context) error {
	filter := new(offering.QueryFilter)
	_ = ctx.Bind(filter)
	active := true
	filter.IsActive = &active
	ordering := new(Ordering)
	ordering.Bind(ctx, "position", "title")

	return api.cached(ctx, nsServices, func(lang i18n.Lang) (interface{}, error) {
		return api.deps.Offerings.List(ctx.Request().Context(), lang, filter, ordering.Orderings)
	})
}

func (api publicApi) getService(ctx echo.Context) error {
	return api.cached(ctx, nsServices, func(lang i18n.Lang) (interface{}, error) {
		return api.deps.Offerings.Get(ctx.Request().Context(), ctx.Param("slug"), lang)
	})
}

func (api publicApi) listBlogs(ctx echo.Context) error {
	filter := new(blog.QueryFilter)
	_ = ctx.Bind(filter)
	published := true
	filter.IsPublished = &published
	ordering := new(Ordering)
	ordering.Bind(ctx, "published_at", "title")

	return api.cached(ctx, nsBlogs, func(lang i18n.Lang) (interface{}, error) {
		return api.deps.Blogs.List(ctx.Request().Context(), lang, filter, ordering.Orderings)
	})
}

func (api publicApi) getBlog(ctx echo.Context) error {
	return api.cached(ctx, nsBlogs, func(lang i18n.Lang) (interface{}, error) {
		return api.deps.Blogs.Get(ctx.Request().Context(), ctx.Param("slug"), lang)
	})
}

func (api publicApi) listComments(ctx echo.Context) error {
	return api.cached(ctx, nsComments, func(i18n.Lang) (interface{}, error) {
		return api.deps.Blogs.PublicComments(ctx.Request().Context(), ctx.Param("slug"))
	})
}

func (api publicApi) addComment(ctx echo.Context) error {
	var data blog.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	c, err := api.deps.Blogs.AddComment(ctx.Request().Context(), ctx.Param("slug"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c.Public())
}

func (api publicApi) listFAQs(ctx echo.Context) error {
	active := true
	return api.cached(ctx, nsFAQs, func(lang i18n.Lang) (interface{}, error) {
		return api.deps.FAQs.List(ctx.Request().Context(), lang, &faq.QueryFilter{IsActive: &active}, nil)
	})
}

func (api publicApi) getAbout(ctx echo.Context) error {
	return api.cached(ctx, nsAbout, func(lang i18n.Lang) (interface{}, error) {
		return api.deps.About.Get(ctx.Request().Context(), lang)
	})
}

func (api publicApi) listStatistics(ctx echo.Context) error {
	return api.cached(ctx, nsStatistics, func(lang i18n.Lang) (interface{}, error) {
		return api.deps.Statistics.List(ctx.Request().Context(), lang)
	})
}

// listReviews shows the approved reviews of every language unless `?only_lang=true`.
func (api publicApi) listReviews(ctx echo.Context) error {
	onlyLang := queryBool(ctx, "only_lang", false)
	return api.cached(ctx, nsReviews, func(lang i18n.Lang) (interface{}, error) {
		if !onlyLang {
			lang = ""
		}
		return api.deps.Reviews.Approved(ctx.Request().Context(), lang)
	})
}

func (api publicApi) submitReview(ctx echo.Context) error {
	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if data.Lang == "" {
		data.Lang = contextLang(ctx)
	}
	rev, err := api.deps.Reviews.Submit(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api publicApi) submitContact(ctx echo.Context) error {
	var data contact.NewSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if data.Lang == "" {
		data.Lang = contextLang(ctx)
	}
	if _, err := api.deps.Contacts.Submit(ctx.Request().Context(), data); err != nil {
		return err
	}
	msg := "Thank you, we will get back to you shortly."
	if api.deps.Dictionary != nil {
		msg = api.deps.Dictionary.T(contextLang(ctx), "contact.success")
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: msg})
}

func (api publicApi) dictionary(ctx echo.Context) error {
	lang := contextLang(ctx)
	var entries map[string]string
	if api.deps.Dictionary != nil {
		entries = api.deps.Dictionary.All(lang)
	}
	return ctx.JSON(http.StatusOK, LocalizedResponse{Lang: lang, Dir: lang.Direction(), Data: entries})
}
