package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core/blog"
	"github.com/trezcool/khidmat/core/contact"
	"github.com/trezcool/khidmat/core/review"
)

type submissionsApi struct {
	*Server
}

func registerSubmissionsAdminAPI(g *echo.Group, s *Server) {
	api := submissionsApi{Server: s}

	cg := g.Group("/comments")
	cg.GET("", api.listComments)
	cg.DELETE("", api.deleteComments)
	cg.GET("/:id", api.getComment)
	cg.PUT("/:id/approve", api.approveComment)
	cg.DELETE("/:id", api.deleteComment)

	rg := g.Group("/reviews")
	rg.GET("", api.listReviews)
	rg.POST("", api.createReview)
	rg.DELETE("", api.deleteReviews)
	rg.GET("/:id", api.getReview)
	rg.PUT("/:id", api.updateReview)
	rg.PUT("/:id/approve", api.approveReview)
	rg.DELETE("/:id", api.deleteReview)

	ctg := g.Group("/contacts")
	ctg.GET("", api.listContacts)
	ctg.DELETE("", api.deleteContacts)
	ctg.GET("/:id", api.getContact)
	ctg.PUT("/:id/read", api.markContactRead)
	ctg.DELETE("/:id", api.deleteContact)
}

type (
	ApproveRequest struct {
		Approved *bool `json:"approved"`
	}

	ReadRequest struct {
		Read *bool `json:"read"`
	}
)

// approved defaults to true when the body omits it.
func (r ApproveRequest) approved() bool { return r.Approved == nil || *r.Approved }

func (r ReadRequest) read() bool { return r.Read == nil || *r.Read }

// Comments

func (api submissionsApi) listComments(ctx echo.Context) error {
	filter := new(blog.CommentFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []blog.Comment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "created_at", "name", "blog_slug")

	comments, err := api.deps.Blogs.QueryComments(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying comments")
	}
	if comments == nil {
		comments = []blog.Comment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api submissionsApi) getComment(ctx echo.Context) error {
	c, err := api.deps.Blogs.GetComment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api submissionsApi) approveComment(ctx echo.Context) error {
	var data ApproveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveRequest")
	}
	c, err := api.deps.Blogs.ApproveComment(ctx.Request().Context(), ctx.Param("id"), data.approved())
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsComments)
	return ctx.JSON(http.StatusOK, c)
}

func (api submissionsApi) deleteComment(ctx echo.Context) error {
	if err := api.deps.Blogs.DeleteComments(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	api.invalidate(ctx, nsComments)
	return ctx.NoContent(http.StatusNoContent)
}

func (api submissionsApi) deleteComments(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.deps.Blogs.DeleteComments(ctx.Request().Context(), query.IDs...); err != nil {
		return err
	}
	api.invalidate(ctx, nsComments)
	return ctx.NoContent(http.StatusNoContent)
}

// Reviews

func (api submissionsApi) listReviews(ctx echo.Context) error {
	filter := new(review.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []review.Review{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "created_at", "rating", "name")

	reviews, err := api.deps.Reviews.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api submissionsApi) createReview(ctx echo.Context) error {
	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	rev, err := api.deps.Reviews.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsReviews)
	return ctx.JSON(http.StatusCreated, rev)
}

func (api submissionsApi) getReview(ctx echo.Context) error {
	rev, err := api.deps.Reviews.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api submissionsApi) updateReview(ctx echo.Context) error {
	var data review.UpdateReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReview")
	}
	rev, err := api.deps.Reviews.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsReviews)
	return ctx.JSON(http.StatusOK, rev)
}

func (api submissionsApi) approveReview(ctx echo.Context) error {
	var data ApproveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveRequest")
	}
	rev, err := api.deps.Reviews.SetApproved(ctx.Request().Context(), ctx.Param("id"), data.approved())
	if err != nil {
		return err
	}
	api.invalidate(ctx, nsReviews)
	return ctx.JSON(http.StatusOK, rev)
}

func (api submissionsApi) deleteReview(ctx echo.Context) error {
	if err := api.deps.Reviews.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	api.invalidate(ctx, nsReviews)
	return ctx.NoContent(http.StatusNoContent)
}

func (api submissionsApi) deleteReviews(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.deps.Reviews.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return err
	}
	api.invalidate(ctx, nsReviews)
	return ctx.NoContent(http.StatusNoContent)
}

// Contact submissions

func (api submissionsApi) listContacts(ctx echo.Context) error {
	filter := new(contact.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []contact.Submission{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, "created_at", "name", "email")

	subs, err := api.deps.Contacts.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying contact submissions")
	}
	if subs == nil {
		subs = []contact.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api submissionsApi) getContact(ctx echo.Context) error {
	sub, err := api.deps.Contacts.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api submissionsApi) markContactRead(ctx echo.Context) error {
	var data ReadRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReadRequest")
	}
	sub, err := api.deps.Contacts.MarkRead(ctx.Request().Context(), ctx.Param("id"), data.read())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api submissionsApi) deleteContact(ctx echo.Context) error {
	if err := api.deps.Contacts.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api submissionsApi) deleteContacts(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.deps.Contacts.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
