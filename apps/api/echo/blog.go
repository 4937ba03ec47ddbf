package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core/blog"
)

const postCreatedMessage = "Blog post created successfully"

type blogApi struct {
	svc *blog.Service
}

func registerBlogAPI(g *echo.Group, admin []echo.MiddlewareFunc, svc *blog.Service) {
	api := blogApi{svc: svc}

	bg := g.Group("/blog")
	bg.GET("", api.query)
	bg.GET("/:id", api.retrieve)
	bg.POST("", api.create, admin...)
}

// Handlers

func (api *blogApi) query(ctx echo.Context) error {
	posts, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying blog posts")
	}
	if posts == nil {
		posts = []blog.Post{}
	}
	return ok(ctx, http.StatusOK, posts)
}

func (api *blogApi) retrieve(ctx echo.Context) error {
	post, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting blog post")
	}
	return ok(ctx, http.StatusOK, post)
}

func (api *blogApi) create(ctx echo.Context) error {
	var data blog.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}

	post, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating blog post")
	}
	return ok(ctx, http.StatusCreated, post, postCreatedMessage)
}
