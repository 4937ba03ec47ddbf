package echoapi

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core/student"
)

const (
	studentCreatedMessage     = "Student created successfully"
	studentUpdatedMessage     = "Student updated successfully"
	studentDeactivatedMessage = "Student deactivated successfully"
	studentDeletedMessage     = "Student deleted successfully"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, authn, admin []echo.MiddlewareFunc, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students")
	sg.GET("", api.query, admin...)
	sg.POST("", api.create, admin...)
	sg.PATCH("", api.update, admin...)
	sg.DELETE("", api.destroy, admin...)

	// detail endpoint
	owner := append(authn[:len(authn):len(authn)], adminOrOwnerMiddleware("email"))
	sg.GET("/:email", api.retrieve, owner...)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	filter := student.Filter{
		Email:      ctx.QueryParam("email"),
		ActiveOnly: ctx.QueryParam("active") == "true",
	}
	students, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ok(ctx, http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	email, err := url.PathUnescape(ctx.Param("email"))
	if err != nil {
		return errHttpNotFound
	}
	st, err := api.svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		return errors.Wrap(err, "finding student by email")
	}
	return ok(ctx, http.StatusOK, st)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}

	st, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ok(ctx, http.StatusCreated, st, studentCreatedMessage)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	st, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ok(ctx, http.StatusOK, st, studentUpdatedMessage)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	soft, _ := strconv.ParseBool(ctx.QueryParam("softDelete"))

	st, err := api.svc.Delete(ctx.Request().Context(), ctx.QueryParam("id"), soft)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if soft {
		return ok(ctx, http.StatusOK, st, studentDeactivatedMessage)
	}
	return ok(ctx, http.StatusOK, nil, studentDeletedMessage)
}
