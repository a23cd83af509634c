package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/vote"
)

type questionApi struct {
	svc *question.Service
}

// ListResponse is the body of the history listings.
type ListResponse struct {
	Success   bool            `json:"success"`
	Questions []question.View `json:"questions"`
	Count     int             `json:"count"`
}

func registerQuestionAPI(g *echo.Group, svc *question.Service) {
	api := questionApi{svc: svc}

	g.POST("/question", api.ask)

	qg := g.Group("/questions")
	qg.GET("/my", api.listMine)
	qg.GET("/community", api.listCommunity)
	qg.GET("/featured", api.listFeatured)
	qg.POST("/:id/upvote", api.vote(vote.Up))
	qg.POST("/:id/downvote", api.vote(vote.Down))
}

// Handlers

func (api *questionApi) ask(ctx echo.Context) error {
	var data question.AskRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}

	id := contextIdentity(ctx)
	res, err := api.svc.Ask(ctx.Request().Context(), data, id.UID)
	if err != nil {
		return errors.Wrap(err, "asking question")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *questionApi) vote(d vote.Direction) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id := contextIdentity(ctx)
		res, err := api.svc.Vote(ctx.Request().Context(), ctx.Param("id"), id.UID, d)
		if err != nil {
			return errors.Wrapf(err, "voting %s", d)
		}
		return ctx.JSON(http.StatusOK, res)
	}
}

func (api *questionApi) list(ctx echo.Context, scope question.Scope) error {
	var data question.ListRequest
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	var (
		views  []question.View
		err    error
		reqCtx = ctx.Request().Context()
		viewer = contextIdentity(ctx).UID
	)
	switch scope {
	case question.ScopeMine:
		views, err = api.svc.Mine(reqCtx, viewer, data)
	case question.ScopeCommunity:
		views, err = api.svc.Community(reqCtx, viewer, data)
	default:
		views, err = api.svc.Featured(reqCtx, viewer, data)
	}
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	return ctx.JSON(http.StatusOK, ListResponse{Success: true, Questions: views, Count: len(views)})
}

func (api *questionApi) listMine(ctx echo.Context) error {
	return api.list(ctx, question.ScopeMine)
}

func (api *questionApi) listCommunity(ctx echo.Context) error {
	return api.list(ctx, question.ScopeCommunity)
}

func (api *questionApi) listFeatured(ctx echo.Context) error {
	return api.list(ctx, question.ScopeFeatured)
}
