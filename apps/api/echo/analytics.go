package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core/analytics"
)

type analyticsApi struct {
	svc *analytics.Service
}

func registerAnalyticsAPI(g *echo.Group, svc *analytics.Service) {
	api := analyticsApi{svc: svc}

	g.GET("/usage-trends", api.usageTrends)
	g.GET("/system-dashboard", api.systemDashboard)
}

// Handlers

func (api *analyticsApi) usageTrends(ctx echo.Context) error {
	var data analytics.Request
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	trends, err := api.svc.UsageTrends(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "computing usage trends")
	}
	return ctx.JSON(http.StatusOK, trends)
}

func (api *analyticsApi) systemDashboard(ctx echo.Context) error {
	var data analytics.Request
	if err := bindQuery(ctx, &data); err != nil {
		return err
	}

	dash, err := api.svc.SystemDashboard(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "computing system dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
