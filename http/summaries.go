package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h handler) CampaignSummary(c echo.Context) error {
	w, err := parseWindow(c)
	if err != nil {
		return err
	}

	summary, err := h.ledger.CampaignSummary(c.Request().Context(), c.Param("campaign_id"), w)
	if err != nil {
		return ledgerError(err)
	}

	return c.JSON(http.StatusOK, summary)
}

func (h handler) PlatformSummary(c echo.Context) error {
	w, err := parseWindow(c)
	if err != nil {
		return err
	}

	summary, err := h.ledger.PlatformSummary(c.Request().Context(), w)
	if err != nil {
		return ledgerError(err)
	}

	return c.JSON(http.StatusOK, summary)
}
