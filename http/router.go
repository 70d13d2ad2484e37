package http

import (
	"net/http"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ErrServerClosed = http.ErrServerClosed

// NewRouter serves the ledger over HTTP. commandSender may be nil, in which
// case requests asking for asynchronous processing are rejected.
func NewRouter(ledger Ledger, commandSender CommandSender) *echo.Echo {
	server := commonHTTP.NewEcho()
	server.HTTPErrorHandler = handleError

	server.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	server.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler := handler{
		ledger:        ledger,
		commandSender: commandSender,
	}

	server.POST("/trips", handler.CreateTrip)
	server.GET("/trips/:trip_id", handler.GetTrip)

	server.POST("/bookings", handler.CreateBooking)
	server.GET("/bookings", handler.ListBookings)
	server.GET("/bookings/:booking_id", handler.GetBooking)
	server.POST("/bookings/:booking_id/confirm", handler.ConfirmBooking)
	server.POST("/bookings/:booking_id/payments", handler.RecordPayment)
	server.POST("/bookings/:booking_id/advance", handler.AdvanceBooking)
	server.POST("/bookings/:booking_id/cancel", handler.CancelBooking)
	server.POST("/bookings/:booking_id/refund", handler.RefundBooking)
	server.PUT("/bookings/:booking_id/schedule", handler.ScheduleInstallments)
	server.GET("/bookings/:booking_id/schedule", handler.GetSchedule)
	server.POST("/bookings/:booking_id/installments/:index/paid", handler.MarkInstallmentPaid)
	server.GET("/bookings/:booking_id/disputes", handler.ListBookingDisputes)
	server.GET("/bookings/:booking_id/audit", handler.BookingAuditTrail)

	server.POST("/disputes", handler.OpenDispute)
	server.GET("/disputes/:dispute_id", handler.GetDispute)
	server.POST("/disputes/:dispute_id/transition", handler.TransitionDispute)
	server.GET("/disputes/:dispute_id/audit", handler.DisputeAuditTrail)

	server.GET("/campaigns/:campaign_id/summary", handler.CampaignSummary)
	server.GET("/summary", handler.PlatformSummary)

	return server
}

// handleError writes one error body per response. The body dump middleware
// hands every error to the error handler and returns it as well.
func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	commonHTTP.HandleError(err, c)
}
