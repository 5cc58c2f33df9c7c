package api

import (
	"context"
	"net/http"
	"time"

	"RelVal/internal/domain/models"
	"RelVal/internal/usecase"
	xhttp "RelVal/pkg/http"
	xlogger "RelVal/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	maxStreamPairs = 200
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream upgrades to a websocket and sends one ScanItem per finished pair,
// then a normal close frame. The scan stops when the client goes away.
func (h *PairsEchoHandler) Stream(c echo.Context) error {
	var q models.StreamQuery
	if errs := xhttp.ReadAndValidateRequest(c, &q); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	pairs, err := usecase.ParsePairs(q.Pairs)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	if len(pairs) > maxStreamPairs {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("at most %d pairs per stream", maxStreamPairs))
	}
	base, err := usecase.NewScanParams(q.RegressionLookback, q.OULookback, q.Threshold)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapError(err))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	// Reader loop: a client close or network error cancels the scan.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sent := 0
	for r := range h.scanner.Stream(ctx, pairs, base) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(r.Item()); err != nil {
			h.logger.Warn("websocket write failed", xlogger.Int("sent", sent), xlogger.Error(err))
			cancel()
			continue
		}
		sent++
	}

	h.logger.Info("scan stream finished", xlogger.Int("pairs", len(pairs)), xlogger.Int("sent", sent))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan complete"),
		time.Now().Add(writeWait))
	return nil
}
