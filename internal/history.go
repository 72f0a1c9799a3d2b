package internal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	errHistoryDisabled = errors.New("caption history is not configured")
	errSearchDisabled  = errors.New("caption search is not configured")
)

func (a *App) ListHistory(c *gin.Context) {
	if a.History == nil {
		AbortWithJSON(c, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}

	who, _ := a.Identity.Identity(c)

	records, err := a.History.ListCaptions(c, who, historyLimit)
	if err != nil {
		AbortWithInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{Items: records})
}

func (a *App) SearchHistory(c *gin.Context) {
	if a.Search == nil {
		AbortWithJSON(c, http.StatusServiceUnavailable, errSearchDisabled)
		return
	}

	query := strings.ToLower(strings.TrimSpace(c.Query("q")))
	if query == "" {
		AbortWithJSON(c, http.StatusBadRequest, errors.New("query parameter q is required"))
		return
	}

	who, _ := a.Identity.Identity(c)

	resp, err := a.Search.Search(c, who, query)
	if err != nil {
		AbortWithInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// LiveHistory streams the caller's history over a websocket: once on connect
// and again whenever a caption of theirs is stored.
func (a *App) LiveHistory(c *gin.Context) {
	if a.History == nil {
		AbortWithJSON(c, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}

	who, _ := a.Identity.Identity(c)

	conn, err := a.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade to ws", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	err = a.History.Watch(ctx, who, func() error {
		records, err := a.History.ListCaptions(ctx, who, historyLimit)
		if err != nil {
			return err
		}
		return conn.WriteJSON(HistoryResponse{Items: records})
	})
	if err != nil && ctx.Err() == nil {
		a.HandleWebsocketError("Live history stopped", conn, err)
	}
}

func (a *App) HandleWebsocketError(msg string, conn *websocket.Conn, err error) {
	slog.Error(msg, slog.String("error", err.Error()))

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, msg))
}
