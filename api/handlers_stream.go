package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"agripress/config"
	"agripress/db"
	"agripress/models"
	"agripress/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Token auth already ran; the socket carries no cookies worth guarding.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	streamWriteWait = 10 * time.Second
	streamPingEvery = 30 * time.Second
)

// StreamCollectionHandler upgrades the request to a websocket and streams
// collection snapshots: the full current state immediately on connect, then
// the full new state after every write to that collection. Optional
// `sort_by` and `order` query parameters sort each snapshot before delivery.
// The subscription lasts until the client disconnects.
// @Summary      Stream Collection Snapshots (Admin)
// @Description  Websocket endpoint. Each message is the complete JSON array of the collection,
// @Description  sent once on connect and again after every change.
// @Tags         Admin
// @Security     BearerAuth
// @Param        collection path  string true  "Collection name, e.g. 'articles'."
// @Param        sort_by    query string false "Field path to sort snapshots by."
// @Param        order      query string false "Sort direction." Enums(asc, desc) default(asc)
// @Success      101  "Switching Protocols."
// @Failure      404  {object}  utils.APIError "Not Found: unknown collection."
// @Router       /ws/{collection} [get]
func StreamCollectionHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	collection := c.Param("collection")
	if !models.IsKnownCollection(collection) {
		utils.GinNotFound(c, fmt.Sprintf("Collection '%s' not found.", collection))
		return
	}
	sortBy := c.Query("sort_by")
	descending := c.Query("order") == "desc"

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.Printf("WARN: Websocket upgrade failed for '%s': %v", collection, err)
		return
	}

	// Snapshots are queued so a slow client never blocks the publishing
	// write path. A full queue drops the oldest snapshot; the client only
	// ever needs the latest state anyway.
	snapshots := make(chan json.RawMessage, 8)
	push := func(snapshot json.RawMessage) {
		for {
			select {
			case snapshots <- snapshot:
				return
			default:
				select {
				case <-snapshots:
				default:
				}
			}
		}
	}

	var unsubscribe func()
	if sortBy != "" {
		unsubscribe = store.SubscribeSorted(collection, sortBy, descending, push)
	} else {
		unsubscribe = store.Subscribe(collection, push)
	}

	done := make(chan struct{})

	// Reader: we expect no client messages, but reads drive close and pong
	// handling.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingEvery)
	defer func() {
		ticker.Stop()
		unsubscribe()
		conn.Close()
	}()

	log.Printf("INFO: Streaming collection '%s' to %s", collection, conn.RemoteAddr())
	for {
		select {
		case snapshot := <-snapshots:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
				log.Printf("INFO: Stream for '%s' closed: %v", collection, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
