package lib

import (
	"log"

	"github.com/zishang520/socket.io/v2/socket"
)

var socketServer *socket.Server

// NewSocketServer registers the server instance created in main so other
// packages can emit to it.
func NewSocketServer(s *socket.Server) {
	socketServer = s
}

func GetSocketServer() *socket.Server {
	return socketServer
}

// EmitNotification pushes a payload to a user's notification room. Users join
// the room named by their uid on connection. No-op when the socket server is
// not running (tests, worker-only processes).
func EmitNotification(uid string, payload any) {
	if socketServer == nil || uid == "" {
		return
	}
	if err := socketServer.Of("/notifications", nil).To(socket.Room(uid)).Emit("notification", payload); err != nil {
		log.Printf("Error emitting notification to [%s]: %s\n", uid, err.Error())
	}
}
