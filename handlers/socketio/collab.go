package socketio

import (
	"context"
	"reflect"

	"github.com/jackwatters45/gate-cs-ws/collab"
	"github.com/jackwatters45/gate-cs-ws/handlers/wire"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	sio "github.com/zishang520/socket.io/v2/socket"
)

type Options struct {
	Origins           []string
	MaxHttpBufferSize int64
}

func SetupSocketIO(engine *collab.Engine, opts Options) *sio.Server {
	serverOpts := sio.DefaultServerOptions()
	serverOpts.SetMaxHttpBufferSize(opts.MaxHttpBufferSize)
	serverOpts.SetPath("/socket.io")
	serverOpts.SetAllowEIO3(true)
	serverOpts.SetCors(&types.Cors{
		Origin:      corsOrigins(opts.Origins),
		Credentials: true,
	})
	srv := sio.NewServer(nil, serverOpts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		client, ok := clients[0].(*sio.Socket)
		if !ok {
			return
		}
		handleConnection(engine, socketConn{socket: client})
	})

	return srv
}

// conn is the part of a socket.io socket the collaboration protocol uses.
type conn interface {
	ID() string
	Emit(event string, payload any) error
	Handle(event string, fn func(...any))
}

type socketConn struct {
	socket *sio.Socket
}

func (c socketConn) ID() string { return string(c.socket.Id()) }

func (c socketConn) Emit(event string, payload any) error {
	return c.socket.Emit(event, payload)
}

func (c socketConn) Handle(event string, fn func(...any)) {
	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	c.socket.On(event, fn)
}

func handleConnection(engine *collab.Engine, client conn) {
	session := collab.NewSession(collab.EmitterFunc(func(event string, payload any) error {
		return client.Emit(event, wire.Generic(payload))
	}))
	log := logrus.WithFields(logrus.Fields{
		"session_id": session.ID(),
		"socket_id":  client.ID(),
	})
	log.Info("A user connected")

	for _, event := range wire.InboundEvents() {
		client.Handle(event, func(datas ...any) {
			wire.Dispatch(context.Background(), engine, session, event, firstArg(datas))
		})
	}

	client.Handle("disconnect", func(datas ...any) {
		engine.Leave(session)
		log.WithField("reason", firstArg(datas)).Info("User disconnected")
	})
}

// firstArg returns the event payload, skipping a trailing ack callback.
func firstArg(datas []any) any {
	if len(datas) == 0 {
		return nil
	}
	if isFunc(datas[0]) {
		return nil
	}
	return datas[0]
}

func isFunc(v any) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.Func
}

func corsOrigins(origins []string) []any {
	out := make([]any, 0, len(origins))
	for _, origin := range origins {
		out = append(out, origin)
	}
	return out
}
