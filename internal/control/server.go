// Package control exposes a websocket surface for steering a live
// simulation: triggering events, resetting the circuit breaker, and
// querying status. All commands funnel onto the scheduler thread, so the
// control surface can never race the core.
package control

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Sashreek007/MarketDynamicsSim/internal/effects"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Core is the slice of the simulation the control surface drives.
// TriggerEvent and ResetCircuitBreaker must be safe to call from the
// server goroutine; the simulation queues them onto its own thread.
type Core interface {
	TriggerEvent(t effects.EventType, p effects.Params) error
	ResetCircuitBreaker()
	Status() Status
}

// Status is the reply to a status command.
type Status struct {
	SimTime   float64            `json:"sim_time"`
	Halted    bool               `json:"halted"`
	Sentiment float64            `json:"sentiment"`
	Prices    map[string]float64 `json:"prices"`
}

// Command is one inbound control message. Absent numeric fields decode to
// nil and let the event archetype pick its default; a field set to 0 in the
// JSON is passed through as an explicit zero.
type Command struct {
	Cmd         string   `json:"cmd"`
	Type        string   `json:"type,omitempty"`
	Ticker      string   `json:"ticker,omitempty"`
	Magnitude   *float64 `json:"magnitude,omitempty"`
	Sentiment   *float64 `json:"sentiment,omitempty"`
	Volatility  *float64 `json:"volatility,omitempty"`
	Description string   `json:"description,omitempty"`
}

type reply struct {
	OK     bool    `json:"ok"`
	Error  string  `json:"error,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// Server serves the control websocket. It never blocks or fails the
// simulation; a dead control server just stops accepting commands.
type Server struct {
	core Core
	mux  *http.ServeMux
}

func NewServer(core Core) *Server {
	s := &Server{core: core, mux: http.NewServeMux()}
	s.mux.HandleFunc("/ws", s.handleWS)
	return s
}

// Handler exposes the mux for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving the control surface. Intended to run on its
// own goroutine; errors are logged, never fatal to the caller.
func (s *Server) ListenAndServe(addr string) {
	slog.Info("control server listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, s.mux); err != nil {
		slog.Error("control server stopped", slog.Any("error", err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("control connection closed", slog.Any("error", err))
			}
			return
		}
		resp := s.dispatch(cmd)
		if err := conn.WriteJSON(resp); err != nil {
			slog.Debug("control write failed", slog.Any("error", err))
			return
		}
	}
}

func (s *Server) dispatch(cmd Command) reply {
	switch cmd.Cmd {
	case "trigger_event":
		t, err := effects.ParseEventType(cmd.Type)
		if err != nil {
			return reply{Error: err.Error()}
		}
		err = s.core.TriggerEvent(t, effects.Params{
			Ticker:      cmd.Ticker,
			Magnitude:   cmd.Magnitude,
			Sentiment:   cmd.Sentiment,
			Volatility:  cmd.Volatility,
			Description: cmd.Description,
		})
		if err != nil {
			return reply{Error: err.Error()}
		}
		return reply{OK: true}

	case "reset_breaker":
		s.core.ResetCircuitBreaker()
		return reply{OK: true}

	case "status":
		st := s.core.Status()
		return reply{OK: true, Status: &st}

	default:
		return reply{Error: "unknown command " + cmd.Cmd}
	}
}
