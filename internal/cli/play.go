package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/bot"
)

func newPlayCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "play [room]",
		Short: "Join a match over the websocket and play from the terminal",
		Long: `Connect to the server's websocket, join a room and play interactively.

By default you are matched with a random opponent. Pass a room code to
rejoin a game you are already part of.

Commands (one per line on stdin):
  ships <id=START:DIR>...  submit your layout, e.g. ships carrier=A1:h ...
  ships @layout.json       submit a layout from a JSON file
  ships random             submit a random layout
  ready                    tell your opponent your ships are set
  fire <cell>              fire at a cell, e.g. fire D5
  auto                     let the computer pick your next shot
  say <text>               chat with your opponent
  board                    show the game from your side
  quit                     disconnect

Server events are printed as they arrive. Press Ctrl+C to disconnect.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room := string(model.RandomRoom)
			if len(args) == 1 {
				room = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return play(ctx, room, jsonOutput, os.Stdin)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// frame is the websocket message format in both directions
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSEvent is a received event as printed with --json
type WSEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// playSession tracks which game the connection is in and the shots we fired
type playSession struct {
	conn     *websocket.Conn
	strategy bot.Strategy

	mu     sync.Mutex
	room   model.RoomID
	gameID model.GameID
	role   model.Role
	shots  model.PlayerBoard
}

func play(ctx context.Context, room string, jsonOutput bool, input io.Reader) error {
	if cfg.Token == "" {
		return errors.New("no session token: run 'bsctl player guest' or 'bsctl player login' first")
	}

	wsURL, err := client.WebSocketURL()
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	s := &playSession{conn: conn, strategy: bot.NewHuntStrategy(random.New())}

	readErr := make(chan error, 1)
	go func() {
		readErr <- s.readLoop(jsonOutput)
	}()

	if !jsonOutput {
		fmt.Println("Connected")
	}
	if err := s.send(model.EventJoinRoom, room); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.close()
			if !jsonOutput {
				fmt.Println("\nDisconnected")
			}
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("connection lost: %w", err)
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				s.close()
				return nil
			}
			quit, err := s.handleCommand(line)
			if err != nil {
				NewOutput(cfg.Output).PrintError(err)
			}
			if quit {
				s.close()
				return nil
			}
		}
	}
}

func (s *playSession) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.conn.WriteJSON(frame{Event: event, Data: data})
}

func (s *playSession) close() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (s *playSession) current() (model.RoomID, model.GameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.gameID
}

func (s *playSession) readLoop(jsonOutput bool) error {
	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		s.track(f)
		printEvent(f, jsonOutput)
	}
}

// track remembers the room and game once the server confirms them
func (s *playSession) track(f frame) {
	switch f.Event {
	case model.EventJoined:
		var p model.JoinedPayload
		if json.Unmarshal(f.Data, &p) != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		// the opening joined event names our role; a later one announces the match
		if s.gameID != p.GameID {
			s.room, s.gameID, s.role = p.Room, p.GameID, p.Player
			s.shots = model.PlayerBoard{}
		}
	case model.EventReconnected:
		var p model.ReconnectedPayload
		if json.Unmarshal(f.Data, &p) != nil {
			return
		}
		detail, ok := lookupGame(p.Room)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.room = p.Room
		if ok {
			s.gameID = model.GameID(detail.Game.ID)
			s.role = model.Role(detail.Role)
			s.shots = model.PlayerBoard{Hits: detail.Own.Hits, Misses: detail.Own.Misses}
		}
	case model.EventResponse:
		var p model.ShotResponsePayload
		if json.Unmarshal(f.Data, &p) != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if p.PlayerString != s.role {
			return
		}
		if p.Result == model.ShotHit {
			s.shots.Hits = append(s.shots.Hits, p.Target)
		} else {
			s.shots.Misses = append(s.shots.Misses, p.Target)
		}
	}
}

// nextTarget asks the strategy for a shot we have not fired yet
func (s *playSession) nextTarget() (model.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shots := s.shots.Clone()
	return s.strategy.ChooseTarget(&shots)
}

// lookupGame fetches our view of the active game in a room, since
// reconnected does not carry the game id
func lookupGame(room model.RoomID) (GameDetail, bool) {
	var list GameList
	if err := client.Get("/api/v1/games?active=true", &list); err != nil {
		return GameDetail{}, false
	}
	for _, g := range list.Games {
		if g.RoomID != string(room) {
			continue
		}
		var detail GameDetail
		if err := client.Get(fmt.Sprintf("/api/v1/games/%s", g.ID), &detail); err != nil {
			return GameDetail{}, false
		}
		return detail, true
	}
	return GameDetail{}, false
}

func (s *playSession) handleCommand(line string) (quit bool, err error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	room, gameID := s.current()

	switch strings.ToLower(verb) {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "fire":
		if gameID == "" {
			return false, errors.New("not in a game yet")
		}
		target, err := model.ParseCoordinate(rest)
		if err != nil {
			return false, fmt.Errorf("usage: fire <cell>, e.g. fire D5")
		}
		return false, s.send(model.EventFire, model.FireRequest{GameID: gameID, RoomID: room, Target: target})
	case "auto":
		if gameID == "" {
			return false, errors.New("not in a game yet")
		}
		target, ok := s.nextTarget()
		if !ok {
			return false, errors.New("no cells left to fire at")
		}
		fmt.Printf("firing at %s\n", target)
		return false, s.send(model.EventFire, model.FireRequest{GameID: gameID, RoomID: room, Target: target})
	case "ships":
		if gameID == "" {
			return false, errors.New("not in a game yet")
		}
		var ships []model.Ship
		if rest == "random" {
			ships = bot.RandomLayout(random.New())
		} else if file, ok := strings.CutPrefix(rest, "@"); ok {
			ships, err = loadLayout(file, nil)
		} else {
			ships, err = loadLayout("", strings.Fields(rest))
		}
		if err != nil {
			return false, err
		}
		return false, s.send(model.EventPlaceShips, model.PlaceShipsRequest{GameID: gameID, Ships: ships})
	case "ready":
		if room == "" {
			return false, errors.New("not in a room yet")
		}
		return false, s.send(model.EventShipsReady, room)
	case "say":
		if room == "" {
			return false, errors.New("not in a room yet")
		}
		return false, s.send(model.EventSendMessage, model.ChatRequest{Room: room, Message: rest})
	case "board":
		if gameID == "" {
			return false, errors.New("not in a game yet")
		}
		var detail GameDetail
		if err := client.Get(fmt.Sprintf("/api/v1/games/%s", gameID), &detail); err != nil {
			return false, err
		}
		NewOutput(cfg.Output).Print(detail)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q", verb)
	}
}

func printEvent(f frame, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		data, _ := json.Marshal(WSEvent{Time: now, Event: f.Event, Data: f.Data})
		fmt.Println(string(data))
		return
	}

	timestamp := now.Format("15:04:05")
	fmt.Printf("[%s] %s\n", timestamp, describeEvent(f))
}

// describeEvent renders an event as a line of text
func describeEvent(f frame) string {
	switch f.Event {
	case model.EventJoined:
		var p model.JoinedPayload
		if json.Unmarshal(f.Data, &p) == nil {
			return fmt.Sprintf("joined room %s as %s (game %s)", p.Room, p.Player, p.GameID)
		}
	case model.EventReconnected:
		var p model.ReconnectedPayload
		if json.Unmarshal(f.Data, &p) == nil {
			return fmt.Sprintf("reconnected to room %s", p.Room)
		}
	case model.EventResponse:
		var p model.ShotResponsePayload
		if json.Unmarshal(f.Data, &p) == nil {
			if p.Result == model.ShotHit {
				return fmt.Sprintf("%s fired at %s: hit %s", p.PlayerString, p.Target, p.ShipID)
			}
			return fmt.Sprintf("%s fired at %s: miss", p.PlayerString, p.Target)
		}
	case model.EventWin:
		var p model.WinPayload
		if json.Unmarshal(f.Data, &p) == nil {
			return fmt.Sprintf("game over, %s wins", p.Winner)
		}
	case model.EventOpponentReady:
		return "opponent is ready"
	case model.EventChatMessage:
		var p model.ChatMessagePayload
		if json.Unmarshal(f.Data, &p) == nil {
			return fmt.Sprintf("<%s> %s", p.Username, p.Message)
		}
	case model.EventShipsPlaced:
		var p model.ShipsPlacedPayload
		if json.Unmarshal(f.Data, &p) == nil {
			return fmt.Sprintf("ships placed (phase: %s)", p.Phase)
		}
	case model.EventErrorMessage:
		var p model.ErrorPayload
		if json.Unmarshal(f.Data, &p) == nil {
			return "error: " + p.Error
		}
	}
	return fmt.Sprintf("%s: %s", f.Event, string(f.Data))
}
