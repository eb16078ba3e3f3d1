package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/realtime/codec"
)

const playHelp = `Commands:
  move <x> <y>           Move to a cell within one step
  attack                 Melee attack adjacent players
  hit <player> [damage]  Direct hit on a player
  join <room-id>         Switch to another room
  leave                  Leave the current room
  quit                   Disconnect`

var errQuit = errors.New("quit")

func newPlayCmd() *cobra.Command {
	var binary bool

	cmd := &cobra.Command{
		Use:   "play <room-id>",
		Short: "Join a room over the realtime websocket and play interactively",
		Long: `Open a realtime session, join the room and read commands from stdin.
Room events are printed as they arrive.

` + playHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("not logged in: run 'arenactl player guest' or 'arenactl player login' first")
			}
			return play(cmd.InOrStdin(), cmd.OutOrStdout(), model.RoomID(args[0]), binary)
		},
	}

	cmd.Flags().BoolVar(&binary, "msgpack", false, "Use the binary msgpack subprotocol")

	return cmd
}

func play(in io.Reader, out io.Writer, roomID model.RoomID, binary bool) error {
	target, err := client.WebsocketURL("/api/v1/ws")
	if err != nil {
		return err
	}

	protocol := codec.SubprotocolJSON
	if binary {
		protocol = codec.SubprotocolMsgpack
	}
	dialer := websocket.Dialer{
		Subprotocols:     []string{protocol},
		HandshakeTimeout: 10 * time.Second,
	}
	header := http.Header{"Authorization": []string{"Bearer " + cfg.Token}}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	cd := codec.ForSubprotocol(conn.Subprotocol())
	messageType := websocket.TextMessage
	if cd.Binary() {
		messageType = websocket.BinaryMessage
	}
	send := func(intent model.Intent) error {
		data, err := cd.EncodeIntent(intent)
		if err != nil {
			return err
		}
		return conn.WriteMessage(messageType, data)
	}

	// Reader
	done := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			event, err := cd.DecodeEvent(data)
			if err != nil {
				fmt.Fprintf(out, "undecodable frame: %v\n", err)
				continue
			}
			printGameEvent(out, event, cfg.Output == "json")
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		close(lines)
	}()

	if err := send(model.JoinRoomIntent{RoomID: roomID}); err != nil {
		return fmt.Errorf("failed to join: %w", err)
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return closeSession(conn)
			}
			intent, err := parseCommand(line)
			if errors.Is(err, errQuit) {
				return closeSession(conn)
			}
			if err != nil {
				fmt.Fprintf(out, "%v\n%s\n", err, playHelp)
				continue
			}
			if intent == nil {
				continue
			}
			if err := send(intent); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}

		case err := <-done:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fmt.Fprintln(out, "Disconnected")
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)

		case <-ctx.Done():
			return closeSession(conn)
		}
	}
}

func closeSession(conn *websocket.Conn) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return nil
}

// parseCommand turns one line of input into an intent. Blank lines yield a
// nil intent.
func parseCommand(line string) (model.Intent, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "move", "m":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: move <x> <y>")
		}
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("move: coordinates must be integers")
		}
		return model.MoveIntent{Position: model.Position{X: x, Y: y}}, nil

	case "attack", "a":
		return model.AttackIntent{}, nil

	case "hit":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("usage: hit <player> [damage]")
		}
		intent := model.PlayerHitIntent{TargetID: model.PlayerID(args[0])}
		if len(args) == 2 {
			damage, err := strconv.Atoi(args[1])
			if err != nil || damage <= 0 {
				return nil, fmt.Errorf("hit: damage must be a positive integer")
			}
			intent.Damage = damage
		}
		return intent, nil

	case "join":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: join <room-id>")
		}
		return model.JoinRoomIntent{RoomID: model.RoomID(args[0])}, nil

	case "leave":
		return model.LeaveRoomIntent{}, nil

	case "quit", "exit":
		return nil, errQuit

	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func printGameEvent(out io.Writer, event *model.Event, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.Marshal(event)
		fmt.Fprintln(out, string(data))
		return
	}

	payload, _ := json.Marshal(event.Payload)
	timestamp := event.Timestamp.Local().Format("15:04:05")
	fmt.Fprintf(out, "[%s] %s: %s\n", timestamp, event.Type, payload)
}
