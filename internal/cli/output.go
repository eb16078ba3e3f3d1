package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Room:
		o.printRoom(v)
	case RoomList:
		o.printRoomList(v)
	case RoomSnapshot:
		o.printRoomSnapshot(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case Achievements:
		o.printAchievements(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Position is an arena cell
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Player response type (matches API)
type Player struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	Avatar        string   `json:"avatar,omitempty"`
	IsGuest       bool     `json:"is_guest"`
	Position      Position `json:"position"`
	Health        int      `json:"health"`
	Score         int      `json:"score"`
	Kills         int      `json:"kills"`
	Deaths        int      `json:"deaths"`
	Wins          int      `json:"wins"`
	LifetimeScore int      `json:"lifetime_score"`
	CurrentRoom   string   `json:"current_room,omitempty"`
}

// AuthResult is the session issued by guest, register and login
type AuthResult struct {
	SessionToken string `json:"session_token"`
	PlayerID     string `json:"player_id"`
	Username     string `json:"username"`
	IsGuest      bool   `json:"is_guest"`
	ExpiresAt    string `json:"expires_at"`
}

// Room response type
type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

// RoomList response type
type RoomList struct {
	Rooms []Room `json:"rooms"`
}

// RoomOccupant response type
type RoomOccupant struct {
	PlayerID string   `json:"player_id"`
	Username string   `json:"username"`
	Position Position `json:"position"`
	Health   int      `json:"health"`
	Kills    int      `json:"kills"`
	Deaths   int      `json:"deaths"`
	Score    int      `json:"score"`
	Wins     int      `json:"wins"`
}

// RoomSnapshot response type
type RoomSnapshot struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	MaxPlayers int            `json:"max_players"`
	Players    []RoomOccupant `json:"players"`
}

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	PlayerID      string `json:"player_id"`
	Username      string `json:"username"`
	LifetimeScore int    `json:"lifetime_score"`
	Wins          int    `json:"wins"`
	Kills         int    `json:"kills"`
}

// Leaderboard response type
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// Achievement response type
type Achievement struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Requirement string  `json:"requirement"`
	Achieved    bool    `json:"achieved"`
	UnlockedAt  *string `json:"unlocked_at,omitempty"`
}

// Achievements response type
type Achievements struct {
	Achievements []Achievement `json:"achievements"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	ActiveRooms int    `json:"active_rooms"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.Username, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
	if p.CurrentRoom != "" {
		fmt.Printf("Room: %s at %s, health %d\n", p.CurrentRoom, p.Position, p.Health)
	}
	fmt.Printf("Score: %d (lifetime %d)\n", p.Score, p.LifetimeScore)
	fmt.Printf("Kills: %d  Deaths: %d  Wins: %d\n", p.Kills, p.Deaths, p.Wins)
}

func (o *Output) printAuthResult(a AuthResult) {
	fmt.Printf("Player: %s (%s)\n", a.Username, a.PlayerID)
	fmt.Printf("Token: %s\n", a.SessionToken)
	fmt.Printf("Expires: %s\n", a.ExpiresAt)
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s (%s)\n", r.Name, r.ID)
	fmt.Printf("Players: %d/%d\n", r.PlayerCount, r.MaxPlayers)
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Println("No rooms")
		return
	}
	for _, r := range l.Rooms {
		fmt.Printf("%s  %-20s %d/%d\n", r.ID, r.Name, r.PlayerCount, r.MaxPlayers)
	}
}

func (o *Output) printRoomSnapshot(s RoomSnapshot) {
	fmt.Printf("Room: %s (%s)\n", s.Name, s.ID)
	fmt.Printf("Players (%d/%d):\n", len(s.Players), s.MaxPlayers)
	for _, p := range s.Players {
		fmt.Printf("  - %s at %s health %d, score %d, kills %d, deaths %d\n",
			p.Username, p.Position, p.Health, p.Score, p.Kills, p.Deaths)
	}
}

func (o *Output) printLeaderboard(l Leaderboard) {
	if len(l.Entries) == 0 {
		fmt.Println("No players yet")
		return
	}
	for _, e := range l.Entries {
		fmt.Printf("%3d. %-20s %6d  wins %d  kills %d\n", e.Rank, e.Username, e.LifetimeScore, e.Wins, e.Kills)
	}
}

func (o *Output) printAchievements(a Achievements) {
	for _, ach := range a.Achievements {
		mark := " "
		if ach.Achieved {
			mark = "x"
		}
		fmt.Printf("[%s] %s: %s\n", mark, ach.Name, ach.Description)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Connections: %d\n", h.Connections)
	fmt.Printf("Active rooms: %d\n", h.ActiveRooms)
}
