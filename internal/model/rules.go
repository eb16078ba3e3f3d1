package model

// Position identifies a cell in the arena
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Chebyshev returns the king-move distance between two cells
func (p Position) Chebyshev(q Position) int {
	return max(abs(p.X-q.X), abs(p.Y-q.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Arena is the bounded grid players move in
type Arena struct {
	Width  int
	Height int
}

// Contains returns true if the position lies within [0,Width) x [0,Height)
func (a Arena) Contains(p Position) bool {
	return p.X >= 0 && p.X < a.Width && p.Y >= 0 && p.Y < a.Height
}

// Cells returns the number of cells in the arena
func (a Arena) Cells() int {
	return a.Width * a.Height
}

// Rules holds the tunable game constants
type Rules struct {
	Arena             Arena
	MaxHealth         int // Health after respawn
	MeleeDamage       int // Damage per proximity attack hit
	MeleeRange        int // Chebyshev distance counted as a hit
	DirectHitDamage   int // Default damage for targeted hits
	KillScore         int // Score and lifetime score per kill
	WinKills          int // Kills that end a round
	WinBonus          int // Lifetime score bonus for a win
	DefaultMaxPlayers int // Capacity used when a room is created without one
}

// DefaultRules returns the reference game rules
func DefaultRules() Rules {
	return Rules{
		Arena:             Arena{Width: 20, Height: 15},
		MaxHealth:         100,
		MeleeDamage:       20,
		MeleeRange:        1,
		DirectHitDamage:   10,
		KillScore:         100,
		WinKills:          10,
		WinBonus:          500,
		DefaultMaxPlayers: 4,
	}
}

// AttackTypeMelee is the only attack type of proximity attacks
const AttackTypeMelee = "melee"
