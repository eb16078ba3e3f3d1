package postgres

import (
	"time"

	"github.com/mcoot/gridarena/internal/model"
)

// playerRow is the players table
type playerRow struct {
	ID            string `gorm:"primaryKey"`
	Username      string `gorm:"not null"`
	Avatar        string
	IsGuest       bool
	PositionX     int
	PositionY     int
	Health        int
	Score         int
	Kills         int
	Deaths        int
	Wins          int
	LifetimeScore int `gorm:"index"`
	CurrentRoom   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (playerRow) TableName() string { return "players" }

func toPlayerRow(p *model.Player) *playerRow {
	return &playerRow{
		ID:            string(p.ID),
		Username:      p.Username,
		Avatar:        p.Avatar,
		IsGuest:       p.IsGuest,
		PositionX:     p.Position.X,
		PositionY:     p.Position.Y,
		Health:        p.Health,
		Score:         p.Score,
		Kills:         p.Kills,
		Deaths:        p.Deaths,
		Wins:          p.Wins,
		LifetimeScore: p.LifetimeScore,
		CurrentRoom:   string(p.CurrentRoom),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r *playerRow) toModel() *model.Player {
	return &model.Player{
		ID:            model.PlayerID(r.ID),
		Username:      r.Username,
		Avatar:        r.Avatar,
		IsGuest:       r.IsGuest,
		Position:      model.Position{X: r.PositionX, Y: r.PositionY},
		Health:        r.Health,
		Score:         r.Score,
		Kills:         r.Kills,
		Deaths:        r.Deaths,
		Wins:          r.Wins,
		LifetimeScore: r.LifetimeScore,
		CurrentRoom:   model.RoomID(r.CurrentRoom),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// credentialsRow is the credentials table, keyed by login username
type credentialsRow struct {
	Username     string `gorm:"primaryKey"`
	PlayerID     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (credentialsRow) TableName() string { return "credentials" }

// roomRow is the rooms table. Members are stored as a JSON array in join order.
type roomRow struct {
	ID         string           `gorm:"primaryKey"`
	Name       string           `gorm:"not null"`
	MaxPlayers int              `gorm:"not null"`
	Members    []model.PlayerID `gorm:"serializer:json"`
	CreatedAt  time.Time        `gorm:"index"`
	UpdatedAt  time.Time
}

func (roomRow) TableName() string { return "rooms" }

func toRoomRow(r *model.Room) *roomRow {
	return &roomRow{
		ID:         string(r.ID),
		Name:       r.Name,
		MaxPlayers: r.MaxPlayers,
		Members:    r.Members,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r *roomRow) toModel() *model.Room {
	return &model.Room{
		ID:         model.RoomID(r.ID),
		Name:       r.Name,
		MaxPlayers: r.MaxPlayers,
		Members:    r.Members,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// achievementRow is the achievement catalog table
type achievementRow struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	Requirement string `gorm:"not null"`
	Icon        string
}

func (achievementRow) TableName() string { return "achievements" }

// unlockRow is the user_achievements join table
type unlockRow struct {
	PlayerID      string `gorm:"primaryKey"`
	AchievementID string `gorm:"primaryKey"`
	UnlockedAt    time.Time
}

func (unlockRow) TableName() string { return "user_achievements" }
