// Package postgres implements storage on a relational database through GORM.
package postgres

import (
	"context"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mcoot/gridarena/internal/model"
	"github.com/mcoot/gridarena/internal/storage"
)

// Storage is a GORM-backed implementation of the storage interface
type Storage struct {
	db *gorm.DB
}

// New opens a PostgreSQL connection from a DSN and migrates the schema
func New(dsn string) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing GORM handle (for testing with other dialectors)
func NewWithDB(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(
		&playerRow{},
		&credentialsRow{},
		&roomRow{},
		&achievementRow{},
		&unlockRow{},
	); err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// upsert inserts the row or overwrites every column of the existing one
func (s *Storage) upsert(ctx context.Context, row any) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

// Profile operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	return s.upsert(ctx, toPlayerRow(player))
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var row playerRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.db.WithContext(ctx).Delete(&playerRow{}, "id = ?", string(id)).Error
}

func (s *Storage) ListTopPlayers(ctx context.Context, n int) ([]*model.Player, error) {
	if n == 0 {
		return []*model.Player{}, nil
	}

	q := s.db.WithContext(ctx).Order("lifetime_score desc").Order("id asc")
	if n > 0 {
		q = q.Limit(n)
	}

	var rows []playerRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	players := make([]*model.Player, len(rows))
	for i := range rows {
		players[i] = rows[i].toModel()
	}
	return players, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	return s.upsert(ctx, &credentialsRow{
		Username:     creds.Username,
		PlayerID:     string(creds.PlayerID),
		PasswordHash: creds.PasswordHash,
		CreatedAt:    creds.CreatedAt,
		UpdatedAt:    creds.UpdatedAt,
	})
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	var row credentialsRow
	err := s.db.WithContext(ctx).First(&row, "username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return &model.Credentials{
		PlayerID:     model.PlayerID(row.PlayerID),
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	return s.upsert(ctx, toRoomRow(room))
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	var row roomRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	return s.db.WithContext(ctx).Delete(&roomRow{}, "id = ?", string(id)).Error
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	var rows []roomRow
	if err := s.db.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	rooms := make([]*model.Room, len(rows))
	for i := range rows {
		rooms[i] = rows[i].toModel()
	}
	return rooms, nil
}

// Achievement catalog operations

func (s *Storage) SaveAchievements(ctx context.Context, achievements []model.Achievement) error {
	if len(achievements) == 0 {
		return nil
	}

	rows := make([]achievementRow, len(achievements))
	for i, a := range achievements {
		rows[i] = achievementRow{
			ID:          string(a.ID),
			Name:        a.Name,
			Description: a.Description,
			Requirement: a.Requirement,
			Icon:        a.Icon,
		}
	}
	return s.upsert(ctx, &rows)
}

func (s *Storage) ListAchievements(ctx context.Context) ([]model.Achievement, error) {
	var rows []achievementRow
	if err := s.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]model.Achievement, len(rows))
	for i, r := range rows {
		result[i] = model.Achievement{
			ID:          model.AchievementID(r.ID),
			Name:        r.Name,
			Description: r.Description,
			Requirement: r.Requirement,
			Icon:        r.Icon,
		}
	}
	return result, nil
}

// Unlock ledger operations

func (s *Storage) HasAchievement(ctx context.Context, playerID model.PlayerID, id model.AchievementID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&unlockRow{}).
		Where("player_id = ? AND achievement_id = ?", string(playerID), string(id)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Storage) GrantAchievement(ctx context.Context, record model.UnlockRecord) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&unlockRow{
		PlayerID:      string(record.PlayerID),
		AchievementID: string(record.AchievementID),
		UnlockedAt:    record.UnlockedAt,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Storage) ListUnlocks(ctx context.Context, playerID model.PlayerID) ([]model.UnlockRecord, error) {
	var rows []unlockRow
	err := s.db.WithContext(ctx).
		Where("player_id = ?", string(playerID)).
		Order("unlocked_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]model.UnlockRecord, len(rows))
	for i, r := range rows {
		result[i] = model.UnlockRecord{
			PlayerID:      model.PlayerID(r.PlayerID),
			AchievementID: model.AchievementID(r.AchievementID),
			UnlockedAt:    r.UnlockedAt,
		}
	}
	return result, nil
}
