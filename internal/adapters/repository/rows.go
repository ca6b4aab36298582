package repository

import (
	"time"

	"github.com/okian/jansou/internal/domain/model"
)

type groupRow struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Slug          string `gorm:"size:100;not null;uniqueIndex"`
	Name          string `gorm:"size:100;not null"`
	StartPoint    int    `gorm:"not null"`
	TargetPoint   int    `gorm:"not null"`
	UmaFirst      int    `gorm:"not null"`
	UmaSecond     int    `gorm:"not null"`
	UmaThird      int    `gorm:"not null"`
	UmaFourth     int    `gorm:"not null"`
	ChomboEnabled bool   `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (groupRow) TableName() string { return "groups" }

func (r groupRow) toModel() model.Group {
	return model.Group{
		ID:            r.ID,
		Slug:          r.Slug,
		Name:          r.Name,
		StartPoint:    r.StartPoint,
		TargetPoint:   r.TargetPoint,
		Uma:           [4]int{r.UmaFirst, r.UmaSecond, r.UmaThird, r.UmaFourth},
		ChomboEnabled: r.ChomboEnabled,
		CreatedAt:     r.CreatedAt,
	}
}

func groupRowOf(g model.Group) groupRow {
	return groupRow{
		ID:            g.ID,
		Slug:          g.Slug,
		Name:          g.Name,
		StartPoint:    g.StartPoint,
		TargetPoint:   g.TargetPoint,
		UmaFirst:      g.Uma[0],
		UmaSecond:     g.Uma[1],
		UmaThird:      g.Uma[2],
		UmaFourth:     g.Uma[3],
		ChomboEnabled: g.ChomboEnabled,
		CreatedAt:     g.CreatedAt,
	}
}

type playerRow struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	GroupID   int64  `gorm:"not null;uniqueIndex:idx_player_group_name"`
	Name      string `gorm:"size:100;not null;uniqueIndex:idx_player_group_name"`
	CreatedAt time.Time
}

func (playerRow) TableName() string { return "players" }

func (r playerRow) toModel() model.Player {
	return model.Player{ID: r.ID, GroupID: r.GroupID, Name: r.Name, CreatedAt: r.CreatedAt}
}

// sessionRow is the session header. Its unique key is what makes the first of
// two concurrent submissions win.
type sessionRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	GroupID     int64  `gorm:"not null;uniqueIndex:idx_session_group_key"`
	SessionID   string `gorm:"size:100;not null;uniqueIndex:idx_session_group_key"`
	SessionDate *time.Time
	CreatedAt   time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type entryRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	GroupID     int64     `gorm:"not null;uniqueIndex:idx_entry_session_player"`
	SessionID   string    `gorm:"size:100;not null;uniqueIndex:idx_entry_session_player"`
	PlayerID    int64     `gorm:"not null;uniqueIndex:idx_entry_session_player;index"`
	Player      playerRow `gorm:"foreignKey:PlayerID"`
	RawScore    int       `gorm:"not null"`
	Chombo      int       `gorm:"not null;default:0"`
	Placement   float64
	SessionDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (entryRow) TableName() string { return "session_entries" }

func (r entryRow) toModel() model.SessionEntry {
	return model.SessionEntry{
		ID:          r.ID,
		GroupID:     r.GroupID,
		SessionID:   r.SessionID,
		PlayerID:    r.PlayerID,
		PlayerName:  r.Player.Name,
		RawScore:    r.RawScore,
		Chombo:      r.Chombo,
		SessionDate: r.SessionDate,
		Placement:   r.Placement,
		CreatedAt:   r.CreatedAt,
	}
}

type summaryRow struct {
	PlayerID         int64 `gorm:"primaryKey;autoIncrement:false"`
	GroupID          int64 `gorm:"not null;index"`
	Total            float64
	GamesPlayed      int
	AveragePerGame   float64
	AveragePlacement float64
	ChomboCount      int
	FirstPlaces      int
	SecondPlaces     int
	ThirdPlaces      int
	FourthPlaces     int
	UpdatedAt        time.Time
}

func (summaryRow) TableName() string { return "player_summaries" }

func (r summaryRow) toModel() model.PlayerSummary {
	return model.PlayerSummary{
		PlayerID:         r.PlayerID,
		Total:            r.Total,
		GamesPlayed:      r.GamesPlayed,
		AveragePerGame:   r.AveragePerGame,
		AveragePlacement: r.AveragePlacement,
		ChomboCount:      r.ChomboCount,
		PlacementCounts:  [4]int{r.FirstPlaces, r.SecondPlaces, r.ThirdPlaces, r.FourthPlaces},
		UpdatedAt:        r.UpdatedAt,
	}
}

func summaryRowOf(groupID int64, s model.PlayerSummary) summaryRow {
	return summaryRow{
		PlayerID:         s.PlayerID,
		GroupID:          groupID,
		Total:            s.Total,
		GamesPlayed:      s.GamesPlayed,
		AveragePerGame:   s.AveragePerGame,
		AveragePlacement: s.AveragePlacement,
		ChomboCount:      s.ChomboCount,
		FirstPlaces:      s.PlacementCounts[0],
		SecondPlaces:     s.PlacementCounts[1],
		ThirdPlaces:      s.PlacementCounts[2],
		FourthPlaces:     s.PlacementCounts[3],
		UpdatedAt:        s.UpdatedAt,
	}
}
