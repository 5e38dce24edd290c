package history

import (
	"time"

	"github.com/BaSui01/technoflow/music"
)

// GenerationRecord 生成记录表
type GenerationRecord struct {
	ID            string        `gorm:"primaryKey;size:36"`
	Service       string        `gorm:"size:32;index"`
	Style         string        `gorm:"size:32"`
	UserPrompt    string        `gorm:"type:text"`
	Prompt        string        `gorm:"type:text"`
	Seed          int
	Lyrics        string        `gorm:"type:text"`
	JobIDs        []string      `gorm:"serializer:json;type:text"`
	State         string        `gorm:"size:16;index"`
	ErrorCode     string        `gorm:"size:32"`
	ErrorMessage  string        `gorm:"type:text"`
	ElapsedMS     int64
	StatusQueries int
	Cached        bool
	CreatedAt     time.Time     `gorm:"index"`
	Tracks        []TrackRecord `gorm:"foreignKey:GenerationID;constraint:OnDelete:CASCADE"`
}

// TableName 表名
func (GenerationRecord) TableName() string { return "generations" }

// TrackRecord 音轨表
type TrackRecord struct {
	ID           uint   `gorm:"primaryKey"`
	GenerationID string `gorm:"size:36;index"`
	Position     int
	TrackID      string  `gorm:"size:128"`
	Title        string  `gorm:"size:255"`
	AudioURL     string  `gorm:"type:text"`
	Duration     float64
	CreatedAt    time.Time
}

// TableName 表名
func (TrackRecord) TableName() string { return "generation_tracks" }

func fromGeneration(g *music.Generation) *GenerationRecord {
	rec := &GenerationRecord{
		ID:            g.ID,
		Service:       g.Service,
		Style:         g.Style,
		UserPrompt:    g.UserPrompt,
		Prompt:        g.Prompt,
		Seed:          g.Seed,
		Lyrics:        g.Lyrics,
		JobIDs:        g.JobIDs,
		State:         g.State,
		ErrorCode:     g.ErrorCode,
		ErrorMessage:  g.ErrorMessage,
		ElapsedMS:     g.Elapsed.Milliseconds(),
		StatusQueries: g.Queries,
		Cached:        g.Cached,
		CreatedAt:     g.CreatedAt,
	}
	for i, t := range g.Tracks {
		rec.Tracks = append(rec.Tracks, TrackRecord{
			GenerationID: g.ID,
			Position:     i,
			TrackID:      t.ID,
			Title:        t.Title,
			AudioURL:     t.AudioURL,
			Duration:     t.Duration,
			CreatedAt:    t.CreatedAt,
		})
	}
	return rec
}

func (r *GenerationRecord) toGeneration() *music.Generation {
	g := &music.Generation{
		ID:           r.ID,
		Service:      r.Service,
		Style:        r.Style,
		UserPrompt:   r.UserPrompt,
		Prompt:       r.Prompt,
		Seed:         r.Seed,
		Lyrics:       r.Lyrics,
		JobIDs:       r.JobIDs,
		State:        r.State,
		ErrorCode:    r.ErrorCode,
		ErrorMessage: r.ErrorMessage,
		Elapsed:      time.Duration(r.ElapsedMS) * time.Millisecond,
		Queries:      r.StatusQueries,
		Cached:       r.Cached,
		CreatedAt:    r.CreatedAt,
	}
	for _, t := range r.Tracks {
		g.Tracks = append(g.Tracks, music.Track{
			ID:        t.TrackID,
			Title:     t.Title,
			AudioURL:  t.AudioURL,
			Duration:  t.Duration,
			Style:     r.Style,
			Prompt:    r.Prompt,
			Lyrics:    r.Lyrics,
			CreatedAt: t.CreatedAt,
		})
	}
	return g
}
