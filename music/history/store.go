package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/technoflow/internal/database"
	"github.com/BaSui01/technoflow/music"
	"github.com/BaSui01/technoflow/types"
)

const (
	// DefaultListLimit 默认分页大小
	DefaultListLimit = 20
	// MaxListLimit 最大分页大小
	MaxListLimit = 100

	saveRetries = 3
)

// QueryRecorder 记录查询耗时，metrics.Collector 实现了它
type QueryRecorder interface {
	RecordDBQuery(database, operation string, duration time.Duration)
}

// Filter 列表查询条件
type Filter struct {
	Service string
	State   string
	Limit   int
	Offset  int
}

func (f Filter) normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithQueryRecorder 上报查询耗时
func WithQueryRecorder(r QueryRecorder) StoreOption {
	return func(s *Store) { s.recorder = r }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store 生成历史存储
type Store struct {
	pool     *database.PoolManager
	recorder QueryRecorder
	logger   *zap.Logger
}

var _ music.HistoryRecorder = (*Store)(nil)

// NewStore 创建历史存储
func NewStore(pool *database.PoolManager, opts ...StoreOption) *Store {
	s := &Store{pool: pool, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "history"))
	return s
}

// Migrate 创建或更新表结构
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&GenerationRecord{}, &TrackRecord{}); err != nil {
		return fmt.Errorf("migrate history tables: %w", err)
	}
	return nil
}

// Save 写入一次生成记录；同一 ID 重复写入时覆盖
func (s *Store) Save(ctx context.Context, g *music.Generation) error {
	if g == nil || g.ID == "" {
		return fmt.Errorf("generation id is required")
	}
	defer s.observe("save", time.Now())

	rec := fromGeneration(g)
	return s.pool.WithTransactionRetry(ctx, saveRetries, func(tx *gorm.DB) error {
		if err := tx.Where("generation_id = ?", rec.ID).Delete(&TrackRecord{}).Error; err != nil {
			return err
		}
		// 关联音轨单独写入
		err := tx.Omit("Tracks").Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
		if err != nil {
			return err
		}
		if len(rec.Tracks) > 0 {
			if err := tx.Create(&rec.Tracks).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Get 按 ID 读取
func (s *Store) Get(ctx context.Context, id string) (*music.Generation, error) {
	defer s.observe("get", time.Now())

	var rec GenerationRecord
	err := s.pool.DB().WithContext(ctx).
		Preload("Tracks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrNotFound, "generation not found").
			WithHTTPStatus(404)
	}
	if err != nil {
		return nil, fmt.Errorf("get generation %s: %w", id, err)
	}
	return rec.toGeneration(), nil
}

// List 按创建时间倒序分页查询，返回当前页与总数
func (s *Store) List(ctx context.Context, f Filter) ([]*music.Generation, int64, error) {
	defer s.observe("list", time.Now())
	f = f.normalize()

	scoped := func() *gorm.DB {
		q := s.pool.DB().WithContext(ctx).Model(&GenerationRecord{})
		if f.Service != "" {
			q = q.Where("service = ?", f.Service)
		}
		if f.State != "" {
			q = q.Where("state = ?", f.State)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count generations: %w", err)
	}

	var recs []GenerationRecord
	err := scoped().Preload("Tracks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list generations: %w", err)
	}

	out := make([]*music.Generation, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toGeneration())
	}
	return out, total, nil
}

// Ping 检查数据库连接，供 readiness 使用
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) observe(op string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordDBQuery(s.pool.Name(), op, time.Since(start))
	}
}
