// Package history keeps an optional log of channel topics and messages.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/presbrey/flex/gormoize"
	"github.com/presbrey/flex/irc"
	"github.com/presbrey/flex/logging"
	"github.com/presbrey/flex/wait"
	"gorm.io/gorm"
)

// TopicChange is one TOPIC set or unset
type TopicChange struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Channel   string    `gorm:"index;size:64" json:"channel"`
	Text      string    `gorm:"size:1024" json:"text"`
	UpdatedBy string    `gorm:"size:256" json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageLog is one channel PRIVMSG or NOTICE
type MessageLog struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Channel   string    `gorm:"index;size:64" json:"channel"`
	Sender    string    `gorm:"size:256" json:"sender"`
	Text      string    `gorm:"size:1024" json:"text"`
	Notice    bool      `json:"notice"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder persists chat history
type Recorder interface {
	RecordTopic(ctx context.Context, change TopicChange) error
	RecordMessage(ctx context.Context, msg MessageLog) error
	Topics(ctx context.Context, channel string, limit int) ([]TopicChange, error)
	Messages(ctx context.Context, channel string, limit int) ([]MessageLog, error)
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordTopic(context.Context, TopicChange) error  { return nil }
func (Nop) RecordMessage(context.Context, MessageLog) error { return nil }

func (Nop) Topics(context.Context, string, int) ([]TopicChange, error) { return nil, nil }
func (Nop) Messages(context.Context, string, int) ([]MessageLog, error) {
	return nil, nil
}

// Store is a gorm-backed Recorder
type Store struct {
	db *gorm.DB
}

// Open returns a Store for dsn through the gormoize cache, or Nop when dsn is
// empty
func Open(dsn string) (Recorder, error) {
	if dsn == "" {
		return Nop{}, nil
	}

	db, err := gormoize.Connection().WithDSN(dsn).Get()
	if err != nil {
		return nil, err
	}
	return NewStore(db)
}

// Dial is Open retried with exponential backoff until the database answers
// or timeout passes. Unsupported DSNs fail at once.
func Dial(ctx context.Context, dsn string, timeout time.Duration) (Recorder, error) {
	log := logging.With("history")
	opts := &wait.Options{
		Timeout:  timeout,
		Strategy: wait.NewBackoffStrategy(250*time.Millisecond, 2, 5*time.Second, true),
	}

	var rec Recorder
	var last error
	err := wait.Until(ctx, func() (bool, error) {
		r, err := Open(dsn)
		switch {
		case errors.Is(err, gormoize.ErrUnsupportedDSN):
			return false, err
		case err != nil:
			last = err
			log.Warn().Err(err).Msg("history store unavailable, retrying")
			return false, nil
		}
		rec = r
		return true, nil
	}, opts)
	if err != nil {
		if last != nil {
			return nil, fmt.Errorf("history: %w: %w", err, last)
		}
		return nil, fmt.Errorf("history: %w", err)
	}
	return rec, nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Pinger is implemented by recorders that can report their health
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewStore migrates the history tables on db
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&TopicChange{}, &MessageLog{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) RecordTopic(ctx context.Context, change TopicChange) error {
	change.Channel = irc.Casefold(change.Channel)
	return s.db.WithContext(ctx).Create(&change).Error
}

func (s *Store) RecordMessage(ctx context.Context, msg MessageLog) error {
	msg.Channel = irc.Casefold(msg.Channel)
	return s.db.WithContext(ctx).Create(&msg).Error
}

// Topics returns the latest topic changes of channel, newest first
func (s *Store) Topics(ctx context.Context, channel string, limit int) ([]TopicChange, error) {
	var out []TopicChange
	err := s.db.WithContext(ctx).
		Where("channel = ?", irc.Casefold(channel)).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Messages returns the latest messages of channel, newest first
func (s *Store) Messages(ctx context.Context, channel string, limit int) ([]MessageLog, error) {
	var out []MessageLog
	err := s.db.WithContext(ctx).
		Where("channel = ?", irc.Casefold(channel)).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
