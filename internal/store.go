package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"captioner/internal/captions"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const captionChannel = "caption_created"

var ErrUserNotFound = errors.New("user not found")

type Store struct {
	postgres *pgxpool.Pool
}

func NewStore(postgres *pgxpool.Pool) *Store {
	return &Store{postgres: postgres}
}

func (s *Store) UpsertUser(ctx context.Context, user *User) error {
	return s.postgres.QueryRow(ctx,
		`insert into users (google_id, email, name) values ($1, $2, $3)
			on conflict (google_id) do update set email = excluded.email, name = excluded.name
			returning id`,
		user.GoogleID, user.Email, user.Name,
	).Scan(&user.ID)
}

func (s *Store) UserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	user := User{GoogleID: googleID}
	var email, name *string

	err := s.postgres.QueryRow(ctx, "select id, email, name from users where google_id = $1", googleID).
		Scan(&user.ID, &email, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, err
	}

	if email != nil {
		user.Email = *email
	}
	if name != nil {
		user.Name = *name
	}
	return &user, nil
}

// InsertCaption stores one generation. Anonymous captions get a NULL user_id;
// a signed-in identity without a users row is an error.
func (s *Store) InsertCaption(ctx context.Context, who captions.Identity, platform captions.Platform, result *captions.Result) (*CaptionRecord, error) {
	record := CaptionRecord{
		Platform: string(platform),
		Caption:  result.Caption,
		Hashtags: nonNil(result.Hashtags),
		Tips:     nonNil(result.Tips),
	}

	if !who.Anonymous() {
		user, err := s.UserByGoogleID(ctx, string(who))
		if err != nil {
			return nil, fmt.Errorf("resolving user: %w", err)
		}
		record.UserID = &user.ID
	}

	err := s.postgres.QueryRow(ctx,
		`insert into captions (user_id, platform, caption, hashtags, tips)
			values ($1, $2, $3, $4, $5)
			returning id, created_at`,
		record.UserID, record.Platform, record.Caption, record.Hashtags, record.Tips,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting caption: %w", err)
	}

	return &record, nil
}

// ListCaptions returns the newest captions of who. The anonymous identity sees
// captions stored without a user.
func (s *Store) ListCaptions(ctx context.Context, who captions.Identity, limit int) ([]CaptionRecord, error) {
	rows, err := s.postgres.Query(ctx,
		`select c.id, c.user_id, c.platform, c.caption, c.hashtags, c.tips, c.created_at, c.indexed_at
			from captions c left join users u on u.id = c.user_id
			where coalesce(u.google_id, '') = $1
			order by c.created_at desc, c.id desc
			limit $2`,
		string(who), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []CaptionRecord{}
	for rows.Next() {
		var r CaptionRecord
		err := rows.Scan(&r.ID, &r.UserID, &r.Platform, &r.Caption, &r.Hashtags, &r.Tips, &r.CreatedAt, &r.IndexedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) MarkIndexed(ctx context.Context, id int64) error {
	_, err := s.postgres.Exec(ctx, "update captions set indexed_at = now() where id = $1", id)
	return err
}

// UnindexedCaptions returns captions that no indexer confirmed and that are
// older than age.
func (s *Store) UnindexedCaptions(ctx context.Context, age time.Duration, limit int) ([]CaptionEvent, error) {
	rows, err := s.postgres.Query(ctx,
		`select c.id, coalesce(u.google_id, ''), c.platform, c.caption, c.hashtags, c.created_at
			from captions c left join users u on u.id = c.user_id
			where c.indexed_at is null and c.created_at < $1
			order by c.created_at
			limit $2`,
		time.Now().Add(-age), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []CaptionEvent
	for rows.Next() {
		var e CaptionEvent
		if err := rows.Scan(&e.ID, &e.User, &e.Platform, &e.Caption, &e.Hashtags, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Watch calls fn right away and again after every caption stored for who,
// until ctx ends or fn fails.
func (s *Store) Watch(ctx context.Context, who captions.Identity, fn func() error) error {
	db, err := s.postgres.Acquire(ctx)
	if err != nil {
		return err
	}
	defer db.Release()

	if _, err := db.Exec(ctx, "listen "+captionChannel); err != nil {
		return err
	}
	defer db.Exec(context.Background(), "unlisten "+captionChannel)

	for {
		if err := fn(); err != nil {
			return err
		}

		for {
			notification, err := db.Conn().WaitForNotification(ctx)
			if err != nil {
				return err
			}
			if notification.Payload == string(who) {
				break
			}
		}
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.postgres.Ping(ctx)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
