// Package auth provides account registration, JWT login and per-game
// win/loss statistics over Postgres.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidToken       = errors.New("invalid token")
)

type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
}

// GameStats is one user's record for one game type.
type GameStats struct {
	GameType      string `json:"gameType"`
	Played        int    `json:"played"`
	Won           int    `json:"won"`
	CurrentStreak int    `json:"currentStreak"`
	LongestStreak int    `json:"longestStreak"`
}

type Service struct {
	pool     *pgxpool.Pool
	secret   []byte
	tokenTTL time.Duration
	log      *logrus.Entry
}

func New(pool *pgxpool.Pool, jwtSecret string, tokenTTL time.Duration) *Service {
	return &Service{
		pool:     pool,
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
		log:      logrus.WithField("component", "auth"),
	}
}

// EnsureSchema creates the auth tables when they do not exist yet.
func (s *Service) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS game_stats (
			user_id UUID NOT NULL REFERENCES users(id),
			game_type TEXT NOT NULL,
			played INT NOT NULL DEFAULT 0,
			won INT NOT NULL DEFAULT 0,
			current_streak INT NOT NULL DEFAULT 0,
			longest_streak INT NOT NULL DEFAULT 0,
			last_played TIMESTAMPTZ,
			PRIMARY KEY (user_id, game_type)
		);
	`)
	return err
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, display_name) VALUES ($1, $2, $3, $2)`,
		id, username, string(hash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.log.WithField("username", username).Info("user registered")
	return &User{ID: id, Username: username, DisplayName: username}, nil
}

// Login verifies the password and issues a signed token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *User, error) {
	var u User
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, display_name, password_hash FROM users WHERE username = $1`,
		username).Scan(&u.ID, &u.Username, &u.DisplayName, &hash)
	if err == pgx.ErrNoRows {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, &u, nil
}

func (s *Service) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a token and returns the user id it carries.
func (s *Service) VerifyToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// Profile fetches a user and their per-game stats.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*User, []GameStats, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, display_name FROM users WHERE id = $1`,
		userID).Scan(&u.ID, &u.Username, &u.DisplayName)
	if err == pgx.ErrNoRows {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT game_type, played, won, current_streak, longest_streak
		   FROM game_stats WHERE user_id = $1 ORDER BY game_type`,
		userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load stats: %w", err)
	}
	defer rows.Close()

	var stats []GameStats
	for rows.Next() {
		var gs GameStats
		if err := rows.Scan(&gs.GameType, &gs.Played, &gs.Won, &gs.CurrentStreak, &gs.LongestStreak); err != nil {
			return nil, nil, fmt.Errorf("scan stats: %w", err)
		}
		stats = append(stats, gs)
	}
	return &u, stats, rows.Err()
}

// UpdateDisplayName changes the user's display name.
func (s *Service) UpdateDisplayName(ctx context.Context, userID uuid.UUID, name string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET display_name = $2 WHERE id = $1`, userID, name)
	return err
}

// RecordGameResult upserts the played/won counters and the win streak
// for one game type. A loss resets the current streak.
func (s *Service) RecordGameResult(ctx context.Context, userID uuid.UUID, gameType string, won bool) error {
	wonInc := 0
	if won {
		wonInc = 1
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_stats (user_id, game_type, played, won, current_streak, longest_streak, last_played)
		VALUES ($1, $2, 1, $3, $3, $3, now())
		ON CONFLICT (user_id, game_type) DO UPDATE SET
			played = game_stats.played + 1,
			won = game_stats.won + $3,
			current_streak = CASE WHEN $3 = 1 THEN game_stats.current_streak + 1 ELSE 0 END,
			longest_streak = GREATEST(game_stats.longest_streak,
				CASE WHEN $3 = 1 THEN game_stats.current_streak + 1 ELSE 0 END),
			last_played = now()`,
		userID, gameType, wonInc)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}
