// Package repository es la capa de acceso a datos sobre gorm.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reconoce violaciones UNIQUE de Postgres y SQLite,
// traducidas o no por gorm.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

// translate normaliza los errores de gorm a los sentinelas del paquete.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), isForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

// escapeLike escapa los comodines de LIKE; se usa con ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Page es una ventana offset/limit.
type Page struct {
	Offset int
	Limit  int
}

const newestFirst = "created_at DESC, id DESC"

// Repositories agrupa los repositorios sobre una misma conexión.
type Repositories struct {
	Users    UserRepository
	Posts    PostRepository
	Likes    LikeRepository
	Comments CommentRepository
	Follows  FollowRepository
}

func New(db *gorm.DB) Repositories {
	return Repositories{
		Users:    NewUserRepository(db),
		Posts:    NewPostRepository(db),
		Likes:    NewLikeRepository(db),
		Comments: NewCommentRepository(db),
		Follows:  NewFollowRepository(db),
	}
}
