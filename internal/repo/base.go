package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

// Base is embedded by repositories that always run on the shared connection.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB binds ctx to the connection. A nil ctx returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// FirstOrNil turns gorm.ErrRecordNotFound from a First/Take call into a nil
// row so "missing" is not treated as a failure.
func FirstOrNil[T any](row *T, err error) (*T, error) {
	if err == nil {
		return row, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// Page is a gorm scope applying the normalized offset and limit of params.
func Page(params pagination.Params) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(params.Offset()).Limit(params.Limit())
	}
}
